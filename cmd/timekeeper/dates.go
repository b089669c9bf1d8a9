package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	dps "github.com/markusmobius/go-dateparser"

	"Mansoor88-6/timekeeper/internal/timeline"
)

// parseWhen accepts a day key or any expression go-dateparser understands,
// relative to now.
func parseWhen(s string, now time.Time, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)

	if t, err := time.ParseInLocation(timeline.DayKeyLayout, s, loc); err == nil {
		return t, nil
	}

	dt, err := dps.Parse(&dps.Configuration{
		CurrentTime:     now.In(loc),
		DefaultTimezone: loc,
	}, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to parse date %q: %w", s, err)
	}
	return dt.Time.In(loc), nil
}

// parseDay is parseWhen truncated to the start of the day. Empty means
// today.
func parseDay(s string, now time.Time, loc *time.Location) (time.Time, error) {
	if s == "" {
		return timeline.StartOfDay(now, loc), nil
	}

	t, err := parseWhen(s, now, loc)
	if err != nil {
		return time.Time{}, err
	}
	return timeline.StartOfDay(t, loc), nil
}

// dayRange turns --from/--to into a half-open range of whole days. to is
// inclusive and defaults to today; from defaults to a week before it.
func dayRange(from, to string, now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	end, err := parseDay(to, now, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end = end.AddDate(0, 0, 1)

	start := end.AddDate(0, 0, -7)
	if from != "" {
		if start, err = parseDay(from, now, loc); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}

	if !end.After(start) {
		return time.Time{}, time.Time{}, errors.New("--from must not be after --to")
	}
	return start, end, nil
}
