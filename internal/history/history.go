// Package history merges timers, sleep and workouts into day sections for
// display.
package history

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"Mansoor88-6/timekeeper/internal/models"
	"Mansoor88-6/timekeeper/internal/timeline"
)

// Input is a snapshot of everything the history view needs. Build never
// mutates it.
type Input struct {
	Timers   []models.TimerRecord
	Sleep    []models.SleepSample
	Workouts []models.WorkoutRecord
	// TagFilter, when set, keeps only timers whose main tag matches.
	TagFilter *uuid.UUID
	Location  *time.Location
	Now       time.Time
}

// Day is one calendar day of entries, newest first.
type Day struct {
	Key     string           `json:"key"`
	Date    time.Time        `json:"date"`
	Entries []timeline.Entry `json:"entries"`
}

// Result holds day sections ordered newest first.
type Result struct {
	Days []Day `json:"days"`
}

// Keys returns the ordered day keys.
func (r Result) Keys() []string {
	keys := make([]string, len(r.Days))
	for i, d := range r.Days {
		keys[i] = d.Key
	}

	return keys
}

// ByKey returns the entries for a day key.
func (r Result) ByKey(key string) []timeline.Entry {
	for _, d := range r.Days {
		if d.Key == key {
			return d.Entries
		}
	}

	return nil
}

// Len returns the total number of entries.
func (r Result) Len() int {
	n := 0
	for _, d := range r.Days {
		n += len(d.Entries)
	}

	return n
}

// Build runs the full aggregation over in.
func Build(in Input) Result {
	loc := in.Location
	if loc == nil {
		loc = time.Local
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	entries := combine(in, loc, now)
	entries = filter(entries, in.TagFilter)

	return group(entries, loc)
}

func combine(in Input, loc *time.Location, now time.Time) []timeline.Entry {
	entries := make([]timeline.Entry, 0, len(in.Timers)+len(in.Workouts))

	for _, rec := range in.Timers {
		entries = append(entries, timeline.FromTimer(rec, now))
	}

	for _, d := range timeline.CollapseSleep(in.Sleep, loc) {
		entries = append(entries, timeline.FromDailySleep(d))
	}

	for _, w := range in.Workouts {
		entries = append(entries, timeline.FromWorkout(w))
	}

	return entries
}

func filter(entries []timeline.Entry, tagID *uuid.UUID) []timeline.Entry {
	if tagID == nil {
		return entries
	}

	kept := make([]timeline.Entry, 0, len(entries))

	for _, e := range entries {
		switch e.Kind {
		case timeline.KindTimer:
			if id, ok := e.TagID(); ok && id == *tagID {
				kept = append(kept, e)
			}
		case timeline.KindSleep, timeline.KindWorkout:
			// tagless entries are hidden while filtering
		}
	}

	return kept
}

func group(entries []timeline.Entry, loc *time.Location) Result {
	byDay := make(map[string]*Day)

	for _, e := range entries {
		key := timeline.DayKey(e.CreatedAt, loc)

		d, ok := byDay[key]
		if !ok {
			d = &Day{Key: key, Date: timeline.StartOfDay(e.CreatedAt, loc)}
			byDay[key] = d
		}

		d.Entries = append(d.Entries, e)
	}

	days := make([]Day, 0, len(byDay))
	for _, d := range byDay {
		timeline.SortDescending(d.Entries)
		days = append(days, *d)
	}

	sort.Slice(days, func(i, j int) bool {
		return days[i].Date.After(days[j].Date)
	})

	return Result{Days: days}
}
