// Package timeline unifies timers, sleep blocks and workouts into one
// closed record type for history and insights.
package timeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"Mansoor88-6/timekeeper/internal/models"
)

// Kind discriminates the source of an Entry.
type Kind int

const (
	KindTimer Kind = iota
	KindSleep
	KindWorkout
)

func (k Kind) String() string {
	switch k {
	case KindTimer:
		return "timer"
	case KindSleep:
		return "sleep"
	case KindWorkout:
		return "workout"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	for _, c := range []Kind{KindTimer, KindSleep, KindWorkout} {
		if c.String() == string(b) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("unknown entry kind %q", b)
}

// Fixed presentation for imported data.
const (
	SleepName     = "Sleep"
	SleepColor    = "#5E60CE"
	SleepIcon     = "bed"
	WorkoutName   = "Workouts"
	WorkoutColor  = "#F25C54"
	WorkoutIcon   = "figure.run"
	DayKeyLayout  = "2006-01-02"
	sleepIDPrefix = "timekeeper/sleep/"
)

// Entry is one row of the timeline. Exactly one of Timer, Sleep or Workout
// is set, according to Kind.
type Entry struct {
	Kind      Kind          `json:"kind"`
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	CreatedAt time.Time     `json:"creation_date"`
	Start     *time.Time    `json:"start_time,omitempty"`
	End       *time.Time    `json:"end_time,omitempty"`
	Duration  time.Duration `json:"duration"`
	Color     string        `json:"color"`
	Icon      string        `json:"icon"`

	Timer   *models.TimerRecord   `json:"-"`
	Sleep   *DailySleep           `json:"-"`
	Workout *models.WorkoutRecord `json:"-"`
}

// TagID returns the main tag id for timer entries.
func (e Entry) TagID() (uuid.UUID, bool) {
	if e.Kind != KindTimer || e.Timer == nil {
		return uuid.Nil, false
	}

	tag, ok := e.Timer.MainTag()
	if !ok {
		return uuid.Nil, false
	}

	return tag.ID, true
}

// DailySleep collapses all sleep samples that start on one calendar day.
type DailySleep struct {
	Date     time.Time     `json:"date"`
	Total    time.Duration `json:"total"`
	Earliest time.Time     `json:"earliest_start"`
	Latest   time.Time     `json:"latest_end"`
	Samples  int           `json:"samples"`
}

// FromTimer wraps a timer snapshot. Duration is measured at now.
func FromTimer(rec models.TimerRecord, now time.Time) Entry {
	e := Entry{
		Kind:      KindTimer,
		ID:        rec.ID.String(),
		Name:      rec.Name,
		CreatedAt: rec.CreatedAt,
		Start:     rec.StartTime,
		End:       rec.EndTime,
		Duration:  seconds(rec.ElapsedAt(now)),
		Timer:     &rec,
	}

	if tag, ok := rec.MainTag(); ok {
		e.Color = tag.Color
		e.Icon = tag.Icon
	}

	return e
}

// FromDailySleep wraps a synthesized sleep block.
func FromDailySleep(d DailySleep) Entry {
	start, end := d.Earliest, d.Latest

	return Entry{
		Kind:      KindSleep,
		ID:        SleepEntryID(d.Date).String(),
		Name:      SleepName,
		CreatedAt: d.Earliest,
		Start:     &start,
		End:       &end,
		Duration:  d.Total,
		Color:     SleepColor,
		Icon:      SleepIcon,
		Sleep:     &d,
	}
}

// FromWorkout wraps an imported workout.
func FromWorkout(w models.WorkoutRecord) Entry {
	start, end := w.Start, w.End

	name := w.Category
	if name == "" {
		name = WorkoutName
	}

	return Entry{
		Kind:      KindWorkout,
		ID:        w.ID,
		Name:      name,
		CreatedAt: w.Start,
		Start:     &start,
		End:       &end,
		Duration:  w.Duration(),
		Color:     WorkoutColor,
		Icon:      WorkoutIcon,
		Workout:   &w,
	}
}

// SleepEntryID derives a stable id for the sleep block of a day.
func SleepEntryID(day time.Time) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(sleepIDPrefix+day.Format(DayKeyLayout)))
}

// StartOfDay returns local midnight of t in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}

	t = t.In(loc)

	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DayKey formats the calendar day of t in loc.
func DayKey(t time.Time, loc *time.Location) string {
	return StartOfDay(t, loc).Format(DayKeyLayout)
}

// CollapseSleep groups samples by the calendar day of their start and
// returns one DailySleep per day, oldest first.
func CollapseSleep(samples []models.SleepSample, loc *time.Location) []DailySleep {
	byDay := make(map[string]*DailySleep)
	var keys []string

	for _, s := range samples {
		key := DayKey(s.Start, loc)

		d, ok := byDay[key]
		if !ok {
			d = &DailySleep{
				Date:     StartOfDay(s.Start, loc),
				Earliest: s.Start,
				Latest:   s.End,
			}
			byDay[key] = d
			keys = append(keys, key)
		}

		d.Total += s.Duration()
		d.Samples++

		if s.Start.Before(d.Earliest) {
			d.Earliest = s.Start
		}
		if s.End.After(d.Latest) {
			d.Latest = s.End
		}
	}

	sort.Strings(keys)

	out := make([]DailySleep, 0, len(keys))
	for _, k := range keys {
		out = append(out, *byDay[k])
	}

	return out
}

// SortDescending orders entries by creation date, newest first.
func SortDescending(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].ID < entries[j].ID
	})
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
