// Package insights computes per-tag time distribution for a single day.
package insights

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"Mansoor88-6/timekeeper/internal/models"
	"Mansoor88-6/timekeeper/internal/timeline"
)

// SecondsPerDay is the fixed denominator used when untracked time is shown.
const SecondsPerDay = 86400

// Untracked bucket presentation.
const (
	UntrackedName  = "Untracked"
	UntrackedColor = "#9A9A9A"
	UntrackedIcon  = "questionmark"
)

// Kind tells real tags apart from synthesized buckets.
type Kind int

const (
	KindTag Kind = iota
	KindSleep
	KindWorkout
	KindUntracked
)

// Synthetic reports whether the bucket has no backing tag.
func (k Kind) Synthetic() bool {
	return k != KindTag
}

// Input is the data for one day.
type Input struct {
	Day      time.Time
	Location *time.Location

	Timers   []models.TimerRecord
	Sleep    []models.SleepSample
	Workouts []models.WorkoutRecord

	IncludeSleep    bool
	IncludeWorkouts bool
	ShowUntracked   bool
}

// TagInsight is one slice of the day.
type TagInsight struct {
	Kind         Kind       `json:"kind"`
	Tag          models.Tag `json:"tag"`
	TotalSeconds float64    `json:"total_seconds"`
	Percentage   float64    `json:"percentage"`
	Sessions     int        `json:"sessions"`
}

type bucket struct {
	kind     Kind
	tag      models.Tag
	total    float64
	sessions int
}

// Window returns the SecondsPerDay long window starting at local midnight of
// day in loc. On DST transition days it ends an hour off the next midnight
// so the untracked share is always measured against the same length.
func Window(day time.Time, loc *time.Location) (time.Time, time.Time) {
	start := timeline.StartOfDay(day, loc)
	return start, start.Add(SecondsPerDay * time.Second)
}

// Compute folds the day's entries into per-tag insights. The result is empty
// when there is nothing to divide by.
func Compute(in Input) []TagInsight {
	from, to := Window(in.Day, in.Location)

	buckets := foldTimers(in.Timers, from, to)

	tracked := 0.0
	for _, b := range buckets {
		tracked += b.total
	}

	if in.IncludeSleep {
		b := bucket{kind: KindSleep, tag: syntheticTag(timeline.SleepName, timeline.SleepColor, timeline.SleepIcon)}
		for _, s := range in.Sleep {
			if within(s.Start, from, to) {
				b.total += s.Duration().Seconds()
				b.sessions++
			}
		}
		if b.sessions > 0 {
			buckets = append(buckets, b)
			tracked += b.total
		}
	}

	if in.IncludeWorkouts {
		b := bucket{kind: KindWorkout, tag: syntheticTag(timeline.WorkoutName, timeline.WorkoutColor, timeline.WorkoutIcon)}
		for _, w := range in.Workouts {
			if within(w.Start, from, to) {
				b.total += w.Duration().Seconds()
				b.sessions++
			}
		}
		if b.sessions > 0 {
			buckets = append(buckets, b)
			tracked += b.total
		}
	}

	denominator := tracked
	if in.ShowUntracked {
		denominator = SecondsPerDay
		if untracked := SecondsPerDay - tracked; untracked > 0 {
			buckets = append(buckets, bucket{
				kind:  KindUntracked,
				tag:   syntheticTag(UntrackedName, UntrackedColor, UntrackedIcon),
				total: untracked,
			})
		}
	}

	if denominator <= 0 {
		return []TagInsight{}
	}

	sortBuckets(buckets)

	out := make([]TagInsight, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, TagInsight{
			Kind:         b.kind,
			Tag:          b.tag,
			TotalSeconds: b.total,
			Percentage:   b.total / denominator * 100,
			Sessions:     b.sessions,
		})
	}

	return out
}

// TotalTracked sums every bucket except untracked time.
func TotalTracked(items []TagInsight) float64 {
	total := 0.0
	for _, it := range items {
		if it.Kind != KindUntracked {
			total += it.TotalSeconds
		}
	}
	return total
}

func foldTimers(timers []models.TimerRecord, from, to time.Time) []bucket {
	index := make(map[uuid.UUID]int)
	var buckets []bucket

	for _, rec := range timers {
		if rec.EndTime == nil || !within(rec.CreatedAt, from, to) {
			continue
		}

		tag, ok := rec.MainTag()
		if !ok {
			continue
		}

		i, seen := index[tag.ID]
		if !seen {
			i = len(buckets)
			index[tag.ID] = i
			buckets = append(buckets, bucket{kind: KindTag, tag: tag})
		}

		buckets[i].total += rec.TotalElapsedSeconds
		buckets[i].sessions++
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].total > buckets[j].total
	})

	return buckets
}

// sortBuckets orders real tags by display order, keeping the total-desc
// order among equals, and puts synthetic buckets last.
func sortBuckets(buckets []bucket) {
	sort.SliceStable(buckets, func(i, j int) bool {
		a, b := buckets[i], buckets[j]
		if a.kind != b.kind {
			return a.kind < b.kind
		}
		if a.kind == KindTag {
			return a.tag.DisplayOrder < b.tag.DisplayOrder
		}
		return false
	})
}

func syntheticTag(name, color, icon string) models.Tag {
	return models.Tag{
		ID:           uuid.NewSHA1(uuid.NameSpaceOID, []byte("timekeeper/insight/"+name)),
		Name:         name,
		Color:        color,
		Icon:         icon,
		DisplayOrder: int(^uint(0) >> 1),
	}
}

func within(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}
