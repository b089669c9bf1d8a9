// Package health reads imported sleep and workout samples.
package health

import (
	"context"
	"errors"
	"time"

	"Mansoor88-6/timekeeper/internal/models"
)

var (
	// ErrPermissionDenied means the source refused access to the data.
	ErrPermissionDenied = errors.New("health data access denied")
	// ErrUnavailable means the source could not be reached.
	ErrUnavailable = errors.New("health data unavailable")
)

// DateRange is the half-open interval [From, To).
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.From) && t.Before(r.To)
}

// Days returns the range covering the n calendar days ending with the day
// of now, in loc.
func Days(now time.Time, n int, loc *time.Location) DateRange {
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)
	end := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, loc)

	return DateRange{From: end.AddDate(0, 0, -n), To: end}
}

// Provider is a source of health samples.
type Provider interface {
	FetchSleepSamples(ctx context.Context, r DateRange) ([]models.SleepSample, error)
	FetchWorkoutRecords(ctx context.Context, r DateRange) ([]models.WorkoutRecord, error)
}

// Nop is a Provider with no data.
type Nop struct{}

func (Nop) FetchSleepSamples(context.Context, DateRange) ([]models.SleepSample, error) {
	return nil, nil
}

func (Nop) FetchWorkoutRecords(context.Context, DateRange) ([]models.WorkoutRecord, error) {
	return nil, nil
}
