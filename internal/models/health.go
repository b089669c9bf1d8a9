package models

import "time"

// SleepSample is a single imported sleep stage sample.
type SleepSample struct {
	ID       string    `json:"id"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Category string    `json:"category"`
}

// Duration returns End - Start, never negative.
func (s SleepSample) Duration() time.Duration {
	return span(s.Start, s.End)
}

// WorkoutRecord is a single imported workout.
type WorkoutRecord struct {
	ID       string    `json:"id"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Category string    `json:"category"`
}

// Duration returns End - Start, never negative.
func (w WorkoutRecord) Duration() time.Duration {
	return span(w.Start, w.End)
}

func span(start, end time.Time) time.Duration {
	if end.Before(start) {
		return 0
	}
	return end.Sub(start)
}
