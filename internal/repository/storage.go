// Package repository persists timers and tags.
//
// Writes are staged with Insert/Delete calls and flushed together by Save.
// Inserted timers stay attached until they are closed and saved, so later
// transitions on the same *models.Timer are persisted by the next Save.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"Mansoor88-6/timekeeper/internal/models"
)

// ErrTagNotFound is returned when a tag lookup fails.
var ErrTagNotFound = errors.New("tag not found")

// TimerFilter narrows FetchTimers. Zero values mean unbounded.
type TimerFilter struct {
	From  time.Time
	To    time.Time
	TagID *uuid.UUID
	Limit int
}

func (f TimerFilter) match(rec models.TimerRecord) bool {
	if !f.From.IsZero() && rec.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !rec.CreatedAt.Before(f.To) {
		return false
	}
	if f.TagID != nil {
		tag, ok := rec.MainTag()
		if !ok || tag.ID != *f.TagID {
			return false
		}
	}
	return true
}

// Storage is the persistence collaborator of the session controller.
type Storage interface {
	InsertTimer(t *models.Timer)
	DeleteTimer(id uuid.UUID)
	InsertTag(tag models.Tag)
	DeleteTag(id uuid.UUID)
	Save(ctx context.Context) error

	// FetchTimers returns saved timers, newest first.
	FetchTimers(ctx context.Context, f TimerFilter) ([]models.TimerRecord, error)
	// FetchActiveTimer returns the newest timer without an end time, or nil.
	FetchActiveTimer(ctx context.Context) (*models.TimerRecord, error)
	FetchTags(ctx context.Context) ([]models.Tag, error)

	Close() error
}

// FindTag resolves a tag by id or case-insensitive name.
func FindTag(ctx context.Context, s Storage, ref string) (models.Tag, error) {
	tags, err := s.FetchTags(ctx)
	if err != nil {
		return models.Tag{}, err
	}

	id, idErr := uuid.Parse(ref)
	for _, t := range tags {
		if idErr == nil && t.ID == id {
			return t, nil
		}
		if equalFold(t.Name, ref) {
			return t, nil
		}
	}

	return models.Tag{}, ErrTagNotFound
}
