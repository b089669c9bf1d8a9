package repository

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"Mansoor88-6/timekeeper/internal/models"
)

// storedTimer is the on-disk shape of a timer. Tags are kept by reference.
type storedTimer struct {
	ID                  uuid.UUID   `json:"id"`
	Name                string      `json:"name"`
	CreatedAt           time.Time   `json:"creation_date"`
	StartTime           *time.Time  `json:"start_time"`
	EndTime             *time.Time  `json:"end_time"`
	TotalElapsedSeconds float64     `json:"total_elapsed_seconds"`
	IsRunning           bool        `json:"is_running"`
	TagIDs              []uuid.UUID `json:"tags"`
}

func toStored(rec models.TimerRecord) storedTimer {
	ids := make([]uuid.UUID, 0, len(rec.Tags))
	for _, t := range rec.Tags {
		ids = append(ids, t.ID)
	}

	return storedTimer{
		ID:                  rec.ID,
		Name:                rec.Name,
		CreatedAt:           rec.CreatedAt,
		StartTime:           rec.StartTime,
		EndTime:             rec.EndTime,
		TotalElapsedSeconds: rec.TotalElapsedSeconds,
		IsRunning:           rec.IsRunning,
		TagIDs:              ids,
	}
}

// record resolves tag references. Dangling references are dropped.
func (s storedTimer) record(tags map[uuid.UUID]models.Tag) models.TimerRecord {
	rec := models.TimerRecord{
		ID:                  s.ID,
		Name:                s.Name,
		CreatedAt:           s.CreatedAt,
		StartTime:           s.StartTime,
		EndTime:             s.EndTime,
		TotalElapsedSeconds: s.TotalElapsedSeconds,
		IsRunning:           s.IsRunning,
		Tags:                make([]models.Tag, 0, len(s.TagIDs)),
	}

	for _, id := range s.TagIDs {
		if t, ok := tags[id]; ok {
			rec.Tags = append(rec.Tags, t)
		}
	}

	return rec
}

func tagIndex(tags []models.Tag) map[uuid.UUID]models.Tag {
	m := make(map[uuid.UUID]models.Tag, len(tags))
	for _, t := range tags {
		m[t.ID] = t
	}
	return m
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
