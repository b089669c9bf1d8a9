package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/maruel/natural"
)

// Tag is a user-defined activity category.
type Tag struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Color        string    `json:"color"`
	Icon         string    `json:"icon"`
	DisplayOrder int       `json:"display_order"`
	CreatedAt    time.Time `json:"creation_date"`
}

// NewTag creates a tag with a fresh id.
func NewTag(name, color, icon string, order int, now time.Time) Tag {
	return Tag{
		ID:           uuid.New(),
		Name:         name,
		Color:        color,
		Icon:         icon,
		DisplayOrder: order,
		CreatedAt:    now,
	}
}

// SortTags orders tags by display order, then by name in natural order.
func SortTags(tags []Tag) {
	sort.SliceStable(tags, func(i, j int) bool {
		if tags[i].DisplayOrder != tags[j].DisplayOrder {
			return tags[i].DisplayOrder < tags[j].DisplayOrder
		}
		return natural.Less(tags[i].Name, tags[j].Name)
	})
}
