package repository

import (
	"sync"

	"github.com/google/uuid"

	"Mansoor88-6/timekeeper/internal/models"
)

type changeSet struct {
	timers        []models.TimerRecord
	deletedTimers []uuid.UUID
	tags          []models.Tag
	deletedTags   []uuid.UUID
}

func (c changeSet) empty() bool {
	return len(c.timers) == 0 && len(c.deletedTimers) == 0 &&
		len(c.tags) == 0 && len(c.deletedTags) == 0
}

// unitOfWork tracks staged changes between saves.
type unitOfWork struct {
	mu            sync.Mutex
	timers        map[uuid.UUID]*models.Timer
	deletedTimers map[uuid.UUID]struct{}
	tags          map[uuid.UUID]models.Tag
	deletedTags   map[uuid.UUID]struct{}
}

func newUnitOfWork() *unitOfWork {
	return &unitOfWork{
		timers:        make(map[uuid.UUID]*models.Timer),
		deletedTimers: make(map[uuid.UUID]struct{}),
		tags:          make(map[uuid.UUID]models.Tag),
		deletedTags:   make(map[uuid.UUID]struct{}),
	}
}

func (u *unitOfWork) insertTimer(t *models.Timer) {
	u.mu.Lock()
	defer u.mu.Unlock()

	id := t.ID()
	u.timers[id] = t
	delete(u.deletedTimers, id)
}

func (u *unitOfWork) deleteTimer(id uuid.UUID) {
	u.mu.Lock()
	defer u.mu.Unlock()

	delete(u.timers, id)
	u.deletedTimers[id] = struct{}{}
}

func (u *unitOfWork) insertTag(tag models.Tag) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.tags[tag.ID] = tag
	delete(u.deletedTags, tag.ID)
}

func (u *unitOfWork) deleteTag(id uuid.UUID) {
	u.mu.Lock()
	defer u.mu.Unlock()

	delete(u.tags, id)
	u.deletedTags[id] = struct{}{}
}

// pending snapshots every staged change.
func (u *unitOfWork) pending() changeSet {
	u.mu.Lock()
	defer u.mu.Unlock()

	var cs changeSet
	for _, t := range u.timers {
		cs.timers = append(cs.timers, t.Snapshot())
	}
	for id := range u.deletedTimers {
		cs.deletedTimers = append(cs.deletedTimers, id)
	}
	for _, tag := range u.tags {
		cs.tags = append(cs.tags, tag)
	}
	for id := range u.deletedTags {
		cs.deletedTags = append(cs.deletedTags, id)
	}

	return cs
}

// commit forgets changes that were flushed. Timers stay attached while open.
func (u *unitOfWork) commit(cs changeSet) {
	u.mu.Lock()
	defer u.mu.Unlock()

	for _, rec := range cs.timers {
		if t, ok := u.timers[rec.ID]; ok && t.Closed() && rec.Closed() {
			delete(u.timers, rec.ID)
		}
	}
	for _, id := range cs.deletedTimers {
		delete(u.deletedTimers, id)
	}
	for _, tag := range cs.tags {
		if cur, ok := u.tags[tag.ID]; ok && cur == tag {
			delete(u.tags, tag.ID)
		}
	}
	for _, id := range cs.deletedTags {
		delete(u.deletedTags, id)
	}
}

// staged returns the number of attached timers.
func (u *unitOfWork) staged() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.timers)
}
