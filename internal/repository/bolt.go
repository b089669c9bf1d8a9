package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"Mansoor88-6/timekeeper/internal/models"
)

var (
	timersBucket = []byte("timers")
	tagsBucket   = []byte("tags")
)

// ErrDatabaseLocked is returned when another process holds the bolt file.
var ErrDatabaseLocked = errors.New("database is in use by another timekeeper process")

// Bolt stores timers and tags as JSON values in a bbolt file.
type Bolt struct {
	db     *bolt.DB
	uow    *unitOfWork
	logger *zap.Logger
}

// OpenBolt opens or creates the database at path.
func OpenBolt(path string, logger *zap.Logger) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	var fileMode fs.FileMode = 0o600

	db, err := bolt.Open(path, fileMode, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, ErrDatabaseLocked
		}
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(timersBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(tagsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	logger.Info("Database connection established", zap.String("path", path), zap.String("driver", "bolt"))

	return &Bolt{db: db, uow: newUnitOfWork(), logger: logger}, nil
}

func (b *Bolt) InsertTimer(t *models.Timer) { b.uow.insertTimer(t) }
func (b *Bolt) DeleteTimer(id uuid.UUID)    { b.uow.deleteTimer(id) }
func (b *Bolt) InsertTag(tag models.Tag)    { b.uow.insertTag(tag) }
func (b *Bolt) DeleteTag(id uuid.UUID)      { b.uow.deleteTag(id) }

func (b *Bolt) Save(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cs := b.uow.pending()
	if cs.empty() {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		tags := tx.Bucket(tagsBucket)
		for _, tag := range cs.tags {
			v, err := json.Marshal(tag)
			if err != nil {
				return err
			}
			if err := tags.Put([]byte(tag.ID.String()), v); err != nil {
				return err
			}
		}
		for _, id := range cs.deletedTags {
			if err := tags.Delete([]byte(id.String())); err != nil {
				return err
			}
		}

		timers := tx.Bucket(timersBucket)
		for _, rec := range cs.timers {
			v, err := json.Marshal(toStored(rec))
			if err != nil {
				return err
			}
			if err := timers.Put([]byte(rec.ID.String()), v); err != nil {
				return err
			}
		}
		for _, id := range cs.deletedTimers {
			if err := timers.Delete([]byte(id.String())); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save changes: %w", err)
	}

	b.uow.commit(cs)
	return nil
}

func (b *Bolt) FetchTags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag

	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(tagsBucket).ForEach(func(_, v []byte) error {
			var tag models.Tag
			if err := json.Unmarshal(v, &tag); err != nil {
				return err
			}
			tags = append(tags, tag)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read tags: %w", err)
	}

	models.SortTags(tags)
	return tags, nil
}

func (b *Bolt) FetchTimers(ctx context.Context, f TimerFilter) ([]models.TimerRecord, error) {
	all, err := b.readTimers(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.TimerRecord, 0, len(all))
	for _, rec := range all {
		if !f.match(rec) {
			continue
		}
		out = append(out, rec)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}

	return out, nil
}

func (b *Bolt) FetchActiveTimer(ctx context.Context) (*models.TimerRecord, error) {
	all, err := b.readTimers(ctx)
	if err != nil {
		return nil, err
	}

	for i := range all {
		if all[i].EndTime == nil {
			return &all[i], nil
		}
	}

	return nil, nil
}

// readTimers returns every timer, newest first.
func (b *Bolt) readTimers(ctx context.Context) ([]models.TimerRecord, error) {
	tags, err := b.FetchTags(ctx)
	if err != nil {
		return nil, err
	}
	index := tagIndex(tags)

	var out []models.TimerRecord

	err = b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(timersBucket).ForEach(func(_, v []byte) error {
			var st storedTimer
			if err := json.Unmarshal(v, &st); err != nil {
				return err
			}
			out = append(out, st.record(index))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read timers: %w", err)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return out, nil
}

func (b *Bolt) Close() error {
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	b.logger.Info("Database connection closed")
	return nil
}
