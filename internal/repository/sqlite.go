package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"Mansoor88-6/timekeeper/internal/database"
	"Mansoor88-6/timekeeper/internal/health"
	"Mansoor88-6/timekeeper/internal/models"
)

const (
	sampleKindSleep   = "sleep"
	sampleKindWorkout = "workout"
)

// SQLite stores timers, tags and imported health samples in a sqlite file.
type SQLite struct {
	db     *database.DB
	uow    *unitOfWork
	logger *zap.Logger
}

// NewSQLite wraps an open database.
func NewSQLite(db *database.DB, logger *zap.Logger) *SQLite {
	return &SQLite{db: db, uow: newUnitOfWork(), logger: logger}
}

func (r *SQLite) InsertTimer(t *models.Timer) { r.uow.insertTimer(t) }
func (r *SQLite) DeleteTimer(id uuid.UUID)    { r.uow.deleteTimer(id) }
func (r *SQLite) InsertTag(tag models.Tag)    { r.uow.insertTag(tag) }
func (r *SQLite) DeleteTag(id uuid.UUID)      { r.uow.deleteTag(id) }

func (r *SQLite) Save(ctx context.Context) error {
	cs := r.uow.pending()
	if cs.empty() {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, tag := range cs.tags {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tags (id, name, color, icon, display_order, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				color = excluded.color,
				icon = excluded.icon,
				display_order = excluded.display_order
		`, tag.ID.String(), tag.Name, tag.Color, tag.Icon, tag.DisplayOrder, tag.CreatedAt.UnixNano())
		if err != nil {
			return fmt.Errorf("failed to save tag: %w", err)
		}
	}

	for _, id := range cs.deletedTags {
		if _, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id.String()); err != nil {
			return fmt.Errorf("failed to delete tag: %w", err)
		}
	}

	for _, rec := range cs.timers {
		st := toStored(rec)

		tagIDs, err := json.Marshal(st.TagIDs)
		if err != nil {
			return fmt.Errorf("failed to encode tag ids: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO timers (id, name, created_at, start_time, end_time, total_elapsed_seconds, is_running, tag_ids)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				start_time = excluded.start_time,
				end_time = excluded.end_time,
				total_elapsed_seconds = excluded.total_elapsed_seconds,
				is_running = excluded.is_running,
				tag_ids = excluded.tag_ids
		`,
			st.ID.String(),
			st.Name,
			st.CreatedAt.UnixNano(),
			nullNanos(st.StartTime),
			nullNanos(st.EndTime),
			st.TotalElapsedSeconds,
			st.IsRunning,
			string(tagIDs),
		)
		if err != nil {
			return fmt.Errorf("failed to save timer: %w", err)
		}
	}

	for _, id := range cs.deletedTimers {
		if _, err := tx.ExecContext(ctx, `DELETE FROM timers WHERE id = ?`, id.String()); err != nil {
			return fmt.Errorf("failed to delete timer: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	r.uow.commit(cs)

	r.logger.Debug("Saved changes",
		zap.Int("timers", len(cs.timers)),
		zap.Int("deleted_timers", len(cs.deletedTimers)),
		zap.Int("tags", len(cs.tags)),
		zap.Int("deleted_tags", len(cs.deletedTags)),
	)

	return nil
}

func (r *SQLite) FetchTags(ctx context.Context) ([]models.Tag, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, color, icon, display_order, created_at
		FROM tags
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	var tags []models.Tag
	for rows.Next() {
		var (
			tag     models.Tag
			id      string
			created int64
		)
		if err := rows.Scan(&id, &tag.Name, &tag.Color, &tag.Icon, &tag.DisplayOrder, &created); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		if tag.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid tag id %q: %w", id, err)
		}
		tag.CreatedAt = time.Unix(0, created)
		tags = append(tags, tag)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	models.SortTags(tags)
	return tags, nil
}

func (r *SQLite) FetchTimers(ctx context.Context, f TimerFilter) ([]models.TimerRecord, error) {
	query := `
		SELECT id, name, created_at, start_time, end_time, total_elapsed_seconds, is_running, tag_ids
		FROM timers
		WHERE 1 = 1
	`
	var args []interface{}

	if !f.From.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, f.From.UnixNano())
	}
	if !f.To.IsZero() {
		query += ` AND created_at < ?`
		args = append(args, f.To.UnixNano())
	}
	query += ` ORDER BY created_at DESC`

	return r.queryTimers(ctx, f, query, args...)
}

func (r *SQLite) FetchActiveTimer(ctx context.Context) (*models.TimerRecord, error) {
	recs, err := r.queryTimers(ctx, TimerFilter{Limit: 1}, `
		SELECT id, name, created_at, start_time, end_time, total_elapsed_seconds, is_running, tag_ids
		FROM timers
		WHERE end_time IS NULL
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

func (r *SQLite) queryTimers(ctx context.Context, f TimerFilter, query string, args ...interface{}) ([]models.TimerRecord, error) {
	tags, err := r.FetchTags(ctx)
	if err != nil {
		return nil, err
	}
	index := tagIndex(tags)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query timers: %w", err)
	}
	defer rows.Close()

	var out []models.TimerRecord
	for rows.Next() {
		st, err := scanTimer(rows)
		if err != nil {
			return nil, err
		}

		rec := st.record(index)
		if !f.match(rec) {
			continue
		}

		out = append(out, rec)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return out, nil
}

func scanTimer(rows *sql.Rows) (storedTimer, error) {
	var (
		st         storedTimer
		id, tagIDs string
		created    int64
		start, end sql.NullInt64
	)

	err := rows.Scan(&id, &st.Name, &created, &start, &end, &st.TotalElapsedSeconds, &st.IsRunning, &tagIDs)
	if err != nil {
		return st, fmt.Errorf("failed to scan timer: %w", err)
	}

	if st.ID, err = uuid.Parse(id); err != nil {
		return st, fmt.Errorf("invalid timer id %q: %w", id, err)
	}
	if err := json.Unmarshal([]byte(tagIDs), &st.TagIDs); err != nil {
		return st, fmt.Errorf("invalid tag ids for timer %s: %w", id, err)
	}

	st.CreatedAt = time.Unix(0, created)
	st.StartTime = fromNanos(start)
	st.EndTime = fromNanos(end)

	return st, nil
}

// ImportSamples upserts health samples and returns how many were written.
func (r *SQLite) ImportSamples(ctx context.Context, sleep []models.SleepSample, workouts []models.WorkoutRecord) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO health_samples (kind, id, start_time, end_time, category)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(kind, id) DO UPDATE SET
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			category = excluded.category
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare import: %w", err)
	}
	defer stmt.Close()

	n := 0
	for _, s := range sleep {
		if _, err := stmt.ExecContext(ctx, sampleKindSleep, s.ID, s.Start.UnixNano(), s.End.UnixNano(), s.Category); err != nil {
			return 0, fmt.Errorf("failed to import sleep sample %s: %w", s.ID, err)
		}
		n++
	}
	for _, w := range workouts {
		if _, err := stmt.ExecContext(ctx, sampleKindWorkout, w.ID, w.Start.UnixNano(), w.End.UnixNano(), w.Category); err != nil {
			return 0, fmt.Errorf("failed to import workout %s: %w", w.ID, err)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}

	r.logger.Info("Imported health samples", zap.Int("sleep", len(sleep)), zap.Int("workouts", len(workouts)))
	return n, nil
}

func (r *SQLite) FetchSleepSamples(ctx context.Context, dr health.DateRange) ([]models.SleepSample, error) {
	var out []models.SleepSample
	err := r.querySamples(ctx, sampleKindSleep, dr, func(id string, start, end time.Time, category string) {
		out = append(out, models.SleepSample{ID: id, Start: start, End: end, Category: category})
	})
	return out, err
}

func (r *SQLite) FetchWorkoutRecords(ctx context.Context, dr health.DateRange) ([]models.WorkoutRecord, error) {
	var out []models.WorkoutRecord
	err := r.querySamples(ctx, sampleKindWorkout, dr, func(id string, start, end time.Time, category string) {
		out = append(out, models.WorkoutRecord{ID: id, Start: start, End: end, Category: category})
	})
	return out, err
}

func (r *SQLite) querySamples(ctx context.Context, kind string, dr health.DateRange, fn func(string, time.Time, time.Time, string)) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, start_time, end_time, category
		FROM health_samples
		WHERE kind = ? AND start_time >= ? AND start_time < ?
		ORDER BY start_time
	`, kind, dr.From.UnixNano(), dr.To.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to query %s samples: %w", kind, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, category string
			start, end   int64
		)
		if err := rows.Scan(&id, &start, &end, &category); err != nil {
			return fmt.Errorf("failed to scan %s sample: %w", kind, err)
		}
		fn(id, time.Unix(0, start), time.Unix(0, end), category)
	}

	return rows.Err()
}

func (r *SQLite) Close() error {
	if n := r.uow.staged(); n > 0 {
		r.logger.Debug("Closing storage with attached timers", zap.Int("count", n))
	}
	return r.db.Close()
}

func nullNanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func fromNanos(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(0, v.Int64)
	return &t
}
