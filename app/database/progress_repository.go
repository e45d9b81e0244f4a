package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"
)

var _ ProgressRepository = (*WatchProgressRepository)(nil)

type WatchProgressRepository struct {
	db  *DB
	now func() time.Time
}

func NewWatchProgressRepository(db *DB) *WatchProgressRepository {
	return &WatchProgressRepository{db: db, now: time.Now}
}

func percentWatched(currentTime, duration float64) float64 {
	if duration <= 0 {
		return 0
	}
	return currentTime / duration * 100
}

func (r *WatchProgressRepository) upsert(ctx context.Context, tx *sql.Tx, mediaType MediaType, tmdbID int64, season, episode int, currentTime, duration float64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO watch_progress (media_type, tmdb_id, season, episode, position_secs, duration_secs, progress, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (media_type, tmdb_id, season, episode) DO UPDATE SET
			position_secs = excluded.position_secs,
			duration_secs = excluded.duration_secs,
			progress = excluded.progress,
			updated_at = excluded.updated_at
	`, mediaType, tmdbID, season, episode,
		int64(math.Round(currentTime)), int64(math.Round(duration)),
		percentWatched(currentTime, duration), r.now().UnixMilli())
	return err
}

func (r *WatchProgressRepository) SaveMovie(ctx context.Context, tmdbID int64, currentTime, duration float64) error {
	if tmdbID == 0 {
		return fmt.Errorf("tmdb id is required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.upsert(ctx, tx, MediaMovie, tmdbID, 0, 0, currentTime, duration); err != nil {
		return fmt.Errorf("failed to save movie progress: %w", err)
	}
	return tx.Commit()
}

// SaveEpisode keeps only the latest episode per series.
func (r *WatchProgressRepository) SaveEpisode(ctx context.Context, tmdbID int64, season, episode int, currentTime, duration float64) error {
	if tmdbID == 0 {
		return fmt.Errorf("tmdb id is required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM watch_progress
		WHERE media_type = ? AND tmdb_id = ? AND NOT (season = ? AND episode = ?)
	`, MediaTV, tmdbID, season, episode)
	if err != nil {
		return fmt.Errorf("failed to clear other episodes: %w", err)
	}

	if err := r.upsert(ctx, tx, MediaTV, tmdbID, season, episode, currentTime, duration); err != nil {
		return fmt.Errorf("failed to save episode progress: %w", err)
	}
	return tx.Commit()
}

func (r *WatchProgressRepository) GetMovie(ctx context.Context, tmdbID int64) (*WatchProgress, error) {
	return r.getOne(ctx, `
		SELECT media_type, tmdb_id, season, episode, position_secs, duration_secs, progress, updated_at
		FROM watch_progress WHERE media_type = ? AND tmdb_id = ?
	`, MediaMovie, tmdbID)
}

func (r *WatchProgressRepository) GetEpisode(ctx context.Context, tmdbID int64, season, episode int) (*WatchProgress, error) {
	return r.getOne(ctx, `
		SELECT media_type, tmdb_id, season, episode, position_secs, duration_secs, progress, updated_at
		FROM watch_progress WHERE media_type = ? AND tmdb_id = ? AND season = ? AND episode = ?
	`, MediaTV, tmdbID, season, episode)
}

func (r *WatchProgressRepository) LastWatchedEpisode(ctx context.Context, tmdbID int64) (*WatchProgress, error) {
	return r.getOne(ctx, `
		SELECT media_type, tmdb_id, season, episode, position_secs, duration_secs, progress, updated_at
		FROM watch_progress WHERE media_type = ? AND tmdb_id = ?
		ORDER BY updated_at DESC LIMIT 1
	`, MediaTV, tmdbID)
}

func (r *WatchProgressRepository) ClearMovie(ctx context.Context, tmdbID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM watch_progress WHERE media_type = ? AND tmdb_id = ?`, MediaMovie, tmdbID)
	if err != nil {
		return fmt.Errorf("failed to clear movie progress: %w", err)
	}
	return nil
}

func (r *WatchProgressRepository) ClearEpisode(ctx context.Context, tmdbID int64, season, episode int) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM watch_progress WHERE media_type = ? AND tmdb_id = ? AND season = ? AND episode = ?
	`, MediaTV, tmdbID, season, episode)
	if err != nil {
		return fmt.Errorf("failed to clear episode progress: %w", err)
	}
	return nil
}

func (r *WatchProgressRepository) ClearSeries(ctx context.Context, tmdbID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM watch_progress WHERE media_type = ? AND tmdb_id = ?`, MediaTV, tmdbID)
	if err != nil {
		return fmt.Errorf("failed to clear series progress: %w", err)
	}
	return nil
}

// ContinueWatching lists unfinished items, most recent first.
func (r *WatchProgressRepository) ContinueWatching(ctx context.Context) ([]WatchProgress, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT media_type, tmdb_id, season, episode, position_secs, duration_secs, progress, updated_at
		FROM watch_progress WHERE progress < 100
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query continue watching: %w", err)
	}
	defer rows.Close()

	items := []WatchProgress{}
	for rows.Next() {
		item, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate continue watching: %w", err)
	}
	return items, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProgress(row rowScanner) (*WatchProgress, error) {
	var p WatchProgress
	var mediaType string
	if err := row.Scan(&mediaType, &p.TMDBID, &p.Season, &p.Episode, &p.CurrentTime, &p.Duration, &p.Progress, &p.Timestamp); err != nil {
		return nil, err
	}
	p.Type = MediaType(mediaType)
	return &p, nil
}

func (r *WatchProgressRepository) getOne(ctx context.Context, query string, args ...any) (*WatchProgress, error) {
	p, err := scanProgress(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read watch progress: %w", err)
	}
	return p, nil
}
