package database

import (
	"context"

	"github.com/lysyi3m/stream-comb/app/cache"
)

var _ cache.Store = (*CacheRepository)(nil)

type SettingsRepository interface {
	GetSlot(ctx context.Context, slot string) ([]byte, error)
	SetSlot(ctx context.Context, slot string, value []byte) error
}

type ProgressRepository interface {
	SaveMovie(ctx context.Context, tmdbID int64, currentTime, duration float64) error
	GetMovie(ctx context.Context, tmdbID int64) (*WatchProgress, error)
	ClearMovie(ctx context.Context, tmdbID int64) error

	SaveEpisode(ctx context.Context, tmdbID int64, season, episode int, currentTime, duration float64) error
	GetEpisode(ctx context.Context, tmdbID int64, season, episode int) (*WatchProgress, error)
	ClearEpisode(ctx context.Context, tmdbID int64, season, episode int) error
	ClearSeries(ctx context.Context, tmdbID int64) error
	LastWatchedEpisode(ctx context.Context, tmdbID int64) (*WatchProgress, error)

	ContinueWatching(ctx context.Context) ([]WatchProgress, error)
}
