package api

import (
	"context"

	"github.com/lysyi3m/stream-comb/app/aggregator"
	"github.com/lysyi3m/stream-comb/app/database"
	"github.com/lysyi3m/stream-comb/app/metadata"
	"github.com/lysyi3m/stream-comb/app/providers"
	"github.com/lysyi3m/stream-comb/app/schedule"
	"github.com/lysyi3m/stream-comb/app/tasks"
)

// ScheduleService is the part of the orchestrator the handlers use.
type ScheduleService interface {
	tasks.Refresher
	Snapshot() aggregator.Snapshot
	Filters() schedule.FilterParams
	Events(category schedule.Category) (schedule.Category, []schedule.ClassifiedEvent)
	ResolvePlayback(ctx context.Context, eventID string, selection schedule.PlaybackSelection) (string, error)
	SetProvider(ctx context.Context, id string) (bool, error)
	SetCategory(ctx context.Context, category schedule.Category) error
	SetFilters(ctx context.Context, params schedule.FilterParams) (bool, error)
}

var _ ScheduleService = (*aggregator.Orchestrator)(nil)

type MediaService interface {
	Search(ctx context.Context, query string) ([]metadata.Title, error)
	Trending(ctx context.Context) ([]metadata.Title, error)
	Movie(ctx context.Context, id int64) (*metadata.MovieDetails, error)
	Series(ctx context.Context, id int64) (*metadata.SeriesDetails, error)
	SeasonEpisodes(ctx context.Context, seriesID int64, season int) ([]metadata.Episode, error)
}

var _ MediaService = (*metadata.Client)(nil)

type Handler struct {
	schedule  ScheduleService
	registry  *providers.Registry
	configs   *providers.ConfigCache
	progress  database.ProgressRepository
	media     MediaService
	scheduler tasks.TaskSchedulerInterface
	version   string
}

type selectionRequest struct {
	Provider string            `json:"provider"`
	Category schedule.Category `json:"category"`
}

type settingsRequest struct {
	AllowAllStreams *bool `json:"allowAllStreams"`
	ShowEnded       *bool `json:"showEnded"`
}

type progressRequest struct {
	CurrentTime float64 `json:"currentTime" binding:"gte=0"`
	Duration    float64 `json:"duration" binding:"gte=0"`
}
