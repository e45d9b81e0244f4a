package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

// PurgeCacheTask drops every cached bundle, then refetches the active
// provider once. Only the invalidation is retried; a failed refetch is left
// to the next tick.
type PurgeCacheTask struct {
	Task
	refresher Refresher
}

func NewPurgeCacheTask(refresher Refresher) *PurgeCacheTask {
	return &PurgeCacheTask{
		Task:      NewTask(TaskTypePurgeCache, refresher.Provider()),
		refresher: refresher,
	}
}

func (t *PurgeCacheTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := t.refresher.InvalidateCache(ctx); err != nil {
		return fmt.Errorf("failed to purge cache: %w", err)
	}

	if err := t.refresher.Refresh(ctx, true); err != nil {
		slog.Warn("Refetch after purge failed", "provider", t.Target, "error", err)
	}

	slog.Info("Task completed",
		"type", "PurgeCache",
		"provider", t.Target,
		"duration", t.GetDuration())

	return nil
}
