package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

// RefreshScheduleTask refreshes the active provider. It is never retried;
// the next tick covers a failed refresh.
type RefreshScheduleTask struct {
	Task
	Force     bool
	refresher Refresher
}

func NewRefreshScheduleTask(refresher Refresher, force bool) *RefreshScheduleTask {
	task := &RefreshScheduleTask{
		Task:      NewTask(TaskTypeRefreshSchedule, refresher.Provider()),
		Force:     force,
		refresher: refresher,
	}
	task.MaxRetries = 0
	return task
}

func (t *RefreshScheduleTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := t.refresher.Refresh(ctx, t.Force); err != nil {
		return fmt.Errorf("failed to refresh schedule: %w", err)
	}

	slog.Info("Task completed",
		"type", "RefreshSchedule",
		"provider", t.Target,
		"force", t.Force,
		"duration", t.GetDuration())

	return nil
}
