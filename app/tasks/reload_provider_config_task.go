package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

type ReloadProviderConfigTask struct {
	Task
	configs ConfigReloader
}

func NewReloadProviderConfigTask(configs ConfigReloader) *ReloadProviderConfigTask {
	task := &ReloadProviderConfigTask{
		Task:    NewTask(TaskTypeReloadProviderConfig, ""),
		configs: configs,
	}
	task.MaxRetries = 0
	return task
}

func (t *ReloadProviderConfigTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := t.configs.Run(); err != nil {
		return fmt.Errorf("failed to reload provider configuration: %w", err)
	}

	slog.Info("Task completed",
		"type", "ReloadProviderConfig",
		"providers", t.configs.GetConfigCount(),
		"duration", t.GetDuration())

	return nil
}
