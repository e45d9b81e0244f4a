package tasks

import "context"

// TaskSchedulerInterface is what the HTTP layer and main depend on.
//
//	scheduler := NewScheduler(orchestrator, configCache, time.Minute, 2)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewRefreshScheduleTask(orchestrator, true))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// Refresher is implemented by the aggregator orchestrator.
type Refresher interface {
	Provider() string
	Refresh(ctx context.Context, force bool) error
	InvalidateCache(ctx context.Context) error
}

// ConfigReloader re-reads provider configuration files.
type ConfigReloader interface {
	Run() error
	GetConfigCount() int
}
