package integration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/marketplace-gateway/internal/infrastructure/config"
	"github.com/erp/marketplace-gateway/internal/infrastructure/scheduler"
)

// Retention defaults applied when the scheduler config leaves them unset
const (
	DefaultLogRetention    = 30 * 24 * time.Hour
	DefaultAPILogRetention = 7 * 24 * time.Hour
)

// ScheduledJobs holds the executors of the background jobs
type ScheduledJobs struct {
	replay    *ReplayService
	sink      *EventSink
	orderSync *OrderSyncService
	cfg       config.SchedulerConfig
	now       func() time.Time
}

// NewScheduledJobs creates the job executors. orderSync may be nil when order
// sync is disabled.
func NewScheduledJobs(replay *ReplayService, sink *EventSink, orderSync *OrderSyncService, cfg config.SchedulerConfig) *ScheduledJobs {
	if cfg.ReplayBatchSize <= 0 {
		cfg.ReplayBatchSize = DefaultReplayBatchSize
	}
	if cfg.LogRetention <= 0 {
		cfg.LogRetention = DefaultLogRetention
	}
	if cfg.APILogRetention <= 0 {
		cfg.APILogRetention = DefaultAPILogRetention
	}
	return &ScheduledJobs{
		replay:    replay,
		sink:      sink,
		orderSync: orderSync,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Register adds every available executor to s
func (j *ScheduledJobs) Register(s *scheduler.Scheduler) {
	s.Register(scheduler.JobDeadLetterReplay, scheduler.JobExecutorFunc(j.replayDeadLetters))
	s.Register(scheduler.JobRetentionCleanup, scheduler.JobExecutorFunc(j.cleanup))
	if j.orderSync != nil {
		s.Register(scheduler.JobOrderSync, scheduler.JobExecutorFunc(j.syncOrders))
	}
}

func (j *ScheduledJobs) replayDeadLetters(ctx context.Context, job *scheduler.Job) error {
	report, err := j.replay.Replay(ctx, j.cfg.ReplayBatchSize)
	job.Result = report
	return err
}

func (j *ScheduledJobs) cleanup(ctx context.Context, job *scheduler.Job) error {
	now := j.now()
	result, err := j.sink.PurgeOlderThan(ctx, now.Add(-j.cfg.LogRetention), now.Add(-j.cfg.APILogRetention))
	job.Result = result
	return err
}

func (j *ScheduledJobs) syncOrders(ctx context.Context, job *scheduler.Job) error {
	if job.Marketplace == "" {
		return errors.New("order sync requires a marketplace")
	}
	report, err := j.orderSync.Sync(ctx, job.Marketplace)
	job.Result = report
	if err != nil {
		return err
	}
	if report.Errors > 0 {
		return fmt.Errorf("order sync for %s finished with %d errors", job.Marketplace, report.Errors)
	}
	return nil
}
