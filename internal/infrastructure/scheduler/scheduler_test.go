package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/erp/marketplace-gateway/internal/domain/integration"
)

func newTestScheduler(t *testing.T, cfg SchedulerConfig) *Scheduler {
	t.Helper()
	s := NewScheduler(cfg, zaptest.NewLogger(t))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})
	return s
}

func waitForHistory(t *testing.T, s *Scheduler, n int) []Job {
	t.Helper()
	require.Eventually(t, func() bool { return len(s.History()) >= n }, 2*time.Second, 5*time.Millisecond)
	return s.History()
}

func TestJob_Lifecycle(t *testing.T) {
	job := NewJob(JobOrderSync, integration.MarketplaceHepsiburada, 2)
	assert.Equal(t, JobStatusPending, job.Status)

	job.Start()
	assert.Equal(t, JobStatusRunning, job.Status)
	assert.NotNil(t, job.StartedAt)

	job.Fail("boom")
	assert.True(t, job.ShouldRetry())

	job.ScheduleRetry(time.Minute)
	assert.Equal(t, 1, job.RetryCount)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Empty(t, job.Error)
	require.NotNil(t, job.NextRetryAt)
	assert.True(t, job.NextRetryAt.After(time.Now()))
}

func TestScheduler_SubmitRequiresRunning(t *testing.T) {
	s := newTestScheduler(t, DefaultSchedulerConfig())
	s.Register(JobRetentionCleanup, JobExecutorFunc(func(context.Context, *Job) error { return nil }))

	err := s.SubmitJob(NewJob(JobRetentionCleanup, "", 0))
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)
}

func TestScheduler_RunsRegisteredJobs(t *testing.T) {
	s := newTestScheduler(t, DefaultSchedulerConfig())
	s.Register(JobDeadLetterReplay, JobExecutorFunc(func(_ context.Context, job *Job) error {
		job.Result = map[string]int{"popped": 2}
		return nil
	}))
	require.NoError(t, s.Start(context.Background()))

	require.NoError(t, s.SubmitJob(NewJob(JobDeadLetterReplay, "", 0)))
	assert.ErrorIs(t, s.SubmitJob(NewJob(JobOrderSync, "", 0)), ErrUnknownJob)

	history := waitForHistory(t, s, 1)
	assert.Equal(t, JobStatusSuccess, history[0].Status)
	assert.Equal(t, map[string]int{"popped": 2}, history[0].Result)
}

func TestScheduler_RejectsOverlappingJobs(t *testing.T) {
	s := newTestScheduler(t, DefaultSchedulerConfig())
	release := make(chan struct{})
	s.Register(JobOrderSync, JobExecutorFunc(func(ctx context.Context, _ *Job) error {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}))
	require.NoError(t, s.Start(context.Background()))

	require.NoError(t, s.SubmitJob(NewJob(JobOrderSync, integration.MarketplaceHepsiburada, 0)))
	assert.ErrorIs(t, s.SubmitJob(NewJob(JobOrderSync, integration.MarketplaceHepsiburada, 0)), ErrJobAlreadyInProgress)
	require.NoError(t, s.SubmitJob(NewJob(JobOrderSync, integration.MarketplaceTrendyol, 0)))

	close(release)
	waitForHistory(t, s, 2)
	require.NoError(t, s.SubmitJob(NewJob(JobOrderSync, integration.MarketplaceHepsiburada, 0)))
}

func TestScheduler_RetriesAndRecoversPanics(t *testing.T) {
	cfg := DefaultSchedulerConfig()
	cfg.RetryAttempts = 2
	cfg.RetryDelay = time.Millisecond
	s := newTestScheduler(t, cfg)

	var calls int32
	s.Register(JobRetentionCleanup, JobExecutorFunc(func(context.Context, *Job) error {
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			panic("disk full")
		case 2:
			return errors.New("still failing")
		default:
			return nil
		}
	}))
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.SubmitJob(NewJob(JobRetentionCleanup, "", cfg.RetryAttempts)))

	history := waitForHistory(t, s, 1)
	assert.Equal(t, JobStatusSuccess, history[0].Status)
	assert.Equal(t, 2, history[0].RetryCount)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestScheduler_JobTimeout(t *testing.T) {
	cfg := DefaultSchedulerConfig()
	cfg.JobTimeout = 20 * time.Millisecond
	s := newTestScheduler(t, cfg)
	s.Register(JobOrderSync, JobExecutorFunc(func(ctx context.Context, _ *Job) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.SubmitJob(NewJob(JobOrderSync, "", 0)))

	history := waitForHistory(t, s, 1)
	assert.Equal(t, JobStatusFailed, history[0].Status)
	assert.Contains(t, history[0].Error, "deadline exceeded")
}

func TestIntervalTrigger(t *testing.T) {
	s := newTestScheduler(t, DefaultSchedulerConfig())
	var runs int32
	s.Register(JobOrderSync, JobExecutorFunc(func(context.Context, *Job) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}))
	require.NoError(t, s.Start(context.Background()))

	trigger := NewIntervalTrigger(s, zaptest.NewLogger(t), Schedule{
		Name:         JobOrderSync,
		Interval:     time.Hour,
		Marketplaces: []integration.MarketplaceCode{integration.MarketplaceHepsiburada, integration.MarketplaceTrendyol},
		RunOnStart:   true,
	})
	require.NoError(t, trigger.Start(context.Background()))
	t.Cleanup(func() { _ = trigger.Stop(context.Background()) })

	waitForHistory(t, s, 2)
	assert.Equal(t, int32(2), atomic.LoadInt32(&runs))

	require.NoError(t, trigger.TriggerNow(JobOrderSync))
	waitForHistory(t, s, 4)
	assert.ErrorIs(t, trigger.TriggerNow(JobRetentionCleanup), ErrUnknownJob)
}

func TestIntervalTrigger_RejectsZeroInterval(t *testing.T) {
	s := newTestScheduler(t, DefaultSchedulerConfig())
	trigger := NewIntervalTrigger(s, nil, Schedule{Name: JobRetentionCleanup})
	assert.ErrorIs(t, trigger.Start(context.Background()), ErrInvalidConfig)
}
