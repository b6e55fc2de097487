package integration_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	appintegration "github.com/erp/marketplace-gateway/internal/application/integration"
	"github.com/erp/marketplace-gateway/internal/domain/integration"
	"github.com/erp/marketplace-gateway/internal/infrastructure/config"
	"github.com/erp/marketplace-gateway/internal/infrastructure/scheduler"
)

func startScheduler(t *testing.T, jobs *appintegration.ScheduledJobs) *scheduler.Scheduler {
	t.Helper()
	s := scheduler.NewScheduler(scheduler.DefaultSchedulerConfig(), zaptest.NewLogger(t))
	jobs.Register(s)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	return s
}

func lastJob(t *testing.T, s *scheduler.Scheduler) scheduler.Job {
	t.Helper()
	require.Eventually(t, func() bool { return len(s.History()) > 0 }, 2*time.Second, 5*time.Millisecond)
	return s.History()[0]
}

func TestScheduledJobs_RetentionCleanup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sink := appintegration.NewEventSink(appintegration.EventSinkConfig{Logs: f.logs, Notifications: f.notifications})
	require.NoError(t, sink.AddNotification(ctx, integration.NotificationRecord{
		Title:     "stale",
		Level:     integration.NotificationInfo,
		CreatedAt: time.Now().Add(-45 * 24 * time.Hour),
	}))
	require.NoError(t, sink.AddNotification(ctx, integration.NotificationRecord{
		Title: "fresh",
		Level: integration.NotificationInfo,
	}))

	s := startScheduler(t, appintegration.NewScheduledJobs(f.replay, sink, nil, config.SchedulerConfig{}))
	require.NoError(t, s.SubmitJob(scheduler.NewJob(scheduler.JobRetentionCleanup, "", 0)))

	job := lastJob(t, s)
	assert.Equal(t, scheduler.JobStatusSuccess, job.Status)
	result, ok := job.Result.(appintegration.PurgeResult)
	require.True(t, ok)
	assert.Equal(t, int64(1), result.Notifications)

	remaining := f.allNotifications(t)
	require.Len(t, remaining, 1)
	assert.Equal(t, "fresh", remaining[0].Title)
}

func TestScheduledJobs_DeadLetterReplay(t *testing.T) {
	f := newFixture(t)
	handler := &flakyHandler{}
	f.router.Register(integration.MarketplaceHepsiburada, integration.EventPaymentReceived, handler)

	first := f.deliver(t, `{"eventType":"PAYMENT_RECEIVED","webhookId":"pay-7","data":{"orderNumber":"HB-7","amount":"5"}}`)
	require.Equal(t, integration.ProcessingStatusFailed, first.Status)
	require.Equal(t, 1, f.dlqLen(t))
	handler.healthy.Store(true)

	sink := appintegration.NewEventSink(appintegration.EventSinkConfig{Logs: f.logs, Notifications: f.notifications})
	s := startScheduler(t, appintegration.NewScheduledJobs(f.replay, sink, nil, config.SchedulerConfig{ReplayBatchSize: 10}))
	require.NoError(t, s.SubmitJob(scheduler.NewJob(scheduler.JobDeadLetterReplay, "", 0)))

	job := lastJob(t, s)
	assert.Equal(t, scheduler.JobStatusSuccess, job.Status)
	report, ok := job.Result.(appintegration.ReplayReport)
	require.True(t, ok)
	assert.Equal(t, appintegration.ReplayReport{Popped: 1, Applied: 1}, report)
	assert.Zero(t, f.dlqLen(t))
}

func TestScheduledJobs_OrderSyncIsOptional(t *testing.T) {
	f := newFixture(t)
	sink := appintegration.NewEventSink(appintegration.EventSinkConfig{Logs: f.logs, Notifications: f.notifications})
	s := startScheduler(t, appintegration.NewScheduledJobs(f.replay, sink, nil, config.SchedulerConfig{}))

	err := s.SubmitJob(scheduler.NewJob(scheduler.JobOrderSync, integration.MarketplaceHepsiburada, 0))
	assert.ErrorIs(t, err, scheduler.ErrUnknownJob)
}
