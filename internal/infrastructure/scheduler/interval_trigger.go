package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/erp/marketplace-gateway/internal/domain/integration"
)

// Schedule submits a job at a fixed interval. With Marketplaces set, one job
// per marketplace is submitted on each tick.
type Schedule struct {
	Name         JobName
	Interval     time.Duration
	Marketplaces []integration.MarketplaceCode
	// RunOnStart submits the first jobs immediately instead of after one interval
	RunOnStart bool
}

// IntervalTrigger submits scheduled jobs to a Scheduler
type IntervalTrigger struct {
	schedules []Schedule
	scheduler *Scheduler
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewIntervalTrigger creates a new interval trigger
func NewIntervalTrigger(scheduler *Scheduler, logger *zap.Logger, schedules ...Schedule) *IntervalTrigger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IntervalTrigger{
		schedules: schedules,
		scheduler: scheduler,
		logger:    logger,
	}
}

// Start starts one loop per schedule
func (c *IntervalTrigger) Start(ctx context.Context) error {
	for _, s := range c.schedules {
		if s.Interval <= 0 {
			return fmt.Errorf("%w: %s interval must be positive", ErrInvalidConfig, s.Name)
		}
	}

	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	for _, s := range c.schedules {
		c.wg.Add(1)
		go c.runLoop(ctx, s)
		c.logger.Info("Interval trigger started",
			zap.String("job", string(s.Name)),
			zap.Duration("interval", s.Interval),
			zap.Int("marketplaces", len(s.Marketplaces)),
		)
	}
	return nil
}

// Stop stops the trigger loops
func (c *IntervalTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Interval trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *IntervalTrigger) runLoop(ctx context.Context, s Schedule) {
	defer c.wg.Done()

	if s.RunOnStart {
		c.trigger(s)
	}

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.trigger(s)
		}
	}
}

// trigger submits the jobs of one tick. A job still running from the previous
// tick is skipped rather than queued twice.
func (c *IntervalTrigger) trigger(s Schedule) {
	targets := s.Marketplaces
	if len(targets) == 0 {
		targets = []integration.MarketplaceCode{""}
	}
	for _, m := range targets {
		err := c.scheduler.SubmitJob(NewJob(s.Name, m, c.scheduler.config.RetryAttempts))
		switch {
		case err == nil:
		case errors.Is(err, ErrJobAlreadyInProgress):
			c.logger.Debug("Skipping tick, previous run still in progress",
				zap.String("job", string(s.Name)),
				zap.String("marketplace", string(m)))
		default:
			c.logger.Warn("Failed to submit scheduled job",
				zap.String("job", string(s.Name)),
				zap.String("marketplace", string(m)),
				zap.Error(err))
		}
	}
}

// TriggerNow submits the jobs of the named schedule immediately
func (c *IntervalTrigger) TriggerNow(name JobName) error {
	for _, s := range c.schedules {
		if s.Name == name {
			c.trigger(s)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownJob, name)
}
