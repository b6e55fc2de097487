package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/marketplace-gateway/internal/domain/integration"
)

// JobStatus represents the status of a scheduled job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// JobName identifies a kind of background job
type JobName string

const (
	JobDeadLetterReplay JobName = "dead_letter_replay"
	JobRetentionCleanup JobName = "retention_cleanup"
	JobOrderSync        JobName = "order_sync"
)

// Job represents one run of a background job
type Job struct {
	ID          uuid.UUID                   `json:"id"`
	Name        JobName                     `json:"name"`
	Marketplace integration.MarketplaceCode `json:"marketplace,omitempty"`
	Status      JobStatus                   `json:"status"`
	Error       string                      `json:"error,omitempty"`
	Result      any                         `json:"result,omitempty"`
	StartedAt   *time.Time                  `json:"started_at,omitempty"`
	CompletedAt *time.Time                  `json:"completed_at,omitempty"`
	RetryCount  int                         `json:"retry_count"`
	MaxRetries  int                         `json:"max_retries"`
	NextRetryAt *time.Time                  `json:"next_retry_at,omitempty"`
}

// NewJob creates a new job instance. marketplace is empty for jobs that are
// not scoped to one marketplace.
func NewJob(name JobName, marketplace integration.MarketplaceCode, maxRetries int) *Job {
	return &Job{
		ID:          uuid.New(),
		Name:        name,
		Marketplace: marketplace,
		Status:      JobStatusPending,
		MaxRetries:  maxRetries,
	}
}

// key identifies jobs that must not overlap
func (j *Job) key() string {
	return fmt.Sprintf("%s/%s", j.Name, j.Marketplace)
}

// Start marks the job as running
func (j *Job) Start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete marks the job as successful
func (j *Job) Complete() {
	now := time.Now()
	j.Status = JobStatusSuccess
	j.CompletedAt = &now
}

// Fail marks the job as failed
func (j *Job) Fail(err string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// ShouldRetry returns true if the job should be retried
func (j *Job) ShouldRetry() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// ScheduleRetry schedules the job for retry
func (j *Job) ScheduleRetry(delay time.Duration) {
	j.RetryCount++
	j.Status = JobStatusPending
	nextRetry := time.Now().Add(delay)
	j.NextRetryAt = &nextRetry
	j.Error = ""
}

// JobExecutor runs one kind of job. Execute may set job.Result.
type JobExecutor interface {
	Execute(ctx context.Context, job *Job) error
}

// JobExecutorFunc adapts a function to JobExecutor
type JobExecutorFunc func(ctx context.Context, job *Job) error

// Execute calls f
func (f JobExecutorFunc) Execute(ctx context.Context, job *Job) error {
	return f(ctx, job)
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	Enabled           bool
	MaxConcurrentJobs int
	JobTimeout        time.Duration
	RetryAttempts     int
	RetryDelay        time.Duration
	HistorySize       int
}

// DefaultSchedulerConfig returns default scheduler configuration
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:           true,
		MaxConcurrentJobs: 3,
		JobTimeout:        5 * time.Minute,
		RetryAttempts:     0,
		RetryDelay:        time.Minute,
		HistorySize:       50,
	}
}

// Scheduler runs background jobs on a fixed worker pool
type Scheduler struct {
	config    SchedulerConfig
	executors map[JobName]JobExecutor
	logger    *zap.Logger

	jobs      chan *Job
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	inFlight  map[string]bool
	history   []Job
}

// NewScheduler creates a new scheduler instance
func NewScheduler(config SchedulerConfig, logger *zap.Logger) *Scheduler {
	if config.MaxConcurrentJobs <= 0 {
		config.MaxConcurrentJobs = 1
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = DefaultSchedulerConfig().JobTimeout
	}
	if config.HistorySize <= 0 {
		config.HistorySize = DefaultSchedulerConfig().HistorySize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		config:    config,
		executors: make(map[JobName]JobExecutor),
		logger:    logger,
		jobs:      make(chan *Job, 100),
		inFlight:  make(map[string]bool),
	}
}

// Register sets the executor for a job name. Call before Start.
func (s *Scheduler) Register(name JobName, executor JobExecutor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executors[name] = executor
}

// Start starts the worker pool
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.config.MaxConcurrentJobs; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.logger.Info("Job scheduler started",
		zap.Int("workers", s.config.MaxConcurrentJobs),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Job scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Job scheduler stop timed out")
		return ctx.Err()
	}
}

// SubmitJob queues a job. A job with the same name and marketplace that is
// still queued or running makes the submission fail with ErrJobAlreadyInProgress.
func (s *Scheduler) SubmitJob(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return ErrSchedulerNotRunning
	}
	if _, ok := s.executors[job.Name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, job.Name)
	}
	if s.inFlight[job.key()] {
		return ErrJobAlreadyInProgress
	}

	select {
	case s.jobs <- job:
		s.inFlight[job.key()] = true
		s.logger.Debug("Job submitted",
			zap.String("job_id", job.ID.String()),
			zap.String("job", string(job.Name)),
			zap.String("marketplace", string(job.Marketplace)),
		)
		return nil
	default:
		return ErrJobQueueFull
	}
}

// History returns the most recently finished jobs, newest first
func (s *Scheduler) History() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Job, len(s.history))
	for i := range s.history {
		out[i] = s.history[len(s.history)-1-i]
	}
	return out
}

// worker processes jobs from the queue
func (s *Scheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Worker stopping", zap.Int("worker_id", workerID))
			return
		case job := <-s.jobs:
			s.processJob(ctx, job, workerID)
		}
	}
}

// processJob executes a single job
func (s *Scheduler) processJob(ctx context.Context, job *Job, workerID int) {
	if job.NextRetryAt != nil && time.Now().Before(*job.NextRetryAt) {
		s.requeue(job)
		return
	}

	s.mu.Lock()
	executor := s.executors[job.Name]
	s.mu.Unlock()

	job.Start()
	log := s.logger.With(
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("job", string(job.Name)),
		zap.String("marketplace", string(job.Marketplace)),
	)
	log.Debug("Processing job")

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	if err := s.execute(jobCtx, executor, job); err != nil {
		job.Fail(err.Error())
		log.Error("Job failed", zap.Error(err))

		if job.ShouldRetry() && ctx.Err() == nil {
			job.ScheduleRetry(s.config.RetryDelay)
			log.Info("Job scheduled for retry",
				zap.Int("retry_count", job.RetryCount),
				zap.Int("max_retries", job.MaxRetries),
			)
			s.requeue(job)
			return
		}
		s.finish(job)
		return
	}

	job.Complete()
	log.Info("Job completed successfully")
	s.finish(job)
}

// execute runs the executor inside a recovery boundary
func (s *Scheduler) execute(ctx context.Context, executor JobExecutor, job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return executor.Execute(ctx, job)
}

func (s *Scheduler) requeue(job *Job) {
	select {
	case s.jobs <- job:
	default:
		s.logger.Warn("Failed to re-queue job for retry", zap.String("job_id", job.ID.String()))
		s.finish(job)
	}
}

func (s *Scheduler) finish(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, job.key())
	s.history = append(s.history, *job)
	if len(s.history) > s.config.HistorySize {
		s.history = s.history[len(s.history)-s.config.HistorySize:]
	}
}
