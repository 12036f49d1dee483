package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/workshop/backend/internal/domain/shared"
	"github.com/workshop/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// JobKind names the work a job performs
type JobKind string

const (
	JobKindDailyClose JobKind = "DAILY_CLOSE"
)

// Job is one attempt at closing a business date
type Job struct {
	ID           uuid.UUID
	Kind         JobKind
	BusinessDate shared.Date
	Attempt      int
}

// RunState is where a business date's close currently stands
type RunState string

const (
	RunQueued    RunState = "QUEUED"
	RunRunning   RunState = "RUNNING"
	RunRetrying  RunState = "RETRYING"
	RunSucceeded RunState = "SUCCEEDED"
	RunFailed    RunState = "FAILED"
)

// Run is the latest known state of a business date's close
type Run struct {
	JobID     uuid.UUID
	State     RunState
	Attempts  int
	LastError string
	UpdatedAt time.Time
}

// Settled reports whether no further attempt is coming
func (r Run) Settled() bool {
	return r.State == RunSucceeded || r.State == RunFailed
}

// JobExecutor executes scheduled jobs
type JobExecutor interface {
	Execute(ctx context.Context, job *Job) error
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	Enabled           bool
	MaxConcurrentJobs int
	QueueSize         int
	JobTimeout        time.Duration
	// RetryAttempts is how many times a failed close is retried. The wait
	// before retry n is RetryDelay doubled n-1 times.
	RetryAttempts int
	RetryDelay    time.Duration
}

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		MaxConcurrentJobs: 1,
		QueueSize:         16,
		JobTimeout:        5 * time.Minute,
		RetryAttempts:     3,
		RetryDelay:        time.Minute,
	}
}

func (c SchedulerConfig) Validate() error {
	if c.MaxConcurrentJobs < 1 || c.QueueSize < 1 || c.JobTimeout <= 0 || c.RetryAttempts < 0 || c.RetryDelay < 0 {
		return ErrInvalidConfig
	}
	return nil
}

// retryBackoff is the wait before the given retry, counting from 1
func (c SchedulerConfig) retryBackoff(retry int) time.Duration {
	return c.RetryDelay << uint(retry-1)
}

// Scheduler closes business dates on a small worker pool. A date is held
// at most once between submission and its final attempt.
type Scheduler struct {
	config   SchedulerConfig
	executor JobExecutor
	logger   *zap.Logger

	jobs    chan *Job
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
	runs    map[string]*Run
}

func NewScheduler(config SchedulerConfig, executor JobExecutor, logger *zap.Logger) *Scheduler {
	defaults := DefaultSchedulerConfig()
	if config.QueueSize < 1 {
		config.QueueSize = defaults.QueueSize
	}
	if config.MaxConcurrentJobs < 1 {
		config.MaxConcurrentJobs = defaults.MaxConcurrentJobs
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = defaults.JobTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		config:   config,
		executor: executor,
		logger:   logger.With(zap.String("component", "closing_scheduler")),
		jobs:     make(chan *Job, config.QueueSize),
		runs:     make(map[string]*Run),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	s.running = true

	ctx, s.cancel = context.WithCancel(ctx)
	for i := range s.config.MaxConcurrentJobs {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.logger.Info("Closing scheduler started",
		zap.Int("workers", s.config.MaxConcurrentJobs),
		zap.Duration("job_timeout", s.config.JobTimeout),
		zap.Int("retry_attempts", s.config.RetryAttempts),
	)
	return nil
}

// Stop cancels the workers and pending retries, then waits for in-flight
// closes until ctx expires
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Closing scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Closing scheduler stop timed out")
		return ctx.Err()
	}
}

// ScheduleDailyClose queues the close of date. A date that is already
// queued, running or waiting for a retry is rejected with ErrAlreadyQueued.
func (s *Scheduler) ScheduleDailyClose(date shared.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return ErrSchedulerNotRunning
	}
	if run, ok := s.runs[date.String()]; ok && !run.Settled() {
		return ErrAlreadyQueued
	}

	job := &Job{ID: uuid.New(), Kind: JobKindDailyClose, BusinessDate: date, Attempt: 1}
	select {
	case s.jobs <- job:
	default:
		return ErrJobQueueFull
	}
	s.runs[date.String()] = &Run{JobID: job.ID, State: RunQueued, UpdatedAt: time.Now()}
	s.logger.Debug("Daily close queued",
		zap.String("job_id", job.ID.String()),
		zap.String("business_date", date.String()),
	)
	return nil
}

// LastRun returns the latest state of date's close
func (s *Scheduler) LastRun(date shared.Date) (Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[date.String()]
	if !ok {
		return Run{}, false
	}
	return *run, true
}

func (s *Scheduler) setRun(job *Job, state RunState, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run := &Run{JobID: job.ID, State: state, Attempts: job.Attempt, UpdatedAt: time.Now()}
	if err != nil {
		run.LastError = err.Error()
	}
	s.runs[job.BusinessDate.String()] = run
}

func (s *Scheduler) worker(ctx context.Context, id int) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-s.jobs:
			s.run(ctx, job, id)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, job *Job, workerID int) {
	log := s.logger.With(
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("business_date", job.BusinessDate.String()),
		zap.Int("attempt", job.Attempt),
	)
	s.setRun(job, RunRunning, nil)

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	var err error
	telemetry.WithProfilingLabels(jobCtx, map[string]string{
		telemetry.ProfilingLabelJobKind: string(job.Kind),
	}, func(ctx context.Context) {
		err = s.executor.Execute(ctx, job)
	})
	if err == nil {
		s.setRun(job, RunSucceeded, nil)
		log.Info("Daily close finished")
		return
	}

	if job.Attempt > s.config.RetryAttempts {
		s.setRun(job, RunFailed, err)
		log.Error("Daily close failed, giving up", zap.Error(err))
		return
	}

	wait := s.config.retryBackoff(job.Attempt)
	s.setRun(job, RunRetrying, err)
	log.Warn("Daily close failed, retrying", zap.Duration("backoff", wait), zap.Error(err))
	s.wg.Add(1)
	go s.retryAfter(ctx, &Job{ID: job.ID, Kind: job.Kind, BusinessDate: job.BusinessDate, Attempt: job.Attempt + 1}, wait)
}

// retryAfter requeues job once wait has passed, without holding a worker.
// A retry dropped by Stop settles the date as failed so it can be resubmitted.
func (s *Scheduler) retryAfter(ctx context.Context, job *Job, wait time.Duration) {
	defer s.wg.Done()

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		s.abandon(job)
		return
	case <-timer.C:
	}

	select {
	case s.jobs <- job:
	case <-ctx.Done():
		s.abandon(job)
	}
}

func (s *Scheduler) abandon(job *Job) {
	s.setRun(&Job{ID: job.ID, BusinessDate: job.BusinessDate, Attempt: job.Attempt - 1}, RunFailed, ErrSchedulerNotRunning)
}
