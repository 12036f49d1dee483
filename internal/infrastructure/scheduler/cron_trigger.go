package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/workshop/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// JobSubmitter accepts daily close jobs
type JobSubmitter interface {
	ScheduleDailyClose(date shared.Date) error
}

// CronTriggerConfig holds configuration for the cron trigger
type CronTriggerConfig struct {
	// Hour and Minute are the local time the previous day gets closed
	Hour   int
	Minute int

	// CheckInterval is how often to check if it's time to run
	CheckInterval time.Duration

	// Location defines the operating day
	Location *time.Location
}

// DefaultCronTriggerConfig returns default cron trigger configuration
func DefaultCronTriggerConfig() CronTriggerConfig {
	return CronTriggerConfig{
		Hour:          0,
		Minute:        30,
		CheckInterval: time.Minute,
		Location:      time.UTC,
	}
}

// Validate checks the configured trigger time
func (c CronTriggerConfig) Validate() error {
	if c.Hour < 0 || c.Hour > 23 || c.Minute < 0 || c.Minute > 59 || c.CheckInterval <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// CronTrigger submits the close of the previous day once a day
type CronTrigger struct {
	config    CronTriggerConfig
	submitter JobSubmitter
	logger    *zap.Logger
	now       func() time.Time

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string
}

// NewCronTrigger creates a new cron trigger
func NewCronTrigger(config CronTriggerConfig, submitter JobSubmitter, logger *zap.Logger) *CronTrigger {
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CronTrigger{
		config:    config,
		submitter: submitter,
		logger:    logger,
		now:       time.Now,
	}
}

// SetClock overrides the time source
func (c *CronTrigger) SetClock(now func() time.Time) {
	if now != nil {
		c.now = now
	}
}

// Start starts the cron trigger
func (c *CronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Cron trigger started",
		zap.Int("hour", c.config.Hour),
		zap.Int("minute", c.config.Minute),
		zap.String("location", c.config.Location.String()),
		zap.Duration("check_interval", c.config.CheckInterval),
	)

	return nil
}

// Stop stops the cron trigger
func (c *CronTrigger) Stop(ctx context.Context) error {
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
		c.logger.Info("Cron trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *CronTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkAndTrigger()
		}
	}
}

// checkAndTrigger submits yesterday's close once the configured time has
// passed. A missed tick still fires later the same day.
func (c *CronTrigger) checkAndTrigger() bool {
	now := c.now().In(c.config.Location)
	today := shared.DateOf(now, c.config.Location)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastRunDate == today.String() {
		return false
	}
	due := time.Date(now.Year(), now.Month(), now.Day(), c.config.Hour, c.config.Minute, 0, 0, c.config.Location)
	if now.Before(due) {
		return false
	}
	c.lastRunDate = today.String()

	yesterday := today.AddDays(-1)
	c.logger.Info("Triggering daily auto close", zap.String("business_date", yesterday.String()))
	if err := c.submitter.ScheduleDailyClose(yesterday); err != nil {
		c.logger.Error("Failed to schedule daily auto close",
			zap.String("business_date", yesterday.String()),
			zap.Error(err),
		)
	}
	return true
}
