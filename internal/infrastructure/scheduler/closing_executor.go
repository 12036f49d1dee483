package scheduler

import (
	"context"
	"fmt"

	"github.com/workshop/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// DayCloser closes a business date on behalf of the scheduler
type DayCloser interface {
	AutoCloseDay(ctx context.Context, date shared.Date) error
}

// ClosingExecutor runs daily close jobs
type ClosingExecutor struct {
	closer DayCloser
	logger *zap.Logger
}

// NewClosingExecutor creates a new ClosingExecutor
func NewClosingExecutor(closer DayCloser, logger *zap.Logger) *ClosingExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClosingExecutor{closer: closer, logger: logger}
}

// Execute implements JobExecutor
func (e *ClosingExecutor) Execute(ctx context.Context, job *Job) error {
	switch job.Kind {
	case JobKindDailyClose:
		if job.BusinessDate.IsZero() {
			return fmt.Errorf("%w: daily close without a business date", ErrInvalidJobKind)
		}
		e.logger.Debug("Auto closing day", zap.String("business_date", job.BusinessDate.String()))
		return e.closer.AutoCloseDay(ctx, job.BusinessDate)
	default:
		return fmt.Errorf("%w: %s", ErrInvalidJobKind, job.Kind)
	}
}
