package closing

import (
	"context"

	"github.com/google/uuid"
	"github.com/workshop/backend/internal/domain/shared"
)

// DailyClosingRepository persists daily closings.
// The Lock* methods must run inside a transaction.
type DailyClosingRepository interface {
	FindByDate(ctx context.Context, date shared.Date) (*DailyClosing, error)
	// FindUnattributedToMonth returns closed days up to upTo not yet counted by a month
	FindUnattributedToMonth(ctx context.Context, upTo shared.Date) ([]DailyClosing, error)
	// LockForClose creates the open row for date if needed and locks it exclusively
	LockForClose(ctx context.Context, date shared.Date) (*DailyClosing, error)
	// LockForPayment creates the open row for date if needed and takes a shared lock on it
	LockForPayment(ctx context.Context, date shared.Date) (*DailyClosing, error)
	SaveWithLock(ctx context.Context, closing *DailyClosing) error
	AttributeToMonth(ctx context.Context, monthlyID uuid.UUID, dailyIDs []uuid.UUID) error
}

// MonthlyClosingRepository persists monthly closings
type MonthlyClosingRepository interface {
	FindByYearMonth(ctx context.Context, ym shared.YearMonth) (*MonthlyClosing, error)
	// LockForClose creates the open row for ym if needed and locks it exclusively
	LockForClose(ctx context.Context, ym shared.YearMonth) (*MonthlyClosing, error)
	SaveWithLock(ctx context.Context, closing *MonthlyClosing) error
}

// PaymentLedger is the closing view over recorded payments
type PaymentLedger interface {
	// AttributeToDailyClosing stamps every unattributed payment of date with closingID
	AttributeToDailyClosing(ctx context.Context, closingID uuid.UUID, date shared.Date) (int64, error)
	SummarizeByClosing(ctx context.Context, closingID uuid.UUID) (PaymentSummary, error)
	SummarizeUnattributed(ctx context.Context, date shared.Date) (PaymentSummary, error)
}
