package closing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/workshop/backend/internal/domain/shared"
)

// DailyClosing reconciles the payments of one business date.
// Once closed it is never reopened or recomputed.
type DailyClosing struct {
	shared.BaseAggregateRoot
	BusinessDate     shared.Date
	Totals           MethodTotals
	TotalIncome      decimal.Decimal
	PaymentCount     int
	Status           Status
	ClosedAt         *time.Time
	ClosedBy         *uuid.UUID
	MonthlyClosingID *uuid.UUID
}

// NewDailyClosing creates the open closing row for date
func NewDailyClosing(date shared.Date) *DailyClosing {
	return &DailyClosing{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		BusinessDate:      date,
		Status:            StatusOpen,
	}
}

// NewDailyPreview builds an unsaved open closing showing what closing
// date now would produce
func NewDailyPreview(date shared.Date, summary PaymentSummary) *DailyClosing {
	d := NewDailyClosing(date)
	d.Totals = summary.Totals
	d.TotalIncome = summary.Total()
	d.PaymentCount = summary.Count
	return d
}

// IsClosed reports whether the day has been reconciled
func (d *DailyClosing) IsClosed() bool {
	return d.Status == StatusClosed
}

// Close freezes the day with the totals of the payments attributed to it
func (d *DailyClosing) Close(summary PaymentSummary, by uuid.UUID, at time.Time) error {
	if d.IsClosed() {
		return shared.NewAlreadyClosedError(d.BusinessDate.String())
	}
	if summary.Count < 0 {
		return shared.NewValidationError("payment count cannot be negative")
	}

	d.Totals = summary.Totals
	d.TotalIncome = summary.Total()
	d.PaymentCount = summary.Count
	d.Status = StatusClosed
	d.ClosedAt = &at
	d.ClosedBy = &by
	d.UpdatedAt = at

	d.RecordEvent(NewDailyClosedEvent(d))
	return nil
}

// IsAttributedToMonth reports whether a monthly closing already counted the day
func (d *DailyClosing) IsAttributedToMonth() bool {
	return d.MonthlyClosingID != nil
}
