package closing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/workshop/backend/internal/domain/shared"
)

// Aggregate type constants
const (
	AggregateTypeDailyClosing   = "DailyClosing"
	AggregateTypeMonthlyClosing = "MonthlyClosing"
)

// EventFamily groups daily and monthly closing events
const EventFamily = "closing"

// Event type constants
const (
	EventTypeDailyClosed   = "DailyClosed"
	EventTypeMonthlyClosed = "MonthlyClosed"
)

// DailyClosedEvent is raised when a business date is reconciled
type DailyClosedEvent struct {
	shared.BaseDomainEvent
	ClosingID    uuid.UUID       `json:"closing_id"`
	BusinessDate shared.Date     `json:"business_date"`
	Totals       MethodTotals    `json:"totals"`
	TotalIncome  decimal.Decimal `json:"total_income"`
	PaymentCount int             `json:"payment_count"`
}

// NewDailyClosedEvent creates a new DailyClosedEvent
func NewDailyClosedEvent(d *DailyClosing) *DailyClosedEvent {
	var by uuid.UUID
	if d.ClosedBy != nil {
		by = *d.ClosedBy
	}
	return &DailyClosedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDailyClosed, AggregateTypeDailyClosing, d.ID, by),
		ClosingID:       d.ID,
		BusinessDate:    d.BusinessDate,
		Totals:          d.Totals,
		TotalIncome:     d.TotalIncome,
		PaymentCount:    d.PaymentCount,
	}
}

// EventType returns the event type name
func (e *DailyClosedEvent) EventType() string {
	return EventTypeDailyClosed
}

// MonthlyClosedEvent is raised when a month is reconciled
type MonthlyClosedEvent struct {
	shared.BaseDomainEvent
	ClosingID    uuid.UUID        `json:"closing_id"`
	YearMonth    shared.YearMonth `json:"year_month"`
	Totals       MethodTotals     `json:"totals"`
	TotalIncome  decimal.Decimal  `json:"total_income"`
	PaymentCount int              `json:"payment_count"`
	DaysClosed   int              `json:"days_closed"`
}

// NewMonthlyClosedEvent creates a new MonthlyClosedEvent
func NewMonthlyClosedEvent(m *MonthlyClosing) *MonthlyClosedEvent {
	var by uuid.UUID
	if m.ClosedBy != nil {
		by = *m.ClosedBy
	}
	return &MonthlyClosedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMonthlyClosed, AggregateTypeMonthlyClosing, m.ID, by),
		ClosingID:       m.ID,
		YearMonth:       m.YearMonth,
		Totals:          m.Totals,
		TotalIncome:     m.TotalIncome,
		PaymentCount:    m.PaymentCount,
		DaysClosed:      m.DaysClosed,
	}
}

// EventType returns the event type name
func (e *MonthlyClosedEvent) EventType() string {
	return EventTypeMonthlyClosed
}
