package billing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/workshop/backend/internal/domain/shared"
)

// Aggregate type constants
const (
	AggregateTypePayment = "Payment"
)

// EventFamily groups payment events
const EventFamily = "payment"

// Event type constants
const (
	EventTypePaymentRecorded = "PaymentRecorded"
)

// PaymentRecordedEvent is raised when an order is settled
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	PaymentID     uuid.UUID       `json:"payment_id"`
	OrderID       uuid.UUID       `json:"order_id"`
	Amount        decimal.Decimal `json:"amount"`
	ExpectedTotal decimal.Decimal `json:"expected_total"`
	Discrepancy   decimal.Decimal `json:"discrepancy"`
	Method        PaymentMethod   `json:"method"`
	BusinessDate  shared.Date     `json:"business_date"`
}

// NewPaymentRecordedEvent creates a new PaymentRecordedEvent
func NewPaymentRecordedEvent(p *Payment) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRecorded, AggregateTypePayment, p.ID, p.RecordedBy),
		PaymentID:       p.ID,
		OrderID:         p.OrderID,
		Amount:          p.Amount,
		ExpectedTotal:   p.ExpectedTotal,
		Discrepancy:     p.Discrepancy,
		Method:          p.Method,
		BusinessDate:    p.BusinessDate,
	}
}

// EventType returns the event type name
func (e *PaymentRecordedEvent) EventType() string {
	return EventTypePaymentRecorded
}
