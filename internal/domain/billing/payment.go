package billing

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/workshop/backend/internal/domain/shared"
)

const maxReferenceLength = 100

// PaymentMethod represents how the customer paid
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "cash"
	PaymentMethodCard     PaymentMethod = "card"
	PaymentMethodTransfer PaymentMethod = "transfer"
)

// AllPaymentMethods lists the accepted methods in reporting order
var AllPaymentMethods = []PaymentMethod{PaymentMethodCash, PaymentMethodCard, PaymentMethodTransfer}

// ParsePaymentMethod parses a method name
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", shared.NewFieldValidationError("method", "must be cash, card or transfer")
	}
	return m, nil
}

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodTransfer:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// RequiresReference reports whether a voucher or transfer reference is mandatory
func (m PaymentMethod) RequiresReference() bool {
	return m != PaymentMethodCash
}

// Payment is the single settlement of an order. It is immutable once
// recorded; the only later change is its attribution to a daily closing.
type Payment struct {
	shared.BaseAggregateRoot
	OrderID   uuid.UUID
	Amount    decimal.Decimal
	Method    PaymentMethod
	Reference string
	// ExpectedTotal is the billable total computed by the server at payment time
	ExpectedTotal decimal.Decimal
	// Discrepancy is Amount - ExpectedTotal
	Discrepancy    decimal.Decimal
	BusinessDate   shared.Date
	DailyClosingID *uuid.UUID
	IdempotencyKey string
	RecordedBy     uuid.UUID
}

// NewPaymentInput carries a payment request
type NewPaymentInput struct {
	OrderID        uuid.UUID
	Amount         decimal.Decimal
	Method         PaymentMethod
	Reference      string
	ExpectedTotal  decimal.Decimal
	BusinessDate   shared.Date
	IdempotencyKey string
	RecordedBy     uuid.UUID
	RecordedAt     time.Time
}

// ValidatePaymentRequest checks the caller supplied part of a payment
func ValidatePaymentRequest(amount decimal.Decimal, method PaymentMethod, reference string) error {
	if !amount.IsPositive() {
		return shared.NewFieldValidationError("amount", "must be greater than zero")
	}
	if !amount.Equal(amount.Round(2)) {
		return shared.NewFieldValidationError("amount", "cannot have more than 2 decimal places")
	}
	if !method.IsValid() {
		return shared.NewFieldValidationError("method", "must be cash, card or transfer")
	}
	reference = strings.TrimSpace(reference)
	if method.RequiresReference() && reference == "" {
		return shared.NewFieldValidationError("reference", "is required for "+string(method)+" payments")
	}
	if len(reference) > maxReferenceLength {
		return shared.NewFieldValidationError("reference", "cannot exceed 100 characters")
	}
	return nil
}

// NewPayment validates and creates a payment
func NewPayment(in NewPaymentInput) (*Payment, error) {
	if in.OrderID == uuid.Nil {
		return nil, shared.NewFieldValidationError("order_id", "cannot be empty")
	}
	if err := ValidatePaymentRequest(in.Amount, in.Method, in.Reference); err != nil {
		return nil, err
	}
	if in.ExpectedTotal.IsNegative() {
		return nil, shared.NewFieldValidationError("expected_total", "cannot be negative")
	}
	if in.BusinessDate.IsZero() {
		return nil, shared.NewFieldValidationError("business_date", "is required")
	}
	at := in.RecordedAt
	if at.IsZero() {
		at = time.Now()
	}

	p := &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRootAt(at),
		OrderID:           in.OrderID,
		Amount:            in.Amount.Round(2),
		Method:            in.Method,
		Reference:         strings.TrimSpace(in.Reference),
		ExpectedTotal:     in.ExpectedTotal,
		BusinessDate:      in.BusinessDate,
		IdempotencyKey:    strings.TrimSpace(in.IdempotencyKey),
		RecordedBy:        in.RecordedBy,
	}
	p.Discrepancy = p.Amount.Sub(p.ExpectedTotal)

	p.RecordEvent(NewPaymentRecordedEvent(p))
	return p, nil
}

// HasDiscrepancy reports whether the amount deviates from the computed total
func (p *Payment) HasDiscrepancy() bool {
	return !p.Discrepancy.IsZero()
}

// IsAttributed reports whether the payment was counted in a daily closing
func (p *Payment) IsAttributed() bool {
	return p.DailyClosingID != nil
}

// Matches reports whether a replayed request carries the same payload
func (p *Payment) Matches(orderID uuid.UUID, amount decimal.Decimal, method PaymentMethod, reference string) bool {
	return p.OrderID == orderID &&
		p.Amount.Equal(amount.Round(2)) &&
		p.Method == method &&
		p.Reference == strings.TrimSpace(reference)
}
