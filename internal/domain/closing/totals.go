package closing

import (
	"github.com/shopspring/decimal"
	"github.com/workshop/backend/internal/domain/billing"
)

// Status of a daily or monthly closing
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// IsValid checks if the status is a known value
func (s Status) IsValid() bool {
	return s == StatusOpen || s == StatusClosed
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// MethodTotals holds income grouped by payment method
type MethodTotals struct {
	Cash     decimal.Decimal `json:"cash"`
	Card     decimal.Decimal `json:"card"`
	Transfer decimal.Decimal `json:"transfer"`
}

// Add accumulates amount under method. Unknown methods are ignored.
func (t *MethodTotals) Add(method billing.PaymentMethod, amount decimal.Decimal) {
	switch method {
	case billing.PaymentMethodCash:
		t.Cash = t.Cash.Add(amount)
	case billing.PaymentMethodCard:
		t.Card = t.Card.Add(amount)
	case billing.PaymentMethodTransfer:
		t.Transfer = t.Transfer.Add(amount)
	}
}

// Plus returns the per-method sum of t and other
func (t MethodTotals) Plus(other MethodTotals) MethodTotals {
	return MethodTotals{
		Cash:     t.Cash.Add(other.Cash),
		Card:     t.Card.Add(other.Card),
		Transfer: t.Transfer.Add(other.Transfer),
	}
}

// Total is the income across all methods
func (t MethodTotals) Total() decimal.Decimal {
	return t.Cash.Add(t.Card).Add(t.Transfer)
}

// MethodAmount is one aggregated row of payments for a method
type MethodAmount struct {
	Method billing.PaymentMethod
	Amount decimal.Decimal
	Count  int
}

// PaymentSummary aggregates a set of payments
type PaymentSummary struct {
	Totals MethodTotals
	Count  int
}

// NewPaymentSummary folds grouped rows into a summary
func NewPaymentSummary(rows []MethodAmount) PaymentSummary {
	var s PaymentSummary
	for _, r := range rows {
		s.Totals.Add(r.Method, r.Amount)
		s.Count += r.Count
	}
	return s
}

// Total is the summary income
func (s PaymentSummary) Total() decimal.Decimal {
	return s.Totals.Total()
}
