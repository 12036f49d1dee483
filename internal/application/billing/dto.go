package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/workshop/backend/internal/domain/billing"
	"github.com/workshop/backend/internal/domain/shared"
)

// RecordPaymentRequest settles a finished order
type RecordPaymentRequest struct {
	Amount    decimal.Decimal `json:"amount" binding:"money"`
	Method    string          `json:"method" binding:"required,oneof=cash card transfer"`
	Reference string          `json:"reference" binding:"max=100"`
}

// PaymentResponse is the API view of a payment
type PaymentResponse struct {
	ID             uuid.UUID       `json:"id"`
	OrderID        uuid.UUID       `json:"order_id"`
	Amount         decimal.Decimal `json:"amount"`
	Method         string          `json:"method"`
	Reference      string          `json:"reference,omitempty"`
	ExpectedTotal  decimal.Decimal `json:"expected_total"`
	Discrepancy    decimal.Decimal `json:"discrepancy"`
	BusinessDate   shared.Date     `json:"business_date"`
	DailyClosingID *uuid.UUID      `json:"daily_closing_id,omitempty"`
	RecordedBy     uuid.UUID       `json:"recorded_by"`
	CreatedAt      time.Time       `json:"created_at"`
	// Replayed is true when an idempotent retry returned the stored payment
	Replayed       bool            `json:"replayed,omitempty"`
}

// ToPaymentResponse converts a domain payment to its response
func ToPaymentResponse(p *billing.Payment) PaymentResponse {
	return PaymentResponse{
		ID:             p.ID,
		OrderID:        p.OrderID,
		Amount:         p.Amount,
		Method:         string(p.Method),
		Reference:      p.Reference,
		ExpectedTotal:  p.ExpectedTotal,
		Discrepancy:    p.Discrepancy,
		BusinessDate:   p.BusinessDate,
		DailyClosingID: p.DailyClosingID,
		RecordedBy:     p.RecordedBy,
		CreatedAt:      p.CreatedAt,
	}
}

// ToPaymentResponses converts a list of payments
func ToPaymentResponses(payments []billing.Payment) []PaymentResponse {
	responses := make([]PaymentResponse, len(payments))
	for i := range payments {
		responses[i] = ToPaymentResponse(&payments[i])
	}
	return responses
}
