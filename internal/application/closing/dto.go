package closing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/workshop/backend/internal/domain/closing"
	"github.com/workshop/backend/internal/domain/shared"
)

// CloseDayRequest closes one business date
type CloseDayRequest struct {
	Date shared.Date `json:"date"`
}

// CloseMonthRequest closes one month. With ExpectMutation set, a month
// that is already closed is reported as an error instead of returned.
type CloseMonthRequest struct {
	YearMonth      shared.YearMonth `json:"year_month"`
	ExpectMutation bool             `json:"expect_mutation"`
}

// DailyClosingResponse is a stored closing or a live preview
type DailyClosingResponse struct {
	ID               *uuid.UUID           `json:"id,omitempty"`
	BusinessDate     shared.Date          `json:"business_date"`
	Status           string               `json:"status"`
	Totals           closing.MethodTotals `json:"totals"`
	TotalIncome      decimal.Decimal      `json:"total_income"`
	PaymentCount     int                  `json:"payment_count"`
	// PendingPayments counts payments a close would attribute now
	PendingPayments  int                  `json:"pending_payments"`
	ClosedAt         *time.Time           `json:"closed_at,omitempty"`
	ClosedBy         *uuid.UUID           `json:"closed_by,omitempty"`
	MonthlyClosingID *uuid.UUID           `json:"monthly_closing_id,omitempty"`
}

// MonthlyClosingResponse is a stored closing or an eligibility preview
type MonthlyClosingResponse struct {
	ID            *uuid.UUID           `json:"id,omitempty"`
	YearMonth     shared.YearMonth     `json:"year_month"`
	Status        string               `json:"status"`
	Totals        closing.MethodTotals `json:"totals"`
	TotalIncome   decimal.Decimal      `json:"total_income"`
	PaymentCount  int                  `json:"payment_count"`
	DaysClosed    int                  `json:"days_closed"`
	CutoffDate    shared.Date          `json:"cutoff_date"`
	Eligible      bool                 `json:"eligible"`
	MissingDays   []shared.Date        `json:"missing_days"`
	ClosedAt      *time.Time           `json:"closed_at,omitempty"`
	ClosedBy      *uuid.UUID           `json:"closed_by,omitempty"`
	// AlreadyClosed is set when closeMonth returned an existing closing
	AlreadyClosed bool                 `json:"already_closed,omitempty"`
}

// ToDailyClosingResponse converts a stored daily closing
func ToDailyClosingResponse(d *closing.DailyClosing) DailyClosingResponse {
	id := d.ID
	return DailyClosingResponse{
		ID:               &id,
		BusinessDate:     d.BusinessDate,
		Status:           string(d.Status),
		Totals:           d.Totals,
		TotalIncome:      d.TotalIncome,
		PaymentCount:     d.PaymentCount,
		ClosedAt:         d.ClosedAt,
		ClosedBy:         d.ClosedBy,
		MonthlyClosingID: d.MonthlyClosingID,
	}
}

// ToMonthlyClosingResponse converts a stored monthly closing
func ToMonthlyClosingResponse(m *closing.MonthlyClosing, policy closing.CutoffPolicy) MonthlyClosingResponse {
	id := m.ID
	return MonthlyClosingResponse{
		ID:           &id,
		YearMonth:    m.YearMonth,
		Status:       string(m.Status),
		Totals:       m.Totals,
		TotalIncome:  m.TotalIncome,
		PaymentCount: m.PaymentCount,
		DaysClosed:   m.DaysClosed,
		CutoffDate:   policy.CutoffDate(m.YearMonth),
		Eligible:     true,
		MissingDays:  []shared.Date{},
		ClosedAt:     m.ClosedAt,
		ClosedBy:     m.ClosedBy,
	}
}
