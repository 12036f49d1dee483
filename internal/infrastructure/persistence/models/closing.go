package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/workshop/backend/internal/domain/closing"
	"github.com/workshop/backend/internal/domain/shared"
)

// DailyClosingModel is the persistence model for a daily closing.
// The unique business_date is the row every close and payment of the day locks.
type DailyClosingModel struct {
	AggregateModel
	BusinessDate     time.Time       `gorm:"type:date;not null;uniqueIndex"`
	CashTotal        decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	CardTotal        decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	TransferTotal    decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	TotalIncome      decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	PaymentCount     int             `gorm:"not null;default:0"`
	Status           closing.Status  `gorm:"type:varchar(20);not null;default:'open';index"`
	ClosedAt         *time.Time
	ClosedBy         *uuid.UUID `gorm:"type:uuid"`
	MonthlyClosingID *uuid.UUID `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (DailyClosingModel) TableName() string {
	return "daily_closings"
}

// ToDomain converts the persistence model to a domain DailyClosing
func (m *DailyClosingModel) ToDomain() *closing.DailyClosing {
	return &closing.DailyClosing{
		BaseAggregateRoot: m.Root(),
		BusinessDate:      dateOf(m.BusinessDate),
		Totals: closing.MethodTotals{
			Cash:     m.CashTotal,
			Card:     m.CardTotal,
			Transfer: m.TransferTotal,
		},
		TotalIncome:      m.TotalIncome,
		PaymentCount:     m.PaymentCount,
		Status:           m.Status,
		ClosedAt:         m.ClosedAt,
		ClosedBy:         m.ClosedBy,
		MonthlyClosingID: m.MonthlyClosingID,
	}
}

// FromDomain populates the persistence model from a domain DailyClosing
func (m *DailyClosingModel) FromDomain(d *closing.DailyClosing) {
	m.SetRoot(d.BaseAggregateRoot)
	m.BusinessDate = d.BusinessDate.Time()
	m.CashTotal = d.Totals.Cash
	m.CardTotal = d.Totals.Card
	m.TransferTotal = d.Totals.Transfer
	m.TotalIncome = d.TotalIncome
	m.PaymentCount = d.PaymentCount
	m.Status = d.Status
	m.ClosedAt = d.ClosedAt
	m.ClosedBy = d.ClosedBy
	m.MonthlyClosingID = d.MonthlyClosingID
}

// DailyClosingModelFromDomain creates a new persistence model from a domain DailyClosing
func DailyClosingModelFromDomain(d *closing.DailyClosing) *DailyClosingModel {
	m := &DailyClosingModel{}
	m.FromDomain(d)
	return m
}

// MonthlyClosingModel is the persistence model for a monthly closing
type MonthlyClosingModel struct {
	AggregateModel
	Year          int             `gorm:"not null;uniqueIndex:idx_monthly_closing_period,priority:1"`
	Month         int             `gorm:"not null;uniqueIndex:idx_monthly_closing_period,priority:2"`
	CashTotal     decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	CardTotal     decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	TransferTotal decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	TotalIncome   decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	PaymentCount  int             `gorm:"not null;default:0"`
	DaysClosed    int             `gorm:"not null;default:0"`
	CutoffDay     int             `gorm:"not null;default:0"`
	Status        closing.Status  `gorm:"type:varchar(20);not null;default:'open'"`
	ClosedAt      *time.Time
	ClosedBy      *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (MonthlyClosingModel) TableName() string {
	return "monthly_closings"
}

// ToDomain converts the persistence model to a domain MonthlyClosing
func (m *MonthlyClosingModel) ToDomain() *closing.MonthlyClosing {
	return &closing.MonthlyClosing{
		BaseAggregateRoot: m.Root(),
		YearMonth:         shared.YearMonth{Year: m.Year, Month: time.Month(m.Month)},
		Totals: closing.MethodTotals{
			Cash:     m.CashTotal,
			Card:     m.CardTotal,
			Transfer: m.TransferTotal,
		},
		TotalIncome:  m.TotalIncome,
		PaymentCount: m.PaymentCount,
		DaysClosed:   m.DaysClosed,
		CutoffDay:    m.CutoffDay,
		Status:       m.Status,
		ClosedAt:     m.ClosedAt,
		ClosedBy:     m.ClosedBy,
	}
}

// FromDomain populates the persistence model from a domain MonthlyClosing
func (m *MonthlyClosingModel) FromDomain(c *closing.MonthlyClosing) {
	m.SetRoot(c.BaseAggregateRoot)
	m.Year = c.YearMonth.Year
	m.Month = int(c.YearMonth.Month)
	m.CashTotal = c.Totals.Cash
	m.CardTotal = c.Totals.Card
	m.TransferTotal = c.Totals.Transfer
	m.TotalIncome = c.TotalIncome
	m.PaymentCount = c.PaymentCount
	m.DaysClosed = c.DaysClosed
	m.CutoffDay = c.CutoffDay
	m.Status = c.Status
	m.ClosedAt = c.ClosedAt
	m.ClosedBy = c.ClosedBy
}

// MonthlyClosingModelFromDomain creates a new persistence model from a domain MonthlyClosing
func MonthlyClosingModelFromDomain(c *closing.MonthlyClosing) *MonthlyClosingModel {
	m := &MonthlyClosingModel{}
	m.FromDomain(c)
	return m
}
