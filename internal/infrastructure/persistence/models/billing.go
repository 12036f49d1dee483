package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/workshop/backend/internal/domain/billing"
)

// PaymentModel is the persistence model for the Payment aggregate.
// order_id and idempotency_key are unique so a second payment fails at the database.
type PaymentModel struct {
	AggregateModel
	OrderID        uuid.UUID             `gorm:"type:uuid;not null;uniqueIndex"`
	Amount         decimal.Decimal       `gorm:"type:decimal(12,2);not null"`
	Method         billing.PaymentMethod `gorm:"type:varchar(20);not null"`
	Reference      string                `gorm:"type:varchar(100)"`
	ExpectedTotal  decimal.Decimal       `gorm:"type:decimal(12,2);not null"`
	Discrepancy    decimal.Decimal       `gorm:"type:decimal(12,2);not null;default:0"`
	BusinessDate   time.Time             `gorm:"type:date;not null;index"`
	DailyClosingID *uuid.UUID            `gorm:"type:uuid;index"`
	IdempotencyKey *string               `gorm:"type:varchar(100);uniqueIndex"`
	RecordedBy     uuid.UUID             `gorm:"type:uuid;not null"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment
func (m *PaymentModel) ToDomain() *billing.Payment {
	p := &billing.Payment{
		BaseAggregateRoot: m.Root(),
		OrderID:           m.OrderID,
		Amount:            m.Amount,
		Method:            m.Method,
		Reference:         m.Reference,
		ExpectedTotal:     m.ExpectedTotal,
		Discrepancy:       m.Discrepancy,
		BusinessDate:      dateOf(m.BusinessDate),
		DailyClosingID:    m.DailyClosingID,
		RecordedBy:        m.RecordedBy,
	}
	if m.IdempotencyKey != nil {
		p.IdempotencyKey = *m.IdempotencyKey
	}
	return p
}

// FromDomain populates the persistence model from a domain Payment
func (m *PaymentModel) FromDomain(p *billing.Payment) {
	m.SetRoot(p.BaseAggregateRoot)
	m.OrderID = p.OrderID
	m.Amount = p.Amount
	m.Method = p.Method
	m.Reference = p.Reference
	m.ExpectedTotal = p.ExpectedTotal
	m.Discrepancy = p.Discrepancy
	m.BusinessDate = p.BusinessDate.Time()
	m.DailyClosingID = p.DailyClosingID
	m.IdempotencyKey = nil
	if p.IdempotencyKey != "" {
		key := p.IdempotencyKey
		m.IdempotencyKey = &key
	}
	m.RecordedBy = p.RecordedBy
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment
func PaymentModelFromDomain(p *billing.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}
