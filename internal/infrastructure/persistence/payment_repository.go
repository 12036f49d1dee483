package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/workshop/backend/internal/domain/billing"
	"github.com/workshop/backend/internal/domain/closing"
	"github.com/workshop/backend/internal/domain/shared"
	"github.com/workshop/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPaymentRepository implements billing.PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

func (r *GormPaymentRepository) findOne(ctx context.Context, query string, args ...interface{}) (*billing.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).Where(query, args...).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("payment")
		}
		return nil, fmt.Errorf("find payment: %w", err)
	}
	return model.ToDomain(), nil
}

// FindByID finds a payment by its ID
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Payment, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByOrderID finds the payment of an order
func (r *GormPaymentRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*billing.Payment, error) {
	return r.findOne(ctx, "order_id = ?", orderID)
}

// FindByIdempotencyKey finds the payment recorded under a client key
func (r *GormPaymentRepository) FindByIdempotencyKey(ctx context.Context, key string) (*billing.Payment, error) {
	if key == "" {
		return nil, shared.NewNotFoundError("payment")
	}
	return r.findOne(ctx, "idempotency_key = ?", key)
}

// FindByBusinessDate lists the payments of a business date in recording order
func (r *GormPaymentRepository) FindByBusinessDate(ctx context.Context, date shared.Date) ([]billing.Payment, error) {
	var rows []models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("business_date = ?", date.Time()).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	payments := make([]billing.Payment, len(rows))
	for i := range rows {
		payments[i] = *rows[i].ToDomain()
	}
	return payments, nil
}

// Create inserts the payment
func (r *GormPaymentRepository) Create(ctx context.Context, payment *billing.Payment) error {
	if err := r.db.WithContext(ctx).Create(models.PaymentModelFromDomain(payment)).Error; err != nil {
		return translateError(err, "create payment", "payment")
	}
	return nil
}

// GormPaymentLedger implements closing.PaymentLedger over the payments table
type GormPaymentLedger struct {
	db *gorm.DB
}

// NewGormPaymentLedger creates a new GormPaymentLedger
func NewGormPaymentLedger(db *gorm.DB) *GormPaymentLedger {
	return &GormPaymentLedger{db: db}
}

// AttributeToDailyClosing stamps the unattributed payments of date
func (l *GormPaymentLedger) AttributeToDailyClosing(ctx context.Context, closingID uuid.UUID, date shared.Date) (int64, error) {
	result := l.db.WithContext(ctx).Model(&models.PaymentModel{}).
		Where("business_date = ? AND daily_closing_id IS NULL", date.Time()).
		Update("daily_closing_id", closingID)
	if result.Error != nil {
		return 0, fmt.Errorf("attribute payments: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// SummarizeByClosing totals the payments attributed to a daily closing
func (l *GormPaymentLedger) SummarizeByClosing(ctx context.Context, closingID uuid.UUID) (closing.PaymentSummary, error) {
	return l.summarize(l.db.WithContext(ctx).Where("daily_closing_id = ?", closingID))
}

// SummarizeUnattributed totals the payments of date not yet closed
func (l *GormPaymentLedger) SummarizeUnattributed(ctx context.Context, date shared.Date) (closing.PaymentSummary, error) {
	return l.summarize(l.db.WithContext(ctx).Where("business_date = ? AND daily_closing_id IS NULL", date.Time()))
}

func (l *GormPaymentLedger) summarize(query *gorm.DB) (closing.PaymentSummary, error) {
	type result struct {
		Method string          `gorm:"column:method"`
		Amount decimal.Decimal `gorm:"column:amount"`
		Count  int             `gorm:"column:count"`
	}

	var results []result
	if err := query.Model(&models.PaymentModel{}).
		Select("method, COALESCE(SUM(amount), 0) AS amount, COUNT(*) AS count").
		Group("method").
		Scan(&results).Error; err != nil {
		return closing.PaymentSummary{}, fmt.Errorf("summarize payments: %w", err)
	}

	// SQLite sums decimal columns as REAL
	rows := make([]closing.MethodAmount, len(results))
	for i, r := range results {
		rows[i] = closing.MethodAmount{
			Method: billing.PaymentMethod(r.Method),
			Amount: r.Amount.Round(2),
			Count:  r.Count,
		}
	}
	return closing.NewPaymentSummary(rows), nil
}

var (
	_ billing.PaymentRepository = (*GormPaymentRepository)(nil)
	_ closing.PaymentLedger     = (*GormPaymentLedger)(nil)
)
