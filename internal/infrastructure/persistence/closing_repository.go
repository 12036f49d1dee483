package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/workshop/backend/internal/domain/closing"
	"github.com/workshop/backend/internal/domain/shared"
	"github.com/workshop/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormDailyClosingRepository implements closing.DailyClosingRepository using GORM.
// Row locks are taken only on PostgreSQL; SQLite serializes writers itself.
type GormDailyClosingRepository struct {
	db *gorm.DB
}

// NewGormDailyClosingRepository creates a new GormDailyClosingRepository
func NewGormDailyClosingRepository(db *gorm.DB) *GormDailyClosingRepository {
	return &GormDailyClosingRepository{db: db}
}

// FindByDate finds the closing row of a date
func (r *GormDailyClosingRepository) FindByDate(ctx context.Context, date shared.Date) (*closing.DailyClosing, error) {
	var model models.DailyClosingModel
	if err := r.db.WithContext(ctx).First(&model, "business_date = ?", date.Time()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("daily closing")
		}
		return nil, fmt.Errorf("find daily closing: %w", err)
	}
	return model.ToDomain(), nil
}

// FindUnattributedToMonth returns closed days up to upTo not yet counted by a month
func (r *GormDailyClosingRepository) FindUnattributedToMonth(ctx context.Context, upTo shared.Date) ([]closing.DailyClosing, error) {
	return r.findClosed(r.db.WithContext(ctx).
		Where("business_date <= ? AND monthly_closing_id IS NULL", upTo.Time()))
}

func (r *GormDailyClosingRepository) findClosed(query *gorm.DB) ([]closing.DailyClosing, error) {
	var rows []models.DailyClosingModel
	if err := query.Where("status = ?", closing.StatusClosed).
		Order("business_date ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list daily closings: %w", err)
	}
	dailies := make([]closing.DailyClosing, len(rows))
	for i := range rows {
		dailies[i] = *rows[i].ToDomain()
	}
	return dailies, nil
}

// LockForClose creates the open row for date if needed and locks it FOR UPDATE
func (r *GormDailyClosingRepository) LockForClose(ctx context.Context, date shared.Date) (*closing.DailyClosing, error) {
	return r.lock(ctx, date, "UPDATE")
}

// LockForPayment creates the open row for date if needed and locks it FOR SHARE
func (r *GormDailyClosingRepository) LockForPayment(ctx context.Context, date shared.Date) (*closing.DailyClosing, error) {
	return r.lock(ctx, date, "SHARE")
}

func (r *GormDailyClosingRepository) lock(ctx context.Context, date shared.Date, strength string) (*closing.DailyClosing, error) {
	db := r.db.WithContext(ctx)

	// The unique business_date makes concurrent inserts collapse to one row
	open := models.DailyClosingModelFromDomain(closing.NewDailyClosing(date))
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "business_date"}},
		DoNothing: true,
	}).Create(open).Error; err != nil {
		return nil, fmt.Errorf("ensure daily closing: %w", err)
	}

	query := db
	if isPostgres(db) {
		query = query.Clauses(clause.Locking{Strength: strength})
	}
	var model models.DailyClosingModel
	if err := query.First(&model, "business_date = ?", date.Time()).Error; err != nil {
		return nil, fmt.Errorf("lock daily closing: %w", err)
	}
	return model.ToDomain(), nil
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormDailyClosingRepository) SaveWithLock(ctx context.Context, c *closing.DailyClosing) error {
	currentVersion := c.Version
	updatedAt := time.Now()

	result := r.db.WithContext(ctx).Model(&models.DailyClosingModel{}).
		Where("id = ? AND version = ?", c.ID, currentVersion).
		Updates(map[string]interface{}{
			"cash_total":     c.Totals.Cash,
			"card_total":     c.Totals.Card,
			"transfer_total": c.Totals.Transfer,
			"total_income":   c.TotalIncome,
			"payment_count":  c.PaymentCount,
			"status":         c.Status,
			"closed_at":      c.ClosedAt,
			"closed_by":      c.ClosedBy,
			"version":        currentVersion + 1,
			"updated_at":     updatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("update daily closing: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict.WithDetail("entity", "daily closing")
	}
	c.Version = currentVersion + 1
	c.UpdatedAt = updatedAt
	return nil
}

// AttributeToMonth links closed days to a monthly closing. Every id must
// still be unattributed.
func (r *GormDailyClosingRepository) AttributeToMonth(ctx context.Context, monthlyID uuid.UUID, dailyIDs []uuid.UUID) error {
	if len(dailyIDs) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&models.DailyClosingModel{}).
		Where("id IN ? AND monthly_closing_id IS NULL", dailyIDs).
		Updates(map[string]interface{}{
			"monthly_closing_id": monthlyID,
			"updated_at":         time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("attribute daily closings: %w", result.Error)
	}
	if result.RowsAffected != int64(len(dailyIDs)) {
		return shared.ErrConcurrencyConflict.WithDetail("entity", "daily closing")
	}
	return nil
}

// GormMonthlyClosingRepository implements closing.MonthlyClosingRepository using GORM
type GormMonthlyClosingRepository struct {
	db *gorm.DB
}

// NewGormMonthlyClosingRepository creates a new GormMonthlyClosingRepository
func NewGormMonthlyClosingRepository(db *gorm.DB) *GormMonthlyClosingRepository {
	return &GormMonthlyClosingRepository{db: db}
}

// FindByYearMonth finds the closing row of a month
func (r *GormMonthlyClosingRepository) FindByYearMonth(ctx context.Context, ym shared.YearMonth) (*closing.MonthlyClosing, error) {
	var model models.MonthlyClosingModel
	if err := r.db.WithContext(ctx).
		Where("year = ? AND month = ?", ym.Year, int(ym.Month)).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("monthly closing")
		}
		return nil, fmt.Errorf("find monthly closing: %w", err)
	}
	return model.ToDomain(), nil
}

// LockForClose creates the open row for ym if needed and locks it FOR UPDATE
func (r *GormMonthlyClosingRepository) LockForClose(ctx context.Context, ym shared.YearMonth) (*closing.MonthlyClosing, error) {
	db := r.db.WithContext(ctx)

	open := models.MonthlyClosingModelFromDomain(closing.NewMonthlyClosing(ym))
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "year"}, {Name: "month"}},
		DoNothing: true,
	}).Create(open).Error; err != nil {
		return nil, fmt.Errorf("ensure monthly closing: %w", err)
	}

	query := db
	if isPostgres(db) {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var model models.MonthlyClosingModel
	if err := query.Where("year = ? AND month = ?", ym.Year, int(ym.Month)).First(&model).Error; err != nil {
		return nil, fmt.Errorf("lock monthly closing: %w", err)
	}
	return model.ToDomain(), nil
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormMonthlyClosingRepository) SaveWithLock(ctx context.Context, c *closing.MonthlyClosing) error {
	currentVersion := c.Version
	updatedAt := time.Now()

	result := r.db.WithContext(ctx).Model(&models.MonthlyClosingModel{}).
		Where("id = ? AND version = ?", c.ID, currentVersion).
		Updates(map[string]interface{}{
			"cash_total":     c.Totals.Cash,
			"card_total":     c.Totals.Card,
			"transfer_total": c.Totals.Transfer,
			"total_income":   c.TotalIncome,
			"payment_count":  c.PaymentCount,
			"days_closed":    c.DaysClosed,
			"cutoff_day":     c.CutoffDay,
			"status":         c.Status,
			"closed_at":      c.ClosedAt,
			"closed_by":      c.ClosedBy,
			"version":        currentVersion + 1,
			"updated_at":     updatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("update monthly closing: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict.WithDetail("entity", "monthly closing")
	}
	c.Version = currentVersion + 1
	c.UpdatedAt = updatedAt
	return nil
}

var (
	_ closing.DailyClosingRepository   = (*GormDailyClosingRepository)(nil)
	_ closing.MonthlyClosingRepository = (*GormMonthlyClosingRepository)(nil)
)
