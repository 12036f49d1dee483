package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/workshop/backend/internal/domain/shared"
	"github.com/workshop/backend/internal/domain/workshop"
	"github.com/workshop/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements workshop.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) preloadDetails(db *gorm.DB) *gorm.DB {
	return db.Preload("Details", func(db *gorm.DB) *gorm.DB {
		return db.Order("order_details.created_at ASC, order_details.id ASC")
	})
}

// FindByID loads an order with its details
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*workshop.Order, error) {
	var model models.OrderModel
	if err := r.preloadDetails(r.db.WithContext(ctx)).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("order")
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	return model.ToDomain(), nil
}

// FindByDetailID loads the order owning the given detail
func (r *GormOrderRepository) FindByDetailID(ctx context.Context, detailID uuid.UUID) (*workshop.Order, error) {
	var detail models.OrderDetailModel
	if err := r.db.WithContext(ctx).Select("order_id").First(&detail, "id = ?", detailID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("order detail")
		}
		return nil, fmt.Errorf("find order detail: %w", err)
	}
	return r.FindByID(ctx, detail.OrderID)
}

// FindAll lists orders with their details
func (r *GormOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]workshop.Order, error) {
	var rows []models.OrderModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.OrderModel{}), filter)
	if err := r.preloadDetails(query).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	orders := make([]workshop.Order, len(rows))
	for i := range rows {
		orders[i] = *rows[i].ToDomain()
	}
	return orders, nil
}

// Count counts orders matching the filter
func (r *GormOrderRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&models.OrderModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return count, nil
}

// Create inserts a new order and its details
func (r *GormOrderRepository) Create(ctx context.Context, order *workshop.Order) error {
	model := models.OrderModelFromDomain(order)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return translateError(err, "create order", "order")
	}
	return nil
}

// SaveWithLock saves with optimistic locking (version check). Details are
// upserted with the order; they are never removed.
func (r *GormOrderRepository) SaveWithLock(ctx context.Context, order *workshop.Order) error {
	currentVersion := order.Version
	updatedAt := time.Now()

	result := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Where("id = ? AND version = ?", order.ID, currentVersion).
		Updates(map[string]interface{}{
			"mechanic_id":       order.MechanicID,
			"mileage":           order.Mileage,
			"fuel_level":        order.FuelLevel,
			"complaint":         order.Complaint,
			"status":            order.Status,
			"received_at":       order.ReceivedAt,
			"diagnosed_at":      order.DiagnosedAt,
			"repair_started_at": order.RepairStartedAt,
			"finished_at":       order.FinishedAt,
			"delivered_at":      order.DeliveredAt,
			"version":           currentVersion + 1,
			"updated_at":        updatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("update order: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return r.conflictOrMissing(ctx, order.ID)
	}

	if len(order.Details) > 0 {
		details := make([]models.OrderDetailModel, len(order.Details))
		for i := range order.Details {
			details[i].FromDomain(&order.Details[i])
		}
		if err := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"description", "category", "price", "customer_supplied",
					"status", "started_at", "completed_at", "updated_at",
				}),
			}).
			Create(&details).Error; err != nil {
			return fmt.Errorf("save order details: %w", err)
		}
	}

	order.Version = currentVersion + 1
	order.UpdatedAt = updatedAt
	return nil
}

func (r *GormOrderRepository) conflictOrMissing(ctx context.Context, id uuid.UUID) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.OrderModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("check order: %w", err)
	}
	if count == 0 {
		return shared.NewNotFoundError("order")
	}
	return shared.ErrConcurrencyConflict.WithDetail("entity", "order")
}

// NextFolio reserves the next visual folio for the given year.
// Format: OS-YYYY-NNNNNN (e.g., OS-2024-000042)
func (r *GormOrderRepository) NextFolio(ctx context.Context, year int) (string, error) {
	var next int
	err := r.db.WithContext(ctx).Raw(
		`INSERT INTO folio_sequences (year, last_value) VALUES (?, 1)
		 ON CONFLICT (year) DO UPDATE SET last_value = folio_sequences.last_value + 1
		 RETURNING last_value`, year).
		Scan(&next).Error
	if err != nil {
		return "", fmt.Errorf("reserve folio: %w", err)
	}
	return fmt.Sprintf("OS-%d-%06d", year, next), nil
}

// applyFilter applies filtering, ordering and pagination
func (r *GormOrderRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	return query.
		Order(orderSort.OrderBy(filter.OrderBy, filter.OrderDir)).
		Offset(filter.Offset()).
		Limit(filter.Limit())
}

// applyFilterWithoutPagination applies only the WHERE conditions
func (r *GormOrderRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToUpper(search) + "%"
		query = query.Where(
			"UPPER(orders.folio) LIKE ? OR orders.vehicle_id IN (?)",
			pattern,
			r.db.Model(&models.VehicleModel{}).Select("id").Where("plate LIKE ?", pattern),
		)
	}
	if status, ok := filter.Filters["status"]; ok && status != "" {
		query = query.Where("orders.status = ?", status)
	}
	if mechanicID, ok := filter.Filters["mechanic_id"]; ok && mechanicID != nil {
		query = query.Where("orders.mechanic_id = ?", mechanicID)
	}
	if customerID, ok := filter.Filters["customer_id"]; ok && customerID != nil {
		query = query.Where("orders.customer_id = ?", customerID)
	}
	return query
}

// Ensure GormOrderRepository implements workshop.OrderRepository
var _ workshop.OrderRepository = (*GormOrderRepository)(nil)
