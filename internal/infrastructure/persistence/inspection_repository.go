package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/workshop/backend/internal/domain/shared"
	"github.com/workshop/backend/internal/domain/workshop"
	"github.com/workshop/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormInspectionRepository implements workshop.InspectionRepository using GORM
type GormInspectionRepository struct {
	db *gorm.DB
}

// NewGormInspectionRepository creates a new GormInspectionRepository
func NewGormInspectionRepository(db *gorm.DB) *GormInspectionRepository {
	return &GormInspectionRepository{db: db}
}

// FindByOrderID returns the inspection of an order
func (r *GormInspectionRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*workshop.Inspection, error) {
	var model models.InspectionModel
	if err := r.db.WithContext(ctx).First(&model, "order_id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("inspection")
		}
		return nil, fmt.Errorf("find inspection: %w", err)
	}
	return model.ToDomain(), nil
}

// Create inserts the inspection. The unique order_id turns a second
// inspection into a DuplicateError.
func (r *GormInspectionRepository) Create(ctx context.Context, inspection *workshop.Inspection) error {
	if err := r.db.WithContext(ctx).Create(models.InspectionModelFromDomain(inspection)).Error; err != nil {
		return translateError(err, "create inspection", "inspection")
	}
	return nil
}

// Ensure GormInspectionRepository implements workshop.InspectionRepository
var _ workshop.InspectionRepository = (*GormInspectionRepository)(nil)
