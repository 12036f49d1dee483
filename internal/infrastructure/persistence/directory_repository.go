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

// GormVehicleDirectory implements workshop.VehicleDirectory over the
// customers and vehicles tables
type GormVehicleDirectory struct {
	db *gorm.DB
}

// NewGormVehicleDirectory creates a new GormVehicleDirectory
func NewGormVehicleDirectory(db *gorm.DB) *GormVehicleDirectory {
	return &GormVehicleDirectory{db: db}
}

// FindByPlate finds a vehicle by its normalized plate
func (d *GormVehicleDirectory) FindByPlate(ctx context.Context, plate string) (*workshop.VehicleRecord, error) {
	return d.findOne(ctx, "plate = ?", plate)
}

// FindVehicle finds a vehicle by ID
func (d *GormVehicleDirectory) FindVehicle(ctx context.Context, vehicleID uuid.UUID) (*workshop.VehicleRecord, error) {
	return d.findOne(ctx, "vehicles.id = ?", vehicleID)
}

func (d *GormVehicleDirectory) findOne(ctx context.Context, query string, args ...interface{}) (*workshop.VehicleRecord, error) {
	var model models.VehicleModel
	if err := d.db.WithContext(ctx).
		Preload("Customer").
		Where(query, args...).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("vehicle")
		}
		return nil, fmt.Errorf("find vehicle: %w", err)
	}
	return model.ToDomain(), nil
}

// GormCatalogGateway implements workshop.CatalogGateway over catalog_services
type GormCatalogGateway struct {
	db *gorm.DB
}

// NewGormCatalogGateway creates a new GormCatalogGateway
func NewGormCatalogGateway(db *gorm.DB) *GormCatalogGateway {
	return &GormCatalogGateway{db: db}
}

// ListServices lists active services, favorites first
func (g *GormCatalogGateway) ListServices(ctx context.Context) ([]workshop.CatalogService, error) {
	var rows []models.CatalogServiceModel
	if err := g.db.WithContext(ctx).
		Where("active = ?", true).
		Order("is_favorite DESC, system_name ASC, name ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list catalog services: %w", err)
	}
	services := make([]workshop.CatalogService, len(rows))
	for i := range rows {
		services[i] = rows[i].ToDomain()
	}
	return services, nil
}

// FindService finds an active service by ID
func (g *GormCatalogGateway) FindService(ctx context.Context, id uuid.UUID) (*workshop.CatalogService, error) {
	var model models.CatalogServiceModel
	if err := g.db.WithContext(ctx).
		Where("id = ? AND active = ?", id, true).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("catalog service")
		}
		return nil, fmt.Errorf("find catalog service: %w", err)
	}
	service := model.ToDomain()
	return &service, nil
}

var (
	_ workshop.VehicleDirectory = (*GormVehicleDirectory)(nil)
	_ workshop.CatalogGateway   = (*GormCatalogGateway)(nil)
)
