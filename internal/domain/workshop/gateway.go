package workshop

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CatalogService is a priced service suggestion from the catalog
type CatalogService struct {
	ID             uuid.UUID       `json:"id"`
	SystemName     string          `json:"system_name"`
	Name           string          `json:"name"`
	SuggestedPrice decimal.Decimal `json:"suggested_price"`
	IsFavorite     bool            `json:"is_favorite"`
}

// CatalogGateway gives read-only access to service price suggestions
type CatalogGateway interface {
	ListServices(ctx context.Context) ([]CatalogService, error)
	// FindService returns shared.ErrNotFound for unknown or inactive services
	FindService(ctx context.Context, id uuid.UUID) (*CatalogService, error)
}

// Customer is the owner of a vehicle
type Customer struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Phone string    `json:"phone,omitempty"`
	Email string    `json:"email,omitempty"`
}

// Vehicle is a registered vehicle
type Vehicle struct {
	ID         uuid.UUID `json:"id"`
	CustomerID uuid.UUID `json:"customer_id"`
	Plate      string    `json:"plate"`
	Make       string    `json:"make"`
	Model      string    `json:"model"`
	Year       int       `json:"year,omitempty"`
	VIN        string    `json:"vin,omitempty"`
}

// VehicleRecord pairs a vehicle with its owner
type VehicleRecord struct {
	Customer Customer `json:"customer"`
	Vehicle  Vehicle  `json:"vehicle"`
}

// VehicleDirectory resolves vehicles and their owners
type VehicleDirectory interface {
	// FindByPlate returns shared.ErrNotFound when no vehicle carries the plate
	FindByPlate(ctx context.Context, plate string) (*VehicleRecord, error)
	FindVehicle(ctx context.Context, vehicleID uuid.UUID) (*VehicleRecord, error)
}
