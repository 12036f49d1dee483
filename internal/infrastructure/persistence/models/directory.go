package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/workshop/backend/internal/domain/workshop"
)

// CustomerModel backs the vehicle directory
type CustomerModel struct {
	BaseModel
	Name  string `gorm:"type:varchar(200);not null"`
	Phone string `gorm:"type:varchar(50);index"`
	Email string `gorm:"type:varchar(200)"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customers"
}

// ToDomain converts the persistence model to a domain Customer
func (m *CustomerModel) ToDomain() workshop.Customer {
	return workshop.Customer{
		ID:    m.ID,
		Name:  m.Name,
		Phone: m.Phone,
		Email: m.Email,
	}
}

// VehicleModel is a registered vehicle. Plates are stored normalized.
type VehicleModel struct {
	BaseModel
	CustomerID uuid.UUID     `gorm:"type:uuid;not null;index"`
	Customer   CustomerModel `gorm:"foreignKey:CustomerID"`
	Plate      string        `gorm:"type:varchar(20);not null;uniqueIndex"`
	Make       string        `gorm:"type:varchar(100)"`
	Model      string        `gorm:"type:varchar(100)"`
	Year       int
	VIN        string `gorm:"column:vin;type:varchar(17)"`
}

// TableName returns the table name for GORM
func (VehicleModel) TableName() string {
	return "vehicles"
}

// ToDomain converts the persistence model to a domain VehicleRecord
func (m *VehicleModel) ToDomain() *workshop.VehicleRecord {
	return &workshop.VehicleRecord{
		Customer: m.Customer.ToDomain(),
		Vehicle: workshop.Vehicle{
			ID:         m.ID,
			CustomerID: m.CustomerID,
			Plate:      m.Plate,
			Make:       m.Make,
			Model:      m.Model,
			Year:       m.Year,
			VIN:        m.VIN,
		},
	}
}

// CatalogServiceModel is a priced service offered by the workshop
type CatalogServiceModel struct {
	BaseModel
	SystemName     string          `gorm:"type:varchar(100);not null;index"`
	Name           string          `gorm:"type:varchar(200);not null"`
	SuggestedPrice decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	IsFavorite     bool            `gorm:"not null;default:false"`
	Active         bool            `gorm:"not null;default:true;index"`
}

// TableName returns the table name for GORM
func (CatalogServiceModel) TableName() string {
	return "catalog_services"
}

// ToDomain converts the persistence model to a domain CatalogService
func (m *CatalogServiceModel) ToDomain() workshop.CatalogService {
	return workshop.CatalogService{
		ID:             m.ID,
		SystemName:     m.SystemName,
		Name:           m.Name,
		SuggestedPrice: m.SuggestedPrice,
		IsFavorite:     m.IsFavorite,
	}
}
