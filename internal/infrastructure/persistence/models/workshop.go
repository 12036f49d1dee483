package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/workshop/backend/internal/domain/workshop"
)

// OrderModel is the persistence model for the Order aggregate
type OrderModel struct {
	AggregateModel
	Folio           string               `gorm:"type:varchar(20);not null;uniqueIndex"`
	CustomerID      uuid.UUID            `gorm:"type:uuid;not null;index"`
	VehicleID       uuid.UUID            `gorm:"type:uuid;not null;index"`
	MechanicID      *uuid.UUID           `gorm:"type:uuid;index"`
	Mileage         int                  `gorm:"not null;default:0"`
	FuelLevel       int                  `gorm:"not null;default:0"`
	Complaint       string               `gorm:"type:text"`
	Status          workshop.OrderStatus `gorm:"type:varchar(20);not null;index"`
	ReceivedAt      *time.Time
	DiagnosedAt     *time.Time
	RepairStartedAt *time.Time
	FinishedAt      *time.Time
	DeliveredAt     *time.Time
	Details         []OrderDetailModel `gorm:"foreignKey:OrderID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order
func (m *OrderModel) ToDomain() *workshop.Order {
	details := make([]workshop.OrderDetail, len(m.Details))
	for i := range m.Details {
		details[i] = m.Details[i].ToDomain()
	}
	return &workshop.Order{
		BaseAggregateRoot: m.Root(),
		Folio:             m.Folio,
		CustomerID:        m.CustomerID,
		VehicleID:         m.VehicleID,
		MechanicID:        m.MechanicID,
		Mileage:           m.Mileage,
		FuelLevel:         m.FuelLevel,
		Complaint:         m.Complaint,
		Status:            m.Status,
		Details:           details,
		ReceivedAt:        m.ReceivedAt,
		DiagnosedAt:       m.DiagnosedAt,
		RepairStartedAt:   m.RepairStartedAt,
		FinishedAt:        m.FinishedAt,
		DeliveredAt:       m.DeliveredAt,
	}
}

// FromDomain populates the persistence model from a domain Order
func (m *OrderModel) FromDomain(o *workshop.Order) {
	m.SetRoot(o.BaseAggregateRoot)
	m.Folio = o.Folio
	m.CustomerID = o.CustomerID
	m.VehicleID = o.VehicleID
	m.MechanicID = o.MechanicID
	m.Mileage = o.Mileage
	m.FuelLevel = o.FuelLevel
	m.Complaint = o.Complaint
	m.Status = o.Status
	m.ReceivedAt = o.ReceivedAt
	m.DiagnosedAt = o.DiagnosedAt
	m.RepairStartedAt = o.RepairStartedAt
	m.FinishedAt = o.FinishedAt
	m.DeliveredAt = o.DeliveredAt
	m.Details = make([]OrderDetailModel, len(o.Details))
	for i := range o.Details {
		m.Details[i].FromDomain(&o.Details[i])
	}
}

// OrderModelFromDomain creates a new persistence model from a domain Order
func OrderModelFromDomain(o *workshop.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// OrderDetailModel is the persistence model for an order line
type OrderDetailModel struct {
	ID               uuid.UUID             `gorm:"type:uuid;primary_key"`
	OrderID          uuid.UUID             `gorm:"type:uuid;not null;index"`
	Description      string                `gorm:"type:varchar(500);not null"`
	Category         workshop.Category     `gorm:"type:varchar(20);not null;default:'service'"`
	Price            *decimal.Decimal      `gorm:"type:decimal(12,2)"`
	CustomerSupplied bool                  `gorm:"not null;default:false"`
	CatalogServiceID *uuid.UUID            `gorm:"type:uuid"`
	Status           workshop.DetailStatus `gorm:"type:varchar(20);not null"`
	StartedAt        *time.Time
	CompletedAt      *time.Time
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderDetailModel) TableName() string {
	return "order_details"
}

// ToDomain converts the persistence model to a domain OrderDetail
func (m *OrderDetailModel) ToDomain() workshop.OrderDetail {
	return workshop.OrderDetail{
		ID:               m.ID,
		OrderID:          m.OrderID,
		Description:      m.Description,
		Category:         m.Category,
		Price:            m.Price,
		CustomerSupplied: m.CustomerSupplied,
		CatalogServiceID: m.CatalogServiceID,
		Status:           m.Status,
		StartedAt:        m.StartedAt,
		CompletedAt:      m.CompletedAt,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain OrderDetail
func (m *OrderDetailModel) FromDomain(d *workshop.OrderDetail) {
	m.ID = d.ID
	m.OrderID = d.OrderID
	m.Description = d.Description
	m.Category = d.Category
	m.Price = d.Price
	m.CustomerSupplied = d.CustomerSupplied
	m.CatalogServiceID = d.CatalogServiceID
	m.Status = d.Status
	m.StartedAt = d.StartedAt
	m.CompletedAt = d.CompletedAt
	m.CreatedAt = d.CreatedAt
	m.UpdatedAt = d.UpdatedAt
}

// InspectionModel is the persistence model for an intake inspection.
// The full checklist is kept as JSON; the gauges and signer are columns.
type InspectionModel struct {
	BaseModel
	OrderID           uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex"`
	Mileage           int                `gorm:"not null;default:0"`
	FuelLevel         int                `gorm:"not null;default:0"`
	ResponsibleName   string             `gorm:"type:varchar(200);not null"`
	SignatureAccepted bool               `gorm:"not null;default:false"`
	Checklist         workshop.Checklist `gorm:"type:jsonb;serializer:json;not null"`
	RecordedBy        uuid.UUID          `gorm:"type:uuid;not null"`
}

// TableName returns the table name for GORM
func (InspectionModel) TableName() string {
	return "inspections"
}

// ToDomain converts the persistence model to a domain Inspection
func (m *InspectionModel) ToDomain() *workshop.Inspection {
	return &workshop.Inspection{
		BaseEntity:        m.Entity(),
		OrderID:           m.OrderID,
		Checklist:         m.Checklist,
		SignatureAccepted: m.SignatureAccepted,
		RecordedBy:        m.RecordedBy,
	}
}

// FromDomain populates the persistence model from a domain Inspection
func (m *InspectionModel) FromDomain(i *workshop.Inspection) {
	m.SetEntity(i.BaseEntity)
	m.OrderID = i.OrderID
	m.Mileage = i.Checklist.Mileage
	m.FuelLevel = i.Checklist.FuelLevel
	m.ResponsibleName = i.Checklist.ResponsibleName
	m.SignatureAccepted = i.SignatureAccepted
	m.Checklist = i.Checklist
	m.RecordedBy = i.RecordedBy
}

// InspectionModelFromDomain creates a new persistence model from a domain Inspection
func InspectionModelFromDomain(i *workshop.Inspection) *InspectionModel {
	m := &InspectionModel{}
	m.FromDomain(i)
	return m
}

// FolioSequenceModel holds the last folio number issued per year
type FolioSequenceModel struct {
	Year      int `gorm:"primaryKey;autoIncrement:false"`
	LastValue int `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (FolioSequenceModel) TableName() string {
	return "folio_sequences"
}
