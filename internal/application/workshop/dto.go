package workshop

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/workshop/backend/internal/domain/workshop"
)

// ==================== Order DTOs ====================

// CreateOrderRequest opens a new service order
type CreateOrderRequest struct {
	CustomerID uuid.UUID  `json:"customer_id" binding:"required"`
	VehicleID  uuid.UUID  `json:"vehicle_id" binding:"required"`
	MechanicID *uuid.UUID `json:"mechanic_id"`
	Mileage    int        `json:"mileage" binding:"min=0"`
	FuelLevel  int        `json:"fuel_level" binding:"min=0,max=100"`
	Complaint  string     `json:"complaint" binding:"max=2000"`
}

// TransitionOrderRequest moves an order to another stage
type TransitionOrderRequest struct {
	Status string `json:"status" binding:"required"`
}

// AssignMechanicRequest sets or clears the responsible mechanic
type AssignMechanicRequest struct {
	MechanicID *uuid.UUID `json:"mechanic_id"`
}

// AddOrderDetailRequest adds a work line
type AddOrderDetailRequest struct {
	Description        string           `json:"description" binding:"required,max=500"`
	Category           string           `json:"category" binding:"omitempty,oneof=service part"`
	IsCustomerSupplied bool             `json:"is_customer_supplied"`
	CatalogServiceID   *uuid.UUID       `json:"catalog_service_id"`
	Price              *decimal.Decimal `json:"price"`
}

// SetDetailPriceRequest quotes a work line
type SetDetailPriceRequest struct {
	Price decimal.Decimal `json:"price"`
}

// TransitionDetailRequest moves a work line along its graph
type TransitionDetailRequest struct {
	Status string `json:"status" binding:"required"`
}

// RecordDiagnosisRequest adds catalog services and an optional note in one step
type RecordDiagnosisRequest struct {
	CatalogServiceIDs []uuid.UUID `json:"catalog_service_ids"`
	Note              string      `json:"note" binding:"max=500"`
}

// OrderListFilter is the Kanban board query
type OrderListFilter struct {
	Status     string     `form:"status"`
	MechanicID *uuid.UUID `form:"mechanic_id"`
	CustomerID *uuid.UUID `form:"customer_id"`
	Search     string     `form:"search"`
	Page       int        `form:"page"`
	PageSize   int        `form:"page_size"`
	OrderBy    string     `form:"order_by"`
	OrderDir   string     `form:"order_dir"`
}

// OrderDetailResponse is the API view of a work line
type OrderDetailResponse struct {
	ID                 uuid.UUID        `json:"id"`
	OrderID            uuid.UUID        `json:"order_id"`
	Description        string           `json:"description"`
	Category           string           `json:"category"`
	Price              *decimal.Decimal `json:"price"`
	IsCustomerSupplied bool             `json:"is_customer_supplied"`
	CatalogServiceID   *uuid.UUID       `json:"catalog_service_id,omitempty"`
	Status             string           `json:"status"`
	StartedAt          *time.Time       `json:"started_at,omitempty"`
	CompletedAt        *time.Time       `json:"completed_at,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// OrderResponse is the API view of an order
type OrderResponse struct {
	ID              uuid.UUID             `json:"id"`
	Folio           string                `json:"folio"`
	CustomerID      uuid.UUID             `json:"customer_id"`
	VehicleID       uuid.UUID             `json:"vehicle_id"`
	MechanicID      *uuid.UUID            `json:"mechanic_id"`
	Mileage         int                   `json:"mileage"`
	FuelLevel       int                   `json:"fuel_level"`
	Complaint       string                `json:"complaint,omitempty"`
	Status          string                `json:"status"`
	BillableTotal   decimal.Decimal       `json:"billable_total"`
	Details         []OrderDetailResponse `json:"details"`
	ReceivedAt      *time.Time            `json:"received_at,omitempty"`
	DiagnosedAt     *time.Time            `json:"diagnosed_at,omitempty"`
	RepairStartedAt *time.Time            `json:"repair_started_at,omitempty"`
	FinishedAt      *time.Time            `json:"finished_at,omitempty"`
	DeliveredAt     *time.Time            `json:"delivered_at,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
	Version         int                   `json:"version"`
}

// OrderListItemResponse is a Kanban card
type OrderListItemResponse struct {
	ID            uuid.UUID       `json:"id"`
	Folio         string          `json:"folio"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	VehicleID     uuid.UUID       `json:"vehicle_id"`
	MechanicID    *uuid.UUID      `json:"mechanic_id"`
	Status        string          `json:"status"`
	DetailCount   int             `json:"detail_count"`
	PendingCount  int             `json:"pending_count"`
	BillableTotal decimal.Decimal `json:"billable_total"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ToOrderDetailResponse converts a domain detail to its response
func ToOrderDetailResponse(d *workshop.OrderDetail) OrderDetailResponse {
	return OrderDetailResponse{
		ID:                 d.ID,
		OrderID:            d.OrderID,
		Description:        d.Description,
		Category:           string(d.Category),
		Price:              d.Price,
		IsCustomerSupplied: d.CustomerSupplied,
		CatalogServiceID:   d.CatalogServiceID,
		Status:             string(d.Status),
		StartedAt:          d.StartedAt,
		CompletedAt:        d.CompletedAt,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}

// ToOrderResponse converts a domain order to its response
func ToOrderResponse(o *workshop.Order) OrderResponse {
	details := make([]OrderDetailResponse, len(o.Details))
	for i := range o.Details {
		details[i] = ToOrderDetailResponse(&o.Details[i])
	}
	return OrderResponse{
		ID:              o.ID,
		Folio:           o.Folio,
		CustomerID:      o.CustomerID,
		VehicleID:       o.VehicleID,
		MechanicID:      o.MechanicID,
		Mileage:         o.Mileage,
		FuelLevel:       o.FuelLevel,
		Complaint:       o.Complaint,
		Status:          string(o.Status),
		BillableTotal:   o.BillableTotal(),
		Details:         details,
		ReceivedAt:      o.ReceivedAt,
		DiagnosedAt:     o.DiagnosedAt,
		RepairStartedAt: o.RepairStartedAt,
		FinishedAt:      o.FinishedAt,
		DeliveredAt:     o.DeliveredAt,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		Version:         o.Version,
	}
}

// ToOrderListItemResponses converts orders to Kanban cards
func ToOrderListItemResponses(orders []workshop.Order) []OrderListItemResponse {
	items := make([]OrderListItemResponse, len(orders))
	for i := range orders {
		o := &orders[i]
		items[i] = OrderListItemResponse{
			ID:            o.ID,
			Folio:         o.Folio,
			CustomerID:    o.CustomerID,
			VehicleID:     o.VehicleID,
			MechanicID:    o.MechanicID,
			Status:        string(o.Status),
			DetailCount:   len(o.Details),
			PendingCount:  len(o.PendingBillableDetails()),
			BillableTotal: o.BillableTotal(),
			CreatedAt:     o.CreatedAt,
			UpdatedAt:     o.UpdatedAt,
		}
	}
	return items
}

// ==================== Inspection DTOs ====================

// RecordInspectionRequest stores the intake checklist
type RecordInspectionRequest struct {
	Checklist         workshop.Checklist `json:"checklist"`
	SignatureAccepted bool               `json:"signature_accepted"`
}

// InspectionResponse is the API view of an inspection
type InspectionResponse struct {
	ID                uuid.UUID          `json:"id"`
	OrderID           uuid.UUID          `json:"order_id"`
	Checklist         workshop.Checklist `json:"checklist"`
	SignatureAccepted bool               `json:"signature_accepted"`
	UnknownItems      int                `json:"unknown_items"`
	RecordedBy        uuid.UUID          `json:"recorded_by"`
	CreatedAt         time.Time          `json:"created_at"`
}

// ToInspectionResponse converts a domain inspection to its response
func ToInspectionResponse(i *workshop.Inspection) InspectionResponse {
	return InspectionResponse{
		ID:                i.ID,
		OrderID:           i.OrderID,
		Checklist:         i.Checklist,
		SignatureAccepted: i.SignatureAccepted,
		UnknownItems:      i.Checklist.UnknownItems(),
		RecordedBy:        i.RecordedBy,
		CreatedAt:         i.CreatedAt,
	}
}
