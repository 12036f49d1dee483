package workshop

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/workshop/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeOrder = "Order"

// EventFamily groups every event raised by an order, inspections included
const EventFamily = "order"

// Event type constants
const (
	EventTypeOrderCreated             = "OrderCreated"
	EventTypeOrderStatusChanged       = "OrderStatusChanged"
	EventTypeOrderMechanicAssigned    = "OrderMechanicAssigned"
	EventTypeOrderDetailAdded         = "OrderDetailAdded"
	EventTypeOrderDetailPriced        = "OrderDetailPriced"
	EventTypeOrderDetailStatusChanged = "OrderDetailStatusChanged"
	EventTypeInspectionRecorded       = "InspectionRecorded"
)

// OrderCreatedEvent is raised when an order is opened at intake
type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderID    uuid.UUID  `json:"order_id"`
	Folio      string     `json:"folio"`
	CustomerID uuid.UUID  `json:"customer_id"`
	VehicleID  uuid.UUID  `json:"vehicle_id"`
	MechanicID *uuid.UUID `json:"mechanic_id,omitempty"`
}

// NewOrderCreatedEvent creates a new OrderCreatedEvent
func NewOrderCreatedEvent(order *Order, by uuid.UUID) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCreated, AggregateTypeOrder, order.ID, by),
		OrderID:         order.ID,
		Folio:           order.Folio,
		CustomerID:      order.CustomerID,
		VehicleID:       order.VehicleID,
		MechanicID:      order.MechanicID,
	}
}

// EventType returns the event type name
func (e *OrderCreatedEvent) EventType() string {
	return EventTypeOrderCreated
}

// OrderStatusChangedEvent is raised on every order transition, implicit ones included
type OrderStatusChangedEvent struct {
	shared.BaseDomainEvent
	OrderID    uuid.UUID   `json:"order_id"`
	Folio      string      `json:"folio"`
	FromStatus OrderStatus `json:"from_status"`
	ToStatus   OrderStatus `json:"to_status"`
}

// NewOrderStatusChangedEvent creates a new OrderStatusChangedEvent
func NewOrderStatusChangedEvent(order *Order, from OrderStatus, by uuid.UUID) *OrderStatusChangedEvent {
	return &OrderStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderStatusChanged, AggregateTypeOrder, order.ID, by),
		OrderID:         order.ID,
		Folio:           order.Folio,
		FromStatus:      from,
		ToStatus:        order.Status,
	}
}

// EventType returns the event type name
func (e *OrderStatusChangedEvent) EventType() string {
	return EventTypeOrderStatusChanged
}

// OrderMechanicAssignedEvent is raised when the responsible mechanic changes
type OrderMechanicAssignedEvent struct {
	shared.BaseDomainEvent
	OrderID    uuid.UUID  `json:"order_id"`
	MechanicID *uuid.UUID `json:"mechanic_id,omitempty"`
}

// NewOrderMechanicAssignedEvent creates a new OrderMechanicAssignedEvent
func NewOrderMechanicAssignedEvent(order *Order, by uuid.UUID) *OrderMechanicAssignedEvent {
	return &OrderMechanicAssignedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderMechanicAssigned, AggregateTypeOrder, order.ID, by),
		OrderID:         order.ID,
		MechanicID:      order.MechanicID,
	}
}

// EventType returns the event type name
func (e *OrderMechanicAssignedEvent) EventType() string {
	return EventTypeOrderMechanicAssigned
}

// OrderDetailAddedEvent is raised when a work line is added
type OrderDetailAddedEvent struct {
	shared.BaseDomainEvent
	OrderID          uuid.UUID        `json:"order_id"`
	DetailID         uuid.UUID        `json:"detail_id"`
	Description      string           `json:"description"`
	Category         Category         `json:"category"`
	CustomerSupplied bool             `json:"customer_supplied"`
	Price            *decimal.Decimal `json:"price,omitempty"`
}

// NewOrderDetailAddedEvent creates a new OrderDetailAddedEvent
func NewOrderDetailAddedEvent(order *Order, detail *OrderDetail, by uuid.UUID) *OrderDetailAddedEvent {
	return &OrderDetailAddedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeOrderDetailAdded, AggregateTypeOrder, order.ID, by),
		OrderID:          order.ID,
		DetailID:         detail.ID,
		Description:      detail.Description,
		Category:         detail.Category,
		CustomerSupplied: detail.CustomerSupplied,
		Price:            detail.Price,
	}
}

// EventType returns the event type name
func (e *OrderDetailAddedEvent) EventType() string {
	return EventTypeOrderDetailAdded
}

// OrderDetailPricedEvent is raised when billing quotes a line
type OrderDetailPricedEvent struct {
	shared.BaseDomainEvent
	OrderID       uuid.UUID       `json:"order_id"`
	DetailID      uuid.UUID       `json:"detail_id"`
	Price         decimal.Decimal `json:"price"`
	BillableTotal decimal.Decimal `json:"billable_total"`
}

// NewOrderDetailPricedEvent creates a new OrderDetailPricedEvent
func NewOrderDetailPricedEvent(order *Order, detail *OrderDetail, by uuid.UUID) *OrderDetailPricedEvent {
	return &OrderDetailPricedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderDetailPriced, AggregateTypeOrder, order.ID, by),
		OrderID:         order.ID,
		DetailID:        detail.ID,
		Price:           detail.BillableAmount(),
		BillableTotal:   order.BillableTotal(),
	}
}

// EventType returns the event type name
func (e *OrderDetailPricedEvent) EventType() string {
	return EventTypeOrderDetailPriced
}

// OrderDetailStatusChangedEvent is raised when a work line changes state
type OrderDetailStatusChangedEvent struct {
	shared.BaseDomainEvent
	OrderID    uuid.UUID    `json:"order_id"`
	DetailID   uuid.UUID    `json:"detail_id"`
	FromStatus DetailStatus `json:"from_status"`
	ToStatus   DetailStatus `json:"to_status"`
}

// NewOrderDetailStatusChangedEvent creates a new OrderDetailStatusChangedEvent
func NewOrderDetailStatusChangedEvent(order *Order, detail *OrderDetail, from DetailStatus, by uuid.UUID) *OrderDetailStatusChangedEvent {
	return &OrderDetailStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderDetailStatusChanged, AggregateTypeOrder, order.ID, by),
		OrderID:         order.ID,
		DetailID:        detail.ID,
		FromStatus:      from,
		ToStatus:        detail.Status,
	}
}

// EventType returns the event type name
func (e *OrderDetailStatusChangedEvent) EventType() string {
	return EventTypeOrderDetailStatusChanged
}

// InspectionRecordedEvent is raised when the intake checklist is stored
type InspectionRecordedEvent struct {
	shared.BaseDomainEvent
	OrderID           uuid.UUID `json:"order_id"`
	InspectionID      uuid.UUID `json:"inspection_id"`
	SignatureAccepted bool      `json:"signature_accepted"`
	UnknownItems      int       `json:"unknown_items"`
}

// NewInspectionRecordedEvent creates a new InspectionRecordedEvent
func NewInspectionRecordedEvent(inspection *Inspection) *InspectionRecordedEvent {
	return &InspectionRecordedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeInspectionRecorded, AggregateTypeOrder, inspection.OrderID, inspection.RecordedBy),
		OrderID:           inspection.OrderID,
		InspectionID:      inspection.ID,
		SignatureAccepted: inspection.SignatureAccepted,
		UnknownItems:      inspection.Checklist.UnknownItems(),
	}
}

// EventType returns the event type name
func (e *InspectionRecordedEvent) EventType() string {
	return EventTypeInspectionRecorded
}
