package workshop

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/workshop/backend/internal/domain/shared"
)

// Order is the aggregate root for one vehicle's service record,
// from intake to delivery. OrderDetails live inside it so that a line
// update and the order transition it triggers commit under one version.
type Order struct {
	shared.BaseAggregateRoot
	Folio           string
	CustomerID      uuid.UUID
	VehicleID       uuid.UUID
	MechanicID      *uuid.UUID
	Mileage         int
	FuelLevel       int
	Complaint       string
	Status          OrderStatus
	Details         []OrderDetail
	ReceivedAt      *time.Time
	DiagnosedAt     *time.Time
	RepairStartedAt *time.Time
	FinishedAt      *time.Time
	DeliveredAt     *time.Time
}

// NewOrderInput carries the data needed to open an order
type NewOrderInput struct {
	Folio      string
	CustomerID uuid.UUID
	VehicleID  uuid.UUID
	MechanicID *uuid.UUID
	Mileage    int
	FuelLevel  int
	Complaint  string
}

// NewOrder opens an order in intake
func NewOrder(in NewOrderInput, createdBy uuid.UUID) (*Order, error) {
	if in.Folio == "" {
		return nil, shared.NewFieldValidationError("folio", "cannot be empty")
	}
	if in.CustomerID == uuid.Nil {
		return nil, shared.NewFieldValidationError("customer_id", "cannot be empty")
	}
	if in.VehicleID == uuid.Nil {
		return nil, shared.NewFieldValidationError("vehicle_id", "cannot be empty")
	}
	if in.MechanicID != nil && *in.MechanicID == uuid.Nil {
		in.MechanicID = nil
	}
	if err := validateGauges(in.Mileage, in.FuelLevel); err != nil {
		return nil, err
	}

	order := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Folio:             in.Folio,
		CustomerID:        in.CustomerID,
		VehicleID:         in.VehicleID,
		MechanicID:        in.MechanicID,
		Mileage:           in.Mileage,
		FuelLevel:         in.FuelLevel,
		Complaint:         in.Complaint,
		Status:            OrderStatusIntake,
		Details:           make([]OrderDetail, 0),
	}

	order.RecordEvent(NewOrderCreatedEvent(order, createdBy))
	return order, nil
}

func validateGauges(mileage, fuelLevel int) error {
	if mileage < 0 {
		return shared.NewFieldValidationError("mileage", "cannot be negative")
	}
	if fuelLevel < 0 || fuelLevel > 100 {
		return shared.NewFieldValidationError("fuel_level", "must be between 0 and 100")
	}
	return nil
}

// TransitionGate carries facts held outside the aggregate that gate transitions
type TransitionGate struct {
	// Inspection recorded for the order, if any
	Inspection *Inspection
	// PaymentID is set once a payment exists for the order
	PaymentID *uuid.UUID
	// PaidExpectedTotal is the billable total the payment was computed against
	PaidExpectedTotal decimal.Decimal
}

// TransitionTo moves the order to target.
// Re-entering the current status is a no-op and reports false.
func (o *Order) TransitionTo(target OrderStatus, gate TransitionGate, by uuid.UUID) (bool, error) {
	if !target.IsValid() {
		return false, shared.NewFieldValidationError("status", "unknown order status "+string(target))
	}
	if o.Status == target {
		return false, nil
	}
	if !o.Status.CanTransitionTo(target) {
		return false, shared.NewInvalidTransitionError("order", string(o.Status), string(target))
	}
	if err := o.checkGate(target, gate); err != nil {
		return false, err
	}

	o.moveTo(target, by)
	return true, nil
}

func (o *Order) checkGate(target OrderStatus, gate TransitionGate) error {
	switch target {
	case OrderStatusReceived:
		if o.Status != OrderStatusIntake {
			return nil
		}
		if gate.Inspection == nil || gate.Inspection.OrderID != o.ID {
			return shared.NewPreconditionError("an intake inspection is required before the order is received").
				WithDetail("order_id", o.ID.String())
		}
		if !gate.Inspection.SignatureAccepted {
			return shared.NewPreconditionError("the intake inspection has not been signed by the customer").
				WithDetail("order_id", o.ID.String())
		}
	case OrderStatusRepair:
		if len(o.Details) == 0 {
			return shared.NewPreconditionError("repair cannot start without at least one order detail").
				WithDetail("order_id", o.ID.String())
		}
	case OrderStatusFinished:
		if pending := o.PendingBillableDetails(); len(pending) > 0 {
			ids := make([]string, len(pending))
			for i, d := range pending {
				ids[i] = d.ID.String()
			}
			return shared.NewPreconditionError(
				fmt.Sprintf("%d order detail(s) are not done", len(pending))).
				WithDetail("pending_detail_ids", ids)
		}
	case OrderStatusDelivered:
		if gate.PaymentID == nil {
			return shared.NewPreconditionError("a payment is required before the order is delivered").
				WithDetail("order_id", o.ID.String())
		}
		if total := o.BillableTotal(); !gate.PaidExpectedTotal.Equal(total) {
			return shared.NewPreconditionError("the payment was computed against a different total").
				WithDetail("expected_total", total.StringFixed(2)).
				WithDetail("paid_expected_total", gate.PaidExpectedTotal.StringFixed(2))
		}
	}
	return nil
}

func (o *Order) moveTo(target OrderStatus, by uuid.UUID) {
	from := o.Status
	now := time.Now()
	switch target {
	case OrderStatusReceived:
		o.ReceivedAt = stampOnce(o.ReceivedAt, now)
	case OrderStatusDiagnosis:
		o.DiagnosedAt = stampOnce(o.DiagnosedAt, now)
	case OrderStatusRepair:
		o.RepairStartedAt = stampOnce(o.RepairStartedAt, now)
	case OrderStatusFinished:
		o.FinishedAt = &now
	case OrderStatusDelivered:
		o.DeliveredAt = &now
	}
	o.Status = target
	o.UpdatedAt = now

	o.RecordEvent(NewOrderStatusChangedEvent(o, from, by))
}

func stampOnce(current *time.Time, now time.Time) *time.Time {
	if current != nil {
		return current
	}
	return &now
}

// Deliver closes the order against a recorded payment
func (o *Order) Deliver(paymentID uuid.UUID, expectedTotal decimal.Decimal, by uuid.UUID) error {
	_, err := o.TransitionTo(OrderStatusDelivered, TransitionGate{
		PaymentID:         &paymentID,
		PaidExpectedTotal: expectedTotal,
	}, by)
	return err
}

// AddDetail appends a work line. Adding to a received order starts its diagnosis.
func (o *Order) AddDetail(in NewDetailInput, by uuid.UUID) (*OrderDetail, error) {
	if !o.Status.AcceptsDetails() {
		return nil, shared.NewPreconditionError(
			fmt.Sprintf("details cannot be added to an order in %s", o.Status))
	}

	detail, err := NewOrderDetail(o.ID, in)
	if err != nil {
		return nil, err
	}

	if o.Status == OrderStatusReceived {
		o.moveTo(OrderStatusDiagnosis, by)
	}

	o.Details = append(o.Details, *detail)
	o.UpdatedAt = time.Now()
	o.RecordEvent(NewOrderDetailAddedEvent(o, detail, by))

	return &o.Details[len(o.Details)-1], nil
}

// SetDetailPrice quotes one line. Prices stay editable until delivery.
func (o *Order) SetDetailPrice(detailID uuid.UUID, price decimal.Decimal, by uuid.UUID) (*OrderDetail, error) {
	detail := o.FindDetail(detailID)
	if detail == nil {
		return nil, shared.NewNotFoundError("order detail")
	}
	if o.Status == OrderStatusDelivered {
		return nil, shared.NewPreconditionError("prices of a delivered order cannot change")
	}
	if err := detail.SetPrice(price); err != nil {
		return nil, err
	}

	o.UpdatedAt = time.Now()
	o.RecordEvent(NewOrderDetailPricedEvent(o, detail, by))
	return detail, nil
}

// TransitionDetail moves one line along its work graph. The first line
// taken in progress while the order is in diagnosis starts the repair.
func (o *Order) TransitionDetail(detailID uuid.UUID, target DetailStatus, by uuid.UUID) (*OrderDetail, bool, error) {
	detail := o.FindDetail(detailID)
	if detail == nil {
		return nil, false, shared.NewNotFoundError("order detail")
	}
	if o.Status != OrderStatusDiagnosis && o.Status != OrderStatusRepair {
		return nil, false, shared.NewPreconditionError(
			fmt.Sprintf("order details cannot change while the order is %s", o.Status))
	}

	from := detail.Status
	changed, err := detail.TransitionTo(target)
	if err != nil || !changed {
		return detail, false, err
	}

	if target == DetailStatusInProgress && o.Status == OrderStatusDiagnosis {
		o.moveTo(OrderStatusRepair, by)
	}

	o.UpdatedAt = time.Now()
	o.RecordEvent(NewOrderDetailStatusChangedEvent(o, detail, from, by))
	return detail, true, nil
}

// AssignMechanic sets or clears the responsible mechanic
func (o *Order) AssignMechanic(mechanicID *uuid.UUID, by uuid.UUID) error {
	if o.Status.IsClosedForWork() {
		return shared.NewPreconditionError(
			fmt.Sprintf("the mechanic of an order in %s cannot change", o.Status))
	}
	if mechanicID != nil && *mechanicID == uuid.Nil {
		mechanicID = nil
	}
	o.MechanicID = mechanicID
	o.UpdatedAt = time.Now()
	o.RecordEvent(NewOrderMechanicAssignedEvent(o, by))
	return nil
}

// ApplyInspection copies gauge readings from the intake inspection
func (o *Order) ApplyInspection(inspection *Inspection) error {
	if o.Status != OrderStatusIntake {
		return shared.NewPreconditionError("inspections are only recorded during intake")
	}
	if inspection.OrderID != o.ID {
		return shared.NewValidationError("inspection belongs to a different order")
	}
	o.Mileage = inspection.Checklist.Mileage
	o.FuelLevel = inspection.Checklist.FuelLevel
	o.UpdatedAt = time.Now()
	return nil
}

// FindDetail returns the line with the given ID, or nil
func (o *Order) FindDetail(detailID uuid.UUID) *OrderDetail {
	for i := range o.Details {
		if o.Details[i].ID == detailID {
			return &o.Details[i]
		}
	}
	return nil
}

// BillableTotal sums the prices of lines not supplied by the customer
func (o *Order) BillableTotal() decimal.Decimal {
	total := decimal.Zero
	for i := range o.Details {
		total = total.Add(o.Details[i].BillableAmount())
	}
	return total
}

// PendingBillableDetails returns billable lines that are not done
func (o *Order) PendingBillableDetails() []OrderDetail {
	pending := make([]OrderDetail, 0)
	for _, d := range o.Details {
		if d.IsBillable() && !d.IsDone() {
			pending = append(pending, d)
		}
	}
	return pending
}

// UnquotedDetails returns billable lines that still lack a price
func (o *Order) UnquotedDetails() []OrderDetail {
	unquoted := make([]OrderDetail, 0)
	for _, d := range o.Details {
		if d.IsBillable() && d.Price == nil {
			unquoted = append(unquoted, d)
		}
	}
	return unquoted
}

// FormatFolio renders the visual folio, e.g. OS-2024-000042
func FormatFolio(year int, seq int64) string {
	return fmt.Sprintf("OS-%d-%06d", year, seq)
}
