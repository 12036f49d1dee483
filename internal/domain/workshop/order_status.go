package workshop

import (
	"strings"

	"github.com/workshop/backend/internal/domain/shared"
)

// OrderStatus represents the stage of a repair order
type OrderStatus string

const (
	OrderStatusIntake    OrderStatus = "intake"
	OrderStatusReceived  OrderStatus = "received"
	OrderStatusDiagnosis OrderStatus = "diagnosis"
	OrderStatusRepair    OrderStatus = "repair"
	OrderStatusFinished  OrderStatus = "finished"
	OrderStatusDelivered OrderStatus = "delivered"
)

// AllOrderStatuses lists the stages in workflow order
var AllOrderStatuses = []OrderStatus{
	OrderStatusIntake,
	OrderStatusReceived,
	OrderStatusDiagnosis,
	OrderStatusRepair,
	OrderStatusFinished,
	OrderStatusDelivered,
}

// ParseOrderStatus parses a status name, rejecting unknown values
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", shared.NewFieldValidationError("status", "unknown order status "+s)
	}
	return status, nil
}

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusIntake, OrderStatusReceived, OrderStatusDiagnosis,
		OrderStatusRepair, OrderStatusFinished, OrderStatusDelivered:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsClosedForWork reports whether work items can no longer change state
func (s OrderStatus) IsClosedForWork() bool {
	return s == OrderStatusFinished || s == OrderStatusDelivered
}

// AcceptsDetails reports whether new work items may be added
func (s OrderStatus) AcceptsDetails() bool {
	switch s {
	case OrderStatusReceived, OrderStatusDiagnosis, OrderStatusRepair:
		return true
	}
	return false
}

// CanTransitionTo checks if the status can move to target.
// Forward moves advance one stage at a time. Stages between received and
// repair may be corrected backwards; intake is never re-entered and nothing
// moves back once finished.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusIntake:
		return target == OrderStatusReceived
	case OrderStatusReceived:
		return target == OrderStatusDiagnosis
	case OrderStatusDiagnosis:
		return target == OrderStatusRepair || target == OrderStatusReceived
	case OrderStatusRepair:
		return target == OrderStatusFinished || target == OrderStatusDiagnosis || target == OrderStatusReceived
	case OrderStatusFinished:
		return target == OrderStatusDelivered
	case OrderStatusDelivered:
		return false
	}
	return false
}
