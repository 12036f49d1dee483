package workshop

import (
	"context"

	"github.com/google/uuid"
	"github.com/workshop/backend/internal/domain/shared"
)

// OrderRepository defines persistence for the Order aggregate
type OrderRepository interface {
	// FindByID loads an order with its details
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByDetailID loads the order owning the given detail
	FindByDetailID(ctx context.Context, detailID uuid.UUID) (*Order, error)

	// FindAll lists orders. Recognized filters: status, mechanic_id, customer_id.
	// Search matches folio and vehicle plate.
	FindAll(ctx context.Context, filter shared.Filter) ([]Order, error)

	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// Create inserts a new order and its details
	Create(ctx context.Context, order *Order) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, order *Order) error

	// NextFolio reserves the next visual folio for the given year
	NextFolio(ctx context.Context, year int) (string, error)
}

// InspectionRepository defines persistence for intake inspections
type InspectionRepository interface {
	// FindByOrderID returns shared.ErrNotFound when no inspection exists
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*Inspection, error)

	// Create inserts the inspection, failing with a DuplicateError if one exists
	Create(ctx context.Context, inspection *Inspection) error
}
