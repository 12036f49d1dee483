package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/workshop/backend/internal/domain/shared"
)

// PaymentRepository persists payments
type PaymentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	// FindByOrderID returns shared.ErrNotFound when the order is unpaid
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*Payment, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*Payment, error)
	FindByBusinessDate(ctx context.Context, date shared.Date) ([]Payment, error)
	// Create fails with a DuplicateError when the order is already paid
	// or the idempotency key was used before
	Create(ctx context.Context, payment *Payment) error
}
