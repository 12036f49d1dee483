package workshop

import (
	"context"

	"github.com/workshop/backend/internal/domain/audit"
	"github.com/workshop/backend/internal/domain/billing"
	"github.com/workshop/backend/internal/domain/shared"
	"github.com/workshop/backend/internal/domain/workshop"
)

// TransactionScope runs order commands atomically. When fn returns an
// error every write made through repos is rolled back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories are bound to one database transaction.
//
// The Order aggregate owns its details, so OrderRepo is the only way to
// change either. PaymentRepo is read-only here and backs the delivery gate.
type TransactionalRepositories interface {
	OrderRepo() workshop.OrderRepository
	InspectionRepo() workshop.InspectionRepository
	PaymentRepo() billing.PaymentRepository
	AuditRepo() audit.Repository
	// Outbox appends domain events in the same transaction
	Outbox() shared.OutboxWriter
}
