package workshop

import (
	"context"

	"github.com/google/uuid"
	"github.com/workshop/backend/internal/domain/shared"
	"github.com/workshop/backend/internal/domain/workshop"
	"github.com/workshop/backend/internal/infrastructure/retry"
	"github.com/workshop/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// InspectionService records the intake checklist of an order
type InspectionService struct {
	txScope        TransactionScope
	inspectionRepo workshop.InspectionRepository
	sanitizer      TextSanitizer
	retryPolicy    retry.Policy
	logger         *zap.Logger
}

// NewInspectionService creates a new InspectionService
func NewInspectionService(txScope TransactionScope, inspectionRepo workshop.InspectionRepository) *InspectionService {
	return &InspectionService{
		txScope:        txScope,
		inspectionRepo: inspectionRepo,
		sanitizer:      NewStrictSanitizer(),
		retryPolicy:    retry.DefaultPolicy(),
		logger:         zap.NewNop(),
	}
}

// SetLogger sets the logger
func (s *InspectionService) SetLogger(logger *zap.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// SetRetryPolicy sets the policy for read-only queries
func (s *InspectionService) SetRetryPolicy(p retry.Policy) {
	s.retryPolicy = p
}

// RecordInspection stores the one inspection an order may have. The order
// stays in intake; receiving it is a separate transition.
func (s *InspectionService) RecordInspection(ctx context.Context, orderID uuid.UUID, req RecordInspectionRequest) (*InspectionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "inspection", "record")
	defer span.End()

	op, err := shared.RequireRole(ctx, shared.RoleFrontdesk, shared.RoleAdmin)
	if err != nil {
		return nil, err
	}

	checklist := req.Checklist
	checklist.MapText(s.sanitizer.Sanitize)

	var inspection *workshop.Inspection
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		order, err := repos.OrderRepo().FindByID(ctx, orderID)
		if err != nil {
			return err
		}

		existing, err := repos.InspectionRepo().FindByOrderID(ctx, orderID)
		if err != nil && !shared.IsNotFound(err) {
			return err
		}
		if existing != nil {
			return shared.NewDuplicateError("inspection", "the order already has an inspection").
				WithDetail("inspection_id", existing.ID.String())
		}

		inspection, err = workshop.NewInspection(orderID, checklist, req.SignatureAccepted, op.ID)
		if err != nil {
			return err
		}
		if err := order.ApplyInspection(inspection); err != nil {
			return err
		}
		if err := repos.InspectionRepo().Create(ctx, inspection); err != nil {
			return err
		}
		order.RecordEvent(workshop.NewInspectionRecordedEvent(inspection))
		return saveOrder(ctx, repos, order)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Inspection recorded",
		zap.String("order_id", orderID.String()),
		zap.String("inspection_id", inspection.ID.String()),
		zap.Bool("signature_accepted", inspection.SignatureAccepted),
		zap.Int("unknown_items", inspection.Checklist.UnknownItems()),
	)

	response := ToInspectionResponse(inspection)
	return &response, nil
}

// GetInspection returns the inspection of an order
func (s *InspectionService) GetInspection(ctx context.Context, orderID uuid.UUID) (*InspectionResponse, error) {
	if _, err := shared.RequireRole(ctx); err != nil {
		return nil, err
	}
	inspection, err := retry.Get(ctx, s.retryPolicy, func() (*workshop.Inspection, error) {
		return s.inspectionRepo.FindByOrderID(ctx, orderID)
	})
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.NewNotFoundError("inspection")
		}
		return nil, err
	}
	response := ToInspectionResponse(inspection)
	return &response, nil
}
