package billing

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/workshop/backend/internal/domain/audit"
	"github.com/workshop/backend/internal/domain/billing"
	"github.com/workshop/backend/internal/domain/shared"
	"github.com/workshop/backend/internal/domain/workshop"
	"github.com/workshop/backend/internal/infrastructure/retry"
	"github.com/workshop/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// PaymentService records the single payment of a finished order and
// delivers the order in the same transaction
type PaymentService struct {
	txScope         TransactionScope
	paymentRepo     billing.PaymentRepository
	retryPolicy     retry.Policy
	logger          *zap.Logger
	businessMetrics *telemetry.BusinessMetrics
	location        *time.Location
	now             func() time.Time
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(txScope TransactionScope, paymentRepo billing.PaymentRepository) *PaymentService {
	return &PaymentService{
		txScope:     txScope,
		paymentRepo: paymentRepo,
		retryPolicy: retry.DefaultPolicy(),
		logger:      zap.NewNop(),
		location:    time.UTC,
		now:         time.Now,
	}
}

// SetLogger sets the logger
func (s *PaymentService) SetLogger(logger *zap.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// SetBusinessMetrics sets the business metrics collector
func (s *PaymentService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// SetRetryPolicy sets the policy for read-only queries
func (s *PaymentService) SetRetryPolicy(p retry.Policy) {
	s.retryPolicy = p
}

// SetLocation sets the timezone that defines the business date
func (s *PaymentService) SetLocation(loc *time.Location) {
	if loc != nil {
		s.location = loc
	}
}

// SetClock overrides the time source
func (s *PaymentService) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// RecordPayment stores the payment of a finished order and delivers it.
// A deviating amount is accepted and audited. A non-empty idempotency key
// makes retries of the same request return the stored payment.
func (s *PaymentService) RecordPayment(ctx context.Context, orderID uuid.UUID, req RecordPaymentRequest, idempotencyKey string) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "record")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, orderID.String(),
		telemetry.SpanAttrPaymentMethod, req.Method,
		telemetry.SpanAttrAmount, req.Amount.String(),
	)

	op, err := shared.RequireRole(ctx, shared.RoleFrontdesk, shared.RoleAdmin)
	if err != nil {
		return nil, err
	}
	method, err := billing.ParsePaymentMethod(req.Method)
	if err != nil {
		return nil, err
	}
	if err := billing.ValidatePaymentRequest(req.Amount, method, req.Reference); err != nil {
		return nil, err
	}

	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if idempotencyKey != "" {
		replay, err := s.replay(ctx, idempotencyKey, orderID, req, method)
		if err != nil || replay != nil {
			return replay, err
		}
	}

	recordedAt := s.now()
	businessDate := shared.DateOf(recordedAt, s.location)

	var payment *billing.Payment
	var order *workshop.Order
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		order, err = repos.OrderRepo().FindByID(ctx, orderID)
		if err != nil {
			return err
		}

		existing, err := repos.PaymentRepo().FindByOrderID(ctx, orderID)
		if err != nil && !shared.IsNotFound(err) {
			return err
		}
		if existing != nil {
			return shared.NewDuplicateError("payment", "the order already has a payment").
				WithDetail("payment_id", existing.ID.String())
		}
		if order.Status != workshop.OrderStatusFinished {
			return shared.NewPreconditionError("only finished orders can be paid").
				WithDetail("status", string(order.Status))
		}

		day, err := repos.DailyClosingRepo().LockForPayment(ctx, businessDate)
		if err != nil {
			return err
		}
		if day.IsClosed() {
			return shared.NewAlreadyClosedError(businessDate.String())
		}

		payment, err = billing.NewPayment(billing.NewPaymentInput{
			OrderID:        orderID,
			Amount:         req.Amount,
			Method:         method,
			Reference:      req.Reference,
			ExpectedTotal:  order.BillableTotal(),
			BusinessDate:   businessDate,
			IdempotencyKey: idempotencyKey,
			RecordedBy:     op.ID,
			RecordedAt:     recordedAt,
		})
		if err != nil {
			return err
		}
		if err := repos.PaymentRepo().Create(ctx, payment); err != nil {
			return err
		}

		if payment.HasDiscrepancy() {
			entry, err := audit.NewEntry(audit.ActionPaymentDiscrepancy, billing.AggregateTypePayment, payment.ID, op, map[string]any{
				"order_id":       order.ID.String(),
				"folio":          order.Folio,
				"amount":         payment.Amount.StringFixed(2),
				"expected_total": payment.ExpectedTotal.StringFixed(2),
				"discrepancy":    payment.Discrepancy.StringFixed(2),
				"method":         string(payment.Method),
			})
			if err != nil {
				return err
			}
			if err := repos.AuditRepo().Append(ctx, entry); err != nil {
				return err
			}
		}

		if err := order.Deliver(payment.ID, payment.ExpectedTotal, op.ID); err != nil {
			return err
		}
		if err := repos.OrderRepo().SaveWithLock(ctx, order); err != nil {
			return err
		}

		events := append(order.PullDomainEvents(), payment.PullDomainEvents()...)
		return repos.Outbox().Append(ctx, events...)
	})
	if err != nil {
		// A concurrent retry with the same key may have won the insert
		if idempotencyKey != "" && shared.IsDuplicate(err) {
			if replay, replayErr := s.replay(ctx, idempotencyKey, orderID, req, method); replayErr == nil && replay != nil {
				return replay, nil
			}
		}
		telemetry.RecordError(span, err)
		return nil, err
	}

	fields := []zap.Field{
		zap.String("payment_id", payment.ID.String()),
		zap.String("order_id", order.ID.String()),
		zap.String("folio", order.Folio),
		zap.String("method", string(payment.Method)),
		zap.String("amount", payment.Amount.StringFixed(2)),
		zap.String("business_date", payment.BusinessDate.String()),
		zap.String("operator_id", op.ID.String()),
	}
	if payment.HasDiscrepancy() {
		s.logger.Warn("Payment recorded with discrepancy", append(fields,
			zap.String("expected_total", payment.ExpectedTotal.StringFixed(2)),
			zap.String("discrepancy", payment.Discrepancy.StringFixed(2)),
		)...)
	} else {
		s.logger.Info("Payment recorded", fields...)
	}

	if s.businessMetrics != nil {
		s.businessMetrics.RecordPayment(ctx, string(payment.Method), payment.Amount)
		s.businessMetrics.RecordOrderTransition(ctx, string(workshop.OrderStatusFinished), string(workshop.OrderStatusDelivered))
		if payment.HasDiscrepancy() {
			s.businessMetrics.RecordPaymentDiscrepancy(ctx, string(payment.Method), payment.Discrepancy)
		}
	}

	response := ToPaymentResponse(payment)
	return &response, nil
}

// replay returns the stored payment for a reused key, nil when the key is
// new, or a DuplicateError when the key was used for a different request
func (s *PaymentService) replay(ctx context.Context, key string, orderID uuid.UUID, req RecordPaymentRequest, method billing.PaymentMethod) (*PaymentResponse, error) {
	existing, err := retry.Get(ctx, s.retryPolicy, func() (*billing.Payment, error) {
		return s.paymentRepo.FindByIdempotencyKey(ctx, key)
	})
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if !existing.Matches(orderID, req.Amount, method, req.Reference) {
		return nil, shared.NewDuplicateError("payment", "idempotency key was already used for a different payment").
			WithDetail("idempotency_key", key)
	}

	response := ToPaymentResponse(existing)
	response.Replayed = true
	return &response, nil
}

// GetPayment returns the payment of an order
func (s *PaymentService) GetPayment(ctx context.Context, orderID uuid.UUID) (*PaymentResponse, error) {
	if _, err := shared.RequireRole(ctx); err != nil {
		return nil, err
	}
	payment, err := retry.Get(ctx, s.retryPolicy, func() (*billing.Payment, error) {
		return s.paymentRepo.FindByOrderID(ctx, orderID)
	})
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.NewNotFoundError("payment")
		}
		return nil, err
	}
	response := ToPaymentResponse(payment)
	return &response, nil
}

// ListPayments returns the payments of a business date with their attribution
func (s *PaymentService) ListPayments(ctx context.Context, date shared.Date) ([]PaymentResponse, error) {
	if _, err := shared.RequireRole(ctx); err != nil {
		return nil, err
	}
	if date.IsZero() {
		return nil, shared.NewFieldValidationError("date", "is required")
	}
	payments, err := retry.Get(ctx, s.retryPolicy, func() ([]billing.Payment, error) {
		return s.paymentRepo.FindByBusinessDate(ctx, date)
	})
	if err != nil {
		return nil, err
	}
	return ToPaymentResponses(payments), nil
}
