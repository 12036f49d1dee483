package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/workshop/backend/internal/domain/audit"
	"github.com/workshop/backend/internal/domain/billing"
	"github.com/workshop/backend/internal/domain/closing"
	"github.com/workshop/backend/internal/domain/shared"
	"github.com/workshop/backend/internal/domain/workshop"
	"github.com/workshop/backend/internal/infrastructure/retry"
)

// Test helpers
var (
	testNow          = time.Date(2024, time.May, 10, 18, 30, 0, 0, time.UTC)
	testBusinessDate = shared.NewDate(2024, time.May, 10)
)

func operatorCtx(role shared.Role) context.Context {
	return shared.WithOperator(context.Background(), shared.Operator{ID: uuid.New(), Name: "Cashier", Role: role})
}

func newPaymentServiceFixture() (*fakeTxScope, *PaymentService) {
	tx := newFakeTxScope()
	service := NewPaymentService(tx, tx.payments)
	service.SetRetryPolicy(retry.NoRetry())
	service.SetClock(func() time.Time { return testNow })
	return tx, service
}

// finishedOrder builds an order whose billable total is 500:
// a 500 service line plus a customer-supplied part
func finishedOrder(t *testing.T) *workshop.Order {
	by := uuid.New()
	order, err := workshop.NewOrder(workshop.NewOrderInput{
		Folio:      "OS-2024-000042",
		CustomerID: uuid.New(),
		VehicleID:  uuid.New(),
	}, by)
	require.NoError(t, err)

	inspection, err := workshop.NewInspection(order.ID, workshop.Checklist{ResponsibleName: "Ana Ruiz"}, true, by)
	require.NoError(t, err)
	_, err = order.TransitionTo(workshop.OrderStatusReceived, workshop.TransitionGate{Inspection: inspection}, by)
	require.NoError(t, err)

	price := decimal.NewFromInt(500)
	labor, err := order.AddDetail(workshop.NewDetailInput{Description: "Clutch replacement", Price: &price}, by)
	require.NoError(t, err)
	laborID := labor.ID
	_, err = order.AddDetail(workshop.NewDetailInput{Description: "Clutch kit", Category: workshop.CategoryPart, CustomerSupplied: true}, by)
	require.NoError(t, err)

	for _, s := range []workshop.DetailStatus{workshop.DetailStatusInProgress, workshop.DetailStatusDone} {
		_, _, err = order.TransitionDetail(laborID, s, by)
		require.NoError(t, err)
	}
	_, err = order.TransitionTo(workshop.OrderStatusFinished, workshop.TransitionGate{}, by)
	require.NoError(t, err)
	order.PullDomainEvents()
	return order
}

func expectOpenDay(tx *fakeTxScope, order *workshop.Order) {
	tx.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	tx.payments.On("FindByOrderID", mock.Anything, order.ID).Return(nil, shared.ErrNotFound)
	tx.dailies.On("LockForPayment", mock.Anything, testBusinessDate).Return(closing.NewDailyClosing(testBusinessDate), nil)
}

// ============================================
// RecordPayment Tests
// ============================================

func TestPaymentService_RecordPayment(t *testing.T) {
	t.Run("exact amount delivers the order", func(t *testing.T) {
		tx, service := newPaymentServiceFixture()
		order := finishedOrder(t)
		expectOpenDay(tx, order)
		tx.payments.On("Create", mock.Anything, mock.AnythingOfType("*billing.Payment")).Return(nil)
		tx.orders.On("SaveWithLock", mock.Anything, order).Return(nil)

		result, err := service.RecordPayment(operatorCtx(shared.RoleFrontdesk), order.ID, RecordPaymentRequest{
			Amount:    decimal.NewFromInt(500),
			Method:    "card",
			Reference: "VCH123",
		}, "")

		require.NoError(t, err)
		assert.Equal(t, "500", result.ExpectedTotal.String())
		assert.True(t, result.Discrepancy.IsZero())
		assert.Equal(t, testBusinessDate, result.BusinessDate)
		assert.False(t, result.Replayed)
		assert.Equal(t, workshop.OrderStatusDelivered, order.Status)
		assert.Equal(t, []string{workshop.EventTypeOrderStatusChanged, billing.EventTypePaymentRecorded}, tx.outbox.types())
		tx.audits.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
		tx.orders.AssertExpectations(t)
		tx.dailies.AssertExpectations(t)
	})

	t.Run("card without reference", func(t *testing.T) {
		tx, service := newPaymentServiceFixture()

		_, err := service.RecordPayment(operatorCtx(shared.RoleFrontdesk), uuid.New(), RecordPaymentRequest{
			Amount: decimal.NewFromInt(500),
			Method: "card",
		}, "")

		assert.True(t, shared.IsValidation(err))
		tx.orders.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("zero amount", func(t *testing.T) {
		_, service := newPaymentServiceFixture()

		_, err := service.RecordPayment(operatorCtx(shared.RoleFrontdesk), uuid.New(), RecordPaymentRequest{
			Amount: decimal.Zero,
			Method: "cash",
		}, "")

		assert.True(t, shared.IsValidation(err))
	})

	t.Run("discrepancy is accepted and audited", func(t *testing.T) {
		tx, service := newPaymentServiceFixture()
		order := finishedOrder(t)
		expectOpenDay(tx, order)
		tx.payments.On("Create", mock.Anything, mock.AnythingOfType("*billing.Payment")).Return(nil)
		tx.orders.On("SaveWithLock", mock.Anything, order).Return(nil)
		tx.audits.On("Append", mock.Anything, mock.MatchedBy(func(e *audit.Entry) bool {
			return e.Action == audit.ActionPaymentDiscrepancy &&
				e.Details["discrepancy"] == "-50.00" &&
				e.Details["expected_total"] == "500.00" &&
				e.OperatorRole == shared.RoleAdmin
		})).Return(nil)

		result, err := service.RecordPayment(operatorCtx(shared.RoleAdmin), order.ID, RecordPaymentRequest{
			Amount: decimal.NewFromInt(450),
			Method: "cash",
		}, "")

		require.NoError(t, err)
		assert.Equal(t, "-50", result.Discrepancy.String())
		assert.Equal(t, workshop.OrderStatusDelivered, order.Status)
		tx.audits.AssertExpectations(t)
	})

	t.Run("audit failure rolls back", func(t *testing.T) {
		tx, service := newPaymentServiceFixture()
		order := finishedOrder(t)
		expectOpenDay(tx, order)
		tx.payments.On("Create", mock.Anything, mock.Anything).Return(nil)
		tx.audits.On("Append", mock.Anything, mock.Anything).Return(assert.AnError)

		_, err := service.RecordPayment(operatorCtx(shared.RoleAdmin), order.ID, RecordPaymentRequest{
			Amount: decimal.NewFromInt(600),
			Method: "cash",
		}, "")

		assert.ErrorIs(t, err, assert.AnError)
		tx.orders.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("order not finished", func(t *testing.T) {
		tx, service := newPaymentServiceFixture()
		order, err := workshop.NewOrder(workshop.NewOrderInput{Folio: "OS-2024-000043", CustomerID: uuid.New(), VehicleID: uuid.New()}, uuid.New())
		require.NoError(t, err)
		tx.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
		tx.payments.On("FindByOrderID", mock.Anything, order.ID).Return(nil, shared.ErrNotFound)

		_, err = service.RecordPayment(operatorCtx(shared.RoleFrontdesk), order.ID, RecordPaymentRequest{
			Amount: decimal.NewFromInt(100),
			Method: "cash",
		}, "")

		assert.True(t, shared.IsPrecondition(err))
		tx.dailies.AssertNotCalled(t, "LockForPayment", mock.Anything, mock.Anything)
	})

	t.Run("second payment for the order", func(t *testing.T) {
		tx, service := newPaymentServiceFixture()
		order := finishedOrder(t)
		tx.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
		tx.payments.On("FindByOrderID", mock.Anything, order.ID).Return(&billing.Payment{OrderID: order.ID}, nil)

		_, err := service.RecordPayment(operatorCtx(shared.RoleFrontdesk), order.ID, RecordPaymentRequest{
			Amount: decimal.NewFromInt(500),
			Method: "cash",
		}, "")

		assert.True(t, shared.IsDuplicate(err))
	})

	t.Run("day already closed", func(t *testing.T) {
		tx, service := newPaymentServiceFixture()
		order := finishedOrder(t)
		closed := closing.NewDailyClosing(testBusinessDate)
		require.NoError(t, closed.Close(closing.PaymentSummary{}, uuid.New(), testNow))
		tx.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
		tx.payments.On("FindByOrderID", mock.Anything, order.ID).Return(nil, shared.ErrNotFound)
		tx.dailies.On("LockForPayment", mock.Anything, testBusinessDate).Return(closed, nil)

		_, err := service.RecordPayment(operatorCtx(shared.RoleFrontdesk), order.ID, RecordPaymentRequest{
			Amount: decimal.NewFromInt(500),
			Method: "cash",
		}, "")

		assert.True(t, shared.IsAlreadyClosed(err))
		tx.payments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("business date follows the configured timezone", func(t *testing.T) {
		tx, service := newPaymentServiceFixture()
		service.SetLocation(time.FixedZone("CST", -6*60*60))
		service.SetClock(func() time.Time { return time.Date(2024, time.May, 11, 3, 0, 0, 0, time.UTC) })
		order := finishedOrder(t)
		expectOpenDay(tx, order)
		tx.payments.On("Create", mock.Anything, mock.Anything).Return(nil)
		tx.orders.On("SaveWithLock", mock.Anything, order).Return(nil)

		result, err := service.RecordPayment(operatorCtx(shared.RoleFrontdesk), order.ID, RecordPaymentRequest{
			Amount: decimal.NewFromInt(500),
			Method: "cash",
		}, "")

		require.NoError(t, err)
		assert.Equal(t, "2024-05-10", result.BusinessDate.String())
	})

	t.Run("mechanic is forbidden", func(t *testing.T) {
		_, service := newPaymentServiceFixture()

		_, err := service.RecordPayment(operatorCtx(shared.RoleMechanic), uuid.New(), RecordPaymentRequest{
			Amount: decimal.NewFromInt(500),
			Method: "cash",
		}, "")

		assert.ErrorIs(t, err, shared.ErrForbidden)
	})
}

func TestPaymentService_RecordPayment_Idempotency(t *testing.T) {
	orderID := uuid.New()
	stored := &billing.Payment{
		OrderID:        orderID,
		Amount:         decimal.RequireFromString("500.00"),
		Method:         billing.PaymentMethodCard,
		Reference:      "VCH123",
		ExpectedTotal:  decimal.NewFromInt(500),
		BusinessDate:   testBusinessDate,
		IdempotencyKey: "retry-1",
	}
	stored.ID = uuid.New()

	t.Run("same request returns the stored payment", func(t *testing.T) {
		tx, service := newPaymentServiceFixture()
		tx.payments.On("FindByIdempotencyKey", mock.Anything, "retry-1").Return(stored, nil)

		result, err := service.RecordPayment(operatorCtx(shared.RoleFrontdesk), orderID, RecordPaymentRequest{
			Amount:    decimal.NewFromInt(500),
			Method:    "card",
			Reference: "VCH123",
		}, " retry-1 ")

		require.NoError(t, err)
		assert.True(t, result.Replayed)
		assert.Equal(t, stored.ID, result.ID)
		tx.orders.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("key reused for another amount", func(t *testing.T) {
		tx, service := newPaymentServiceFixture()
		tx.payments.On("FindByIdempotencyKey", mock.Anything, "retry-1").Return(stored, nil)

		_, err := service.RecordPayment(operatorCtx(shared.RoleFrontdesk), orderID, RecordPaymentRequest{
			Amount:    decimal.NewFromInt(450),
			Method:    "card",
			Reference: "VCH123",
		}, "retry-1")

		assert.True(t, shared.IsDuplicate(err))
	})

	t.Run("key reused for another reference", func(t *testing.T) {
		tx, service := newPaymentServiceFixture()
		tx.payments.On("FindByIdempotencyKey", mock.Anything, "retry-1").Return(stored, nil)

		result, err := service.RecordPayment(operatorCtx(shared.RoleFrontdesk), orderID, RecordPaymentRequest{
			Amount:    decimal.NewFromInt(500),
			Method:    "card",
			Reference: "VCH999",
		}, "retry-1")

		assert.Nil(t, result)
		assert.True(t, shared.IsDuplicate(err))
		tx.orders.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("new key records the payment", func(t *testing.T) {
		tx, service := newPaymentServiceFixture()
		order := finishedOrder(t)
		tx.payments.On("FindByIdempotencyKey", mock.Anything, "fresh").Return(nil, shared.ErrNotFound)
		expectOpenDay(tx, order)
		tx.payments.On("Create", mock.Anything, mock.MatchedBy(func(p *billing.Payment) bool {
			return p.IdempotencyKey == "fresh"
		})).Return(nil)
		tx.orders.On("SaveWithLock", mock.Anything, order).Return(nil)

		result, err := service.RecordPayment(operatorCtx(shared.RoleFrontdesk), order.ID, RecordPaymentRequest{
			Amount: decimal.NewFromInt(500),
			Method: "cash",
		}, "fresh")

		require.NoError(t, err)
		assert.False(t, result.Replayed)
		tx.payments.AssertExpectations(t)
	})
}

// ============================================
// Query Tests
// ============================================

func TestPaymentService_GetPayment(t *testing.T) {
	tx, service := newPaymentServiceFixture()
	orderID := uuid.New()
	tx.payments.On("FindByOrderID", mock.Anything, orderID).Return(nil, shared.ErrNotFound)

	_, err := service.GetPayment(operatorCtx(shared.RoleMechanic), orderID)

	assert.True(t, shared.IsNotFound(err))
}

func TestPaymentService_ListPayments(t *testing.T) {
	tx, service := newPaymentServiceFixture()
	closingID := uuid.New()
	payments := []billing.Payment{
		{OrderID: uuid.New(), Amount: decimal.NewFromInt(100), Method: billing.PaymentMethodCash, BusinessDate: testBusinessDate},
		{OrderID: uuid.New(), Amount: decimal.NewFromInt(200), Method: billing.PaymentMethodCard, BusinessDate: testBusinessDate, DailyClosingID: &closingID},
	}
	tx.payments.On("FindByBusinessDate", mock.Anything, testBusinessDate).Return(payments, nil)

	result, err := service.ListPayments(operatorCtx(shared.RoleFrontdesk), testBusinessDate)

	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Nil(t, result[0].DailyClosingID)
	assert.Equal(t, &closingID, result[1].DailyClosingID)

	_, err = service.ListPayments(operatorCtx(shared.RoleFrontdesk), shared.Date{})
	assert.True(t, shared.IsValidation(err))
}
