package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	billingapp "github.com/workshop/backend/internal/application/billing"
	closingapp "github.com/workshop/backend/internal/application/closing"
	"github.com/workshop/backend/internal/application/event"
	workshopapp "github.com/workshop/backend/internal/application/workshop"
	"github.com/workshop/backend/internal/domain/shared"
	"github.com/workshop/backend/internal/domain/workshop"
	"github.com/workshop/backend/internal/interfaces/http/dto"
	"github.com/workshop/backend/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// ==================== Mock Services ====================

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateOrder(ctx context.Context, req workshopapp.CreateOrderRequest) (*workshopapp.OrderResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workshopapp.OrderResponse), args.Error(1)
}

func (m *MockOrderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*workshopapp.OrderResponse, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workshopapp.OrderResponse), args.Error(1)
}

func (m *MockOrderService) ListOrders(ctx context.Context, filter workshopapp.OrderListFilter) ([]workshopapp.OrderListItemResponse, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]workshopapp.OrderListItemResponse), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderService) TransitionOrder(ctx context.Context, orderID uuid.UUID, req workshopapp.TransitionOrderRequest) (*workshopapp.OrderResponse, error) {
	args := m.Called(ctx, orderID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workshopapp.OrderResponse), args.Error(1)
}

func (m *MockOrderService) AssignMechanic(ctx context.Context, orderID uuid.UUID, req workshopapp.AssignMechanicRequest) (*workshopapp.OrderResponse, error) {
	args := m.Called(ctx, orderID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workshopapp.OrderResponse), args.Error(1)
}

func (m *MockOrderService) AddOrderDetail(ctx context.Context, orderID uuid.UUID, req workshopapp.AddOrderDetailRequest) (*workshopapp.OrderDetailResponse, error) {
	args := m.Called(ctx, orderID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workshopapp.OrderDetailResponse), args.Error(1)
}

func (m *MockOrderService) SetOrderDetailPrice(ctx context.Context, detailID uuid.UUID, req workshopapp.SetDetailPriceRequest) (*workshopapp.OrderDetailResponse, error) {
	args := m.Called(ctx, detailID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workshopapp.OrderDetailResponse), args.Error(1)
}

func (m *MockOrderService) TransitionOrderDetail(ctx context.Context, detailID uuid.UUID, req workshopapp.TransitionDetailRequest) (*workshopapp.OrderDetailResponse, error) {
	args := m.Called(ctx, detailID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workshopapp.OrderDetailResponse), args.Error(1)
}

func (m *MockOrderService) RecordDiagnosis(ctx context.Context, orderID uuid.UUID, req workshopapp.RecordDiagnosisRequest) (*workshopapp.OrderResponse, error) {
	args := m.Called(ctx, orderID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workshopapp.OrderResponse), args.Error(1)
}

func (m *MockOrderService) ListCatalogServices(ctx context.Context) ([]workshop.CatalogService, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]workshop.CatalogService), args.Error(1)
}

func (m *MockOrderService) LookupVehicle(ctx context.Context, plate string) (*workshop.VehicleRecord, error) {
	args := m.Called(ctx, plate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workshop.VehicleRecord), args.Error(1)
}

type MockInspectionService struct {
	mock.Mock
}

func (m *MockInspectionService) RecordInspection(ctx context.Context, orderID uuid.UUID, req workshopapp.RecordInspectionRequest) (*workshopapp.InspectionResponse, error) {
	args := m.Called(ctx, orderID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workshopapp.InspectionResponse), args.Error(1)
}

func (m *MockInspectionService) GetInspection(ctx context.Context, orderID uuid.UUID) (*workshopapp.InspectionResponse, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workshopapp.InspectionResponse), args.Error(1)
}

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) RecordPayment(ctx context.Context, orderID uuid.UUID, req billingapp.RecordPaymentRequest, idempotencyKey string) (*billingapp.PaymentResponse, error) {
	args := m.Called(ctx, orderID, req, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billingapp.PaymentResponse), args.Error(1)
}

func (m *MockPaymentService) GetPayment(ctx context.Context, orderID uuid.UUID) (*billingapp.PaymentResponse, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billingapp.PaymentResponse), args.Error(1)
}

func (m *MockPaymentService) ListPayments(ctx context.Context, date shared.Date) ([]billingapp.PaymentResponse, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billingapp.PaymentResponse), args.Error(1)
}

type MockClosingService struct {
	mock.Mock
}

func (m *MockClosingService) Today() shared.Date {
	return m.Called().Get(0).(shared.Date)
}

func (m *MockClosingService) CloseDay(ctx context.Context, date shared.Date) (*closingapp.DailyClosingResponse, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*closingapp.DailyClosingResponse), args.Error(1)
}

func (m *MockClosingService) CloseMonth(ctx context.Context, ym shared.YearMonth, expectMutation bool) (*closingapp.MonthlyClosingResponse, error) {
	args := m.Called(ctx, ym, expectMutation)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*closingapp.MonthlyClosingResponse), args.Error(1)
}

func (m *MockClosingService) GetDailyClosingStatus(ctx context.Context, date shared.Date) (*closingapp.DailyClosingResponse, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*closingapp.DailyClosingResponse), args.Error(1)
}

func (m *MockClosingService) GetMonthlyClosingStatus(ctx context.Context, ym shared.YearMonth) (*closingapp.MonthlyClosingResponse, error) {
	args := m.Called(ctx, ym)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*closingapp.MonthlyClosingResponse), args.Error(1)
}

type MockOutboxAdmin struct {
	mock.Mock
}

func (m *MockOutboxAdmin) GetDeadLetterEntries(ctx context.Context, filter event.OutboxFilter) (*event.OutboxListResult, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.OutboxListResult), args.Error(1)
}

func (m *MockOutboxAdmin) RetryDeadEntry(ctx context.Context, id uuid.UUID) (*event.OutboxEntryDTO, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.OutboxEntryDTO), args.Error(1)
}

func (m *MockOutboxAdmin) RetryAllDeadEntries(ctx context.Context, family string) (int64, error) {
	args := m.Called(ctx, family)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOutboxAdmin) GetStats(ctx context.Context) (*event.OutboxStatsDTO, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.OutboxStatsDTO), args.Error(1)
}

// ==================== Request Helpers ====================

// performRequest serves one request through a router holding a single route
func performRequest(t *testing.T, method, pattern, target string, body any, handle gin.HandlerFunc, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	router := gin.New()
	router.Handle(method, pattern, handle)

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// decodeResponse decodes the envelope and, when data is non-nil, its payload
func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, data any) dto.Response {
	t.Helper()

	var envelope struct {
		dto.Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	if data != nil && len(envelope.Data) > 0 {
		require.NoError(t, json.Unmarshal(envelope.Data, data))
	}
	return envelope.Response
}
