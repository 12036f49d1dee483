package workshop

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/workshop/backend/internal/domain/shared"
	"github.com/workshop/backend/internal/domain/workshop"
	"github.com/workshop/backend/internal/infrastructure/retry"
	"github.com/workshop/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// OrderService handles service order commands and Kanban queries
type OrderService struct {
	txScope         TransactionScope
	orderRepo       workshop.OrderRepository
	catalog         workshop.CatalogGateway
	directory       workshop.VehicleDirectory
	sanitizer       TextSanitizer
	retryPolicy     retry.Policy
	logger          *zap.Logger
	businessMetrics *telemetry.BusinessMetrics
	location        *time.Location
	now             func() time.Time
}

// NewOrderService creates a new OrderService
func NewOrderService(
	txScope TransactionScope,
	orderRepo workshop.OrderRepository,
	catalog workshop.CatalogGateway,
	directory workshop.VehicleDirectory,
) *OrderService {
	return &OrderService{
		txScope:     txScope,
		orderRepo:   orderRepo,
		catalog:     catalog,
		directory:   directory,
		sanitizer:   NewStrictSanitizer(),
		retryPolicy: retry.DefaultPolicy(),
		logger:      zap.NewNop(),
		location:    time.UTC,
		now:         time.Now,
	}
}

// SetLogger sets the logger
func (s *OrderService) SetLogger(logger *zap.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// SetBusinessMetrics sets the business metrics collector
func (s *OrderService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// SetRetryPolicy sets the policy for read-only queries
func (s *OrderService) SetRetryPolicy(p retry.Policy) {
	s.retryPolicy = p
}

// SetLocation sets the timezone used to pick the folio year
func (s *OrderService) SetLocation(loc *time.Location) {
	if loc != nil {
		s.location = loc
	}
}

// SetClock overrides the time source
func (s *OrderService) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateOrder opens an order in intake for a registered vehicle
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "create")
	defer span.End()

	op, err := shared.RequireRole(ctx, shared.RoleFrontdesk, shared.RoleAdmin)
	if err != nil {
		return nil, err
	}

	record, err := retry.Get(ctx, s.retryPolicy, func() (*workshop.VehicleRecord, error) {
		return s.directory.FindVehicle(ctx, req.VehicleID)
	})
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.NewNotFoundError("vehicle")
		}
		return nil, err
	}
	if record.Customer.ID != req.CustomerID {
		return nil, shared.NewFieldValidationError("vehicle_id", "vehicle is not registered to the customer")
	}

	var order *workshop.Order
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		folio, err := repos.OrderRepo().NextFolio(ctx, s.now().In(s.location).Year())
		if err != nil {
			return err
		}
		order, err = workshop.NewOrder(workshop.NewOrderInput{
			Folio:      folio,
			CustomerID: req.CustomerID,
			VehicleID:  req.VehicleID,
			MechanicID: req.MechanicID,
			Mileage:    req.Mileage,
			FuelLevel:  req.FuelLevel,
			Complaint:  s.sanitizer.Sanitize(req.Complaint),
		}, op.ID)
		if err != nil {
			return err
		}
		if err := repos.OrderRepo().Create(ctx, order); err != nil {
			return err
		}
		return repos.Outbox().Append(ctx, order.PullDomainEvents()...)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("folio", order.Folio),
		zap.String("operator_id", op.ID.String()),
	)
	if s.businessMetrics != nil {
		s.businessMetrics.RecordOrderCreated(ctx)
	}

	response := ToOrderResponse(order)
	return &response, nil
}

// GetOrder returns an order with its details
func (s *OrderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	if _, err := shared.RequireRole(ctx); err != nil {
		return nil, err
	}
	order, err := retry.Get(ctx, s.retryPolicy, func() (*workshop.Order, error) {
		return s.orderRepo.FindByID(ctx, orderID)
	})
	if err != nil {
		return nil, err
	}
	response := ToOrderResponse(order)
	return &response, nil
}

// ListOrders returns a page of Kanban cards
func (s *OrderService) ListOrders(ctx context.Context, filter OrderListFilter) ([]OrderListItemResponse, int64, error) {
	if _, err := shared.RequireRole(ctx); err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "created_at"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   strings.TrimSpace(filter.Search),
	}
	if filter.Status != "" {
		status, err := workshop.ParseOrderStatus(filter.Status)
		if err != nil {
			return nil, 0, err
		}
		domainFilter = domainFilter.Where("status", string(status))
	}
	if filter.MechanicID != nil {
		domainFilter = domainFilter.Where("mechanic_id", *filter.MechanicID)
	}
	if filter.CustomerID != nil {
		domainFilter = domainFilter.Where("customer_id", *filter.CustomerID)
	}

	orders, err := retry.Get(ctx, s.retryPolicy, func() ([]workshop.Order, error) {
		return s.orderRepo.FindAll(ctx, domainFilter)
	})
	if err != nil {
		return nil, 0, err
	}
	total, err := retry.Get(ctx, s.retryPolicy, func() (int64, error) {
		return s.orderRepo.Count(ctx, domainFilter)
	})
	if err != nil {
		return nil, 0, err
	}

	return ToOrderListItemResponses(orders), total, nil
}

// TransitionOrder moves an order to the requested stage
func (s *OrderService) TransitionOrder(ctx context.Context, orderID uuid.UUID, req TransitionOrderRequest) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "transition",
		telemetry.WithAttribute(telemetry.SpanAttrOrderID, orderID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrOrderStatus, req.Status),
	)
	defer span.End()

	op, err := shared.RequireRole(ctx)
	if err != nil {
		return nil, err
	}
	target, err := workshop.ParseOrderStatus(req.Status)
	if err != nil {
		return nil, err
	}

	var from workshop.OrderStatus
	order, err := s.mutateOrder(ctx, orderID, func(repos TransactionalRepositories, order *workshop.Order) (bool, error) {
		from = order.Status
		gate, err := s.loadGate(ctx, repos, order, target)
		if err != nil {
			return false, err
		}
		return order.TransitionTo(target, gate, op.ID)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.recordTransition(ctx, order, from, op)
	response := ToOrderResponse(order)
	return &response, nil
}

// loadGate fetches the facts the target transition depends on
func (s *OrderService) loadGate(ctx context.Context, repos TransactionalRepositories, order *workshop.Order, target workshop.OrderStatus) (workshop.TransitionGate, error) {
	var gate workshop.TransitionGate
	switch target {
	case workshop.OrderStatusReceived:
		inspection, err := repos.InspectionRepo().FindByOrderID(ctx, order.ID)
		if err != nil && !shared.IsNotFound(err) {
			return gate, err
		}
		gate.Inspection = inspection
	case workshop.OrderStatusDelivered:
		payment, err := repos.PaymentRepo().FindByOrderID(ctx, order.ID)
		if err != nil && !shared.IsNotFound(err) {
			return gate, err
		}
		if payment != nil {
			gate.PaymentID = &payment.ID
			gate.PaidExpectedTotal = payment.ExpectedTotal
		}
	}
	return gate, nil
}

// AssignMechanic sets or clears the responsible mechanic
func (s *OrderService) AssignMechanic(ctx context.Context, orderID uuid.UUID, req AssignMechanicRequest) (*OrderResponse, error) {
	op, err := shared.RequireRole(ctx, shared.RoleFrontdesk, shared.RoleAdmin)
	if err != nil {
		return nil, err
	}

	order, err := s.mutateOrder(ctx, orderID, func(_ TransactionalRepositories, order *workshop.Order) (bool, error) {
		if sameMechanic(order.MechanicID, req.MechanicID) {
			return false, nil
		}
		return true, order.AssignMechanic(req.MechanicID, op.ID)
	})
	if err != nil {
		return nil, err
	}

	response := ToOrderResponse(order)
	return &response, nil
}

func sameMechanic(a, b *uuid.UUID) bool {
	if b != nil && *b == uuid.Nil {
		b = nil
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// AddOrderDetail appends a work line. Lines quoted from the catalog take
// the suggested price; explicit prices require a billing role.
func (s *OrderService) AddOrderDetail(ctx context.Context, orderID uuid.UUID, req AddOrderDetailRequest) (*OrderDetailResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "add_detail")
	defer span.End()

	op, err := shared.RequireRole(ctx)
	if err != nil {
		return nil, err
	}
	if req.Price != nil && !canQuote(op) {
		return nil, shared.ErrForbidden.WithDetail("field", "price")
	}
	category, err := workshop.ParseCategory(req.Category)
	if err != nil {
		return nil, err
	}

	input := workshop.NewDetailInput{
		Description:      s.sanitizer.Sanitize(req.Description),
		Category:         category,
		CustomerSupplied: req.IsCustomerSupplied,
		CatalogServiceID: req.CatalogServiceID,
		Price:            req.Price,
	}
	if req.CatalogServiceID != nil {
		service, err := s.findCatalogService(ctx, *req.CatalogServiceID)
		if err != nil {
			return nil, err
		}
		if input.Price == nil {
			price := service.SuggestedPrice
			input.Price = &price
		}
		if input.Description == "" {
			input.Description = service.Name
		}
	}

	var detail *workshop.OrderDetail
	var from workshop.OrderStatus
	order, err := s.mutateOrder(ctx, orderID, func(_ TransactionalRepositories, order *workshop.Order) (bool, error) {
		from = order.Status
		var err error
		detail, err = order.AddDetail(input, op.ID)
		return err == nil, err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.recordTransition(ctx, order, from, op)
	response := ToOrderDetailResponse(detail)
	return &response, nil
}

// SetOrderDetailPrice quotes a work line
func (s *OrderService) SetOrderDetailPrice(ctx context.Context, detailID uuid.UUID, req SetDetailPriceRequest) (*OrderDetailResponse, error) {
	op, err := shared.RequireRole(ctx, shared.RoleFrontdesk, shared.RoleAdmin)
	if err != nil {
		return nil, err
	}

	var detail *workshop.OrderDetail
	_, err = s.mutateOrderByDetail(ctx, detailID, func(_ TransactionalRepositories, order *workshop.Order) (bool, error) {
		var err error
		detail, err = order.SetDetailPrice(detailID, req.Price, op.ID)
		return err == nil, err
	})
	if err != nil {
		return nil, err
	}

	response := ToOrderDetailResponse(detail)
	return &response, nil
}

// TransitionOrderDetail moves a work line along its graph
func (s *OrderService) TransitionOrderDetail(ctx context.Context, detailID uuid.UUID, req TransitionDetailRequest) (*OrderDetailResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "transition_detail")
	defer span.End()

	op, err := shared.RequireRole(ctx, shared.RoleMechanic, shared.RoleAdmin)
	if err != nil {
		return nil, err
	}
	target, err := workshop.ParseDetailStatus(req.Status)
	if err != nil {
		return nil, err
	}

	var detail *workshop.OrderDetail
	var from workshop.OrderStatus
	order, err := s.mutateOrderByDetail(ctx, detailID, func(_ TransactionalRepositories, order *workshop.Order) (bool, error) {
		from = order.Status
		var changed bool
		var err error
		detail, changed, err = order.TransitionDetail(detailID, target, op.ID)
		return changed, err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.recordTransition(ctx, order, from, op)
	response := ToOrderDetailResponse(detail)
	return &response, nil
}

// RecordDiagnosis adds one quoted line per catalog service plus an optional
// free-text note, moving a received order into diagnosis
func (s *OrderService) RecordDiagnosis(ctx context.Context, orderID uuid.UUID, req RecordDiagnosisRequest) (*OrderResponse, error) {
	op, err := shared.RequireRole(ctx)
	if err != nil {
		return nil, err
	}
	note := s.sanitizer.Sanitize(req.Note)
	if len(req.CatalogServiceIDs) == 0 && note == "" {
		return nil, shared.NewValidationError("a diagnosis needs at least one catalog service or a note")
	}

	services := make([]*workshop.CatalogService, 0, len(req.CatalogServiceIDs))
	for _, id := range req.CatalogServiceIDs {
		service, err := s.findCatalogService(ctx, id)
		if err != nil {
			return nil, err
		}
		services = append(services, service)
	}

	var from workshop.OrderStatus
	order, err := s.mutateOrder(ctx, orderID, func(_ TransactionalRepositories, order *workshop.Order) (bool, error) {
		from = order.Status
		for _, service := range services {
			price := service.SuggestedPrice
			serviceID := service.ID
			if _, err := order.AddDetail(workshop.NewDetailInput{
				Description:      service.Name,
				Category:         workshop.CategoryService,
				CatalogServiceID: &serviceID,
				Price:            &price,
			}, op.ID); err != nil {
				return false, err
			}
		}
		if note != "" {
			zero := decimal.Zero
			if _, err := order.AddDetail(workshop.NewDetailInput{
				Description: note,
				Category:    workshop.CategoryService,
				Price:       &zero,
			}, op.ID); err != nil {
				return false, err
			}
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.recordTransition(ctx, order, from, op)
	response := ToOrderResponse(order)
	return &response, nil
}

// ListCatalogServices returns the service price suggestions
func (s *OrderService) ListCatalogServices(ctx context.Context) ([]workshop.CatalogService, error) {
	if _, err := shared.RequireRole(ctx); err != nil {
		return nil, err
	}
	return retry.Get(ctx, s.retryPolicy, func() ([]workshop.CatalogService, error) {
		return s.catalog.ListServices(ctx)
	})
}

// LookupVehicle finds a vehicle and its owner by plate
func (s *OrderService) LookupVehicle(ctx context.Context, plate string) (*workshop.VehicleRecord, error) {
	if _, err := shared.RequireRole(ctx); err != nil {
		return nil, err
	}
	plate = NormalizePlate(plate)
	if plate == "" {
		return nil, shared.NewFieldValidationError("plate", "is required")
	}
	record, err := retry.Get(ctx, s.retryPolicy, func() (*workshop.VehicleRecord, error) {
		return s.directory.FindByPlate(ctx, plate)
	})
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.NewNotFoundError("vehicle")
		}
		return nil, err
	}
	return record, nil
}

// NormalizePlate uppercases a plate and drops separators
func NormalizePlate(plate string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.':
			return -1
		}
		return r
	}, strings.ToUpper(strings.TrimSpace(plate)))
}

func (s *OrderService) findCatalogService(ctx context.Context, id uuid.UUID) (*workshop.CatalogService, error) {
	service, err := retry.Get(ctx, s.retryPolicy, func() (*workshop.CatalogService, error) {
		return s.catalog.FindService(ctx, id)
	})
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.NewNotFoundError("catalog service").WithDetail("catalog_service_id", id.String())
		}
		return nil, err
	}
	return service, nil
}

func canQuote(op shared.Operator) bool {
	return op.Role == shared.RoleFrontdesk || op.Role == shared.RoleAdmin
}

// orderMutation changes a loaded order and reports whether it must be saved
type orderMutation func(repos TransactionalRepositories, order *workshop.Order) (bool, error)

func (s *OrderService) mutateOrder(ctx context.Context, orderID uuid.UUID, fn orderMutation) (*workshop.Order, error) {
	return s.mutate(ctx, func(repos TransactionalRepositories) (*workshop.Order, error) {
		return repos.OrderRepo().FindByID(ctx, orderID)
	}, fn)
}

func (s *OrderService) mutateOrderByDetail(ctx context.Context, detailID uuid.UUID, fn orderMutation) (*workshop.Order, error) {
	return s.mutate(ctx, func(repos TransactionalRepositories) (*workshop.Order, error) {
		return repos.OrderRepo().FindByDetailID(ctx, detailID)
	}, fn)
}

func (s *OrderService) mutate(ctx context.Context, load func(TransactionalRepositories) (*workshop.Order, error), fn orderMutation) (*workshop.Order, error) {
	var order *workshop.Order
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		order, err = load(repos)
		if err != nil {
			return err
		}
		changed, err := fn(repos, order)
		if err != nil || !changed {
			return err
		}
		return saveOrder(ctx, repos, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func saveOrder(ctx context.Context, repos TransactionalRepositories, order *workshop.Order) error {
	if err := repos.OrderRepo().SaveWithLock(ctx, order); err != nil {
		return err
	}
	return repos.Outbox().Append(ctx, order.PullDomainEvents()...)
}

func (s *OrderService) recordTransition(ctx context.Context, order *workshop.Order, from workshop.OrderStatus, op shared.Operator) {
	if order.Status == from {
		return
	}
	s.logger.Info("Order transitioned",
		zap.String("order_id", order.ID.String()),
		zap.String("folio", order.Folio),
		zap.String("from", string(from)),
		zap.String("to", string(order.Status)),
		zap.String("operator_id", op.ID.String()),
		zap.String("role", string(op.Role)),
	)
	if s.businessMetrics != nil {
		s.businessMetrics.RecordOrderTransition(ctx, string(from), string(order.Status))
	}
}
