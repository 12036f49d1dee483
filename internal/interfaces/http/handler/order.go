package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	workshopapp "github.com/workshop/backend/internal/application/workshop"
	"github.com/workshop/backend/internal/interfaces/http/dto"
)

// OrderService is the order lifecycle used by OrderHandler
type OrderService interface {
	CreateOrder(ctx context.Context, req workshopapp.CreateOrderRequest) (*workshopapp.OrderResponse, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*workshopapp.OrderResponse, error)
	ListOrders(ctx context.Context, filter workshopapp.OrderListFilter) ([]workshopapp.OrderListItemResponse, int64, error)
	TransitionOrder(ctx context.Context, orderID uuid.UUID, req workshopapp.TransitionOrderRequest) (*workshopapp.OrderResponse, error)
	AssignMechanic(ctx context.Context, orderID uuid.UUID, req workshopapp.AssignMechanicRequest) (*workshopapp.OrderResponse, error)
	AddOrderDetail(ctx context.Context, orderID uuid.UUID, req workshopapp.AddOrderDetailRequest) (*workshopapp.OrderDetailResponse, error)
	SetOrderDetailPrice(ctx context.Context, detailID uuid.UUID, req workshopapp.SetDetailPriceRequest) (*workshopapp.OrderDetailResponse, error)
	TransitionOrderDetail(ctx context.Context, detailID uuid.UUID, req workshopapp.TransitionDetailRequest) (*workshopapp.OrderDetailResponse, error)
	RecordDiagnosis(ctx context.Context, orderID uuid.UUID, req workshopapp.RecordDiagnosisRequest) (*workshopapp.OrderResponse, error)
}

// InspectionService records and reads intake inspections
type InspectionService interface {
	RecordInspection(ctx context.Context, orderID uuid.UUID, req workshopapp.RecordInspectionRequest) (*workshopapp.InspectionResponse, error)
	GetInspection(ctx context.Context, orderID uuid.UUID) (*workshopapp.InspectionResponse, error)
}

// OrderHandler serves orders, their work lines and the intake inspection
type OrderHandler struct {
	BaseHandler
	orders      OrderService
	inspections InspectionService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders OrderService, inspections InspectionService) *OrderHandler {
	return &OrderHandler{
		orders:      orders,
		inspections: inspections,
	}
}

// ListOrdersQuery is the Kanban board query string
type ListOrdersQuery struct {
	dto.ListRequest
	Status     string `form:"status" binding:"omitempty,oneof=intake received diagnosis repair finished delivered"`
	MechanicID string `form:"mechanic_id" binding:"omitempty,uuid"`
	CustomerID string `form:"customer_id" binding:"omitempty,uuid"`
	Search     string `form:"search" binding:"max=100"`
	OrderBy    string `form:"order_by" binding:"omitempty,oneof=created_at updated_at folio status"`
	OrderDir   string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

func (q ListOrdersQuery) filter() workshopapp.OrderListFilter {
	filter := workshopapp.OrderListFilter{
		Status:   q.Status,
		Search:   q.Search,
		Page:     q.Page,
		PageSize: q.PageSize,
		OrderBy:  q.OrderBy,
		OrderDir: q.OrderDir,
	}
	if id, err := uuid.Parse(q.MechanicID); err == nil {
		filter.MechanicID = &id
	}
	if id, err := uuid.Parse(q.CustomerID); err == nil {
		filter.CustomerID = &id
	}
	return filter
}

// CreateOrder godoc
// @ID           createOrder
// @Summary      Open a service order
// @Description  Creates an order in the intake stage with the next folio. The vehicle must belong to the customer.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        request body workshopapp.CreateOrderRequest true "Order"
// @Success      201 {object} APIResponse[workshopapp.OrderResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req workshopapp.CreateOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, order)
}

// ListOrders godoc
// @ID           listOrders
// @Summary      List orders
// @Description  Kanban board cards filtered by stage, mechanic, customer or folio/plate search
// @Tags         orders
// @Produce      json
// @Param        status query string false "Stage" Enums(intake, received, diagnosis, repair, finished, delivered)
// @Param        mechanic_id query string false "Mechanic ID" format(uuid)
// @Param        customer_id query string false "Customer ID" format(uuid)
// @Param        search query string false "Folio or plate"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Success      200 {object} PagedResponse[workshopapp.OrderListItemResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	var query ListOrdersQuery
	if !h.BindQuery(c, &query) {
		return
	}
	query.Normalize()

	items, total, err := h.orders.ListOrders(c.Request.Context(), query.filter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, items, total, query.Page, query.PageSize)
}

// GetOrder godoc
// @ID           getOrder
// @Summary      Get an order
// @Description  Returns the order with its work lines and billable total
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[workshopapp.OrderResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// TransitionOrder godoc
// @ID           transitionOrder
// @Summary      Move an order to another stage
// @Description  Applies the stage graph and its gates. Delivery only happens through a payment.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body workshopapp.TransitionOrderRequest true "Target stage"
// @Success      200 {object} APIResponse[workshopapp.OrderResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/transition [post]
func (h *OrderHandler) TransitionOrder(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req workshopapp.TransitionOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.orders.TransitionOrder(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// AssignMechanic godoc
// @ID           assignOrderMechanic
// @Summary      Assign the responsible mechanic
// @Description  Sets or clears the mechanic of an order that is not finished yet
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body workshopapp.AssignMechanicRequest true "Mechanic"
// @Success      200 {object} APIResponse[workshopapp.OrderResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/mechanic [put]
func (h *OrderHandler) AssignMechanic(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req workshopapp.AssignMechanicRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.orders.AssignMechanic(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// RecordDiagnosis godoc
// @ID           recordOrderDiagnosis
// @Summary      Record the diagnosis
// @Description  Adds one quoted work line per catalog service plus an optional note line. A received order moves to diagnosis.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body workshopapp.RecordDiagnosisRequest true "Diagnosis"
// @Success      200 {object} APIResponse[workshopapp.OrderResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/diagnosis [post]
func (h *OrderHandler) RecordDiagnosis(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req workshopapp.RecordDiagnosisRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.orders.RecordDiagnosis(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// AddOrderDetail godoc
// @ID           addOrderDetail
// @Summary      Add a work line
// @Description  Adds a service or part line in the pending state
// @Tags         order-details
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body workshopapp.AddOrderDetailRequest true "Work line"
// @Success      201 {object} APIResponse[workshopapp.OrderDetailResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/details [post]
func (h *OrderHandler) AddOrderDetail(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req workshopapp.AddOrderDetailRequest
	if !h.BindJSON(c, &req) {
		return
	}

	detail, err := h.orders.AddOrderDetail(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, detail)
}

// SetOrderDetailPrice godoc
// @ID           setOrderDetailPrice
// @Summary      Quote a work line
// @Description  Customer supplied parts cannot be priced
// @Tags         order-details
// @Accept       json
// @Produce      json
// @Param        id path string true "Order detail ID" format(uuid)
// @Param        request body workshopapp.SetDetailPriceRequest true "Price"
// @Success      200 {object} APIResponse[workshopapp.OrderDetailResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /order-details/{id}/price [put]
func (h *OrderHandler) SetOrderDetailPrice(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req workshopapp.SetDetailPriceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	detail, err := h.orders.SetOrderDetailPrice(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, detail)
}

// TransitionOrderDetail godoc
// @ID           transitionOrderDetail
// @Summary      Move a work line along its graph
// @Description  Starting the first line of a diagnosed order moves it to repair; completing the last one finishes it.
// @Tags         order-details
// @Accept       json
// @Produce      json
// @Param        id path string true "Order detail ID" format(uuid)
// @Param        request body workshopapp.TransitionDetailRequest true "Target state"
// @Success      200 {object} APIResponse[workshopapp.OrderDetailResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /order-details/{id}/transition [post]
func (h *OrderHandler) TransitionOrderDetail(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req workshopapp.TransitionDetailRequest
	if !h.BindJSON(c, &req) {
		return
	}

	detail, err := h.orders.TransitionOrderDetail(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, detail)
}

// RecordInspection godoc
// @ID           recordOrderInspection
// @Summary      Record the intake inspection
// @Description  Stores the checklist once per order. Every item must be answered.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body workshopapp.RecordInspectionRequest true "Checklist"
// @Success      201 {object} APIResponse[workshopapp.InspectionResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/inspection [post]
func (h *OrderHandler) RecordInspection(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req workshopapp.RecordInspectionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	inspection, err := h.inspections.RecordInspection(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, inspection)
}

// GetInspection godoc
// @ID           getOrderInspection
// @Summary      Get the intake inspection
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[workshopapp.InspectionResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/inspection [get]
func (h *OrderHandler) GetInspection(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	inspection, err := h.inspections.GetInspection(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inspection)
}
