package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	billingapp "github.com/workshop/backend/internal/application/billing"
	"github.com/workshop/backend/internal/domain/shared"
	"github.com/workshop/backend/internal/interfaces/http/dto"
	"github.com/workshop/backend/internal/interfaces/http/middleware"
)

// ReplayedHeader marks a response served from a stored idempotent payment
const ReplayedHeader = "Idempotent-Replayed"

// PaymentService is the billing surface used by PaymentHandler
type PaymentService interface {
	RecordPayment(ctx context.Context, orderID uuid.UUID, req billingapp.RecordPaymentRequest, idempotencyKey string) (*billingapp.PaymentResponse, error)
	GetPayment(ctx context.Context, orderID uuid.UUID) (*billingapp.PaymentResponse, error)
	ListPayments(ctx context.Context, date shared.Date) ([]billingapp.PaymentResponse, error)
}

// PaymentHandler serves order payments
type PaymentHandler struct {
	BaseHandler
	payments PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(payments PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// RecordPayment godoc
// @ID           recordOrderPayment
// @Summary      Record the payment of a finished order
// @Description  Stores the single payment and delivers the order. A deviating amount is accepted and audited.
// @Description  Retries carrying the same Idempotency-Key return the stored payment with status 200.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        Idempotency-Key header string false "Client retry key"
// @Param        request body billingapp.RecordPaymentRequest true "Payment"
// @Success      201 {object} APIResponse[billingapp.PaymentResponse]
// @Success      200 {object} APIResponse[billingapp.PaymentResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/payment [post]
func (h *PaymentHandler) RecordPayment(c *gin.Context) {
	orderID, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req billingapp.RecordPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	key := c.GetHeader(middleware.IdempotencyKeyHeader)
	if len(key) > 255 {
		h.ValidationError(c, []dto.ValidationDetail{{Field: "Idempotency-Key", Message: "must be at most 255 characters"}})
		return
	}

	payment, err := h.payments.RecordPayment(c.Request.Context(), orderID, req, key)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if payment.Replayed {
		c.Header(ReplayedHeader, "true")
		h.Success(c, payment)
		return
	}
	h.Created(c, payment)
}

// GetPayment godoc
// @ID           getOrderPayment
// @Summary      Get the payment of an order
// @Tags         payments
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[billingapp.PaymentResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/payment [get]
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	orderID, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	payment, err := h.payments.GetPayment(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payment)
}

// ListPayments godoc
// @ID           listPayments
// @Summary      List the payments of a business date
// @Description  Each payment carries the daily closing it was attributed to, if any
// @Tags         payments
// @Produce      json
// @Param        date query string true "Business date" format(date)
// @Success      200 {object} APIResponse[[]billingapp.PaymentResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /payments [get]
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	date, err := shared.ParseDate(c.Query("date"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	payments, err := h.payments.ListPayments(c.Request.Context(), date)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payments)
}
