package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	closingapp "github.com/workshop/backend/internal/application/closing"
	"github.com/workshop/backend/internal/domain/shared"
)

// ClosingService is the reconciliation surface used by ClosingHandler
type ClosingService interface {
	Today() shared.Date
	CloseDay(ctx context.Context, date shared.Date) (*closingapp.DailyClosingResponse, error)
	CloseMonth(ctx context.Context, ym shared.YearMonth, expectMutation bool) (*closingapp.MonthlyClosingResponse, error)
	GetDailyClosingStatus(ctx context.Context, date shared.Date) (*closingapp.DailyClosingResponse, error)
	GetMonthlyClosingStatus(ctx context.Context, ym shared.YearMonth) (*closingapp.MonthlyClosingResponse, error)
}

// ClosingHandler serves daily and monthly closings
type ClosingHandler struct {
	BaseHandler
	closings ClosingService
}

// NewClosingHandler creates a new ClosingHandler
func NewClosingHandler(closings ClosingService) *ClosingHandler {
	return &ClosingHandler{closings: closings}
}

// CloseDay godoc
// @ID           closeDay
// @Summary      Close a business day
// @Description  Attributes every unattributed payment of the date to an immutable daily closing. The date defaults to today.
// @Tags         closings
// @Accept       json
// @Produce      json
// @Param        request body closingapp.CloseDayRequest false "Business date"
// @Success      201 {object} APIResponse[closingapp.DailyClosingResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /closings/daily [post]
func (h *ClosingHandler) CloseDay(c *gin.Context) {
	var req closingapp.CloseDayRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}
	if req.Date.IsZero() {
		req.Date = h.closings.Today()
	}

	closing, err := h.closings.CloseDay(c.Request.Context(), req.Date)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, closing)
}

// GetDailyClosingStatus godoc
// @ID           getDailyClosingStatus
// @Summary      Daily closing status
// @Description  Returns the stored closing, or an open preview of the payments a close would attribute now
// @Tags         closings
// @Produce      json
// @Param        date path string true "Business date" format(date)
// @Success      200 {object} APIResponse[closingapp.DailyClosingResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /closings/daily/{date} [get]
func (h *ClosingHandler) GetDailyClosingStatus(c *gin.Context) {
	date, err := shared.ParseDate(c.Param("date"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	status, err := h.closings.GetDailyClosingStatus(c.Request.Context(), date)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, status)
}

// CloseMonth godoc
// @ID           closeMonth
// @Summary      Close a month
// @Description  Aggregates the closed days of the month once the cutoff day is reached and no earlier day is open.
// @Description  Closing a closed month returns it unless expect_mutation is set.
// @Tags         closings
// @Accept       json
// @Produce      json
// @Param        request body closingapp.CloseMonthRequest true "Month"
// @Success      201 {object} APIResponse[closingapp.MonthlyClosingResponse]
// @Success      200 {object} APIResponse[closingapp.MonthlyClosingResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /closings/monthly [post]
func (h *ClosingHandler) CloseMonth(c *gin.Context) {
	var req closingapp.CloseMonthRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if req.YearMonth.Year == 0 {
		h.HandleError(c, shared.NewFieldValidationError("year_month", "is required"))
		return
	}

	closing, err := h.closings.CloseMonth(c.Request.Context(), req.YearMonth, req.ExpectMutation)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if closing.AlreadyClosed {
		h.Success(c, closing)
		return
	}
	h.Created(c, closing)
}

// GetMonthlyClosingStatus godoc
// @ID           getMonthlyClosingStatus
// @Summary      Monthly closing status
// @Description  Returns the stored closing, or the cutoff eligibility and missing days of an open month
// @Tags         closings
// @Produce      json
// @Param        yearMonth path string true "Month as YYYY-MM"
// @Success      200 {object} APIResponse[closingapp.MonthlyClosingResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /closings/monthly/{yearMonth} [get]
func (h *ClosingHandler) GetMonthlyClosingStatus(c *gin.Context) {
	ym, err := shared.ParseYearMonth(c.Param("yearMonth"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	status, err := h.closings.GetMonthlyClosingStatus(c.Request.Context(), ym)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, status)
}
