package router

import (
	"github.com/workshop/backend/internal/domain/shared"
	"github.com/workshop/backend/internal/interfaces/http/handler"
	"github.com/workshop/backend/internal/interfaces/http/middleware"
)

// Handlers groups the HTTP handlers served by the API. Nil handlers leave
// their routes unregistered.
type Handlers struct {
	Orders    *handler.OrderHandler
	Payments  *handler.PaymentHandler
	Closings  *handler.ClosingHandler
	Directory *handler.DirectoryHandler
	Outbox    *handler.OutboxHandler
	System    *handler.SystemHandler
}

// APIGroups returns the route groups mounted under /api/v1
func APIGroups(h Handlers) []*DomainGroup {
	var groups []*DomainGroup

	if h.Orders != nil {
		orders := NewDomainGroup("orders", "/orders")
		orders.POST("", h.Orders.CreateOrder).
			GET("", h.Orders.ListOrders).
			GET("/:id", h.Orders.GetOrder).
			POST("/:id/inspection", h.Orders.RecordInspection).
			GET("/:id/inspection", h.Orders.GetInspection).
			POST("/:id/transition", h.Orders.TransitionOrder).
			PUT("/:id/mechanic", h.Orders.AssignMechanic).
			POST("/:id/diagnosis", h.Orders.RecordDiagnosis).
			POST("/:id/details", h.Orders.AddOrderDetail)
		if h.Payments != nil {
			orders.POST("/:id/payment", h.Payments.RecordPayment).
				GET("/:id/payment", h.Payments.GetPayment)
		}
		groups = append(groups, orders)

		details := NewDomainGroup("order-details", "/order-details")
		details.PUT("/:id/price", h.Orders.SetOrderDetailPrice).
			POST("/:id/transition", h.Orders.TransitionOrderDetail)
		groups = append(groups, details)
	}

	if h.Payments != nil {
		payments := NewDomainGroup("payments", "/payments")
		payments.GET("", h.Payments.ListPayments)
		groups = append(groups, payments)
	}

	if h.Closings != nil {
		closings := NewDomainGroup("closings", "/closings")
		closings.POST("/daily", h.Closings.CloseDay).
			GET("/daily/:date", h.Closings.GetDailyClosingStatus).
			POST("/monthly", h.Closings.CloseMonth).
			GET("/monthly/:yearMonth", h.Closings.GetMonthlyClosingStatus)
		groups = append(groups, closings)
	}

	if h.Directory != nil {
		catalog := NewDomainGroup("catalog", "/catalog")
		catalog.GET("/services", h.Directory.ListCatalogServices)
		vehicles := NewDomainGroup("vehicles", "/vehicles")
		vehicles.GET("/lookup", h.Directory.LookupVehicle)
		groups = append(groups, catalog, vehicles)
	}

	admin := NewDomainGroup("admin", "/admin").Use(middleware.RequireRoles(shared.RoleAdmin))
	if h.Outbox != nil {
		admin.Group("outbox", "/outbox").
			GET("/stats", h.Outbox.GetStats).
			GET("/dead", h.Outbox.GetDeadLetterEntries).
			POST("/dead/retry-all", h.Outbox.RetryAllDeadEntries).
			POST("/dead/:id/retry", h.Outbox.RetryDeadEntry)
	}
	if h.System != nil {
		admin.GET("/system/info", h.System.GetSystemInfo)
	}
	groups = append(groups, admin)

	return groups
}
