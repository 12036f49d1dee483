package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/workshop/backend/internal/domain/workshop"
)

// DirectoryService resolves catalog suggestions and vehicles at the counter
type DirectoryService interface {
	ListCatalogServices(ctx context.Context) ([]workshop.CatalogService, error)
	LookupVehicle(ctx context.Context, plate string) (*workshop.VehicleRecord, error)
}

// DirectoryHandler serves the catalog and vehicle lookups
type DirectoryHandler struct {
	BaseHandler
	directory DirectoryService
}

// NewDirectoryHandler creates a new DirectoryHandler
func NewDirectoryHandler(directory DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{directory: directory}
}

// ListCatalogServices godoc
// @ID           listCatalogServices
// @Summary      List catalog services
// @Description  Priced service suggestions, favorites first
// @Tags         catalog
// @Produce      json
// @Success      200 {object} APIResponse[[]workshop.CatalogService]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /catalog/services [get]
func (h *DirectoryHandler) ListCatalogServices(c *gin.Context) {
	services, err := h.directory.ListCatalogServices(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, services)
}

// LookupVehicle godoc
// @ID           lookupVehicle
// @Summary      Find a vehicle by plate
// @Description  Plates are matched without separators and case
// @Tags         vehicles
// @Produce      json
// @Param        plate query string true "License plate"
// @Success      200 {object} APIResponse[workshop.VehicleRecord]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /vehicles/lookup [get]
func (h *DirectoryHandler) LookupVehicle(c *gin.Context) {
	record, err := h.directory.LookupVehicle(c.Request.Context(), c.Query("plate"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, record)
}
