package coverage

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rotafrete/freight-marketplace/pkg/common"
	"github.com/rotafrete/freight-marketplace/pkg/middleware"
)

// Handler handles HTTP requests for coverage areas
type Handler struct {
	service *Service
}

// NewHandler creates a new coverage handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the coverage-area endpoints for driver-equivalent roles.
func (h *Handler) RegisterRoutes(router *gin.Engine, jwtSecret string) {
	group := router.Group("/api/v1/coverage-areas")
	group.Use(middleware.AuthMiddleware(jwtSecret))
	group.Use(middleware.RequireDriverEquivalent())
	{
		group.POST("", h.CreateArea)
		group.GET("", h.ListAreas)
		group.PATCH("/:id", h.UpdateArea)
		group.DELETE("/:id", h.DeleteArea)
	}
}

// CreateArea declares a new coverage area for the caller.
func (h *Handler) CreateArea(c *gin.Context) {
	driverID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "authorization required")
		return
	}

	var req CreateAreaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	area, err := h.service.CreateArea(c.Request.Context(), driverID, req)
	if common.HandleServiceError(c, err, "failed to create coverage area") {
		return
	}

	common.CreatedResponse(c, area)
}

// ListAreas returns all of the caller's coverage areas.
func (h *Handler) ListAreas(c *gin.Context) {
	driverID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "authorization required")
		return
	}

	areas, err := h.service.ListAreas(c.Request.Context(), driverID)
	if common.HandleServiceError(c, err, "failed to list coverage areas") {
		return
	}

	common.SuccessResponse(c, gin.H{"coverage_areas": areas})
}

// UpdateArea adjusts radius or active flag on one of the caller's areas.
func (h *Handler) UpdateArea(c *gin.Context) {
	driverID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "authorization required")
		return
	}

	areaID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateAreaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	area, err := h.service.UpdateArea(c.Request.Context(), areaID, driverID, req)
	if common.HandleServiceError(c, err, "failed to update coverage area") {
		return
	}

	common.SuccessResponse(c, area)
}

// DeleteArea removes one of the caller's areas.
func (h *Handler) DeleteArea(c *gin.Context) {
	driverID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "authorization required")
		return
	}

	areaID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	err = h.service.DeleteArea(c.Request.Context(), areaID, driverID)
	if common.HandleServiceError(c, err, "failed to delete coverage area") {
		return
	}

	common.SuccessResponse(c, gin.H{"message": "coverage area deleted"})
}
