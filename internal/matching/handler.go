package matching

import (
	"github.com/gin-gonic/gin"
	"github.com/rotafrete/freight-marketplace/pkg/common"
	"github.com/rotafrete/freight-marketplace/pkg/middleware"
)

// Handler handles HTTP requests for coverage matching
type Handler struct {
	service *Service
}

// NewHandler creates a new matching handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the matching endpoints. Only driver-equivalent roles
// may trigger matching, and only for themselves: the driver identity comes
// from the token, never from the request.
func (h *Handler) RegisterRoutes(router *gin.Engine, jwtSecret string) {
	group := router.Group("/api/v1/matching")
	group.Use(middleware.AuthMiddleware(jwtSecret))
	group.Use(middleware.RequireDriverEquivalent())
	{
		group.POST("/run", h.RunMatching)
		group.GET("", h.GetMatches)
	}
}

// RunMatching recomputes the caller's match set and returns it.
func (h *Handler) RunMatching(c *gin.Context) {
	driverID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, 401, "authorization required")
		return
	}

	result, err := h.service.RunMatchingForDriver(c.Request.Context(), driverID)
	if common.HandleServiceError(c, err, "matching temporarily unavailable, please retry") {
		return
	}

	common.SuccessResponse(c, result)
}

// GetMatches returns the caller's current matches without recomputing.
func (h *Handler) GetMatches(c *gin.Context) {
	driverID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, 401, "authorization required")
		return
	}

	result, err := h.service.FetchCurrentMatches(c.Request.Context(), driverID)
	if common.HandleServiceError(c, err, "matching temporarily unavailable, please retry") {
		return
	}

	common.SuccessResponse(c, result)
}
