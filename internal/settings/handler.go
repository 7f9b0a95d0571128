package settings

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"aerowatch/dashboard-portal/settings-backend/internal/auth"
	"aerowatch/dashboard-portal/settings-backend/pkg/api"
)

// Handler handles HTTP requests for the settings aggregate
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new settings handler
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers settings routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	settings := router.Group("/settings")
	{
		settings.GET("", h.getSettings)
		settings.PUT("", h.updateSettings)
		settings.POST("/initialize", h.initialize)
	}
}

// getSettings handles GET /api/v1/settings
func (h *Handler) getSettings(c *gin.Context) {
	userID := auth.Subject(c)

	agg, err := h.service.GetSettings(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, api.Fail("settings not found"))
			return
		}
		h.logger.Error("Failed to get settings", zap.Error(err), zap.String("user_id", userID.String()))
		c.JSON(http.StatusInternalServerError, api.Fail("failed to load settings"))
		return
	}

	c.JSON(http.StatusOK, api.OK(agg))
}

// updateSettings handles PUT /api/v1/settings
func (h *Handler) updateSettings(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.Fail("request must name a section type and carry a data patch"))
		return
	}
	if _, err := ParseSection(req.Type); err != nil {
		c.JSON(http.StatusBadRequest, api.Fail(err.Error()))
		return
	}

	userID := auth.Subject(c)

	agg, err := h.service.UpdateSection(c.Request.Context(), userID, &req)
	if err != nil {
		var verr *ValidationError
		switch {
		case errors.As(err, &verr):
			c.JSON(http.StatusUnprocessableEntity, api.Invalid(verr.Violations))
		case errors.Is(err, ErrNotFound):
			c.JSON(http.StatusNotFound, api.Fail("settings not found"))
		default:
			h.logger.Error("Failed to update settings",
				zap.Error(err),
				zap.String("user_id", userID.String()),
				zap.String("section", req.Type),
			)
			c.JSON(http.StatusInternalServerError, api.Fail("failed to update settings"))
		}
		return
	}

	c.JSON(http.StatusOK, api.OK(agg))
}

// initialize handles POST /api/v1/settings/initialize
func (h *Handler) initialize(c *gin.Context) {
	userID := auth.Subject(c)

	if err := h.service.Initialize(c.Request.Context(), userID); err != nil {
		h.logger.Error("Failed to initialize settings", zap.Error(err), zap.String("user_id", userID.String()))
		c.JSON(http.StatusInternalServerError, api.Fail("failed to initialize settings"))
		return
	}

	c.JSON(http.StatusCreated, api.OK(gin.H{"initialized": true}))
}
