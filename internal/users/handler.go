package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"aerowatch/dashboard-portal/settings-backend/internal/auth"
	"aerowatch/dashboard-portal/settings-backend/internal/settings"
	"aerowatch/dashboard-portal/settings-backend/pkg/api"
)

// Handler handles HTTP requests for account operations
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new users handler
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers account routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	user := router.Group("/user")
	{
		user.PUT("/profile", h.updateProfile)
		user.POST("/avatar", h.uploadAvatar)
		user.POST("/password", h.changePassword)
		user.GET("/export", h.exportData)
		user.DELETE("/delete", h.deleteAccount)
	}
}

// updateProfile handles PUT /api/v1/user/profile
func (h *Handler) updateProfile(c *gin.Context) {
	var req ProfileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.Fail("invalid profile payload"))
		return
	}

	userID := auth.Subject(c)
	if err := h.service.UpdateProfile(c.Request.Context(), userID, &req); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, api.Fail("user not found"))
			return
		}
		h.logger.Error("Failed to update profile", zap.Error(err), zap.String("user_id", userID.String()))
		c.JSON(http.StatusInternalServerError, api.Fail("failed to update profile"))
		return
	}

	c.JSON(http.StatusOK, api.OK(nil))
}

// uploadAvatar handles POST /api/v1/user/avatar
func (h *Handler) uploadAvatar(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, api.Fail("file is required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, api.Fail("unable to read uploaded file"))
		return
	}
	defer file.Close()

	userID := auth.Subject(c)
	url, err := h.service.UploadAvatar(c.Request.Context(), userID,
		fileHeader.Filename, fileHeader.Header.Get("Content-Type"), file)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, api.Fail("user not found"))
			return
		}
		h.logger.Error("Failed to upload avatar", zap.Error(err), zap.String("user_id", userID.String()))
		c.JSON(http.StatusInternalServerError, api.Fail("failed to upload avatar"))
		return
	}

	c.JSON(http.StatusOK, api.OK(gin.H{"url": url}))
}

// changePassword handles POST /api/v1/user/password
func (h *Handler) changePassword(c *gin.Context) {
	var req PasswordChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.Fail("invalid password payload"))
		return
	}

	userID := auth.Subject(c)
	if err := h.service.ChangePassword(c.Request.Context(), userID, &req); err != nil {
		var verr *settings.ValidationError
		switch {
		case errors.As(err, &verr):
			c.JSON(http.StatusUnprocessableEntity, api.Invalid(verr.Violations))
		case errors.Is(err, ErrWrongPassword):
			c.JSON(http.StatusBadRequest, api.Fail("current password is incorrect"))
		case errors.Is(err, ErrNotFound):
			c.JSON(http.StatusNotFound, api.Fail("user not found"))
		default:
			h.logger.Error("Failed to change password", zap.Error(err), zap.String("user_id", userID.String()))
			c.JSON(http.StatusInternalServerError, api.Fail("failed to change password"))
		}
		return
	}

	c.JSON(http.StatusOK, api.OK(nil))
}

// exportData handles GET /api/v1/user/export. The response is the raw
// aggregate, not an envelope.
func (h *Handler) exportData(c *gin.Context) {
	raw := c.Query("userId")
	if raw == "" {
		c.JSON(http.StatusBadRequest, api.Fail("userId query parameter is required"))
		return
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.Fail("invalid userId"))
		return
	}

	bundle, err := h.service.Export(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, api.Fail("user not found"))
			return
		}
		h.logger.Error("Failed to export user data", zap.Error(err), zap.String("user_id", userID.String()))
		c.JSON(http.StatusInternalServerError, api.Fail("failed to export user data"))
		return
	}

	c.Header("Content-Disposition", "attachment; filename=aerowatch-export.json")
	c.JSON(http.StatusOK, bundle)
}

// deleteAccount handles DELETE /api/v1/user/delete
func (h *Handler) deleteAccount(c *gin.Context) {
	raw := c.Query("userId")
	if raw == "" {
		c.JSON(http.StatusBadRequest, api.Fail("userId query parameter is required"))
		return
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.Fail("invalid userId"))
		return
	}

	if err := h.service.DeleteAccount(c.Request.Context(), userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, api.Fail("user not found"))
			return
		}
		h.logger.Error("Failed to delete account", zap.Error(err), zap.String("user_id", userID.String()))
		c.JSON(http.StatusInternalServerError, api.Fail("failed to delete account"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "account deleted"})
}
