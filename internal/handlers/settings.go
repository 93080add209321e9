package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/meditrack/reminder-service/internal/models"
)

// GuardianTester confirms the guardian number with a test message.
type GuardianTester interface {
	SendTest(ctx context.Context, to string) error
}

type SettingsHandler struct {
	coordinator ReminderCoordinator
	gateway     GuardianTester
	log         *zap.Logger
}

func NewSettingsHandler(coordinator ReminderCoordinator, gateway GuardianTester, log *zap.Logger) *SettingsHandler {
	return &SettingsHandler{coordinator: coordinator, gateway: gateway, log: log}
}

func (h *SettingsHandler) GetSettings(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	settings, err := h.coordinator.GetSettings(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Failed to load settings")
		return
	}
	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Message: "Settings loaded",
		Data:    settings,
	})
}

func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.APIResponse{
			Success: false,
			Error:   err.Error(),
			Message: "Invalid Request Body",
		})
		return
	}

	settings, err := h.coordinator.UpdateSettings(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err, "Failed to update settings")
		return
	}
	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Message: "Settings updated",
		Data:    settings,
	})
}

// TestGuardian sends the greeting message to the configured guardian phone.
func (h *SettingsHandler) TestGuardian(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	settings, err := h.coordinator.GetSettings(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Failed to load settings")
		return
	}
	if settings.GuardianPhone == "" {
		c.JSON(http.StatusBadRequest, models.APIResponse{
			Success: false,
			Error:   "no guardian phone configured",
			Message: "Guardian phone required",
		})
		return
	}

	if err := h.gateway.SendTest(c.Request.Context(), settings.GuardianPhone); err != nil {
		h.log.Error("guardian test message failed", zap.Error(err))
		respondError(c, err, "Failed to send test message")
		return
	}
	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Message: "Test message sent",
	})
}
