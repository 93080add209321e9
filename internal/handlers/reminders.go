package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/meditrack/reminder-service/internal/models"
)

// ReminderCoordinator is the write path the handlers delegate to.
type ReminderCoordinator interface {
	List(ctx context.Context, userID string) ([]*models.Reminder, error)
	Get(ctx context.Context, userID, id string) (*models.Reminder, error)
	Add(ctx context.Context, userID string, req *models.CreateReminderRequest) (*models.Reminder, error)
	Update(ctx context.Context, userID, id string, req *models.UpdateReminderRequest) (*models.Reminder, error)
	Delete(ctx context.Context, userID, id string) error
	Verify(ctx context.Context, userID, id string, image []byte) (*models.Reminder, error)
	GetSettings(ctx context.Context, userID string) (*models.ReminderSettings, error)
	UpdateSettings(ctx context.Context, userID string, req *models.UpdateSettingsRequest) (*models.ReminderSettings, error)
}

type ReminderHandler struct {
	coordinator ReminderCoordinator
	log         *zap.Logger
}

func NewReminderHandler(coordinator ReminderCoordinator, log *zap.Logger) *ReminderHandler {
	return &ReminderHandler{coordinator: coordinator, log: log}
}

// currentUser pulls the authenticated user id set by the auth middleware.
// Requests without a session are fatal to the endpoint.
func currentUser(c *gin.Context) (string, bool) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, models.APIResponse{
			Success: false,
			Error:   "User not authenticated",
			Message: "Unauthorized",
		})
		return "", false
	}
	return userID, true
}

func isValidationErr(err error) bool {
	return errors.Is(err, models.ErrInvalidTime) ||
		errors.Is(err, models.ErrInvalidDays) ||
		errors.Is(err, models.ErrMissingMedicine) ||
		errors.Is(err, models.ErrInvalidTimeout)
}

func respondError(c *gin.Context, err error, message string) {
	status := http.StatusInternalServerError
	switch {
	case isValidationErr(err):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrReminderNotFound),
		errors.Is(err, models.ErrMedicationNotFound),
		errors.Is(err, models.ErrSettingsNotFound):
		status = http.StatusNotFound
	}
	c.JSON(status, models.APIResponse{
		Success: false,
		Error:   err.Error(),
		Message: message,
	})
}

func (h *ReminderHandler) ListReminders(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	reminders, err := h.coordinator.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Failed to load reminders")
		return
	}
	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Message: "Reminders loaded",
		Data:    reminders,
	})
}

func (h *ReminderHandler) GetReminder(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	reminder, err := h.coordinator.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Reminder not found")
		return
	}
	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Message: "Reminder loaded",
		Data:    reminder,
	})
}

func (h *ReminderHandler) CreateReminder(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.CreateReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.APIResponse{
			Success: false,
			Error:   err.Error(),
			Message: "Invalid Request Body",
		})
		return
	}

	reminder, err := h.coordinator.Add(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err, "Failed to create reminder")
		return
	}
	c.JSON(http.StatusCreated, models.APIResponse{
		Success: true,
		Message: "Reminder created",
		Data:    reminder,
	})
}

func (h *ReminderHandler) UpdateReminder(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.UpdateReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.APIResponse{
			Success: false,
			Error:   err.Error(),
			Message: "Invalid Request Body",
		})
		return
	}

	reminder, err := h.coordinator.Update(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		respondError(c, err, "Failed to update reminder")
		return
	}
	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Message: "Reminder updated",
		Data:    reminder,
	})
}

func (h *ReminderHandler) DeleteReminder(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.coordinator.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err, "Failed to delete reminder")
		return
	}
	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Message: "Reminder deleted",
	})
}

// VerifyReminder accepts the proof photo as multipart form field "image".
func (h *ReminderHandler) VerifyReminder(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.APIResponse{
			Success: false,
			Error:   "verification image is required",
			Message: "Invalid Request Body",
		})
		return
	}
	src, err := file.Open()
	if err != nil {
		respondError(c, err, "Failed to read verification image")
		return
	}
	defer src.Close()
	image, err := io.ReadAll(src)
	if err != nil {
		respondError(c, err, "Failed to read verification image")
		return
	}

	reminder, err := h.coordinator.Verify(c.Request.Context(), userID, c.Param("id"), image)
	if err != nil {
		respondError(c, err, "Failed to verify medication")
		return
	}
	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Message: "Medication verified",
		Data:    reminder,
	})
}
