package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meditrack/reminder-service/internal/models"
	"github.com/meditrack/reminder-service/internal/store"
)

type MedicationHandler struct {
	medications store.MedicationStore
	log         *zap.Logger
}

func NewMedicationHandler(medications store.MedicationStore, log *zap.Logger) *MedicationHandler {
	return &MedicationHandler{medications: medications, log: log}
}

func (h *MedicationHandler) ListMedications(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	medications, err := h.medications.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Failed to load medications")
		return
	}
	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Message: "Medications loaded",
		Data:    medications,
	})
}

func (h *MedicationHandler) CreateMedication(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.CreateMedicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.APIResponse{
			Success: false,
			Error:   err.Error(),
			Message: "Invalid Request Body",
		})
		return
	}

	now := time.Now()
	medication := &models.Medication{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      req.Name,
		Dosage:    req.Dosage,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.medications.Insert(c.Request.Context(), medication); err != nil {
		h.log.Error("failed to insert medication", zap.Error(err))
		respondError(c, err, "Failed to create medication")
		return
	}
	c.JSON(http.StatusCreated, models.APIResponse{
		Success: true,
		Message: "Medication created",
		Data:    medication,
	})
}

func (h *MedicationHandler) DeleteMedication(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	medication, err := h.medications.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Medication not found")
		return
	}
	if medication.UserID != userID {
		respondError(c, models.ErrMedicationNotFound, "Medication not found")
		return
	}
	if err := h.medications.Delete(c.Request.Context(), medication.ID); err != nil {
		respondError(c, err, "Failed to delete medication")
		return
	}
	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Message: "Medication deleted",
	})
}
