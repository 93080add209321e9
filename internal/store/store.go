package store

import (
	"context"

	"github.com/meditrack/reminder-service/internal/models"
)

type ReminderStore interface {
	List(ctx context.Context, userID string) ([]*models.Reminder, error)
	Get(ctx context.Context, id string) (*models.Reminder, error)
	Insert(ctx context.Context, reminder *models.Reminder) error
	Update(ctx context.Context, reminder *models.Reminder) error
	Delete(ctx context.Context, id string) error
}

type SettingsStore interface {
	// Get returns the user's settings, creating the defaults on first access.
	Get(ctx context.Context, userID string) (*models.ReminderSettings, error)
	Upsert(ctx context.Context, settings *models.ReminderSettings) error
}

type MedicationStore interface {
	List(ctx context.Context, userID string) ([]*models.Medication, error)
	Get(ctx context.Context, id string) (*models.Medication, error)
	Insert(ctx context.Context, medication *models.Medication) error
	Delete(ctx context.Context, id string) error
}
