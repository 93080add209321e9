package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/meditrack/reminder-service/internal/models"
)

const (
	reminderKeyPrefix   = "reminder:"
	medicationKeyPrefix = "medication:"
	settingsKeyPrefix   = "reminder_settings:"
)

type redisReminderStore struct {
	client *redis.Client
}

func NewRedisReminderStore(client *redis.Client) ReminderStore {
	return &redisReminderStore{client: client}
}

func (r *redisReminderStore) Insert(ctx context.Context, reminder *models.Reminder) error {
	data, err := json.Marshal(reminder)
	if err != nil {
		return err
	}
	key := reminderKeyPrefix + reminder.ID
	return r.client.Set(ctx, key, data, 0).Err()
}

func (r *redisReminderStore) Get(ctx context.Context, id string) (*models.Reminder, error) {
	data, err := r.client.Get(ctx, reminderKeyPrefix+id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, models.ErrReminderNotFound
		}
		return nil, err
	}

	var reminder models.Reminder
	if err := json.Unmarshal([]byte(data), &reminder); err != nil {
		return nil, err
	}
	return &reminder, nil
}

func (r *redisReminderStore) Update(ctx context.Context, reminder *models.Reminder) error {
	return r.Insert(ctx, reminder)
}

func (r *redisReminderStore) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, reminderKeyPrefix+id).Err()
}

func (r *redisReminderStore) List(ctx context.Context, userID string) ([]*models.Reminder, error) {
	keys, err := r.client.Keys(ctx, reminderKeyPrefix+"*").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get reminder keys: %w", err)
	}

	var reminders []*models.Reminder
	for _, key := range keys {
		data, err := r.client.Get(ctx, key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("failed to get reminder %s: %w", key, err)
		}

		var reminder models.Reminder
		if err := json.Unmarshal([]byte(data), &reminder); err != nil {
			continue
		}
		if reminder.UserID == userID {
			reminders = append(reminders, &reminder)
		}
	}

	return reminders, nil
}

type redisMedicationStore struct {
	client *redis.Client
}

func NewRedisMedicationStore(client *redis.Client) MedicationStore {
	return &redisMedicationStore{client: client}
}

func (m *redisMedicationStore) Insert(ctx context.Context, medication *models.Medication) error {
	data, err := json.Marshal(medication)
	if err != nil {
		return err
	}
	return m.client.Set(ctx, medicationKeyPrefix+medication.ID, data, 0).Err()
}

func (m *redisMedicationStore) Get(ctx context.Context, id string) (*models.Medication, error) {
	data, err := m.client.Get(ctx, medicationKeyPrefix+id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, models.ErrMedicationNotFound
		}
		return nil, err
	}

	var medication models.Medication
	if err := json.Unmarshal([]byte(data), &medication); err != nil {
		return nil, err
	}
	return &medication, nil
}

func (m *redisMedicationStore) Delete(ctx context.Context, id string) error {
	return m.client.Del(ctx, medicationKeyPrefix+id).Err()
}

func (m *redisMedicationStore) List(ctx context.Context, userID string) ([]*models.Medication, error) {
	keys, err := m.client.Keys(ctx, medicationKeyPrefix+"*").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get medication keys: %w", err)
	}

	var medications []*models.Medication
	for _, key := range keys {
		data, err := m.client.Get(ctx, key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("failed to get medication %s: %w", key, err)
		}

		var medication models.Medication
		if err := json.Unmarshal([]byte(data), &medication); err != nil {
			continue
		}
		if medication.UserID == userID {
			medications = append(medications, &medication)
		}
	}

	return medications, nil
}

type redisSettingsStore struct {
	client *redis.Client
}

func NewRedisSettingsStore(client *redis.Client) SettingsStore {
	return &redisSettingsStore{client: client}
}

func (s *redisSettingsStore) Get(ctx context.Context, userID string) (*models.ReminderSettings, error) {
	data, err := s.client.Get(ctx, settingsKeyPrefix+userID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// First access, persist the defaults.
			settings := models.DefaultReminderSettings(userID)
			if err := s.Upsert(ctx, settings); err != nil {
				return nil, err
			}
			return settings, nil
		}
		return nil, err
	}

	var settings models.ReminderSettings
	if err := json.Unmarshal([]byte(data), &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

func (s *redisSettingsStore) Upsert(ctx context.Context, settings *models.ReminderSettings) error {
	settings.UpdatedAt = time.Now()
	data, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, settingsKeyPrefix+settings.UserID, data, 0).Err()
}
