package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meditrack/reminder-service/internal/models"
	"github.com/meditrack/reminder-service/internal/scheduler"
	"github.com/meditrack/reminder-service/internal/store"
)

// AlertScheduler is the slice of the notification scheduler the coordinator
// drives.
type AlertScheduler interface {
	ScheduleDaily(reminder *models.Reminder, opt scheduler.Options) bool
	CancelFor(userID string)
	CancelDeadline(reminderID string)
}

// Gateway delivers guardian messages.
type Gateway interface {
	SendMedicationMissed(ctx context.Context, to, medicationName, scheduledTime string) error
}

// Uploader stores verification photos.
type Uploader interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) (string, error)
}

// Coordinator is the single write path for reminders. Every mutation
// persists first and then reconciles the scheduler, so the armed timers
// always converge on the stored reminder list. Store errors are logged and
// rethrown so the caller can surface them; nothing is swallowed here.
type Coordinator struct {
	reminders   store.ReminderStore
	medications store.MedicationStore
	settings    store.SettingsStore
	sched       AlertScheduler
	events      <-chan scheduler.Event
	gateway     Gateway
	files       Uploader
	log         *zap.Logger
}

func New(
	reminders store.ReminderStore,
	medications store.MedicationStore,
	settings store.SettingsStore,
	sched AlertScheduler,
	events <-chan scheduler.Event,
	gateway Gateway,
	files Uploader,
	log *zap.Logger,
) *Coordinator {
	return &Coordinator{
		reminders:   reminders,
		medications: medications,
		settings:    settings,
		sched:       sched,
		events:      events,
		gateway:     gateway,
		files:       files,
		log:         log,
	}
}

// Run consumes scheduler events until the context is cancelled. The
// scheduler only reports that a verification deadline elapsed; deciding to
// mark the reminder missed and alert the guardian happens here.
func (c *Coordinator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-c.events:
			if !ok {
				return
			}
			if ev.Type == scheduler.EventVerificationTimedOut {
				c.handleMissed(ctx, ev)
			}
		}
	}
}

// List returns the user's reminders and re-synchronizes the scheduler with
// them, mirroring the reconcile-on-load behavior of the client.
func (c *Coordinator) List(ctx context.Context, userID string) ([]*models.Reminder, error) {
	reminders, err := c.reminders.List(ctx, userID)
	if err != nil {
		c.log.Error("failed to list reminders", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	c.reconcile(ctx, userID, reminders)
	return reminders, nil
}

func (c *Coordinator) Get(ctx context.Context, userID, id string) (*models.Reminder, error) {
	reminder, err := c.reminders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if reminder.UserID != userID {
		return nil, models.ErrReminderNotFound
	}
	return reminder, nil
}

// Add validates, denormalizes the medication name and dosage, persists and
// reconciles. Validation failures abort before any write.
func (c *Coordinator) Add(ctx context.Context, userID string, req *models.CreateReminderRequest) (*models.Reminder, error) {
	if req.MedicationID == "" {
		return nil, models.ErrMissingMedicine
	}
	if _, _, err := models.ParseClock(req.Time); err != nil {
		return nil, models.ErrInvalidTime
	}
	if !models.ValidDays(req.Days) {
		return nil, models.ErrInvalidDays
	}

	medication, err := c.medications.Get(ctx, req.MedicationID)
	if err != nil {
		c.log.Error("failed to resolve medication",
			zap.String("medication_id", req.MedicationID), zap.Error(err))
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = models.ReminderStatusActive
	}

	now := time.Now()
	reminder := &models.Reminder{
		ID:                uuid.New().String(),
		UserID:            userID,
		MedicationID:      medication.ID,
		MedicationName:    medication.Name,
		Dosage:            medication.Dosage,
		Time:              req.Time,
		Days:              req.Days,
		Status:            status,
		NotificationTypes: req.NotificationTypes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := c.reminders.Insert(ctx, reminder); err != nil {
		c.log.Error("failed to insert reminder", zap.Error(err))
		return nil, err
	}

	if err := c.Reconcile(ctx, userID); err != nil {
		c.log.Warn("reconcile after add failed", zap.Error(err))
	}
	return reminder, nil
}

// Update applies a partial change. Deactivation is handled by the full
// reconciliation pass, not by a per-reminder cancel.
func (c *Coordinator) Update(ctx context.Context, userID, id string, req *models.UpdateReminderRequest) (*models.Reminder, error) {
	reminder, err := c.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if req.Time != nil {
		if _, _, err := models.ParseClock(*req.Time); err != nil {
			return nil, models.ErrInvalidTime
		}
		reminder.Time = *req.Time
	}
	if req.Days != nil {
		if !models.ValidDays(*req.Days) {
			return nil, models.ErrInvalidDays
		}
		reminder.Days = *req.Days
	}
	if req.Status != nil {
		reminder.Status = *req.Status
	}
	if req.NotificationTypes != nil {
		reminder.NotificationTypes = *req.NotificationTypes
	}
	reminder.UpdatedAt = time.Now()

	if err := c.reminders.Update(ctx, reminder); err != nil {
		c.log.Error("failed to update reminder", zap.String("reminder_id", id), zap.Error(err))
		return nil, err
	}

	if err := c.Reconcile(ctx, userID); err != nil {
		c.log.Warn("reconcile after update failed", zap.Error(err))
	}
	return reminder, nil
}

func (c *Coordinator) Delete(ctx context.Context, userID, id string) error {
	if _, err := c.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := c.reminders.Delete(ctx, id); err != nil {
		c.log.Error("failed to delete reminder", zap.String("reminder_id", id), zap.Error(err))
		return err
	}
	return c.Reconcile(ctx, userID)
}

// Verify uploads the proof photo, marks the reminder verified with a
// last-taken timestamp, cancels the running deadline and reconciles. No
// guardian message is sent on this path.
func (c *Coordinator) Verify(ctx context.Context, userID, id string, image []byte) (*models.Reminder, error) {
	reminder, err := c.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	fileName := fmt.Sprintf("%s-%d.jpg", id, time.Now().UnixMilli())
	path, err := c.files.Upload(ctx, fileName, image, "image/jpeg")
	if err != nil {
		c.log.Error("failed to upload verification photo",
			zap.String("reminder_id", id), zap.Error(err))
		return nil, err
	}

	now := time.Now()
	reminder.VerificationStatus = models.VerificationVerified
	reminder.VerificationImage = path
	reminder.LastTaken = &now
	reminder.UpdatedAt = now
	if err := c.reminders.Update(ctx, reminder); err != nil {
		c.log.Error("failed to mark reminder verified",
			zap.String("reminder_id", id), zap.Error(err))
		return nil, err
	}

	c.sched.CancelDeadline(id)

	if err := c.Reconcile(ctx, userID); err != nil {
		c.log.Warn("reconcile after verify failed", zap.Error(err))
	}
	return reminder, nil
}

func (c *Coordinator) GetSettings(ctx context.Context, userID string) (*models.ReminderSettings, error) {
	settings, err := c.settings.Get(ctx, userID)
	if err != nil {
		c.log.Error("failed to load reminder settings", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return settings, nil
}

// UpdateSettings applies a partial settings change. A verification timeout
// below one minute is rejected whenever verification is on.
func (c *Coordinator) UpdateSettings(ctx context.Context, userID string, req *models.UpdateSettingsRequest) (*models.ReminderSettings, error) {
	settings, err := c.settings.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.AppNotifications != nil {
		settings.AppNotifications = *req.AppNotifications
	}
	if req.EmailNotifications != nil {
		settings.EmailNotifications = *req.EmailNotifications
	}
	if req.VoiceNotifications != nil {
		settings.VoiceNotifications = *req.VoiceNotifications
	}
	if req.ReminderFrequency != nil {
		settings.ReminderFrequency = *req.ReminderFrequency
	}
	if req.SnoozeTime != nil {
		settings.SnoozeTime = *req.SnoozeTime
	}
	if req.GuardianPhone != nil {
		settings.GuardianPhone = *req.GuardianPhone
	}
	if req.RequireVerification != nil {
		settings.RequireVerification = *req.RequireVerification
	}
	if req.VerificationTimeout != nil {
		settings.VerificationTimeout = *req.VerificationTimeout
	}
	if settings.RequireVerification && settings.VerificationTimeout < 1 {
		return nil, models.ErrInvalidTimeout
	}

	if err := c.settings.Upsert(ctx, settings); err != nil {
		c.log.Error("failed to update reminder settings", zap.Error(err))
		return nil, err
	}

	// Verification options changed, re-arm the timers with them.
	if err := c.Reconcile(ctx, userID); err != nil {
		c.log.Warn("reconcile after settings update failed", zap.Error(err))
	}
	return settings, nil
}

// Reconcile re-derives the user's timers from the stored reminder list:
// cancel everything, then schedule every active reminder that carries the
// browser channel. Convergence is idempotent no matter how the list changed.
func (c *Coordinator) Reconcile(ctx context.Context, userID string) error {
	reminders, err := c.reminders.List(ctx, userID)
	if err != nil {
		c.log.Error("reconcile: failed to list reminders", zap.Error(err))
		return err
	}
	c.reconcile(ctx, userID, reminders)
	return nil
}

func (c *Coordinator) reconcile(ctx context.Context, userID string, reminders []*models.Reminder) {
	settings, err := c.settings.Get(ctx, userID)
	if err != nil {
		c.log.Error("reconcile: failed to load settings", zap.Error(err))
		return
	}
	opt := scheduler.Options{
		RequireVerification: settings.RequireVerification,
		VerificationTimeout: time.Duration(settings.VerificationTimeout) * time.Minute,
	}

	c.sched.CancelFor(userID)
	for _, reminder := range reminders {
		if reminder.Status != models.ReminderStatusActive {
			continue
		}
		if !reminder.HasChannel(models.ChannelBrowser) {
			continue
		}
		c.sched.ScheduleDaily(reminder, opt)
	}
}

func (c *Coordinator) handleMissed(ctx context.Context, ev scheduler.Event) {
	reminder, err := c.reminders.Get(ctx, ev.ReminderID)
	if err != nil {
		c.log.Error("missed handling: failed to load reminder",
			zap.String("reminder_id", ev.ReminderID), zap.Error(err))
		return
	}

	now := time.Now()
	reminder.VerificationStatus = models.VerificationMissed
	reminder.LastTaken = &now
	reminder.UpdatedAt = now
	if err := c.reminders.Update(ctx, reminder); err != nil {
		c.log.Error("failed to mark reminder missed",
			zap.String("reminder_id", ev.ReminderID), zap.Error(err))
		return
	}

	settings, err := c.settings.Get(ctx, reminder.UserID)
	if err != nil {
		c.log.Error("missed handling: failed to load settings", zap.Error(err))
		return
	}
	if settings.GuardianPhone == "" {
		return
	}

	// Guardian notification is best effort; the missed mark above stands
	// either way.
	formatted := ev.FiredAt.Format("3:04 PM")
	if err := c.gateway.SendMedicationMissed(ctx, settings.GuardianPhone, reminder.MedicationName, formatted); err != nil {
		c.log.Error("failed to notify guardian",
			zap.String("reminder_id", ev.ReminderID), zap.Error(err))
	}
}
