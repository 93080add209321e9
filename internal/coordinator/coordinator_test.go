package coordinator

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meditrack/reminder-service/internal/models"
	"github.com/meditrack/reminder-service/internal/scheduler"
)

type MockReminderStore struct {
	mock.Mock
}

func (m *MockReminderStore) List(ctx context.Context, userID string) ([]*models.Reminder, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Reminder), args.Error(1)
}

func (m *MockReminderStore) Get(ctx context.Context, id string) (*models.Reminder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reminder), args.Error(1)
}

func (m *MockReminderStore) Insert(ctx context.Context, reminder *models.Reminder) error {
	args := m.Called(ctx, reminder)
	return args.Error(0)
}

func (m *MockReminderStore) Update(ctx context.Context, reminder *models.Reminder) error {
	args := m.Called(ctx, reminder)
	return args.Error(0)
}

func (m *MockReminderStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockMedicationStore struct {
	mock.Mock
}

func (m *MockMedicationStore) List(ctx context.Context, userID string) ([]*models.Medication, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Medication), args.Error(1)
}

func (m *MockMedicationStore) Get(ctx context.Context, id string) (*models.Medication, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Medication), args.Error(1)
}

func (m *MockMedicationStore) Insert(ctx context.Context, medication *models.Medication) error {
	args := m.Called(ctx, medication)
	return args.Error(0)
}

func (m *MockMedicationStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockSettingsStore struct {
	mock.Mock
}

func (m *MockSettingsStore) Get(ctx context.Context, userID string) (*models.ReminderSettings, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReminderSettings), args.Error(1)
}

func (m *MockSettingsStore) Upsert(ctx context.Context, settings *models.ReminderSettings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

type MockScheduler struct {
	mock.Mock
}

func (m *MockScheduler) ScheduleDaily(reminder *models.Reminder, opt scheduler.Options) bool {
	args := m.Called(reminder, opt)
	return args.Bool(0)
}

func (m *MockScheduler) CancelFor(userID string) {
	m.Called(userID)
}

func (m *MockScheduler) CancelDeadline(reminderID string) {
	m.Called(reminderID)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) SendMedicationMissed(ctx context.Context, to, medicationName, scheduledTime string) error {
	args := m.Called(ctx, to, medicationName, scheduledTime)
	return args.Error(0)
}

type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, path, data, contentType)
	return args.String(0), args.Error(1)
}

type fixture struct {
	reminders   *MockReminderStore
	medications *MockMedicationStore
	settings    *MockSettingsStore
	sched       *MockScheduler
	gateway     *MockGateway
	files       *MockUploader
	coord       *Coordinator
}

func newFixture() *fixture {
	f := &fixture{
		reminders:   new(MockReminderStore),
		medications: new(MockMedicationStore),
		settings:    new(MockSettingsStore),
		sched:       new(MockScheduler),
		gateway:     new(MockGateway),
		files:       new(MockUploader),
	}
	f.coord = New(
		f.reminders,
		f.medications,
		f.settings,
		f.sched,
		make(chan scheduler.Event),
		f.gateway,
		f.files,
		zap.NewNop(),
	)
	return f
}

func activeReminder(id, userID string) *models.Reminder {
	return &models.Reminder{
		ID:                id,
		UserID:            userID,
		MedicationID:      "med1",
		MedicationName:    "Aspirin",
		Dosage:            "100mg",
		Time:              "08:00",
		Days:              []string{"Monday"},
		Status:            models.ReminderStatusActive,
		NotificationTypes: []models.Channel{models.ChannelBrowser},
	}
}

func TestAddValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     *models.CreateReminderRequest
		wantErr error
	}{
		{
			name:    "missing medication",
			req:     &models.CreateReminderRequest{Time: "08:00", Days: []string{"Monday"}},
			wantErr: models.ErrMissingMedicine,
		},
		{
			name:    "invalid time",
			req:     &models.CreateReminderRequest{MedicationID: "med1", Time: "8 o'clock", Days: []string{"Monday"}},
			wantErr: models.ErrInvalidTime,
		},
		{
			name:    "empty days",
			req:     &models.CreateReminderRequest{MedicationID: "med1", Time: "08:00", Days: []string{}},
			wantErr: models.ErrInvalidDays,
		},
		{
			name:    "unknown day name",
			req:     &models.CreateReminderRequest{MedicationID: "med1", Time: "08:00", Days: []string{"Funday"}},
			wantErr: models.ErrInvalidDays,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()

			_, err := f.coord.Add(context.Background(), "user123", tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
			// Validation rejects before any I/O.
			f.reminders.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
			f.medications.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
		})
	}
}

func TestAddDenormalizesAndSchedules(t *testing.T) {
	f := newFixture()

	f.medications.On("Get", mock.Anything, "med1").Return(&models.Medication{
		ID: "med1", UserID: "user123", Name: "Aspirin", Dosage: "100mg",
	}, nil)
	f.reminders.On("Insert", mock.Anything, mock.Anything).Return(nil)

	f.reminders.On("List", mock.Anything, "user123").Return([]*models.Reminder{}, nil)
	f.settings.On("Get", mock.Anything, "user123").Return(models.DefaultReminderSettings("user123"), nil)
	f.sched.On("CancelFor", "user123").Return()

	reminder, err := f.coord.Add(context.Background(), "user123", &models.CreateReminderRequest{
		MedicationID:      "med1",
		Time:              "08:00",
		Days:              []string{"Monday"},
		NotificationTypes: []models.Channel{models.ChannelBrowser},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, reminder.ID)
	assert.Equal(t, "Aspirin", reminder.MedicationName)
	assert.Equal(t, "100mg", reminder.Dosage)
	assert.Equal(t, models.ReminderStatusActive, reminder.Status)
	f.reminders.AssertExpectations(t)
	f.sched.AssertCalled(t, "CancelFor", "user123")
}

func TestReconcileSchedulesOnlyActiveBrowserReminders(t *testing.T) {
	f := newFixture()

	active := activeReminder("r1", "user123")
	inactive := activeReminder("r2", "user123")
	inactive.Status = models.ReminderStatusInactive
	appOnly := activeReminder("r3", "user123")
	appOnly.NotificationTypes = []models.Channel{models.ChannelApp}

	f.reminders.On("List", mock.Anything, "user123").
		Return([]*models.Reminder{active, inactive, appOnly}, nil)
	f.settings.On("Get", mock.Anything, "user123").
		Return(models.DefaultReminderSettings("user123"), nil)
	f.sched.On("CancelFor", "user123").Return()
	f.sched.On("ScheduleDaily", active, mock.Anything).Return(true)

	require.NoError(t, f.coord.Reconcile(context.Background(), "user123"))

	f.sched.AssertNumberOfCalls(t, "ScheduleDaily", 1)
	f.sched.AssertCalled(t, "CancelFor", "user123")
}

func TestVerifyUploadsAndMarksVerified(t *testing.T) {
	f := newFixture()

	reminder := activeReminder("r1", "user123")
	f.reminders.On("Get", mock.Anything, "r1").Return(reminder, nil)

	namePattern := regexp.MustCompile(`^r1-\d+\.jpg$`)
	f.files.On("Upload", mock.Anything, mock.MatchedBy(func(path string) bool {
		return namePattern.MatchString(path)
	}), []byte("photo"), "image/jpeg").Return("medication-verifications/r1-1.jpg", nil)

	f.reminders.On("Update", mock.Anything, mock.MatchedBy(func(r *models.Reminder) bool {
		return r.VerificationStatus == models.VerificationVerified && r.LastTaken != nil
	})).Return(nil)
	f.sched.On("CancelDeadline", "r1").Return()

	f.reminders.On("List", mock.Anything, "user123").Return([]*models.Reminder{}, nil)
	f.settings.On("Get", mock.Anything, "user123").Return(models.DefaultReminderSettings("user123"), nil)
	f.sched.On("CancelFor", "user123").Return()

	updated, err := f.coord.Verify(context.Background(), "user123", "r1", []byte("photo"))
	require.NoError(t, err)

	assert.Equal(t, models.VerificationVerified, updated.VerificationStatus)
	assert.Equal(t, "medication-verifications/r1-1.jpg", updated.VerificationImage)
	require.NotNil(t, updated.LastTaken)
	f.sched.AssertCalled(t, "CancelDeadline", "r1")
	// Verified in time: the guardian is never contacted.
	f.gateway.AssertNotCalled(t, "SendMedicationMissed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleMissedNotifiesGuardianOnce(t *testing.T) {
	f := newFixture()

	reminder := activeReminder("r1", "user123")
	f.reminders.On("Get", mock.Anything, "r1").Return(reminder, nil)
	f.reminders.On("Update", mock.Anything, mock.MatchedBy(func(r *models.Reminder) bool {
		return r.VerificationStatus == models.VerificationMissed && r.LastTaken != nil
	})).Return(nil)

	settings := models.DefaultReminderSettings("user123")
	settings.GuardianPhone = "+15551234567"
	f.settings.On("Get", mock.Anything, "user123").Return(settings, nil)
	f.gateway.On("SendMedicationMissed", mock.Anything, "+15551234567", "Aspirin", "8:00 AM").Return(nil)

	firedAt := time.Date(2025, time.January, 6, 8, 0, 0, 0, time.Local)
	f.coord.handleMissed(context.Background(), scheduler.Event{
		Type:           scheduler.EventVerificationTimedOut,
		ReminderID:     "r1",
		UserID:         "user123",
		MedicationName: "Aspirin",
		FiredAt:        firedAt,
	})

	f.gateway.AssertNumberOfCalls(t, "SendMedicationMissed", 1)
	f.reminders.AssertExpectations(t)
}

func TestHandleMissedWithoutGuardianStillMarksMissed(t *testing.T) {
	f := newFixture()

	reminder := activeReminder("r1", "user123")
	f.reminders.On("Get", mock.Anything, "r1").Return(reminder, nil)
	f.reminders.On("Update", mock.Anything, mock.Anything).Return(nil)
	f.settings.On("Get", mock.Anything, "user123").Return(models.DefaultReminderSettings("user123"), nil)

	f.coord.handleMissed(context.Background(), scheduler.Event{
		Type:       scheduler.EventVerificationTimedOut,
		ReminderID: "r1",
		UserID:     "user123",
		FiredAt:    time.Now(),
	})

	f.reminders.AssertCalled(t, "Update", mock.Anything, mock.Anything)
	f.gateway.AssertNotCalled(t, "SendMedicationMissed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateSettingsRejectsBadTimeout(t *testing.T) {
	f := newFixture()

	f.settings.On("Get", mock.Anything, "user123").Return(models.DefaultReminderSettings("user123"), nil)

	on := true
	zero := 0
	_, err := f.coord.UpdateSettings(context.Background(), "user123", &models.UpdateSettingsRequest{
		RequireVerification: &on,
		VerificationTimeout: &zero,
	})
	assert.ErrorIs(t, err, models.ErrInvalidTimeout)
	f.settings.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestDeleteUnknownReminder(t *testing.T) {
	f := newFixture()

	f.reminders.On("Get", mock.Anything, "missing").Return(nil, models.ErrReminderNotFound)

	err := f.coord.Delete(context.Background(), "user123", "missing")
	assert.ErrorIs(t, err, models.ErrReminderNotFound)
	f.reminders.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestGetRejectsForeignReminder(t *testing.T) {
	f := newFixture()

	f.reminders.On("Get", mock.Anything, "r1").Return(activeReminder("r1", "someone-else"), nil)

	_, err := f.coord.Get(context.Background(), "user123", "r1")
	assert.ErrorIs(t, err, models.ErrReminderNotFound)
}
