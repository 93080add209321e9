package models

// APIResponse is the envelope every endpoint responds with.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message"`
}

type CreateReminderRequest struct {
	MedicationID      string    `json:"medication_id" binding:"required"`
	Time              string    `json:"time" binding:"required"`
	Days              []string  `json:"days" binding:"required"`
	Status            ReminderStatus `json:"status"`
	NotificationTypes []Channel `json:"notification_types"`
}

// UpdateReminderRequest carries a partial change; nil fields are untouched.
type UpdateReminderRequest struct {
	Time              *string         `json:"time,omitempty"`
	Days              *[]string       `json:"days,omitempty"`
	Status            *ReminderStatus `json:"status,omitempty"`
	NotificationTypes *[]Channel      `json:"notification_types,omitempty"`
}

type UpdateSettingsRequest struct {
	AppNotifications    *bool   `json:"app_notifications,omitempty"`
	EmailNotifications  *bool   `json:"email_notifications,omitempty"`
	VoiceNotifications  *bool   `json:"voice_notifications,omitempty"`
	ReminderFrequency   *string `json:"reminder_frequency,omitempty"`
	SnoozeTime          *string `json:"snooze_time,omitempty"`
	GuardianPhone       *string `json:"guardian_phone,omitempty"`
	RequireVerification *bool   `json:"require_verification,omitempty"`
	VerificationTimeout *int    `json:"verification_timeout,omitempty"`
}

type CreateMedicationRequest struct {
	Name   string `json:"name" binding:"required"`
	Dosage string `json:"dosage" binding:"required"`
}
