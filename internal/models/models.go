package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type ReminderStatus string

const (
	ReminderStatusActive   ReminderStatus = "active"
	ReminderStatusInactive ReminderStatus = "inactive"
	ReminderStatusSnoozed  ReminderStatus = "snoozed"
)

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationMissed   VerificationStatus = "missed"
)

type Channel string

const (
	ChannelApp     Channel = "app"
	ChannelEmail   Channel = "email"
	ChannelVoice   Channel = "voice"
	ChannelBrowser Channel = "browser"
)

// Reminder is a recurring medication alert. Medication name and dosage are
// denormalized from the medication the reminder points at, captured at
// creation time.
type Reminder struct {
	ID                 string             `json:"id"`
	UserID             string             `json:"user_id"`
	MedicationID       string             `json:"medication_id"`
	MedicationName     string             `json:"medication_name"`
	Dosage             string             `json:"dosage"`
	Time               string             `json:"time"` // 24-hour HH:MM
	Days               []string           `json:"days"`
	Status             ReminderStatus     `json:"status"`
	NotificationTypes  []Channel          `json:"notification_types"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
	LastTaken          *time.Time         `json:"last_taken,omitempty"`
	VerificationStatus VerificationStatus `json:"verification_status,omitempty"`
	VerificationImage  string             `json:"verification_image,omitempty"`
}

func (r *Reminder) HasChannel(c Channel) bool {
	for _, t := range r.NotificationTypes {
		if t == c {
			return true
		}
	}
	return false
}

// ReminderSettings is one record per user, lazily created with defaults on
// first read.
type ReminderSettings struct {
	UserID              string    `json:"user_id"`
	AppNotifications    bool      `json:"app_notifications"`
	EmailNotifications  bool      `json:"email_notifications"`
	VoiceNotifications  bool      `json:"voice_notifications"`
	ReminderFrequency   string    `json:"reminder_frequency"` // once, twice, thrice
	SnoozeTime          string    `json:"snooze_time"`
	GuardianPhone       string    `json:"guardian_phone"`
	RequireVerification bool      `json:"require_verification"`
	VerificationTimeout int       `json:"verification_timeout"` // minutes
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func DefaultReminderSettings(userID string) *ReminderSettings {
	now := time.Now()
	return &ReminderSettings{
		UserID:              userID,
		AppNotifications:    true,
		EmailNotifications:  true,
		VoiceNotifications:  false,
		ReminderFrequency:   "once",
		SnoozeTime:          "10min",
		GuardianPhone:       "",
		RequireVerification: false,
		VerificationTimeout: 15,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

type Medication struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Dosage    string    `json:"dosage"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var weekdays = map[string]bool{
	"Monday":    true,
	"Tuesday":   true,
	"Wednesday": true,
	"Thursday":  true,
	"Friday":    true,
	"Saturday":  true,
	"Sunday":    true,
}

// ValidDays reports whether days is a non-empty subset of the weekday names.
func ValidDays(days []string) bool {
	if len(days) == 0 {
		return false
	}
	for _, d := range days {
		if !weekdays[d] {
			return false
		}
	}
	return true
}

// ParseClock parses a 24-hour HH:MM string.
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}
