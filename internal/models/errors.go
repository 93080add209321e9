package models

import "errors"

var (
	ErrReminderNotFound   = errors.New("reminder not found")
	ErrMedicationNotFound = errors.New("medication not found")
	ErrSettingsNotFound   = errors.New("reminder settings not found")

	ErrInvalidTime     = errors.New("time must be a valid 24-hour HH:MM")
	ErrInvalidDays     = errors.New("days must be a non-empty set of weekday names")
	ErrMissingMedicine = errors.New("medication id is required")
	ErrInvalidTimeout  = errors.New("verification timeout must be at least 1 minute when verification is required")
)
