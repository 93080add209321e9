package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/meditrack/reminder-service/internal/models"
	"github.com/meditrack/reminder-service/internal/notify"
)

type EventType string

const (
	// EventVerificationTimedOut fires when a reminder that requires photo
	// verification was not verified before its deadline. The coordinator
	// owns the escalation policy.
	EventVerificationTimedOut EventType = "verification_timed_out"
)

type Event struct {
	Type           EventType
	ReminderID     string
	UserID         string
	MedicationName string
	FiredAt        time.Time
}

// Options controls the verification behavior for the timers armed during one
// reconciliation pass; it is derived from the owner's reminder settings.
type Options struct {
	RequireVerification bool
	VerificationTimeout time.Duration
}

type pendingTimer struct {
	timer  *time.Timer
	userID string
	fireAt time.Time
}

// Scheduler keeps the in-memory timers for medication reminders and shows
// alerts through the notifier when they elapse. It owns the timer and
// active-alert maps exclusively: the coordinator only talks to it through the
// exported methods and the event channel. Failures never escape the
// scheduler; they are contained and logged because timers run outside any
// caller context.
type Scheduler struct {
	notifier  notify.Notifier
	log       *zap.Logger
	autoClose time.Duration

	mu        sync.Mutex
	timers    map[string]*pendingTimer
	deadlines map[string]*time.Timer
	active    map[string]struct{}

	readyOnce sync.Once
	ready     bool

	events chan Event

	// seams for tests
	now       func() time.Time
	afterFunc func(d time.Duration, f func()) *time.Timer
}

func New(notifier notify.Notifier, autoClose time.Duration, log *zap.Logger) *Scheduler {
	if autoClose <= 0 {
		autoClose = 6 * time.Second
	}
	return &Scheduler{
		notifier:  notifier,
		log:       log,
		autoClose: autoClose,
		timers:    make(map[string]*pendingTimer),
		deadlines: make(map[string]*time.Timer),
		active:    make(map[string]struct{}),
		events:    make(chan Event, 16),
		now:       time.Now,
		afterFunc: time.AfterFunc,
	}
}

// Events delivers verification-timeout events to the coordinator.
func (s *Scheduler) Events() <-chan Event {
	return s.events
}

// notifierReady is resolved once and cached for the scheduler's lifetime; a
// not-ready notifier is never re-probed.
func (s *Scheduler) notifierReady() bool {
	s.readyOnce.Do(func() {
		s.ready = s.notifier.Ready()
		if !s.ready {
			s.log.Warn("notifier not available, alerts degrade to no-op")
		}
	})
	return s.ready
}

// ScheduleDaily arms a one-shot timer for today at the reminder's HH:MM.
// The call is a no-op when the instant has already passed today (no next-day
// rollover: the reminder is picked up again on the next reconciliation) or
// when today's weekday is not in the reminder's day set. Any prior pending
// timer for the same reminder is cancelled first, so at most one timer is
// pending per reminder id. Returns true when a timer was armed.
func (s *Scheduler) ScheduleDaily(reminder *models.Reminder, opt Options) bool {
	if !s.notifierReady() {
		return false
	}

	hour, minute, err := models.ParseClock(reminder.Time)
	if err != nil {
		s.log.Warn("cannot schedule reminder",
			zap.String("reminder_id", reminder.ID), zap.Error(err))
		return false
	}

	now := s.now()
	target := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())

	if target.Before(now) {
		s.log.Warn("cannot schedule reminder: time has already passed for today",
			zap.String("reminder_id", reminder.ID),
			zap.String("time", reminder.Time))
		return false
	}

	today := now.Weekday().String()
	if !containsDay(reminder.Days, today) {
		s.log.Debug("skipping reminder: not scheduled for today",
			zap.String("reminder_id", reminder.ID),
			zap.String("weekday", today))
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.timers[reminder.ID]; ok {
		prev.timer.Stop()
		delete(s.timers, reminder.ID)
	}

	r := *reminder
	s.timers[reminder.ID] = &pendingTimer{
		timer:  s.afterFunc(target.Sub(now), func() { s.fire(&r, opt) }),
		userID: reminder.UserID,
		fireAt: target,
	}
	return true
}

func (s *Scheduler) fire(reminder *models.Reminder, opt Options) {
	s.mu.Lock()
	delete(s.timers, reminder.ID)
	s.mu.Unlock()

	firedAt := s.now()
	s.showAlert(notify.Alert{
		Tag:                reminder.ID,
		Title:              "Time to take " + reminder.MedicationName,
		Body:               fmt.Sprintf("Take %s of %s", reminder.Dosage, reminder.MedicationName),
		ReminderID:         reminder.ID,
		RequireInteraction: opt.RequireVerification,
		Sound:              notify.DefaultSound(),
		IssuedAt:           firedAt,
	})

	if opt.RequireVerification {
		if opt.VerificationTimeout <= 0 {
			s.log.Warn("verification required but timeout is not positive, skipping deadline",
				zap.String("reminder_id", reminder.ID))
			return
		}
		s.mu.Lock()
		if prev, ok := s.deadlines[reminder.ID]; ok {
			prev.Stop()
		}
		r := *reminder
		s.deadlines[reminder.ID] = s.afterFunc(opt.VerificationTimeout, func() {
			s.deadlineExpired(&r, firedAt)
		})
		s.mu.Unlock()
		return
	}

	// No verification: the alert auto-closes and its reference is released.
	s.afterFunc(s.autoClose, func() { s.closeAlert(reminder.ID) })
}

func (s *Scheduler) deadlineExpired(reminder *models.Reminder, firedAt time.Time) {
	s.mu.Lock()
	delete(s.deadlines, reminder.ID)
	s.mu.Unlock()

	ev := Event{
		Type:           EventVerificationTimedOut,
		ReminderID:     reminder.ID,
		UserID:         reminder.UserID,
		MedicationName: reminder.MedicationName,
		FiredAt:        firedAt,
	}
	select {
	case s.events <- ev:
	default:
		s.log.Error("event channel full, dropping verification timeout event",
			zap.String("reminder_id", reminder.ID))
	}

	missed := notify.Alert{
		Tag:      reminder.ID + "-missed",
		Title:    "Medication Missed",
		Body:     fmt.Sprintf("You haven't verified taking %s. Your guardian will be notified.", reminder.MedicationName),
		Sound:    notify.DefaultSound(),
		IssuedAt: s.now(),
	}
	s.showAlert(missed)
	s.afterFunc(s.autoClose, func() { s.closeAlert(missed.Tag) })
}

// showAlert keeps at most one visible alert per tag.
func (s *Scheduler) showAlert(alert notify.Alert) {
	ctx := context.Background()

	s.mu.Lock()
	_, exists := s.active[alert.Tag]
	s.active[alert.Tag] = struct{}{}
	s.mu.Unlock()

	if exists {
		if err := s.notifier.Close(ctx, alert.Tag); err != nil {
			s.log.Warn("failed to close prior alert", zap.String("tag", alert.Tag), zap.Error(err))
		}
	}
	if err := s.notifier.Show(ctx, alert); err != nil {
		s.log.Warn("failed to show alert", zap.String("tag", alert.Tag), zap.Error(err))
	}
}

func (s *Scheduler) closeAlert(tag string) {
	s.mu.Lock()
	_, exists := s.active[tag]
	delete(s.active, tag)
	s.mu.Unlock()

	if !exists {
		return
	}
	if err := s.notifier.Close(context.Background(), tag); err != nil {
		s.log.Warn("failed to close alert", zap.String("tag", tag), zap.Error(err))
	}
}

// CancelDeadline stops a running verification deadline, if any. Called when
// the user verifies in time.
func (s *Scheduler) CancelDeadline(reminderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.deadlines[reminderID]; ok {
		t.Stop()
		delete(s.deadlines, reminderID)
	}
}

// CancelFor cancels every pending timer belonging to one user. Reconciliation
// runs this before rescheduling so reschedule is idempotent.
func (s *Scheduler) CancelFor(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, pt := range s.timers {
		if pt.userID == userID {
			pt.timer.Stop()
			delete(s.timers, id)
		}
	}
}

// CancelAll cancels every pending timer and clears the map.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, pt := range s.timers {
		pt.timer.Stop()
		delete(s.timers, id)
	}
}

// Pending reports how many timers are currently armed.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Close tears the scheduler down: all pending timers and deadlines are
// stopped. Armed timers are not durable; they are recomputed from the stored
// reminders on the next reconciliation.
func (s *Scheduler) Close() {
	s.CancelAll()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.deadlines {
		t.Stop()
		delete(s.deadlines, id)
	}
}

func containsDay(days []string, day string) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}
