package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Alert is the payload connected clients render as a system notification.
// Rendering is always silent on the client side; the sound pattern below is
// played by the client regardless.
type Alert struct {
	Tag                string       `json:"tag"`
	Title              string       `json:"title"`
	Body               string       `json:"body"`
	ReminderID         string       `json:"reminder_id,omitempty"`
	RequireInteraction bool         `json:"require_interaction"`
	Sound              SoundPattern `json:"sound"`
	IssuedAt           time.Time    `json:"issued_at"`
}

// SoundPattern describes the audible alert: two sine tones per beep, the
// pitch shifting halfway through each beep, looped for the total duration.
type SoundPattern struct {
	ToneHz       []float64 `json:"tone_hz"`
	ShiftHz      []float64 `json:"shift_hz"`
	BeepSeconds  float64   `json:"beep_seconds"`
	GapSeconds   float64   `json:"gap_seconds"`
	TotalSeconds float64   `json:"total_seconds"`
}

// DefaultSound is the two-tone beep pattern: A5+E5 shifting to C#6+A5,
// one-second beeps with half-second gaps over five seconds.
func DefaultSound() SoundPattern {
	return SoundPattern{
		ToneHz:       []float64{880, 659.25},
		ShiftHz:      []float64{1108.73, 880},
		BeepSeconds:  1,
		GapSeconds:   0.5,
		TotalSeconds: 5,
	}
}

// Notifier delivers alerts to wherever clients are listening. A not-ready
// notifier turns every operation into a logged no-op, never an error.
type Notifier interface {
	Ready() bool
	Show(ctx context.Context, alert Alert) error
	Close(ctx context.Context, tag string) error
}

type alertEvent struct {
	Event string `json:"event"` // "show" or "close"
	Tag   string `json:"tag"`
	Alert *Alert `json:"alert,omitempty"`
}

// AlertPublisher is anything the queue notifier can push alert events
// through.
type AlertPublisher interface {
	PublishAlert(ctx context.Context, message interface{}) error
	IsConnected() bool
}

// QueueNotifier publishes alert events to the alerts queue. A nil publisher
// means the queue is absent (mock mode) and everything degrades to no-op.
type QueueNotifier struct {
	publisher AlertPublisher
	log       *zap.Logger
}

func NewQueueNotifier(publisher AlertPublisher, log *zap.Logger) *QueueNotifier {
	return &QueueNotifier{publisher: publisher, log: log}
}

func (n *QueueNotifier) Ready() bool {
	return n.publisher != nil && n.publisher.IsConnected()
}

func (n *QueueNotifier) Show(ctx context.Context, alert Alert) error {
	if !n.Ready() {
		n.log.Warn("cannot show alert: alert queue not available",
			zap.String("tag", alert.Tag))
		return nil
	}
	return n.publisher.PublishAlert(ctx, alertEvent{Event: "show", Tag: alert.Tag, Alert: &alert})
}

func (n *QueueNotifier) Close(ctx context.Context, tag string) error {
	if !n.Ready() {
		return nil
	}
	return n.publisher.PublishAlert(ctx, alertEvent{Event: "close", Tag: tag})
}
