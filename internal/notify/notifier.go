// Package notify defines the notification dispatch collaborator. The core
// decides what to notify and when; transport (email, push) lives outside this
// repository behind the Notifier interface.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type TemplateKind string

const (
	TemplateBookingRequested TemplateKind = "booking_requested" // to practitioner on create
	TemplateBookingReceived  TemplateKind = "booking_received"  // to patient on create
	TemplateBookingConfirmed TemplateKind = "booking_confirmed" // to patient on confirm
	TemplateBookingRejected  TemplateKind = "booking_rejected"  // to patient on reject, carries reason
	TemplateBookingCancelled TemplateKind = "booking_cancelled" // to the other party on cancel
	TemplateReminder24h      TemplateKind = "reminder_24h"
	TemplateReminder1h       TemplateKind = "reminder_1h"
)

// Snapshot is the appointment state frozen at dispatch-decision time, so a
// late-firing message never leaks a later edit.
type Snapshot struct {
	AppointmentID  uuid.UUID
	PractitionerID uuid.UUID
	PatientID      uuid.UUID
	StartAt        time.Time
	Kind           string
	Reason         string
}

// Notifier hands a message to the delivery collaborator. Implementations
// report sent/failed through the returned error; retry policy is theirs.
type Notifier interface {
	Send(ctx context.Context, recipientID uuid.UUID, template TemplateKind, snap Snapshot) error
}

// LogNotifier is the in-repo implementation: it records the decision and
// succeeds. Real transports are wired in the platform's delivery service.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(ctx context.Context, recipientID uuid.UUID, template TemplateKind, snap Snapshot) error {
	n.log.Info().
		Str("recipient_id", recipientID.String()).
		Str("template", string(template)).
		Str("appointment_id", snap.AppointmentID.String()).
		Time("start_at", snap.StartAt).
		Str("reason", snap.Reason).
		Msg("notification dispatched")
	return nil
}
