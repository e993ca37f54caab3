package reminder

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
	// StatusVoid marks reminders superseded by a cancellation or rejection;
	// they never fire even after their scheduled time arrives.
	StatusVoid Status = "void"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
)

type Kind string

const (
	KindBookingReceived  Kind = "booking_received"
	KindBookingConfirmed Kind = "booking_confirmed"
	KindReminder24h      Kind = "reminder_24h"
	KindReminder1h       Kind = "reminder_1h"
)

// Event is one scheduled future notification derived from an appointment's
// timeline. Actual delivery is the dispatcher's job.
//
// PractitionerID, AppointmentStart and AppointmentKind are frozen at
// scheduling time so the dispatcher can build the notification snapshot
// without reading the appointment back.
type Event struct {
	ID               uuid.UUID
	AppointmentID    uuid.UUID
	RecipientID      uuid.UUID
	PractitionerID   uuid.UUID
	AppointmentStart time.Time
	AppointmentKind  string
	Channel          Channel
	Kind             Kind
	ScheduledFor     time.Time
	Status           Status
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
