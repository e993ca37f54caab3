package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zelo-saude/agendamento/internal/appointment"
)

// Scheduler derives reminder events from lifecycle transitions. It implements
// appointment.ReminderSink.
type Scheduler struct {
	repo Repository
	now  func() time.Time
	log  zerolog.Logger
}

func NewScheduler(repo Repository, log zerolog.Logger) *Scheduler {
	return &Scheduler{repo: repo, now: time.Now, log: log}
}

// BuildSchedule computes the events a freshly booked appointment owes its
// patient: an immediate booking-received notice plus reminders at 24h and 1h
// before the start, each dropped if that moment already passed.
func BuildSchedule(appt *appointment.Appointment, now time.Time) []Event {
	events := []Event{newEvent(appt, KindBookingReceived, now)}

	for _, step := range []struct {
		kind   Kind
		offset time.Duration
	}{
		{KindReminder24h, 24 * time.Hour},
		{KindReminder1h, time.Hour},
	} {
		at := appt.StartAt.Add(-step.offset)
		if at.Before(now) {
			continue
		}
		events = append(events, newEvent(appt, step.kind, at))
	}

	return events
}

func newEvent(appt *appointment.Appointment, kind Kind, at time.Time) Event {
	return Event{
		ID:               uuid.New(),
		AppointmentID:    appt.ID,
		RecipientID:      appt.PatientID,
		PractitionerID:   appt.PractitionerID,
		AppointmentStart: appt.StartAt,
		AppointmentKind:  string(appt.Kind),
		Channel:          ChannelEmail,
		Kind:             kind,
		ScheduledFor:     at,
		Status:           StatusPending,
	}
}

// ScheduleBooking persists the initial reminder set for a new booking.
func (s *Scheduler) ScheduleBooking(ctx context.Context, appt *appointment.Appointment) error {
	events := BuildSchedule(appt, s.now())
	if err := s.repo.InsertBatch(ctx, events); err != nil {
		return fmt.Errorf("insert booking reminders: %w", err)
	}
	s.log.Debug().
		Str("appointment_id", appt.ID.String()).
		Int("events", len(events)).
		Msg("booking reminders scheduled")
	return nil
}

// ScheduleConfirmation adds the immediate confirmed notice. The 24h/1h
// reminders created at booking time stay as they are.
func (s *Scheduler) ScheduleConfirmation(ctx context.Context, appt *appointment.Appointment) error {
	ev := newEvent(appt, KindBookingConfirmed, s.now())
	if err := s.repo.InsertBatch(ctx, []Event{ev}); err != nil {
		return fmt.Errorf("insert confirmation notice: %w", err)
	}
	return nil
}

// VoidPending supersedes every not-yet-fired reminder of an appointment.
func (s *Scheduler) VoidPending(ctx context.Context, appointmentID uuid.UUID) error {
	n, err := s.repo.VoidPending(ctx, appointmentID)
	if err != nil {
		return fmt.Errorf("void pending reminders: %w", err)
	}
	s.log.Debug().
		Str("appointment_id", appointmentID.String()).
		Int64("voided", n).
		Msg("pending reminders voided")
	return nil
}
