package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/zelo-saude/agendamento/internal/metrics"
	"github.com/zelo-saude/agendamento/internal/notify"
)

// Dispatcher is the time-triggered side of the reminder pipeline: it reads
// due pending events and hands them to the notification collaborator. It runs
// from the reminder worker, not from request handlers.
type Dispatcher struct {
	repo     Repository
	notifier notify.Notifier
	batch    int
	now      func() time.Time
	log      zerolog.Logger
}

func NewDispatcher(repo Repository, notifier notify.Notifier, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		repo:     repo,
		notifier: notifier,
		batch:    200,
		now:      time.Now,
		log:      log,
	}
}

// DispatchDue delivers every reminder whose time has come. Delivery failures
// mark the event failed and move on; the next run does not retry them — the
// collaborator owns retries per its own policy.
func (d *Dispatcher) DispatchDue(ctx context.Context) (int, error) {
	due, err := d.repo.FindDue(ctx, d.now(), d.batch)
	if err != nil {
		return 0, fmt.Errorf("find due reminders: %w", err)
	}

	sent := 0
	for _, ev := range due {
		snap := notify.Snapshot{
			AppointmentID:  ev.AppointmentID,
			PractitionerID: ev.PractitionerID,
			PatientID:      ev.RecipientID,
			StartAt:        ev.AppointmentStart,
			Kind:           ev.AppointmentKind,
		}

		outcome := StatusSent
		if err := d.notifier.Send(ctx, ev.RecipientID, templateFor(ev.Kind), snap); err != nil {
			d.log.Error().Err(err).
				Str("reminder_id", ev.ID.String()).
				Str("kind", string(ev.Kind)).
				Msg("reminder delivery failed")
			outcome = StatusFailed
		}

		applied, err := d.repo.MarkOutcome(ctx, ev.ID, outcome)
		if err != nil {
			d.log.Error().Err(err).Str("reminder_id", ev.ID.String()).Msg("mark reminder outcome")
			continue
		}
		if !applied {
			// Voided between the read and the send; nothing to record.
			continue
		}
		metrics.RemindersDispatched.WithLabelValues(string(outcome)).Inc()

		if outcome == StatusSent {
			sent++
			if ev.Kind == KindReminder24h || ev.Kind == KindReminder1h {
				if err := d.repo.MarkRemindersSent(ctx, ev.AppointmentID); err != nil {
					d.log.Error().Err(err).
						Str("appointment_id", ev.AppointmentID.String()).
						Msg("mark appointment reminders_sent")
				}
			}
		}
	}

	return sent, nil
}

func templateFor(kind Kind) notify.TemplateKind {
	switch kind {
	case KindBookingReceived:
		return notify.TemplateBookingReceived
	case KindBookingConfirmed:
		return notify.TemplateBookingConfirmed
	case KindReminder24h:
		return notify.TemplateReminder24h
	case KindReminder1h:
		return notify.TemplateReminder1h
	}
	return notify.TemplateBookingReceived
}
