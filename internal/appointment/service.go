package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zelo-saude/agendamento/internal/availability"
	"github.com/zelo-saude/agendamento/internal/config"
	"github.com/zelo-saude/agendamento/internal/notify"
	redisclient "github.com/zelo-saude/agendamento/internal/redis"
)

const (
	EventBooked      = "APPOINTMENT_BOOKED"
	EventConfirmed   = "APPOINTMENT_CONFIRMED"
	EventRejected    = "APPOINTMENT_REJECTED"
	EventCancelled   = "APPOINTMENT_CANCELLED"
	EventStarted     = "APPOINTMENT_STARTED"
	EventFinished    = "APPOINTMENT_FINISHED"
	EventNoShowEvent = "APPOINTMENT_NO_SHOW"
)

var ErrScheduleBusy = errors.New("schedule is being booked, please retry")

// ValidationError carries every rule violation of a rejected booking request.
type ValidationError struct {
	Result ValidationResult
}

func (e *ValidationError) Error() string {
	return "booking validation failed: " + strings.Join(e.Result.Errors, "; ")
}

// AvailabilitySource is the slice of the availability store the booking
// service needs.
type AvailabilitySource interface {
	Get(ctx context.Context, practitionerID uuid.UUID) (availability.WeeklyAvailability, error)
}

// ReminderSink receives the reminder side effects of lifecycle transitions.
// Failures here are logged, never propagated: a booking must not fail because
// a reminder could not be scheduled.
type ReminderSink interface {
	ScheduleBooking(ctx context.Context, appt *Appointment) error
	ScheduleConfirmation(ctx context.Context, appt *Appointment) error
	VoidPending(ctx context.Context, appointmentID uuid.UUID) error
}

// BookingRequest is the logical patient-initiated booking operation.
type BookingRequest struct {
	PractitionerID uuid.UUID
	StartAt        time.Time
	Duration       time.Duration // zero means the configured default
	Kind           Kind
	Notes          *string
}

type Service struct {
	repo      Repository
	avail     AvailabilitySource
	locker    redisclient.Locker
	reminders ReminderSink
	notifier  notify.Notifier
	rules     config.SchedulingRules
	now       func() time.Time
	log       zerolog.Logger
}

func NewService(repo Repository, avail AvailabilitySource, locker redisclient.Locker, reminders ReminderSink, notifier notify.Notifier, rules config.SchedulingRules, log zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		avail:     avail,
		locker:    locker,
		reminders: reminders,
		notifier:  notifier,
		rules:     rules,
		now:       time.Now,
		log:       log,
	}
}

// Book validates and creates a patient-initiated booking. The optimistic
// validation runs first; the authoritative conflict check repeats inside the
// per-practitioner schedule lock, and the database exclusion constraint
// settles any race the lock cannot see.
func (s *Service) Book(ctx context.Context, actor Actor, req BookingRequest) (*Appointment, *ValidationResult, error) {
	if actor.Role != RolePatient {
		return nil, nil, fmt.Errorf("%w: only patients originate bookings", ErrForbidden)
	}
	if !req.Kind.Valid() {
		return nil, nil, &ValidationError{Result: ValidationResult{
			Errors: []string{fmt.Sprintf("unknown appointment kind %q", req.Kind)},
		}}
	}

	duration := req.Duration
	if duration <= 0 {
		duration = s.rules.SlotDuration
	}

	if _, err := s.repo.GetPatientByID(ctx, actor.ID); err != nil {
		return nil, nil, err
	}
	if _, err := s.repo.GetPractitionerByID(ctx, req.PractitionerID); err != nil {
		return nil, nil, err
	}

	week, err := s.avail.Get(ctx, req.PractitionerID)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	existing, err := s.listAround(ctx, req.PractitionerID, req.StartAt, duration)
	if err != nil {
		return nil, nil, err
	}

	res := Validate(req.StartAt, duration, week, existing, now, s.rules)
	if !res.Valid {
		if res.Conflict {
			return nil, &res, ErrSlotConflict
		}
		return nil, &res, &ValidationError{Result: res}
	}

	var created *Appointment
	err = s.locker.WithScheduleLock(ctx, req.PractitionerID, req.StartAt.In(s.rules.Timezone), func(lockCtx context.Context) error {
		// Re-check inside the critical section: another booking may have
		// committed between the optimistic validation and here.
		current, err := s.listAround(lockCtx, req.PractitionerID, req.StartAt, duration)
		if err != nil {
			return fmt.Errorf("recheck conflicts: %w", err)
		}
		if recheck := Validate(req.StartAt, duration, week, current, now, s.rules); recheck.Conflict {
			return ErrSlotConflict
		}

		appt := &Appointment{
			PractitionerID: req.PractitionerID,
			PatientID:      actor.ID,
			StartAt:        req.StartAt,
			EndAt:          req.StartAt.Add(duration),
			Kind:           req.Kind,
			Notes:          req.Notes,
		}
		created, err = s.repo.CreateScheduled(lockCtx, appt, s.rules.Buffer)
		if err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, nil, ErrScheduleBusy
		}
		if errors.Is(err, ErrSlotConflict) {
			return nil, &res, ErrSlotConflict
		}
		return nil, nil, err
	}

	// Best-effort side effects: the booking stands even if these fail. The
	// patient's booking-received notice is one of the reminder events; only
	// the practitioner is notified directly, so each party hears exactly once.
	if err := s.reminders.ScheduleBooking(ctx, created); err != nil {
		s.log.Error().Err(err).Str("appointment_id", created.ID.String()).Msg("schedule booking reminders")
	}
	s.sendNotification(ctx, created.PractitionerID, notify.TemplateBookingRequested, created, "")
	s.logEvent(ctx, created.ID, EventBooked, map[string]any{
		"practitioner_id": created.PractitionerID.String(),
		"patient_id":      created.PatientID.String(),
		"start_at":        created.StartAt,
	})

	return created, &res, nil
}

// Slots lists the bookable candidates for one practitioner and calendar date
// (the date's year/month/day, interpreted in the canonical zone).
// duration<=0 and buffer<0 fall back to the configured defaults.
func (s *Service) Slots(ctx context.Context, practitionerID uuid.UUID, date time.Time, duration, buffer time.Duration) ([]Slot, error) {
	if _, err := s.repo.GetPractitionerByID(ctx, practitionerID); err != nil {
		return nil, err
	}
	week, err := s.avail.Get(ctx, practitionerID)
	if err != nil {
		return nil, err
	}

	// The date's year/month/day pick the calendar day in the canonical zone,
	// matching the generator's anchoring.
	loc := s.rules.Timezone
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	existing, err := s.repo.ListForPractitionerBetween(ctx, practitionerID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	return GenerateSlots(week, dayStart, duration, buffer, existing, s.now(), s.rules), nil
}

// Confirm moves agendada to confirmada. Practitioner only.
func (s *Service) Confirm(ctx context.Context, actor Actor, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, actor, id, EventConfirm, "", nil)
}

// Reject declines a pending booking; the reason reaches the patient.
func (s *Service) Reject(ctx context.Context, actor Actor, id uuid.UUID, reason string) (*Appointment, error) {
	return s.transition(ctx, actor, id, EventReject, reason, nil)
}

// Cancel withdraws a booking. Either party; practitioners must give a reason.
func (s *Service) Cancel(ctx context.Context, actor Actor, id uuid.UUID, reason string) (*Appointment, error) {
	return s.transition(ctx, actor, id, EventCancel, reason, nil)
}

// Start marks a confirmed consultation as underway.
func (s *Service) Start(ctx context.Context, actor Actor, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, actor, id, EventStart, "", nil)
}

// Finish completes a running consultation, persisting the clinical notes.
func (s *Service) Finish(ctx context.Context, actor Actor, id uuid.UUID, notes string) (*Appointment, error) {
	var n *string
	if notes != "" {
		n = &notes
	}
	return s.transition(ctx, actor, id, EventFinish, "", n)
}

// MarkNoShow records that the patient did not appear.
func (s *Service) MarkNoShow(ctx context.Context, actor Actor, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, actor, id, EventNoShow, "", nil)
}

func (s *Service) transition(ctx context.Context, actor Actor, id uuid.UUID, event TransitionEvent, reason string, notes *string) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next, err := NextStatus(appt, event, actor, reason)
	if err != nil {
		return nil, err
	}

	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}

	updated, err := s.repo.UpdateStatus(ctx, id, appt.Status, next, reasonPtr, notes)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// The row exists but its status moved under us.
			return nil, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, event, appt.Status)
		}
		return nil, fmt.Errorf("apply %s: %w", event, err)
	}

	s.applySideEffects(ctx, actor, updated, event, reason)
	return updated, nil
}

// applySideEffects enqueues the notifications and reminder changes a
// committed transition owes. All of them are best-effort.
func (s *Service) applySideEffects(ctx context.Context, actor Actor, appt *Appointment, event TransitionEvent, reason string) {
	switch event {
	case EventConfirm:
		// The confirmed notice reaches the patient through the reminder
		// pipeline, never as a second direct send.
		if err := s.reminders.ScheduleConfirmation(ctx, appt); err != nil {
			s.log.Error().Err(err).Str("appointment_id", appt.ID.String()).Msg("schedule confirmation notice")
		}
		s.logEvent(ctx, appt.ID, EventConfirmed, nil)
	case EventReject:
		s.voidReminders(ctx, appt.ID)
		s.sendNotification(ctx, appt.PatientID, notify.TemplateBookingRejected, appt, reason)
		s.logEvent(ctx, appt.ID, EventRejected, map[string]any{"reason": reason})
	case EventCancel:
		s.voidReminders(ctx, appt.ID)
		other := appt.PatientID
		if actor.Role == RolePatient {
			other = appt.PractitionerID
		}
		s.sendNotification(ctx, other, notify.TemplateBookingCancelled, appt, reason)
		s.logEvent(ctx, appt.ID, EventCancelled, map[string]any{"reason": reason, "by": string(actor.Role)})
	case EventStart:
		s.logEvent(ctx, appt.ID, EventStarted, nil)
	case EventFinish:
		s.logEvent(ctx, appt.ID, EventFinished, nil)
	case EventNoShow:
		s.logEvent(ctx, appt.ID, EventNoShowEvent, nil)
	}
}

func (s *Service) voidReminders(ctx context.Context, appointmentID uuid.UUID) {
	if err := s.reminders.VoidPending(ctx, appointmentID); err != nil {
		s.log.Error().Err(err).Str("appointment_id", appointmentID.String()).Msg("void pending reminders")
	}
}

func (s *Service) sendNotification(ctx context.Context, recipientID uuid.UUID, template notify.TemplateKind, appt *Appointment, reason string) {
	snap := notify.Snapshot{
		AppointmentID:  appt.ID,
		PractitionerID: appt.PractitionerID,
		PatientID:      appt.PatientID,
		StartAt:        appt.StartAt,
		Kind:           string(appt.Kind),
		Reason:         reason,
	}
	if err := s.notifier.Send(ctx, recipientID, template, snap); err != nil {
		s.log.Error().Err(err).
			Str("recipient_id", recipientID.String()).
			Str("template", string(template)).
			Msg("dispatch notification")
	}
}

// GetAppointment returns an appointment to one of its two participants.
func (s *Service) GetAppointment(ctx context.Context, actor Actor, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isParty(appt, actor) {
		return nil, ErrForbidden
	}
	return appt, nil
}

// ListForActor returns the actor's own appointments, newest first.
func (s *Service) ListForActor(ctx context.Context, actor Actor, limit, offset int) ([]Appointment, error) {
	if limit <= 0 {
		limit = 20 // default
	}
	if limit > 100 {
		limit = 100 // max
	}
	if offset < 0 {
		offset = 0
	}

	switch actor.Role {
	case RolePatient:
		return s.repo.ListByPatient(ctx, actor.ID, limit, offset)
	case RolePractitioner:
		return s.repo.ListByPractitioner(ctx, actor.ID, limit, offset)
	}
	return nil, ErrForbidden
}

// listAround loads the neighborhood of a candidate wide enough that every
// appointment the buffered conflict rule could touch is included.
func (s *Service) listAround(ctx context.Context, practitionerID uuid.UUID, start time.Time, duration time.Duration) ([]Appointment, error) {
	margin := duration + 2*s.rules.Buffer
	return s.repo.ListForPractitionerBetween(ctx, practitionerID, start.Add(-margin), start.Add(duration).Add(margin))
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("event_type", eventType).Msg("marshal event payload")
		data = nil
	}

	apptID := appointmentID
	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Error().Err(err).
			Str("event_type", eventType).
			Str("appointment_id", appointmentID.String()).
			Msg("insert event log")
	}
}
