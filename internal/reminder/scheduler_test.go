package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zelo-saude/agendamento/internal/appointment"
)

var schedTestNow = time.Date(2026, time.August, 28, 9, 0, 0, 0, time.UTC)

func testBooking(start time.Time) *appointment.Appointment {
	return &appointment.Appointment{
		ID:             uuid.New(),
		PractitionerID: uuid.New(),
		PatientID:      uuid.New(),
		StartAt:        start,
		EndAt:          start.Add(50 * time.Minute),
		Status:         appointment.StatusScheduled,
		Kind:           appointment.KindOnline,
	}
}

func kindsOf(events []Event) []Kind {
	out := make([]Kind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

func TestBuildScheduleFullSet(t *testing.T) {
	appt := testBooking(schedTestNow.Add(72 * time.Hour))

	events := BuildSchedule(appt, schedTestNow)
	require.Len(t, events, 3)
	assert.Equal(t, []Kind{KindBookingReceived, KindReminder24h, KindReminder1h}, kindsOf(events))

	assert.Equal(t, schedTestNow, events[0].ScheduledFor)
	assert.Equal(t, appt.StartAt.Add(-24*time.Hour), events[1].ScheduledFor)
	assert.Equal(t, appt.StartAt.Add(-time.Hour), events[2].ScheduledFor)

	for _, ev := range events {
		assert.Equal(t, appt.ID, ev.AppointmentID)
		assert.Equal(t, appt.PatientID, ev.RecipientID)
		assert.Equal(t, StatusPending, ev.Status)
		assert.Equal(t, ChannelEmail, ev.Channel)
	}
}

func TestBuildScheduleFreezesAppointmentFacts(t *testing.T) {
	appt := testBooking(schedTestNow.Add(72 * time.Hour))

	events := BuildSchedule(appt, schedTestNow)
	require.NotEmpty(t, events)
	for _, ev := range events {
		assert.Equal(t, appt.PractitionerID, ev.PractitionerID)
		assert.Equal(t, appt.StartAt, ev.AppointmentStart)
		assert.Equal(t, string(appt.Kind), ev.AppointmentKind)
	}
}

func TestBuildScheduleDropsElapsedOffsets(t *testing.T) {
	// Booked 3 hours ahead: the 24h mark already passed, the 1h one has not.
	appt := testBooking(schedTestNow.Add(3 * time.Hour))

	events := BuildSchedule(appt, schedTestNow)
	assert.Equal(t, []Kind{KindBookingReceived, KindReminder1h}, kindsOf(events))
}

func TestBuildScheduleImmediateOnly(t *testing.T) {
	// Under an hour away: only the booking-received notice survives.
	appt := testBooking(schedTestNow.Add(30 * time.Minute))

	events := BuildSchedule(appt, schedTestNow)
	assert.Equal(t, []Kind{KindBookingReceived}, kindsOf(events))
}

// memReminderRepo backs scheduler and dispatcher tests.
type memReminderRepo struct {
	events map[uuid.UUID]*Event

	insertErr      error
	markSentCalls  []uuid.UUID
	markOutcomeErr error
}

func newMemReminderRepo() *memReminderRepo {
	return &memReminderRepo{events: map[uuid.UUID]*Event{}}
}

func (r *memReminderRepo) InsertBatch(_ context.Context, events []Event) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	for _, ev := range events {
		cp := ev
		r.events[ev.ID] = &cp
	}
	return nil
}

func (r *memReminderRepo) VoidPending(_ context.Context, appointmentID uuid.UUID) (int64, error) {
	var n int64
	for _, ev := range r.events {
		if ev.AppointmentID == appointmentID && ev.Status == StatusPending {
			ev.Status = StatusVoid
			n++
		}
	}
	return n, nil
}

func (r *memReminderRepo) FindDue(_ context.Context, now time.Time, limit int) ([]Event, error) {
	var out []Event
	for _, ev := range r.events {
		if ev.Status == StatusPending && !ev.ScheduledFor.After(now) {
			out = append(out, *ev)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *memReminderRepo) MarkOutcome(_ context.Context, id uuid.UUID, to Status) (bool, error) {
	if r.markOutcomeErr != nil {
		return false, r.markOutcomeErr
	}
	ev, ok := r.events[id]
	if !ok || ev.Status != StatusPending {
		return false, nil
	}
	ev.Status = to
	return true, nil
}

func (r *memReminderRepo) MarkRemindersSent(_ context.Context, appointmentID uuid.UUID) error {
	r.markSentCalls = append(r.markSentCalls, appointmentID)
	return nil
}

func (r *memReminderRepo) countByStatus(status Status) int {
	n := 0
	for _, ev := range r.events {
		if ev.Status == status {
			n++
		}
	}
	return n
}

func TestSchedulerScheduleBookingPersistsEvents(t *testing.T) {
	repo := newMemReminderRepo()
	sched := NewScheduler(repo, zerolog.Nop())
	sched.now = func() time.Time { return schedTestNow }

	appt := testBooking(schedTestNow.Add(72 * time.Hour))
	require.NoError(t, sched.ScheduleBooking(context.Background(), appt))
	assert.Len(t, repo.events, 3)
}

func TestSchedulerScheduleBookingWrapsError(t *testing.T) {
	repo := newMemReminderRepo()
	repo.insertErr = errors.New("connection reset")
	sched := NewScheduler(repo, zerolog.Nop())

	err := sched.ScheduleBooking(context.Background(), testBooking(schedTestNow.Add(72*time.Hour)))
	assert.ErrorContains(t, err, "insert booking reminders")
}

func TestSchedulerVoidPendingSupersedesFutureReminders(t *testing.T) {
	repo := newMemReminderRepo()
	sched := NewScheduler(repo, zerolog.Nop())
	sched.now = func() time.Time { return schedTestNow }

	appt := testBooking(schedTestNow.Add(72 * time.Hour))
	require.NoError(t, sched.ScheduleBooking(context.Background(), appt))

	require.NoError(t, sched.VoidPending(context.Background(), appt.ID))
	assert.Equal(t, 0, repo.countByStatus(StatusPending))
	assert.Equal(t, 3, repo.countByStatus(StatusVoid))

	// Voided events never come due.
	due, err := repo.FindDue(context.Background(), schedTestNow.Add(100*time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestSchedulerConfirmationAddsSingleNotice(t *testing.T) {
	repo := newMemReminderRepo()
	sched := NewScheduler(repo, zerolog.Nop())
	sched.now = func() time.Time { return schedTestNow }

	appt := testBooking(schedTestNow.Add(72 * time.Hour))
	require.NoError(t, sched.ScheduleConfirmation(context.Background(), appt))

	require.Len(t, repo.events, 1)
	for _, ev := range repo.events {
		assert.Equal(t, KindBookingConfirmed, ev.Kind)
		assert.Equal(t, schedTestNow, ev.ScheduledFor)
	}
}
