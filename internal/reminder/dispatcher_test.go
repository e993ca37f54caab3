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

	"github.com/zelo-saude/agendamento/internal/notify"
)

type recordingNotifier struct {
	sent      []notify.TemplateKind
	snapshots []notify.Snapshot
	failFor   notify.TemplateKind
}

func (n *recordingNotifier) Send(_ context.Context, _ uuid.UUID, template notify.TemplateKind, snap notify.Snapshot) error {
	if n.failFor != "" && template == n.failFor {
		return errors.New("smtp refused")
	}
	n.sent = append(n.sent, template)
	n.snapshots = append(n.snapshots, snap)
	return nil
}

func pendingEvent(appointmentID uuid.UUID, kind Kind, scheduledFor time.Time) Event {
	return Event{
		ID:               uuid.New(),
		AppointmentID:    appointmentID,
		RecipientID:      uuid.New(),
		PractitionerID:   uuid.New(),
		AppointmentStart: schedTestNow.Add(72 * time.Hour),
		AppointmentKind:  "online",
		Channel:          ChannelEmail,
		Kind:             kind,
		ScheduledFor:     scheduledFor,
		Status:           StatusPending,
	}
}

func newTestDispatcher(repo Repository, notifier notify.Notifier) *Dispatcher {
	d := NewDispatcher(repo, notifier, zerolog.Nop())
	d.now = func() time.Time { return schedTestNow }
	return d
}

func TestDispatchDueDeliversAndMarksSent(t *testing.T) {
	repo := newMemReminderRepo()
	apptID := uuid.New()
	require.NoError(t, repo.InsertBatch(context.Background(), []Event{
		pendingEvent(apptID, KindReminder24h, schedTestNow.Add(-time.Minute)),
		pendingEvent(apptID, KindBookingReceived, schedTestNow.Add(-time.Minute)),
	}))

	notifier := &recordingNotifier{}
	sent, err := newTestDispatcher(repo, notifier).DispatchDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)

	assert.Equal(t, 2, repo.countByStatus(StatusSent))
	assert.Equal(t, 0, repo.countByStatus(StatusPending))

	// Only the time-based reminder flips the appointment flag.
	assert.Equal(t, []uuid.UUID{apptID}, repo.markSentCalls)
}

func TestDispatchDueSnapshotCarriesAppointmentFacts(t *testing.T) {
	repo := newMemReminderRepo()
	// Dispatched an hour before the appointment: the notification must name
	// the appointment's own start, not the moment the reminder fires.
	ev := pendingEvent(uuid.New(), KindReminder1h, schedTestNow.Add(-time.Minute))
	ev.AppointmentStart = schedTestNow.Add(59 * time.Minute)
	require.NoError(t, repo.InsertBatch(context.Background(), []Event{ev}))

	notifier := &recordingNotifier{}
	sent, err := newTestDispatcher(repo, notifier).DispatchDue(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, sent)

	require.Len(t, notifier.snapshots, 1)
	snap := notifier.snapshots[0]
	assert.Equal(t, ev.AppointmentID, snap.AppointmentID)
	assert.Equal(t, ev.PractitionerID, snap.PractitionerID)
	assert.Equal(t, ev.RecipientID, snap.PatientID)
	assert.Equal(t, ev.AppointmentStart, snap.StartAt)
	assert.NotEqual(t, ev.ScheduledFor, snap.StartAt)
	assert.Equal(t, "online", snap.Kind)
}

func TestDispatchDueSkipsFutureEvents(t *testing.T) {
	repo := newMemReminderRepo()
	require.NoError(t, repo.InsertBatch(context.Background(), []Event{
		pendingEvent(uuid.New(), KindReminder1h, schedTestNow.Add(time.Hour)),
	}))

	notifier := &recordingNotifier{}
	sent, err := newTestDispatcher(repo, notifier).DispatchDue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Empty(t, notifier.sent)
	assert.Equal(t, 1, repo.countByStatus(StatusPending))
}

func TestDispatchDueMarksDeliveryFailures(t *testing.T) {
	repo := newMemReminderRepo()
	apptID := uuid.New()
	require.NoError(t, repo.InsertBatch(context.Background(), []Event{
		pendingEvent(apptID, KindReminder1h, schedTestNow.Add(-time.Minute)),
	}))

	notifier := &recordingNotifier{failFor: notify.TemplateReminder1h}
	sent, err := newTestDispatcher(repo, notifier).DispatchDue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)

	assert.Equal(t, 1, repo.countByStatus(StatusFailed))
	// A failed delivery never flips the appointment flag.
	assert.Empty(t, repo.markSentCalls)
}

func TestDispatchDueIgnoresConcurrentlyVoided(t *testing.T) {
	repo := newMemReminderRepo()
	apptID := uuid.New()
	ev := pendingEvent(apptID, KindReminder1h, schedTestNow.Add(-time.Minute))
	require.NoError(t, repo.InsertBatch(context.Background(), []Event{ev}))

	// The cancellation lands between FindDue and MarkOutcome.
	voidingRepo := &voidOnFindRepo{memReminderRepo: repo, target: ev.ID}
	notifier := &recordingNotifier{}
	sent, err := newTestDispatcher(voidingRepo, notifier).DispatchDue(context.Background())
	require.NoError(t, err)

	assert.Zero(t, sent)
	assert.Equal(t, 1, repo.countByStatus(StatusVoid))
	assert.Empty(t, repo.markSentCalls)
}

// voidOnFindRepo voids the target event right after handing it out, modeling
// a cancellation racing the dispatch loop.
type voidOnFindRepo struct {
	*memReminderRepo
	target uuid.UUID
}

func (r *voidOnFindRepo) FindDue(ctx context.Context, now time.Time, limit int) ([]Event, error) {
	due, err := r.memReminderRepo.FindDue(ctx, now, limit)
	if err != nil {
		return nil, err
	}
	if ev, ok := r.events[r.target]; ok {
		ev.Status = StatusVoid
	}
	return due, nil
}
