package reminder

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository contains all DB interactions needed by the scheduler and the
// dispatcher.
type Repository interface {
	InsertBatch(ctx context.Context, events []Event) error

	// VoidPending flips every pending event of an appointment to void and
	// returns how many were affected.
	VoidPending(ctx context.Context, appointmentID uuid.UUID) (int64, error)

	// FindDue returns pending events whose scheduled time has arrived.
	FindDue(ctx context.Context, now time.Time, limit int) ([]Event, error)

	// MarkOutcome is a compare-and-set from pending, so a concurrently voided
	// reminder is never reported as sent.
	MarkOutcome(ctx context.Context, id uuid.UUID, to Status) (bool, error)

	// MarkRemindersSent records on the appointment that its time-based
	// reminders have fired.
	MarkRemindersSent(ctx context.Context, appointmentID uuid.UUID) error
}
