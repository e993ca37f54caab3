package availability

import (
	"context"

	"github.com/google/uuid"
)

// Repository contains all DB interactions needed by the store.
type Repository interface {
	// GetWeekly loads the configured week. found=false means the practitioner
	// has never configured availability; the store turns that into an
	// all-inactive week rather than an error.
	GetWeekly(ctx context.Context, practitionerID uuid.UUID) (week WeeklyAvailability, found bool, err error)

	// ReplaceWeekly atomically upserts all seven days. The latest write fully
	// replaces prior state; no history is kept.
	ReplaceWeekly(ctx context.Context, practitionerID uuid.UUID, week WeeklyAvailability) error
}
