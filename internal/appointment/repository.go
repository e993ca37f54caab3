package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound      = errors.New("patient not found")
	ErrPractitionerNotFound = errors.New("practitioner not found")
	ErrAppointmentNotFound  = errors.New("appointment not found")

	// ErrSlotConflict covers both the optimistic check and the race loser
	// caught by the persistence-layer exclusion constraint. Callers should
	// regenerate slots before retrying.
	ErrSlotConflict = errors.New("requested time conflicts with an existing appointment")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetPractitionerByID(ctx context.Context, id uuid.UUID) (*Practitioner, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// ListForPractitionerBetween returns every appointment whose interval
	// touches [from, to), regardless of status: the conflict rule decides
	// which ones block.
	ListForPractitionerBetween(ctx context.Context, practitionerID uuid.UUID, from, to time.Time) ([]Appointment, error)

	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error)
	ListByPractitioner(ctx context.Context, practitionerID uuid.UUID, limit, offset int) ([]Appointment, error)

	// CreateScheduled inserts the appointment in its initial status. The
	// overlap exclusion constraint is the authoritative double-booking
	// guard; its violation surfaces as ErrSlotConflict.
	CreateScheduled(ctx context.Context, appt *Appointment, buffer time.Duration) (*Appointment, error)

	// UpdateStatus performs a compare-and-set transition. reason and notes,
	// when non-nil, are persisted alongside. ErrAppointmentNotFound means
	// either the id is unknown or the status moved concurrently.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, reason, notes *string) (*Appointment, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
