package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Status values follow the platform's canonical (Portuguese) vocabulary, which
// is also what the persistence layer stores.
type Status string

const (
	StatusScheduled  Status = "agendada"
	StatusConfirmed  Status = "confirmada"
	StatusInProgress Status = "em_andamento"
	StatusCompleted  Status = "concluida"
	StatusCancelled  Status = "cancelada"
	StatusRejected   Status = "rejeitada"
	StatusNoShow     Status = "nao_compareceu"
)

// Terminal reports whether no further transition is legal from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusRejected, StatusNoShow:
		return true
	}
	return false
}

// Blocking reports whether an appointment in this status still occupies its
// time window for conflict purposes. Cancelled and rejected bookings free
// their slot; every other status, terminal or not, keeps it taken.
func (s Status) Blocking() bool {
	return s != StatusCancelled && s != StatusRejected
}

type Kind string

const (
	KindOnline   Kind = "online"
	KindInPerson Kind = "in_person"
	KindPhone    Kind = "phone"
)

func (k Kind) Valid() bool {
	switch k {
	case KindOnline, KindInPerson, KindPhone:
		return true
	}
	return false
}

// Role of the authenticated actor, as supplied by the identity collaborator.
type Role string

const (
	RolePatient      Role = "patient"
	RolePractitioner Role = "practitioner"
)

// Actor is the authenticated identity driving an operation. The core trusts
// it as given.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Practitioner struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Appointment struct {
	ID             uuid.UUID
	PractitionerID uuid.UUID
	PatientID      uuid.UUID
	StartAt        time.Time
	EndAt          time.Time
	Status         Status
	Kind           Kind
	Price          *float64
	Notes          *string
	VideoLink      *string
	CancelReason   *string
	RemindersSent  bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Slot is a transient bookable interval computed on demand, never persisted.
type Slot struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"available"`
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
