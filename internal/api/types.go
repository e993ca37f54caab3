package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/zelo-saude/agendamento/internal/appointment"
)

type DayWindowPayload struct {
	Active bool   `json:"active"`
	Start  string `json:"start,omitempty"`
	End    string `json:"end,omitempty"`
}

// AvailabilityPayload carries the full weekly map, keyed by day of week
// (0=Sunday..6=Saturday). Days absent from a PUT become inactive: the write
// replaces the whole week.
type AvailabilityPayload struct {
	Days map[int]DayWindowPayload `json:"days"`
}

type BookRequest struct {
	PractitionerID  string  `json:"practitioner_id"`
	StartAt         string  `json:"start_at"` // RFC 3339
	DurationMinutes int     `json:"duration_minutes,omitempty"`
	Kind            string  `json:"kind"`
	Notes           *string `json:"notes,omitempty"`
}

type TransitionRequest struct {
	Reason string `json:"reason,omitempty"`
	Notes  string `json:"notes,omitempty"`
}

type AppointmentResponse struct {
	ID             uuid.UUID  `json:"id"`
	PractitionerID uuid.UUID  `json:"practitioner_id"`
	PatientID      uuid.UUID  `json:"patient_id"`
	StartAt        time.Time  `json:"start_at"`
	EndAt          time.Time  `json:"end_at"`
	Status         string     `json:"status"`
	Kind           string     `json:"kind"`
	Price          *float64   `json:"price,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
	VideoLink      *string    `json:"video_link,omitempty"`
	CancelReason   *string    `json:"cancel_reason,omitempty"`
	RemindersSent  bool       `json:"reminders_sent"`
	Warnings       []string   `json:"warnings,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:             a.ID,
		PractitionerID: a.PractitionerID,
		PatientID:      a.PatientID,
		StartAt:        a.StartAt,
		EndAt:          a.EndAt,
		Status:         string(a.Status),
		Kind:           string(a.Kind),
		Price:          a.Price,
		Notes:          a.Notes,
		VideoLink:      a.VideoLink,
		CancelReason:   a.CancelReason,
		RemindersSent:  a.RemindersSent,
		CreatedAt:      a.CreatedAt,
	}
}

type SlotsResponse struct {
	Date  string             `json:"date"`
	Slots []appointment.Slot `json:"slots"`
}

type ErrorResponse struct {
	Error    string   `json:"error"`
	Details  string   `json:"details,omitempty"`
	Messages []string `json:"messages,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}
