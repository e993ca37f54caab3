package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/zelo-saude/agendamento/internal/appointment"
	"github.com/zelo-saude/agendamento/internal/availability"
	"github.com/zelo-saude/agendamento/internal/metrics"
	redisclient "github.com/zelo-saude/agendamento/internal/redis"
)

// BookingService is the slice of the appointment service the handlers use.
type BookingService interface {
	Book(ctx context.Context, actor appointment.Actor, req appointment.BookingRequest) (*appointment.Appointment, *appointment.ValidationResult, error)
	Slots(ctx context.Context, practitionerID uuid.UUID, date time.Time, duration, buffer time.Duration) ([]appointment.Slot, error)
	Confirm(ctx context.Context, actor appointment.Actor, id uuid.UUID) (*appointment.Appointment, error)
	Reject(ctx context.Context, actor appointment.Actor, id uuid.UUID, reason string) (*appointment.Appointment, error)
	Cancel(ctx context.Context, actor appointment.Actor, id uuid.UUID, reason string) (*appointment.Appointment, error)
	Start(ctx context.Context, actor appointment.Actor, id uuid.UUID) (*appointment.Appointment, error)
	Finish(ctx context.Context, actor appointment.Actor, id uuid.UUID, notes string) (*appointment.Appointment, error)
	MarkNoShow(ctx context.Context, actor appointment.Actor, id uuid.UUID) (*appointment.Appointment, error)
	GetAppointment(ctx context.Context, actor appointment.Actor, id uuid.UUID) (*appointment.Appointment, error)
	ListForActor(ctx context.Context, actor appointment.Actor, limit, offset int) ([]appointment.Appointment, error)
}

// AvailabilityService is the slice of the availability store the handlers use.
type AvailabilityService interface {
	Get(ctx context.Context, practitionerID uuid.UUID) (availability.WeeklyAvailability, error)
	Set(ctx context.Context, practitionerID uuid.UUID, week availability.WeeklyAvailability) error
}

func getAvailabilityHandler(svc AvailabilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		practitionerID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_practitioner_id", "id must be a valid UUID")
			return
		}

		week, err := svc.Get(r.Context(), practitionerID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAvailabilityPayload(week))
	}
}

func setAvailabilityHandler(svc AvailabilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ActorFromContext(r.Context())
		practitionerID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_practitioner_id", "id must be a valid UUID")
			return
		}
		if actor.Role != appointment.RolePractitioner || actor.ID != practitionerID {
			writeError(w, http.StatusForbidden, "forbidden", "only the owning practitioner configures availability")
			return
		}

		var payload AvailabilityPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		week, err := parseAvailabilityPayload(payload)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_availability", err.Error())
			return
		}

		if err := svc.Set(r.Context(), practitionerID, week); err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAvailabilityPayload(week))
	}
}

func listSlotsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		practitionerID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_practitioner_id", "id must be a valid UUID")
			return
		}

		dateStr := r.URL.Query().Get("date")
		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		duration, err := minutesParam(r, "duration", 0)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_duration", "duration must be a non-negative whole number of minutes")
			return
		}
		buffer, err := minutesParam(r, "buffer", -1)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_buffer", "buffer must be a non-negative whole number of minutes")
			return
		}

		slots, err := svc.Slots(r.Context(), practitionerID, date, duration, buffer)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		if slots == nil {
			slots = []appointment.Slot{}
		}

		writeJSON(w, http.StatusOK, SlotsResponse{Date: dateStr, Slots: slots})
	}
}

func bookHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ActorFromContext(r.Context())

		var req BookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		practitionerID, err := uuid.Parse(req.PractitionerID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_practitioner_id", "practitioner_id must be a valid UUID")
			return
		}
		startAt, err := time.Parse(time.RFC3339, req.StartAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start_at", "start_at must be RFC 3339")
			return
		}

		created, res, err := svc.Book(r.Context(), actor, appointment.BookingRequest{
			PractitionerID: practitionerID,
			StartAt:        startAt,
			Duration:       time.Duration(req.DurationMinutes) * time.Minute,
			Kind:           appointment.Kind(req.Kind),
			Notes:          req.Notes,
		})
		if err != nil {
			metrics.BookingsTotal.WithLabelValues(bookingOutcome(err)).Inc()
			handleServiceError(w, err)
			return
		}
		metrics.BookingsTotal.WithLabelValues("created").Inc()

		resp := toAppointmentResponse(created)
		if res != nil {
			resp.Warnings = res.Warnings
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

func getAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ActorFromContext(r.Context())
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.GetAppointment(r.Context(), actor, id)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func listAppointmentsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ActorFromContext(r.Context())
		limit := intParam(r, "limit", 20)
		offset := intParam(r, "offset", 0)

		appts, err := svc.ListForActor(r.Context(), actor, limit, offset)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := make([]AppointmentResponse, 0, len(appts))
		for i := range appts {
			resp = append(resp, toAppointmentResponse(&appts[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// transitionHandler serves every lifecycle action endpoint; the apply
// callback binds it to one service method.
func transitionHandler(event appointment.TransitionEvent, apply func(ctx context.Context, actor appointment.Actor, id uuid.UUID, req TransitionRequest) (*appointment.Appointment, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ActorFromContext(r.Context())
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req TransitionRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
				return
			}
		}

		appt, err := apply(r.Context(), actor, id, req)
		if err != nil {
			metrics.TransitionsTotal.WithLabelValues(string(event), "rejected").Inc()
			handleServiceError(w, err)
			return
		}
		metrics.TransitionsTotal.WithLabelValues(string(event), "applied").Inc()

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func handleServiceError(w http.ResponseWriter, err error) {
	var validationErr *appointment.ValidationError
	var availErr *availability.InvalidAvailabilityError

	switch {
	case errors.As(err, &validationErr):
		writeErrorList(w, http.StatusBadRequest, "validation_failed", validationErr.Result.Errors, validationErr.Result.Warnings)
	case errors.As(err, &availErr):
		writeErrorList(w, http.StatusBadRequest, "invalid_availability", availErr.Problems, nil)
	case errors.Is(err, appointment.ErrSlotConflict):
		writeError(w, http.StatusConflict, "slot_conflict", "the requested time is no longer available; regenerate slots before retrying")
	case errors.Is(err, appointment.ErrScheduleBusy), errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "schedule_busy", "this schedule is being booked, please retry shortly")
	case errors.Is(err, appointment.ErrReasonRequired):
		writeError(w, http.StatusBadRequest, "reason_required", err.Error())
	case errors.Is(err, appointment.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, appointment.ErrInvalidTransition):
		writeError(w, http.StatusUnprocessableEntity, "invalid_transition", err.Error())
	case errors.Is(err, appointment.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, appointment.ErrPractitionerNotFound):
		writeError(w, http.StatusNotFound, "practitioner_not_found", err.Error())
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func bookingOutcome(err error) string {
	var validationErr *appointment.ValidationError
	switch {
	case errors.Is(err, appointment.ErrSlotConflict), errors.Is(err, appointment.ErrScheduleBusy):
		return "conflict"
	case errors.As(err, &validationErr):
		return "invalid"
	}
	return "error"
}

func parseAvailabilityPayload(payload AvailabilityPayload) (availability.WeeklyAvailability, error) {
	var week availability.WeeklyAvailability
	for day, window := range payload.Days {
		if day < 0 || day > 6 {
			return week, fmt.Errorf("day of week %d out of range (0=Sunday..6=Saturday)", day)
		}
		if !window.Active {
			continue
		}
		start, err := availability.ParseTimeOfDay(window.Start)
		if err != nil {
			return week, err
		}
		end, err := availability.ParseTimeOfDay(window.End)
		if err != nil {
			return week, err
		}
		week[day] = availability.DayWindow{Active: true, Start: start, End: end}
	}
	return week, nil
}

func toAvailabilityPayload(week availability.WeeklyAvailability) AvailabilityPayload {
	days := make(map[int]DayWindowPayload, len(week))
	for day, window := range week {
		payload := DayWindowPayload{Active: window.Active}
		if window.Active {
			payload.Start = window.Start.String()
			payload.End = window.End.String()
		}
		days[day] = payload
	}
	return AvailabilityPayload{Days: days}
}

// minutesParam parses an optional minutes query parameter. Absent means the
// default; anything present must be a non-negative integer.
func minutesParam(r *http.Request, name string, def time.Duration) (time.Duration, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	minutes, err := strconv.Atoi(v)
	if err != nil || minutes < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, v)
	}
	return time.Duration(minutes) * time.Minute, nil
}

func intParam(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
