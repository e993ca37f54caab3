package appointment

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAppointment(status Status) (*Appointment, Actor, Actor) {
	appt := &Appointment{
		ID:             uuid.New(),
		PatientID:      uuid.New(),
		PractitionerID: uuid.New(),
		Status:         status,
	}
	patient := Actor{ID: appt.PatientID, Role: RolePatient}
	practitioner := Actor{ID: appt.PractitionerID, Role: RolePractitioner}
	return appt, patient, practitioner
}

func TestNextStatusScheduledTransitions(t *testing.T) {
	appt, patient, practitioner := testAppointment(StatusScheduled)

	next, err := NextStatus(appt, EventConfirm, practitioner, "")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, next)

	next, err = NextStatus(appt, EventReject, practitioner, "agenda cheia")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, next)

	next, err = NextStatus(appt, EventCancel, patient, "")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, next)
}

func TestNextStatusScheduledCannotFinish(t *testing.T) {
	appt, _, practitioner := testAppointment(StatusScheduled)

	_, err := NextStatus(appt, EventFinish, practitioner, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = NextStatus(appt, EventStart, practitioner, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestNextStatusTerminalStatesAreFrozen(t *testing.T) {
	events := []TransitionEvent{EventConfirm, EventReject, EventCancel, EventStart, EventFinish, EventNoShow}

	for _, status := range []Status{StatusCompleted, StatusCancelled, StatusRejected, StatusNoShow} {
		appt, _, practitioner := testAppointment(status)
		for _, event := range events {
			_, err := NextStatus(appt, event, practitioner, "motivo")
			assert.ErrorIs(t, err, ErrInvalidTransition, "%s on %s", event, status)
		}
	}
}

func TestNextStatusPatientCannotConfirm(t *testing.T) {
	appt, patient, _ := testAppointment(StatusScheduled)

	_, err := NextStatus(appt, EventConfirm, patient, "")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = NextStatus(appt, EventReject, patient, "motivo")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestNextStatusPatientCannotRunConsultation(t *testing.T) {
	appt, patient, _ := testAppointment(StatusConfirmed)

	_, err := NextStatus(appt, EventStart, patient, "")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = NextStatus(appt, EventNoShow, patient, "")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestNextStatusStrangerIsNotAParty(t *testing.T) {
	appt, _, _ := testAppointment(StatusScheduled)

	// Right role, wrong person.
	other := Actor{ID: uuid.New(), Role: RolePractitioner}
	_, err := NextStatus(appt, EventConfirm, other, "")
	assert.ErrorIs(t, err, ErrForbidden)

	otherPatient := Actor{ID: uuid.New(), Role: RolePatient}
	_, err = NextStatus(appt, EventCancel, otherPatient, "")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestNextStatusPractitionerNeedsReason(t *testing.T) {
	appt, patient, practitioner := testAppointment(StatusScheduled)

	_, err := NextStatus(appt, EventReject, practitioner, "")
	assert.ErrorIs(t, err, ErrReasonRequired)

	_, err = NextStatus(appt, EventCancel, practitioner, "")
	assert.ErrorIs(t, err, ErrReasonRequired)

	// Patients cancel without giving one.
	next, err := NextStatus(appt, EventCancel, patient, "")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, next)
}

func TestNextStatusConfirmedFlow(t *testing.T) {
	appt, _, practitioner := testAppointment(StatusConfirmed)

	next, err := NextStatus(appt, EventStart, practitioner, "")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, next)

	next, err = NextStatus(appt, EventNoShow, practitioner, "")
	require.NoError(t, err)
	assert.Equal(t, StatusNoShow, next)

	appt.Status = StatusInProgress
	next, err = NextStatus(appt, EventFinish, practitioner, "")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, next)
}

func TestNextStatusDoesNotMutate(t *testing.T) {
	appt, _, practitioner := testAppointment(StatusScheduled)

	_, err := NextStatus(appt, EventConfirm, practitioner, "")
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, appt.Status)
}
