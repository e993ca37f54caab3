package appointment

import (
	"errors"
	"fmt"
)

// TransitionEvent names an action an actor can take on a booked appointment.
type TransitionEvent string

const (
	EventConfirm TransitionEvent = "confirm"
	EventReject  TransitionEvent = "reject"
	EventCancel  TransitionEvent = "cancel"
	EventStart   TransitionEvent = "start"
	EventFinish  TransitionEvent = "finish"
	EventNoShow  TransitionEvent = "mark-no-show"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrForbidden         = errors.New("actor may not perform this transition")
	ErrReasonRequired    = errors.New("a non-empty reason is required")
)

type transitionRule struct {
	to     Status
	actors []Role
	// practitionerReason: the transition needs a reason when the practitioner
	// invokes it (used in the patient-facing notification). Patients cancel
	// without one.
	practitionerReason bool
}

func (r transitionRule) allows(role Role) bool {
	for _, a := range r.actors {
		if a == role {
			return true
		}
	}
	return false
}

var (
	practitionerOnly = []Role{RolePractitioner}
	eitherParty      = []Role{RolePatient, RolePractitioner}
)

// transitions is the closed set of legal lifecycle moves. Anything absent
// here is ErrInvalidTransition; terminal states have no entries at all.
var transitions = map[Status]map[TransitionEvent]transitionRule{
	StatusScheduled: {
		EventConfirm: {to: StatusConfirmed, actors: practitionerOnly},
		EventReject:  {to: StatusRejected, actors: practitionerOnly, practitionerReason: true},
		EventCancel:  {to: StatusCancelled, actors: eitherParty, practitionerReason: true},
	},
	StatusConfirmed: {
		EventCancel: {to: StatusCancelled, actors: eitherParty, practitionerReason: true},
		EventStart:  {to: StatusInProgress, actors: practitionerOnly},
		EventNoShow: {to: StatusNoShow, actors: practitionerOnly},
	},
	StatusInProgress: {
		EventFinish: {to: StatusCompleted, actors: practitionerOnly},
		EventNoShow: {to: StatusNoShow, actors: practitionerOnly},
	},
}

// NextStatus resolves a transition against the table and the actor's standing
// in the appointment. The appointment itself is not mutated.
func NextStatus(appt *Appointment, event TransitionEvent, actor Actor, reason string) (Status, error) {
	rule, ok := transitions[appt.Status][event]
	if !ok {
		return "", fmt.Errorf("%w: %s from %s", ErrInvalidTransition, event, appt.Status)
	}

	if !rule.allows(actor.Role) || !isParty(appt, actor) {
		return "", fmt.Errorf("%w: %s as %s", ErrForbidden, event, actor.Role)
	}

	if rule.practitionerReason && actor.Role == RolePractitioner && reason == "" {
		return "", fmt.Errorf("%w: %s by practitioner", ErrReasonRequired, event)
	}

	return rule.to, nil
}

// isParty checks that the actor is actually one of the appointment's two
// participants, not merely someone holding the right role.
func isParty(appt *Appointment, actor Actor) bool {
	switch actor.Role {
	case RolePatient:
		return actor.ID == appt.PatientID
	case RolePractitioner:
		return actor.ID == appt.PractitionerID
	}
	return false
}
