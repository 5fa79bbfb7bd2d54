package services

import "errors"

// PolicyError is a named, user-facing denial. Admission preconditions and
// deadline checks surface these instead of a generic error so UI flows can
// explain why an invitation is blocked.
type PolicyError struct {
	Code   string
	Reason string
}

func (e *PolicyError) Error() string { return e.Reason }

// Admission denials, in precondition order. The first failing check wins.
var (
	ErrPersonNotFound     = &PolicyError{"person_not_found", "external person not found"}
	ErrNotHouseholdMember = &PolicyError{"not_household_member", "you are not a member of this household"}
	ErrPersonHasNoEmail   = &PolicyError{"person_has_no_email", "external person has no email address"}
	ErrNoMatchingAccount  = &PolicyError{"no_registered_user", "no registered user with this email"}
	ErrSelfInvitation     = &PolicyError{"self_invitation", "cannot invite yourself"}
	ErrAlreadyPending     = &PolicyError{"already_pending", "an invitation for this person is already pending"}
	ErrAlreadyConnected   = &PolicyError{"already_connected", "this person is already connected to that user"}

	// ErrInvitationExpired is reported when an accept arrives after the
	// deadline; the connection is flipped to expired inline.
	ErrInvitationExpired = &PolicyError{"invitation_expired", "invitation has expired"}
)

// ErrAlreadyProcessed is the state-conflict outcome: the connection is
// missing or another writer already moved it out of the expected state.
// Deliberately does not reveal who won the race.
var ErrAlreadyProcessed = errors.New("connection not found or already processed")

// ErrAccessDenied is returned by the linked-data gateway when the
// connection is not accepted or the caller is not a party to it.
var ErrAccessDenied = errors.New("access denied")
