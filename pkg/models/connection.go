package models

import "time"

type ConnectionStatus string

const (
	ConnectionPending  ConnectionStatus = "pending"
	ConnectionAccepted ConnectionStatus = "accepted"
	ConnectionRejected ConnectionStatus = "rejected"
	ConnectionRevoked  ConnectionStatus = "revoked"
	ConnectionExpired  ConnectionStatus = "expired"
)

// ConnectionTTL is how long an invitation stays open. Fixed at creation,
// never extended.
const ConnectionTTL = 5 * 24 * time.Hour

// ActiveConnectionStatuses are the non-terminal states. At most one
// connection per (external_person_id, invited_user_id) pair may be in one
// of these states at any time.
var ActiveConnectionStatuses = []ConnectionStatus{ConnectionPending, ConnectionAccepted}

// PersonConnection is the invitation/authorization record between an
// inviter and the registered account resolved from an external person's
// email. Rows are never physically deleted; terminal rows form the audit
// trail and keep the "already responded" signal for re-invitations.
type PersonConnection struct {
	ID               string           `json:"id" db:"id"`
	ExternalPersonID string           `json:"external_person_id" db:"external_person_id"`
	InvitedUserID    string           `json:"invited_user_id" db:"invited_user_id"`
	InvitedByUserID  string           `json:"invited_by_user_id" db:"invited_by_user_id"`
	Status           ConnectionStatus `json:"status" db:"status"`
	InvitedAt        time.Time        `json:"invited_at" db:"invited_at"`
	RespondedAt      *time.Time       `json:"responded_at,omitempty" db:"responded_at"`
	ExpiresAt        time.Time        `json:"expires_at" db:"expires_at"`
}

// IsActive reports whether the connection is in a non-terminal state.
func (c *PersonConnection) IsActive() bool {
	return c.Status == ConnectionPending || c.Status == ConnectionAccepted
}

// IsParty reports whether userID is the inviter or the invitee.
func (c *PersonConnection) IsParty(userID string) bool {
	return c.InvitedUserID == userID || c.InvitedByUserID == userID
}
