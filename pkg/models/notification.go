package models

import "time"

// Notification types emitted by the connection lifecycle.
const (
	NotificationConnectionInvited  = "connection_invited"
	NotificationConnectionAccepted = "connection_accepted"
	NotificationConnectionRevoked  = "connection_revoked"
	NotificationConnectionExpired  = "connection_expired"
)

// Notification is a best-effort, polled message for a user. Delivery
// failures never block the state transition that produced them.
type Notification struct {
	ID                string    `json:"id" db:"id"`
	UserID            string    `json:"user_id" db:"user_id"`
	Type              string    `json:"type" db:"type"`
	Title             string    `json:"title" db:"title"`
	Message           string    `json:"message" db:"message"`
	RelatedEntityType string    `json:"related_entity_type,omitempty" db:"related_entity_type"`
	RelatedEntityID   string    `json:"related_entity_id,omitempty" db:"related_entity_id"`
	Read              bool      `json:"read" db:"read"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}
