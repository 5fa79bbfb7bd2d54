package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cOsMiCTr/famhub-backend/pkg/database"
	"github.com/cOsMiCTr/famhub-backend/pkg/models"
)

// ConnectionService runs the invitation lifecycle. Every transition is a
// single conditional storage write; when two actors race, exactly one
// write takes effect and the loser sees ErrAlreadyProcessed.
type ConnectionService struct {
	db       database.DatabaseInterface
	resolver *IdentityResolver
	notifier Notifier
}

func NewConnectionService(db database.DatabaseInterface, resolver *IdentityResolver, notifier Notifier) *ConnectionService {
	return &ConnectionService{db: db, resolver: resolver, notifier: notifier}
}

// Invite creates a pending connection from inviterID to the account
// resolved from the external person's email. Preconditions are checked
// in a fixed order and the first failure wins; each denial is a
// *PolicyError.
func (s *ConnectionService) Invite(inviterID, personID string) (*models.PersonConnection, error) {
	person, err := s.db.GetExternalPerson(personID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrPersonNotFound
		}
		return nil, fmt.Errorf("failed to load external person: %w", err)
	}

	isMember, err := s.db.IsHouseholdMember(person.HouseholdID, inviterID)
	if err != nil {
		return nil, fmt.Errorf("membership check failed: %w", err)
	}
	if !isMember {
		return nil, ErrNotHouseholdMember
	}

	if strings.TrimSpace(person.Email) == "" {
		return nil, ErrPersonHasNoEmail
	}

	invitee, err := s.resolver.Resolve(person)
	if err != nil {
		return nil, fmt.Errorf("identity resolution failed: %w", err)
	}
	if invitee == nil {
		return nil, ErrNoMatchingAccount
	}

	if invitee.ID == inviterID {
		return nil, ErrSelfInvitation
	}

	existing, err := s.db.GetActiveConnection(personID, invitee.ID)
	if err != nil {
		return nil, fmt.Errorf("active connection lookup failed: %w", err)
	}
	if existing != nil {
		if existing.Status == models.ConnectionAccepted {
			return nil, ErrAlreadyConnected
		}
		return nil, ErrAlreadyPending
	}

	now := time.Now()
	conn := &models.PersonConnection{
		ExternalPersonID: personID,
		InvitedUserID:    invitee.ID,
		InvitedByUserID:  inviterID,
		Status:           models.ConnectionPending,
		InvitedAt:        now,
		ExpiresAt:        now.Add(models.ConnectionTTL),
	}
	if err := s.db.CreateConnection(conn); err != nil {
		// A concurrent Invite may have slipped past the lookup; the
		// partial unique index is the authority. Re-check before
		// reporting a storage failure.
		if racer, lookupErr := s.db.GetActiveConnection(personID, invitee.ID); lookupErr == nil && racer != nil {
			if racer.Status == models.ConnectionAccepted {
				return nil, ErrAlreadyConnected
			}
			return nil, ErrAlreadyPending
		}
		return nil, fmt.Errorf("failed to create connection: %w", err)
	}

	s.notifier.Notify(invitee.ID, models.NotificationConnectionInvited,
		"New connection invitation",
		fmt.Sprintf("You have been invited to connect as %s", person.Name),
		"person_connection", conn.ID)

	return conn, nil
}

// loadConnection maps a missing row to ErrAlreadyProcessed; any other
// storage error stays a retryable internal failure.
func (s *ConnectionService) loadConnection(connectionID string) (*models.PersonConnection, error) {
	conn, err := s.db.GetConnection(connectionID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrAlreadyProcessed
		}
		return nil, fmt.Errorf("failed to load connection: %w", err)
	}
	return conn, nil
}

// ListForUser returns connections where the user is a party, optionally
// filtered by status.
func (s *ConnectionService) ListForUser(userID string, statuses []models.ConnectionStatus) ([]models.PersonConnection, error) {
	return s.db.ListConnectionsForUser(userID, statuses)
}

// Accept moves a pending connection to accepted. Only the invitee may
// accept. An accept arriving after the deadline flips the row to
// expired instead and reports ErrInvitationExpired.
func (s *ConnectionService) Accept(userID, connectionID string) (*models.PersonConnection, error) {
	conn, err := s.loadConnection(connectionID)
	if err != nil {
		return nil, err
	}
	if conn.InvitedUserID != userID {
		return nil, ErrAccessDenied
	}
	if conn.Status != models.ConnectionPending {
		return nil, ErrAlreadyProcessed
	}

	now := time.Now()
	if now.After(conn.ExpiresAt) {
		// Lazy expiry: the sweep has not caught this row yet. The
		// conditional write keeps this race-safe against the sweep, and
		// the sweep retries the row if this write fails.
		if _, err := s.db.TransitionConnection(connectionID, []models.ConnectionStatus{models.ConnectionPending},
			models.ConnectionExpired, now); err != nil {
			fmt.Printf("❌ Failed to expire overdue connection %s: %v\n", connectionID, err)
		}
		return nil, ErrInvitationExpired
	}

	won, err := s.db.TransitionConnection(connectionID, []models.ConnectionStatus{models.ConnectionPending},
		models.ConnectionAccepted, now)
	if err != nil {
		return nil, fmt.Errorf("failed to accept connection: %w", err)
	}
	if !won {
		return nil, ErrAlreadyProcessed
	}

	conn.Status = models.ConnectionAccepted
	conn.RespondedAt = &now

	s.notifier.Notify(conn.InvitedByUserID, models.NotificationConnectionAccepted,
		"Invitation accepted",
		"Your connection invitation was accepted",
		"person_connection", conn.ID)

	return conn, nil
}

// Reject moves a pending connection to rejected. Only the invitee may
// reject. Rejection is terminal but the inviter may send a fresh
// invitation afterwards.
func (s *ConnectionService) Reject(userID, connectionID string) (*models.PersonConnection, error) {
	conn, err := s.loadConnection(connectionID)
	if err != nil {
		return nil, err
	}
	if conn.InvitedUserID != userID {
		return nil, ErrAccessDenied
	}
	if conn.Status != models.ConnectionPending {
		return nil, ErrAlreadyProcessed
	}

	now := time.Now()
	won, err := s.db.TransitionConnection(connectionID, []models.ConnectionStatus{models.ConnectionPending},
		models.ConnectionRejected, now)
	if err != nil {
		return nil, fmt.Errorf("failed to reject connection: %w", err)
	}
	if !won {
		return nil, ErrAlreadyProcessed
	}

	conn.Status = models.ConnectionRejected
	conn.RespondedAt = &now
	return conn, nil
}

// Revoke is the administrative withdrawal: only the inviter may pull a
// pending invitation or cut an accepted link.
func (s *ConnectionService) Revoke(userID, connectionID string) (*models.PersonConnection, error) {
	return s.revoke(userID, connectionID, false)
}

// Disconnect lets either party sever the connection; this is how the
// invitee ends a link they accepted.
func (s *ConnectionService) Disconnect(userID, connectionID string) (*models.PersonConnection, error) {
	return s.revoke(userID, connectionID, true)
}

// revoke moves a pending or accepted connection to revoked. The
// transition is keyed on the status the actor observed, so a concurrent
// response or sweep makes the revoke lose cleanly.
func (s *ConnectionService) revoke(userID, connectionID string, eitherParty bool) (*models.PersonConnection, error) {
	conn, err := s.loadConnection(connectionID)
	if err != nil {
		return nil, err
	}
	if conn.InvitedByUserID != userID {
		if !eitherParty || conn.InvitedUserID != userID {
			return nil, ErrAccessDenied
		}
	}
	if !conn.IsActive() {
		return nil, ErrAlreadyProcessed
	}

	observed := conn.Status
	now := time.Now()
	won, err := s.db.TransitionConnection(connectionID, []models.ConnectionStatus{observed},
		models.ConnectionRevoked, now)
	if err != nil {
		return nil, fmt.Errorf("failed to revoke connection: %w", err)
	}
	if !won {
		return nil, ErrAlreadyProcessed
	}

	conn.Status = models.ConnectionRevoked
	conn.RespondedAt = &now

	// Losing established access is worth telling the other party about;
	// a withdrawn invitation that was never accepted is not.
	if observed == models.ConnectionAccepted {
		other := conn.InvitedUserID
		if userID == conn.InvitedUserID {
			other = conn.InvitedByUserID
		}
		s.notifier.Notify(other, models.NotificationConnectionRevoked,
			"Connection revoked",
			"A connection you were part of has been revoked",
			"person_connection", conn.ID)
	}

	return conn, nil
}

// ExpireDue sweeps every pending connection past its deadline into
// expired and notifies both parties of each one. Returns the number of
// rows actually transitioned.
func (s *ConnectionService) ExpireDue(now time.Time) (int, error) {
	expired, err := s.db.ExpireDueConnections(now)
	if err != nil {
		return 0, fmt.Errorf("expiry sweep failed: %w", err)
	}

	for _, conn := range expired {
		s.notifier.Notify(conn.InvitedByUserID, models.NotificationConnectionExpired,
			"Invitation expired",
			"Your connection invitation expired without a response",
			"person_connection", conn.ID)
		s.notifier.Notify(conn.InvitedUserID, models.NotificationConnectionExpired,
			"Invitation expired",
			"A connection invitation addressed to you has expired",
			"person_connection", conn.ID)
	}

	return len(expired), nil
}
