package services

import (
	"errors"
	"testing"
	"time"

	"github.com/cOsMiCTr/famhub-backend/pkg/database"
	"github.com/cOsMiCTr/famhub-backend/pkg/models"
)

type testEnv struct {
	db          *database.MemoryDatabase
	connections *ConnectionService

	inviter   *models.User
	invitee   *models.User
	household *models.Household
	person    *models.ExternalPerson
}

// newTestEnv builds an inviter with a household plus an external person
// whose email (with odd casing and padding) resolves to a second
// registered account.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := database.NewMemoryDatabase()

	inviter := &models.User{Email: "owner@famhub.test", Name: "Owner"}
	if err := db.CreateUser(inviter); err != nil {
		t.Fatalf("create inviter: %v", err)
	}
	invitee := &models.User{Email: "alice@famhub.test", Name: "Alice"}
	if err := db.CreateUser(invitee); err != nil {
		t.Fatalf("create invitee: %v", err)
	}

	household := &models.Household{Name: "Owner's Household", OwnerID: inviter.ID}
	if err := db.CreateHousehold(household); err != nil {
		t.Fatalf("create household: %v", err)
	}

	person := &models.ExternalPerson{
		HouseholdID: household.ID,
		Name:        "Alice",
		Email:       "  ALICE@Famhub.Test ",
		CreatedBy:   inviter.ID,
	}
	if err := db.CreateExternalPerson(person); err != nil {
		t.Fatalf("create person: %v", err)
	}

	resolver := NewIdentityResolver(db)
	return &testEnv{
		db:          db,
		connections: NewConnectionService(db, resolver, NewDBNotifier(db)),
		inviter:     inviter,
		invitee:     invitee,
		household:   household,
		person:      person,
	}
}

func (e *testEnv) notificationTypes(t *testing.T, userID string) []string {
	t.Helper()
	notifications, err := e.db.ListNotificationsByUser(userID)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	types := make([]string, 0, len(notifications))
	for _, n := range notifications {
		types = append(types, n.Type)
	}
	return types
}

func TestInviteResolvesEmailCaseInsensitively(t *testing.T) {
	env := newTestEnv(t)

	conn, err := env.connections.Invite(env.inviter.ID, env.person.ID)
	if err != nil {
		t.Fatalf("invite: %v", err)
	}

	if conn.Status != models.ConnectionPending {
		t.Errorf("status = %s, want pending", conn.Status)
	}
	if conn.InvitedUserID != env.invitee.ID {
		t.Errorf("invited user = %s, want %s", conn.InvitedUserID, env.invitee.ID)
	}
	if conn.InvitedByUserID != env.inviter.ID {
		t.Errorf("inviter = %s, want %s", conn.InvitedByUserID, env.inviter.ID)
	}

	wantExpiry := conn.InvitedAt.Add(models.ConnectionTTL)
	if !conn.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("expires_at = %v, want %v", conn.ExpiresAt, wantExpiry)
	}

	types := env.notificationTypes(t, env.invitee.ID)
	if len(types) != 1 || types[0] != models.NotificationConnectionInvited {
		t.Errorf("invitee notifications = %v, want one connection_invited", types)
	}
}

func TestInvitePreconditions(t *testing.T) {
	t.Run("person not found", func(t *testing.T) {
		env := newTestEnv(t)
		if _, err := env.connections.Invite(env.inviter.ID, "missing"); !errors.Is(err, ErrPersonNotFound) {
			t.Errorf("err = %v, want ErrPersonNotFound", err)
		}
	})

	t.Run("not a household member", func(t *testing.T) {
		env := newTestEnv(t)
		outsider := &models.User{Email: "outsider@famhub.test"}
		if err := env.db.CreateUser(outsider); err != nil {
			t.Fatal(err)
		}
		if _, err := env.connections.Invite(outsider.ID, env.person.ID); !errors.Is(err, ErrNotHouseholdMember) {
			t.Errorf("err = %v, want ErrNotHouseholdMember", err)
		}
	})

	t.Run("person has no email", func(t *testing.T) {
		env := newTestEnv(t)
		env.person.Email = ""
		if err := env.db.UpdateExternalPerson(env.person); err != nil {
			t.Fatal(err)
		}
		if _, err := env.connections.Invite(env.inviter.ID, env.person.ID); !errors.Is(err, ErrPersonHasNoEmail) {
			t.Errorf("err = %v, want ErrPersonHasNoEmail", err)
		}
	})

	t.Run("no registered account", func(t *testing.T) {
		env := newTestEnv(t)
		env.person.Email = "nobody@famhub.test"
		if err := env.db.UpdateExternalPerson(env.person); err != nil {
			t.Fatal(err)
		}
		if _, err := env.connections.Invite(env.inviter.ID, env.person.ID); !errors.Is(err, ErrNoMatchingAccount) {
			t.Errorf("err = %v, want ErrNoMatchingAccount", err)
		}
	})

	t.Run("self invitation", func(t *testing.T) {
		env := newTestEnv(t)
		env.person.Email = env.inviter.Email
		if err := env.db.UpdateExternalPerson(env.person); err != nil {
			t.Fatal(err)
		}
		if _, err := env.connections.Invite(env.inviter.ID, env.person.ID); !errors.Is(err, ErrSelfInvitation) {
			t.Errorf("err = %v, want ErrSelfInvitation", err)
		}
	})
}

func TestInviteBlockedByActiveConnection(t *testing.T) {
	env := newTestEnv(t)

	conn, err := env.connections.Invite(env.inviter.ID, env.person.ID)
	if err != nil {
		t.Fatalf("invite: %v", err)
	}

	if _, err := env.connections.Invite(env.inviter.ID, env.person.ID); !errors.Is(err, ErrAlreadyPending) {
		t.Errorf("second invite err = %v, want ErrAlreadyPending", err)
	}

	if _, err := env.connections.Accept(env.invitee.ID, conn.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := env.connections.Invite(env.inviter.ID, env.person.ID); !errors.Is(err, ErrAlreadyConnected) {
		t.Errorf("invite after accept err = %v, want ErrAlreadyConnected", err)
	}
}

func TestAccept(t *testing.T) {
	env := newTestEnv(t)
	conn, err := env.connections.Invite(env.inviter.ID, env.person.ID)
	if err != nil {
		t.Fatalf("invite: %v", err)
	}

	accepted, err := env.connections.Accept(env.invitee.ID, conn.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != models.ConnectionAccepted {
		t.Errorf("status = %s, want accepted", accepted.Status)
	}
	if accepted.RespondedAt == nil {
		t.Error("responded_at not set")
	}

	types := env.notificationTypes(t, env.inviter.ID)
	if len(types) != 1 || types[0] != models.NotificationConnectionAccepted {
		t.Errorf("inviter notifications = %v, want one connection_accepted", types)
	}

	// a second accept finds the row already processed
	if _, err := env.connections.Accept(env.invitee.ID, conn.ID); !errors.Is(err, ErrAlreadyProcessed) {
		t.Errorf("double accept err = %v, want ErrAlreadyProcessed", err)
	}
}

func TestAcceptOnlyByInvitee(t *testing.T) {
	env := newTestEnv(t)
	conn, err := env.connections.Invite(env.inviter.ID, env.person.ID)
	if err != nil {
		t.Fatalf("invite: %v", err)
	}

	if _, err := env.connections.Accept(env.inviter.ID, conn.ID); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("accept by inviter err = %v, want ErrAccessDenied", err)
	}
}

func TestAcceptAfterDeadlineExpiresInline(t *testing.T) {
	env := newTestEnv(t)

	overdue := &models.PersonConnection{
		ExternalPersonID: env.person.ID,
		InvitedUserID:    env.invitee.ID,
		InvitedByUserID:  env.inviter.ID,
		Status:           models.ConnectionPending,
		InvitedAt:        time.Now().Add(-6 * 24 * time.Hour),
		ExpiresAt:        time.Now().Add(-24 * time.Hour),
	}
	if err := env.db.CreateConnection(overdue); err != nil {
		t.Fatalf("create overdue connection: %v", err)
	}

	if _, err := env.connections.Accept(env.invitee.ID, overdue.ID); !errors.Is(err, ErrInvitationExpired) {
		t.Fatalf("err = %v, want ErrInvitationExpired", err)
	}

	stored, err := env.db.GetConnection(overdue.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != models.ConnectionExpired {
		t.Errorf("stored status = %s, want expired", stored.Status)
	}
}

func TestRejectThenReinvite(t *testing.T) {
	env := newTestEnv(t)
	conn, err := env.connections.Invite(env.inviter.ID, env.person.ID)
	if err != nil {
		t.Fatalf("invite: %v", err)
	}

	rejected, err := env.connections.Reject(env.invitee.ID, conn.ID)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != models.ConnectionRejected {
		t.Errorf("status = %s, want rejected", rejected.Status)
	}

	// rejection is terminal for this row but a fresh invitation may follow
	fresh, err := env.connections.Invite(env.inviter.ID, env.person.ID)
	if err != nil {
		t.Fatalf("re-invite after reject: %v", err)
	}
	if fresh.ID == conn.ID {
		t.Error("re-invite reused the rejected row")
	}

	// the rejected row is untouched
	stored, err := env.db.GetConnection(conn.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != models.ConnectionRejected {
		t.Errorf("old row status = %s, want rejected", stored.Status)
	}
}

func TestRevoke(t *testing.T) {
	t.Run("inviter withdraws pending silently", func(t *testing.T) {
		env := newTestEnv(t)
		conn, err := env.connections.Invite(env.inviter.ID, env.person.ID)
		if err != nil {
			t.Fatal(err)
		}

		revoked, err := env.connections.Revoke(env.inviter.ID, conn.ID)
		if err != nil {
			t.Fatalf("revoke: %v", err)
		}
		if revoked.Status != models.ConnectionRevoked {
			t.Errorf("status = %s, want revoked", revoked.Status)
		}

		for _, ntype := range env.notificationTypes(t, env.invitee.ID) {
			if ntype == models.NotificationConnectionRevoked {
				t.Error("withdrawing a pending invitation should not notify the invitee")
			}
		}
	})

	t.Run("invitee disconnects accepted and inviter is notified", func(t *testing.T) {
		env := newTestEnv(t)
		conn, err := env.connections.Invite(env.inviter.ID, env.person.ID)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := env.connections.Accept(env.invitee.ID, conn.ID); err != nil {
			t.Fatal(err)
		}

		if _, err := env.connections.Disconnect(env.invitee.ID, conn.ID); err != nil {
			t.Fatalf("disconnect: %v", err)
		}

		found := false
		for _, ntype := range env.notificationTypes(t, env.inviter.ID) {
			if ntype == models.NotificationConnectionRevoked {
				found = true
			}
		}
		if !found {
			t.Error("inviter was not notified of the disconnect")
		}
	})

	t.Run("invitee cannot use administrative revoke", func(t *testing.T) {
		env := newTestEnv(t)
		conn, err := env.connections.Invite(env.inviter.ID, env.person.ID)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := env.connections.Accept(env.invitee.ID, conn.ID); err != nil {
			t.Fatal(err)
		}
		if _, err := env.connections.Revoke(env.invitee.ID, conn.ID); !errors.Is(err, ErrAccessDenied) {
			t.Errorf("err = %v, want ErrAccessDenied", err)
		}
	})

	t.Run("non-party denied", func(t *testing.T) {
		env := newTestEnv(t)
		conn, err := env.connections.Invite(env.inviter.ID, env.person.ID)
		if err != nil {
			t.Fatal(err)
		}
		outsider := &models.User{Email: "outsider@famhub.test"}
		if err := env.db.CreateUser(outsider); err != nil {
			t.Fatal(err)
		}
		if _, err := env.connections.Revoke(outsider.ID, conn.ID); !errors.Is(err, ErrAccessDenied) {
			t.Errorf("revoke err = %v, want ErrAccessDenied", err)
		}
		if _, err := env.connections.Disconnect(outsider.ID, conn.ID); !errors.Is(err, ErrAccessDenied) {
			t.Errorf("disconnect err = %v, want ErrAccessDenied", err)
		}
	})

	t.Run("terminal row already processed", func(t *testing.T) {
		env := newTestEnv(t)
		conn, err := env.connections.Invite(env.inviter.ID, env.person.ID)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := env.connections.Reject(env.invitee.ID, conn.ID); err != nil {
			t.Fatal(err)
		}
		if _, err := env.connections.Revoke(env.inviter.ID, conn.ID); !errors.Is(err, ErrAlreadyProcessed) {
			t.Errorf("err = %v, want ErrAlreadyProcessed", err)
		}
	})
}

func TestConcurrentAcceptAndRevokeHasOneWinner(t *testing.T) {
	env := newTestEnv(t)
	conn, err := env.connections.Invite(env.inviter.ID, env.person.ID)
	if err != nil {
		t.Fatal(err)
	}

	type outcome struct {
		err error
	}
	results := make(chan outcome, 2)
	go func() {
		_, err := env.connections.Accept(env.invitee.ID, conn.ID)
		results <- outcome{err}
	}()
	go func() {
		_, err := env.connections.Revoke(env.inviter.ID, conn.ID)
		results <- outcome{err}
	}()

	var failures int
	for i := 0; i < 2; i++ {
		r := <-results
		if r.err != nil {
			failures++
			if !errors.Is(r.err, ErrAlreadyProcessed) {
				t.Errorf("loser err = %v, want ErrAlreadyProcessed", r.err)
			}
		}
	}

	// with both racers started from the same pending snapshot, at most
	// one write can take effect
	if failures == 2 {
		t.Error("both transitions failed; expected exactly one winner")
	}
	stored, err := env.db.GetConnection(conn.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != models.ConnectionAccepted && stored.Status != models.ConnectionRevoked {
		t.Errorf("final status = %s, want accepted or revoked", stored.Status)
	}
}

// unavailableDB fails every row load, simulating a storage outage, and
// delegates everything else to the wrapped store.
type unavailableDB struct {
	database.DatabaseInterface
	err error
}

func (db unavailableDB) GetExternalPerson(string) (*models.ExternalPerson, error) {
	return nil, db.err
}

func (db unavailableDB) GetConnection(string) (*models.PersonConnection, error) {
	return nil, db.err
}

// A storage outage must surface as a retryable internal failure, never
// as a policy denial or state conflict the client would treat as final.
func TestStorageOutageIsNotAPolicyDenial(t *testing.T) {
	env := newTestEnv(t)
	conn, err := env.connections.Invite(env.inviter.ID, env.person.ID)
	if err != nil {
		t.Fatal(err)
	}

	outage := errors.New("connection refused: storage unavailable")
	flaky := unavailableDB{DatabaseInterface: env.db, err: outage}
	connections := NewConnectionService(flaky, NewIdentityResolver(flaky), NewDBNotifier(flaky))

	if _, err := connections.Invite(env.inviter.ID, env.person.ID); !errors.Is(err, outage) {
		t.Errorf("invite err = %v, want the outage wrapped", err)
	} else if errors.Is(err, ErrPersonNotFound) {
		t.Error("invite reported ErrPersonNotFound during an outage")
	}

	for name, op := range map[string]func(string, string) (*models.PersonConnection, error){
		"accept":     connections.Accept,
		"reject":     connections.Reject,
		"revoke":     connections.Revoke,
		"disconnect": connections.Disconnect,
	} {
		_, err := op(env.invitee.ID, conn.ID)
		if !errors.Is(err, outage) {
			t.Errorf("%s err = %v, want the outage wrapped", name, err)
		}
		if errors.Is(err, ErrAlreadyProcessed) {
			t.Errorf("%s reported ErrAlreadyProcessed during an outage", name)
		}
	}

	linked := NewLinkedDataService(flaky)
	if _, err := linked.Expenses(env.invitee.ID, conn.ID, models.ExpenseFilter{}); !errors.Is(err, outage) {
		t.Errorf("gateway err = %v, want the outage wrapped", err)
	} else if errors.Is(err, ErrAccessDenied) {
		t.Error("gateway reported ErrAccessDenied during an outage")
	}
}

// transitionFailDB fails conditional writes while leaving row loads on
// the wrapped store.
type transitionFailDB struct {
	database.DatabaseInterface
	err error
}

func (db transitionFailDB) TransitionConnection(string, []models.ConnectionStatus, models.ConnectionStatus, time.Time) (bool, error) {
	return false, db.err
}

func TestAcceptAfterDeadlineStillReportsExpiredWhenWriteFails(t *testing.T) {
	env := newTestEnv(t)
	overdue := env.createPending(t, time.Now().Add(-time.Hour))

	flaky := transitionFailDB{DatabaseInterface: env.db, err: errors.New("write timeout")}
	connections := NewConnectionService(flaky, NewIdentityResolver(flaky), NewDBNotifier(flaky))

	if _, err := connections.Accept(env.invitee.ID, overdue.ID); !errors.Is(err, ErrInvitationExpired) {
		t.Fatalf("err = %v, want ErrInvitationExpired", err)
	}

	// the row stays pending; the next sweep retries the expiry
	stored, err := env.db.GetConnection(overdue.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != models.ConnectionPending {
		t.Errorf("status = %s, want pending", stored.Status)
	}
}

func TestListForUser(t *testing.T) {
	env := newTestEnv(t)
	conn, err := env.connections.Invite(env.inviter.ID, env.person.ID)
	if err != nil {
		t.Fatal(err)
	}

	for _, userID := range []string{env.inviter.ID, env.invitee.ID} {
		conns, err := env.connections.ListForUser(userID, nil)
		if err != nil {
			t.Fatalf("list for %s: %v", userID, err)
		}
		if len(conns) != 1 || conns[0].ID != conn.ID {
			t.Errorf("list for %s = %d rows, want the one connection", userID, len(conns))
		}
	}

	accepted, err := env.connections.ListForUser(env.invitee.ID, []models.ConnectionStatus{models.ConnectionAccepted})
	if err != nil {
		t.Fatal(err)
	}
	if len(accepted) != 0 {
		t.Errorf("accepted filter returned %d rows, want 0", len(accepted))
	}
}
