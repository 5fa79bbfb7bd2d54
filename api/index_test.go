package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cOsMiCTr/famhub-backend/pkg/config"
	"github.com/cOsMiCTr/famhub-backend/pkg/database"
	"github.com/cOsMiCTr/famhub-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
)

func testRouter() *chi.Mux {
	cfg := &config.Config{
		Environment:         "test",
		Port:                "3000",
		UseMemoryDB:         true,
		JWTSecret:           "test-secret",
		ExpirySweepInterval: time.Hour,
		AllowedOrigins:      []string{"http://localhost:5173"},
	}
	return NewRouter(cfg, database.NewMemoryDatabase())
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body interface{}) (int, utils.APIResponse) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp utils.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("%s %s: invalid response body %q: %v", method, path, rec.Body.String(), err)
	}
	return rec.Code, resp
}

func dataMap(t *testing.T, resp utils.APIResponse) map[string]interface{} {
	t.Helper()
	m, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("response data is not an object: %#v", resp.Data)
	}
	return m
}

type account struct {
	token       string
	userID      string
	householdID string
}

func register(t *testing.T, router http.Handler, email, name string) account {
	t.Helper()
	status, resp := doJSON(t, router, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    email,
		"password": "correct-horse",
		"name":     name,
	})
	if status != http.StatusCreated {
		t.Fatalf("register %s: status %d (%+v)", email, status, resp.Error)
	}
	data := dataMap(t, resp)
	user := data["user"].(map[string]interface{})
	return account{
		token:       data["access_token"].(string),
		userID:      user["id"].(string),
		householdID: data["household_id"].(string),
	}
}

func TestInvitationFlowOverHTTP(t *testing.T) {
	router := testRouter()

	owner := register(t, router, "owner@famhub.test", "Owner")
	alice := register(t, router, "alice@famhub.test", "Alice")

	// owner records Alice as an external person, email in funny casing
	status, resp := doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/api/households/%s/persons", owner.householdID), owner.token,
		map[string]string{"name": "Alice", "email": "ALICE@Famhub.Test", "relationship": "sister"})
	if status != http.StatusCreated {
		t.Fatalf("create person: status %d (%+v)", status, resp.Error)
	}
	person := dataMap(t, resp)
	personID := person["id"].(string)
	if person["has_registered_account"] != true {
		t.Error("person view should report a matching registered account")
	}

	// invite
	status, resp = doJSON(t, router, http.MethodPost, "/api/persons/"+personID+"/invite", owner.token, nil)
	if status != http.StatusCreated {
		t.Fatalf("invite: status %d (%+v)", status, resp.Error)
	}
	connectionID := dataMap(t, resp)["id"].(string)

	// duplicate invite is a policy denial
	status, resp = doJSON(t, router, http.MethodPost, "/api/persons/"+personID+"/invite", owner.token, nil)
	if status != http.StatusConflict || resp.Error == nil || resp.Error.Code != "ALREADY_PENDING" {
		t.Fatalf("duplicate invite: status %d, error %+v; want 409 ALREADY_PENDING", status, resp.Error)
	}

	// deleting the person is refused while the invitation is live
	if status, _ := doJSON(t, router, http.MethodDelete, "/api/persons/"+personID, owner.token, nil); status != http.StatusConflict {
		t.Errorf("delete with live invitation: status %d, want 409", status)
	}

	// Alice sees the pending invitation and was notified
	status, resp = doJSON(t, router, http.MethodGet, "/api/connections?status=pending", alice.token, nil)
	if status != http.StatusOK {
		t.Fatalf("list connections: status %d", status)
	}
	if rows, ok := resp.Data.([]interface{}); !ok || len(rows) != 1 {
		t.Fatalf("pending connections = %#v, want one row", resp.Data)
	}
	status, resp = doJSON(t, router, http.MethodGet, "/api/notifications", alice.token, nil)
	if status != http.StatusOK {
		t.Fatalf("list notifications: status %d", status)
	}
	if rows, ok := resp.Data.([]interface{}); !ok || len(rows) != 1 {
		t.Fatalf("notifications = %#v, want one row", resp.Data)
	}

	// owner cannot accept on Alice's behalf
	if status, _ := doJSON(t, router, http.MethodPost, "/api/connections/"+connectionID+"/accept", owner.token, nil); status != http.StatusForbidden {
		t.Errorf("accept by inviter: status %d, want 403", status)
	}

	// Alice accepts
	status, resp = doJSON(t, router, http.MethodPost, "/api/connections/"+connectionID+"/accept", alice.token, nil)
	if status != http.StatusOK {
		t.Fatalf("accept: status %d (%+v)", status, resp.Error)
	}
	if dataMap(t, resp)["status"] != "accepted" {
		t.Errorf("accepted connection status = %v", dataMap(t, resp)["status"])
	}

	// linked income is an empty list, not an error
	status, resp = doJSON(t, router, http.MethodGet, "/api/connections/"+connectionID+"/linked-data/income", alice.token, nil)
	if status != http.StatusOK {
		t.Fatalf("linked income: status %d (%+v)", status, resp.Error)
	}

	// owner revokes; the gateway denies Alice on the very next call
	status, resp = doJSON(t, router, http.MethodPost, "/api/connections/"+connectionID+"/revoke", owner.token, nil)
	if status != http.StatusOK {
		t.Fatalf("revoke: status %d (%+v)", status, resp.Error)
	}
	if status, _ := doJSON(t, router, http.MethodGet, "/api/connections/"+connectionID+"/linked-data/expenses", alice.token, nil); status != http.StatusForbidden {
		t.Errorf("linked expenses after revoke: status %d, want 403", status)
	}

	// a terminal connection can be processed no further
	status, resp = doJSON(t, router, http.MethodPost, "/api/connections/"+connectionID+"/accept", alice.token, nil)
	if status != http.StatusConflict {
		t.Errorf("accept after revoke: status %d, want 409", status)
	}
}

func TestInviteeDisconnectOverHTTP(t *testing.T) {
	router := testRouter()

	owner := register(t, router, "owner@famhub.test", "Owner")
	alice := register(t, router, "alice@famhub.test", "Alice")

	status, resp := doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/api/households/%s/persons", owner.householdID), owner.token,
		map[string]string{"name": "Alice", "email": "alice@famhub.test"})
	if status != http.StatusCreated {
		t.Fatalf("create person: status %d (%+v)", status, resp.Error)
	}
	personID := dataMap(t, resp)["id"].(string)

	status, resp = doJSON(t, router, http.MethodPost, "/api/persons/"+personID+"/invite", owner.token, nil)
	if status != http.StatusCreated {
		t.Fatalf("invite: status %d (%+v)", status, resp.Error)
	}
	connectionID := dataMap(t, resp)["id"].(string)

	if status, _ := doJSON(t, router, http.MethodPost, "/api/connections/"+connectionID+"/accept", alice.token, nil); status != http.StatusOK {
		t.Fatalf("accept: status %d", status)
	}

	// the administrative revoke stays inviter-only
	if status, _ := doJSON(t, router, http.MethodPost, "/api/connections/"+connectionID+"/revoke", alice.token, nil); status != http.StatusForbidden {
		t.Errorf("revoke by invitee: status %d, want 403", status)
	}

	// but the invitee may sever the link themselves
	status, resp = doJSON(t, router, http.MethodPost, "/api/connections/"+connectionID+"/disconnect", alice.token, nil)
	if status != http.StatusOK {
		t.Fatalf("disconnect: status %d (%+v)", status, resp.Error)
	}
	if dataMap(t, resp)["status"] != "revoked" {
		t.Errorf("disconnected connection status = %v, want revoked", dataMap(t, resp)["status"])
	}
}

func TestAuthRequired(t *testing.T) {
	router := testRouter()

	paths := []string{
		"/api/connections",
		"/api/notifications",
		"/api/households",
	}
	for _, path := range paths {
		if status, _ := doJSON(t, router, http.MethodGet, path, "", nil); status != http.StatusUnauthorized {
			t.Errorf("GET %s without token: status %d, want 401", path, status)
		}
	}
}

func TestLoginIsCaseInsensitive(t *testing.T) {
	router := testRouter()
	register(t, router, "casey@famhub.test", "Casey")

	status, resp := doJSON(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "CASEY@FAMHUB.TEST",
		"password": "correct-horse",
	})
	if status != http.StatusOK {
		t.Fatalf("login: status %d (%+v)", status, resp.Error)
	}

	status, _ = doJSON(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "casey@famhub.test",
		"password": "wrong-horse",
	})
	if status != http.StatusUnauthorized {
		t.Errorf("wrong password: status %d, want 401", status)
	}
}

func TestUnknownRoute(t *testing.T) {
	router := testRouter()
	if status, _ := doJSON(t, router, http.MethodGet, "/api/nope", "", nil); status != http.StatusNotFound {
		t.Errorf("unknown route: status %d, want 404", status)
	}
}
