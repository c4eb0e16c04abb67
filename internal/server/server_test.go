package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/infinitops/infinitops/internal/model"
	"github.com/infinitops/infinitops/internal/service"
	"github.com/infinitops/infinitops/internal/store"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

const (
	testSecret   = "test-secret-for-integration-tests"
	testPassword = "admin-test-password"
)

// testEnv holds the shared state for integration tests.
type testEnv struct {
	server  *Server
	store   *store.Store
	authSvc *service.AuthService
}

// newTestEnv creates a fresh test environment with an in-memory store, a
// bootstrapped admin account, and a fully wired Server.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := store.NewStore("") // in-memory SQLite
	if err != nil {
		t.Fatalf("store.NewStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	hash, err := service.HashPasswordCost(testPassword, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPasswordCost: %v", err)
	}
	if _, err := st.Bootstrap(context.Background(), hash); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	cfg := service.DefaultConfig()
	cfg.SecretKey = testSecret
	authSvc, err := service.NewAuthService(st, cfg)
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(DefaultConfig(), st, authSvc, logger)

	return &testEnv{server: srv, store: st, authSvc: authSvc}
}

// do runs a request against the server and returns the recorder.
func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

// login authenticates the bootstrapped admin and returns a bearer token.
func (e *testEnv) login(t *testing.T) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/login/json", "", map[string]string{
		"username": store.BootstrapAdminUsername,
		"password": testPassword,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: got %d, body %s", rec.Code, rec.Body)
	}
	var resp model.TokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode token response: %v", err)
	}
	return resp.AccessToken
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body, err)
	}
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("/healthz: got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/readyz", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("/readyz: got %d", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// Login
// ---------------------------------------------------------------------------

func TestLoginJSON(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/login/json", "", map[string]string{
		"username": "admin",
		"password": testPassword,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body)
	}

	var resp model.TokenResponse
	decodeJSON(t, rec, &resp)
	if resp.AccessToken == "" {
		t.Error("expected non-empty access_token")
	}
	if resp.TokenType != "bearer" {
		t.Errorf("token_type: got %q, want bearer", resp.TokenType)
	}
}

func TestLoginForm(t *testing.T) {
	env := newTestEnv(t)

	form := url.Values{}
	form.Set("username", "admin")
	form.Set("password", testPassword)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body)
	}
	var resp model.TokenResponse
	decodeJSON(t, rec, &resp)
	if resp.AccessToken == "" || resp.TokenType != "bearer" {
		t.Errorf("unexpected token response: %+v", resp)
	}
}

func TestLoginFailures(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name     string
		username string
		password string
		want     int
	}{
		{"wrong password", "admin", "not-the-password", http.StatusUnauthorized},
		{"unknown user", "nobody", testPassword, http.StatusUnauthorized},
		{"missing password", "admin", "", http.StatusBadRequest},
		{"missing username", "", testPassword, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/login/json", "", map[string]string{
				"username": tt.username,
				"password": tt.password,
			})
			if rec.Code != tt.want {
				t.Errorf("status: got %d, want %d (body %s)", rec.Code, tt.want, rec.Body)
			}
		})
	}

	// Wrong-password and unknown-user bodies are identical.
	recWrong := env.do(t, http.MethodPost, "/api/v1/login/json", "", map[string]string{
		"username": "admin", "password": "nope",
	})
	recUnknown := env.do(t, http.MethodPost, "/api/v1/login/json", "", map[string]string{
		"username": "ghost", "password": "nope",
	})
	if recWrong.Body.String() != recUnknown.Body.String() {
		t.Errorf("failure bodies differ: %q vs %q", recWrong.Body, recUnknown.Body)
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	hash, err := service.HashPasswordCost("sleepy-password", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPasswordCost: %v", err)
	}
	user := &model.User{
		Username:     "dormant",
		Email:        "dormant@example.com",
		PasswordHash: hash,
		IsActive:     false,
	}
	if err := env.store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	rec := env.do(t, http.MethodPost, "/api/v1/login/json", "", map[string]string{
		"username": "dormant", "password": "sleepy-password",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400 (body %s)", rec.Code, rec.Body)
	}
	var resp model.ErrorResponse
	decodeJSON(t, rec, &resp)
	if resp.Error.Message != "Account is inactive" {
		t.Errorf("message: got %q", resp.Error.Message)
	}
}

// ---------------------------------------------------------------------------
// Protected routes
// ---------------------------------------------------------------------------

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	paths := []string{"/api/v1/users", "/api/v1/users/me", "/api/v1/clients", "/api/v1/tickets", "/api/v1/alerts"}
	for _, path := range paths {
		rec := env.do(t, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("GET %s without token: got %d, want 401", path, rec.Code)
		}
		rec = env.do(t, http.MethodGet, path, "garbage.token.here", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("GET %s with garbage token: got %d, want 401", path, rec.Code)
		}
	}
}

func TestUsersMe(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	rec := env.do(t, http.MethodGet, "/api/v1/users/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body)
	}

	var me model.User
	decodeJSON(t, rec, &me)
	if me.Username != store.BootstrapAdminUsername {
		t.Errorf("username: got %q, want %q", me.Username, store.BootstrapAdminUsername)
	}
	if !me.HasRole(store.BootstrapAdminRole) {
		t.Errorf("expected admin role, got %+v", me.Roles)
	}
	if strings.Contains(rec.Body.String(), "password_hash") {
		t.Error("password hash must never be serialized")
	}
}

func TestCreateAndListUsers(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	rec := env.do(t, http.MethodPost, "/api/v1/users", token, map[string]interface{}{
		"username": "tech1",
		"email":    "tech1@example.com",
		"password": "longenoughpw",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: got %d, body %s", rec.Code, rec.Body)
	}
	var created model.User
	decodeJSON(t, rec, &created)
	if created.ID == 0 || created.Username != "tech1" {
		t.Errorf("created user: %+v", created)
	}
	if !created.IsActive {
		t.Error("expected new user to default to active")
	}

	// Duplicate email is rejected with a specific message.
	rec = env.do(t, http.MethodPost, "/api/v1/users", token, map[string]interface{}{
		"username": "tech2",
		"email":    "tech1@example.com",
		"password": "longenoughpw",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate email: got %d, want 400", rec.Code)
	}
	var errResp model.ErrorResponse
	decodeJSON(t, rec, &errResp)
	if !strings.Contains(errResp.Error.Message, "email") {
		t.Errorf("message: got %q", errResp.Error.Message)
	}

	// Validation failures.
	rec = env.do(t, http.MethodPost, "/api/v1/users", token, map[string]interface{}{
		"username": "x",
		"email":    "not-an-email",
		"password": "short",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid payload: got %d, want 400", rec.Code)
	}

	// List includes admin plus the new user.
	rec = env.do(t, http.MethodGet, "/api/v1/users", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: got %d", rec.Code)
	}
	var list struct {
		Resource []model.User        `json:"resource"`
		Meta     *model.ResponseMeta `json:"meta"`
	}
	decodeJSON(t, rec, &list)
	if list.Meta == nil || list.Meta.Count != 2 {
		t.Errorf("meta: %+v", list.Meta)
	}
	if len(list.Resource) != 2 {
		t.Errorf("resource: got %d users", len(list.Resource))
	}
}

// The new user's credentials work immediately.
func TestCreatedUserCanLogin(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	rec := env.do(t, http.MethodPost, "/api/v1/users", token, map[string]interface{}{
		"username": "newbie",
		"email":    "newbie@example.com",
		"password": "newbiepassword",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: got %d, body %s", rec.Code, rec.Body)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/login/json", "", map[string]string{
		"username": "newbie", "password": "newbiepassword",
	})
	if rec.Code != http.StatusOK {
		t.Errorf("login as new user: got %d, body %s", rec.Code, rec.Body)
	}
}

// ---------------------------------------------------------------------------
// Clients and tickets
// ---------------------------------------------------------------------------

func TestClientLifecycle(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	rec := env.do(t, http.MethodPost, "/api/v1/clients", token, map[string]interface{}{
		"name":          "Acme Corp",
		"contact_info":  "ops@acme.test",
		"service_level": "premium",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: got %d, body %s", rec.Code, rec.Body)
	}
	var client model.Client
	decodeJSON(t, rec, &client)
	if client.ServiceLevel != model.ServicePremium {
		t.Errorf("service_level: got %q", client.ServiceLevel)
	}

	path := fmt.Sprintf("/api/v1/clients/%d", client.ID)

	rec = env.do(t, http.MethodPut, path, token, map[string]interface{}{
		"name": "Acme Corporation",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: got %d, body %s", rec.Code, rec.Body)
	}
	var updated model.Client
	decodeJSON(t, rec, &updated)
	if updated.Name != "Acme Corporation" {
		t.Errorf("name: got %q", updated.Name)
	}
	if updated.ServiceLevel != model.ServicePremium {
		t.Errorf("partial update must keep service_level, got %q", updated.ServiceLevel)
	}

	rec = env.do(t, http.MethodDelete, path, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: got %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, path, token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: got %d, want 404", rec.Code)
	}
}

func TestTicketLifecycle(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	// Tickets need a client.
	rec := env.do(t, http.MethodPost, "/api/v1/clients", token, map[string]interface{}{
		"name": "Acme Corp",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create client: got %d, body %s", rec.Code, rec.Body)
	}
	var client model.Client
	decodeJSON(t, rec, &client)

	// Unknown client is rejected.
	rec = env.do(t, http.MethodPost, "/api/v1/tickets", token, map[string]interface{}{
		"title":     "Broken printer",
		"client_id": 9999,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown client: got %d, want 400 (body %s)", rec.Code, rec.Body)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/tickets", token, map[string]interface{}{
		"title":     "Broken printer",
		"client_id": client.ID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create ticket: got %d, body %s", rec.Code, rec.Body)
	}
	var ticket model.Ticket
	decodeJSON(t, rec, &ticket)
	if ticket.Status != model.TicketOpen || ticket.Priority != model.PriorityMedium {
		t.Errorf("defaults: status %q priority %q", ticket.Status, ticket.Priority)
	}

	path := fmt.Sprintf("/api/v1/tickets/%d", ticket.ID)
	rec = env.do(t, http.MethodPut, path, token, map[string]interface{}{
		"status":   model.TicketInProgress,
		"priority": model.PriorityHigh,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: got %d, body %s", rec.Code, rec.Body)
	}

	// Filter by status.
	rec = env.do(t, http.MethodGet, "/api/v1/tickets?status=in_progress", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: got %d", rec.Code)
	}
	var list struct {
		Resource []model.Ticket `json:"resource"`
	}
	decodeJSON(t, rec, &list)
	if len(list.Resource) != 1 {
		t.Errorf("filtered list: got %d tickets", len(list.Resource))
	}

	// Invalid status filter is rejected.
	rec = env.do(t, http.MethodGet, "/api/v1/tickets?status=bogus", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bogus filter: got %d, want 400", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// Alerts
// ---------------------------------------------------------------------------

func TestAlertAcknowledgement(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	rec := env.do(t, http.MethodPost, "/api/v1/alerts", token, map[string]interface{}{
		"title":    "CPU pegged on srv-01",
		"severity": "critical",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create alert: got %d, body %s", rec.Code, rec.Body)
	}
	var alert model.Alert
	decodeJSON(t, rec, &alert)
	if alert.Status != "open" {
		t.Errorf("status: got %q", alert.Status)
	}

	ackPath := fmt.Sprintf("/api/v1/alerts/%d/ack", alert.ID)
	rec = env.do(t, http.MethodPost, ackPath, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ack: got %d, body %s", rec.Code, rec.Body)
	}
	var acked model.Alert
	decodeJSON(t, rec, &acked)
	if acked.Status != "acknowledged" {
		t.Errorf("status: got %q", acked.Status)
	}
	if acked.AcknowledgedBy == nil {
		t.Fatal("expected acknowledged_by to record the principal")
	}

	admin, err := env.store.GetUserByUsername(context.Background(), store.BootstrapAdminUsername)
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if *acked.AcknowledgedBy != admin.ID {
		t.Errorf("acknowledged_by: got %d, want %d", *acked.AcknowledgedBy, admin.ID)
	}

	// Re-acknowledging conflicts.
	rec = env.do(t, http.MethodPost, ackPath, token, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("second ack: got %d, want 409", rec.Code)
	}

	// Unknown alert.
	rec = env.do(t, http.MethodPost, "/api/v1/alerts/9999/ack", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown alert ack: got %d, want 404", rec.Code)
	}
}
