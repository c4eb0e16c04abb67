package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/infinitops/infinitops/internal/model"
	"github.com/infinitops/infinitops/internal/service"
	"github.com/infinitops/infinitops/internal/store"
)

func newTestAuth(t *testing.T) (*service.AuthService, *store.Store) {
	t.Helper()
	st, err := store.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := service.DefaultConfig()
	cfg.SecretKey = "middleware-test-secret"
	auth, err := service.NewAuthService(st, cfg)
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	return auth, st
}

func seedUser(t *testing.T, st *store.Store, username string, active bool) *model.User {
	t.Helper()
	hash, err := service.HashPasswordCost("password123", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPasswordCost: %v", err)
	}
	user := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		IsActive:     active,
	}
	if err := st.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return user
}

// echoPrincipal writes 200 and records the principal seen by the handler.
func echoPrincipal(captured **model.User) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = GetPrincipal(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticateValidToken(t *testing.T) {
	auth, st := newTestAuth(t)
	user := seedUser(t, st, "alice", true)

	token, err := auth.Tokens().Issue(user.ID, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	var principal *model.User
	handler := Authenticate(auth)(echoPrincipal(&principal))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (body %s)", rec.Code, rec.Body)
	}
	if principal == nil || principal.ID != user.ID {
		t.Errorf("principal: got %+v, want user %d", principal, user.ID)
	}
}

func TestAuthenticateRejections(t *testing.T) {
	auth, st := newTestAuth(t)
	inactive := seedUser(t, st, "bob", false)

	inactiveToken, err := auth.Tokens().Issue(inactive.ID, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	const deletedID = 9999
	orphanToken, err := auth.Tokens().Issue(deletedID, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
		{"garbage token", "Bearer not.a.token"},
		{"unknown subject", "Bearer " + orphanToken},
		{"inactive account", "Bearer " + inactiveToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var principal *model.User
			handler := Authenticate(auth)(echoPrincipal(&principal))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status: got %d, want 401", rec.Code)
			}
			if principal != nil {
				t.Error("handler must not run on rejected request")
			}
		})
	}
}

func TestRequirePermission(t *testing.T) {
	user := &model.User{
		ID:       1,
		Username: "ops",
		IsActive: true,
		Roles:    []model.Role{{Name: "operator", Permissions: "tickets:read"}},
	}

	call := func(u *model.User, perm string) int {
		handler := RequirePermission(perm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if u != nil {
			req = req.WithContext(context.WithValue(req.Context(), PrincipalKey, u))
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := call(user, "tickets:read"); code != http.StatusOK {
		t.Errorf("held permission: got %d, want 200", code)
	}
	if code := call(user, "users:write"); code != http.StatusForbidden {
		t.Errorf("missing permission: got %d, want 403", code)
	}
	if code := call(nil, "tickets:read"); code != http.StatusForbidden {
		t.Errorf("no principal: got %d, want 403", code)
	}

	admin := &model.User{
		ID:       2,
		Username: "root",
		IsActive: true,
		Roles:    []model.Role{{Name: "admin", Permissions: model.PermissionWildcard}},
	}
	if code := call(admin, "anything:whatsoever"); code != http.StatusOK {
		t.Errorf("wildcard: got %d, want 200", code)
	}
}

func TestRequestIDGenerated(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen == "" {
		t.Fatal("expected a generated request ID in context")
	}
	if got := rec.Header().Get("X-Request-ID"); got != seen {
		t.Errorf("header %q does not match context %q", got, seen)
	}
}

func TestRequestIDHonorsClientHeader(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "client-supplied-id")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen != "client-supplied-id" {
		t.Errorf("context ID: got %q, want client-supplied-id", seen)
	}
	if got := rec.Header().Get("X-Request-ID"); got != "client-supplied-id" {
		t.Errorf("header ID: got %q", got)
	}
}
