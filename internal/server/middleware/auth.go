package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/infinitops/infinitops/internal/model"
	"github.com/infinitops/infinitops/internal/service"
)

type contextKeyAuth string

// PrincipalKey is the context key for the authenticated principal.
const PrincipalKey contextKeyAuth = "principal"

// Authenticate returns an HTTP middleware that resolves the request's bearer
// token into a principal. The token is read from the Authorization header
// using the "Bearer <token>" convention. On success the resolved user is
// attached to the request context; on failure a 401 JSON error is returned.
//
// Hash corruption surfaced by the auth service is reported as 500, since it
// indicates credential store damage rather than a bad request.
func Authenticate(authSvc *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeAuthError(w, http.StatusUnauthorized,
					"Authentication required. Provide a Bearer token.")
				return
			}
			token := strings.TrimPrefix(authHeader, "Bearer ")

			user, err := authSvc.Resolve(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, service.ErrTokenInvalid),
					errors.Is(err, service.ErrPrincipalNotFound),
					errors.Is(err, service.ErrAccountInactive):
					writeAuthError(w, http.StatusUnauthorized, "Invalid or expired token")
				default:
					writeAuthError(w, http.StatusInternalServerError, "Authentication error")
				}
				return
			}

			ctx := context.WithValue(r.Context(), PrincipalKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission returns an HTTP middleware that enforces a permission on
// the authenticated principal. It must be used after Authenticate. No route
// currently mounts it: the user-management endpoints are intentionally open
// to any authenticated principal, but role-gating a route is a one-line
// change once a policy is decided.
func RequirePermission(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetPrincipal(r.Context())
			if user == nil || !user.HasPermission(perm) {
				writeAuthError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetPrincipal extracts the authenticated user from the context. Returns nil
// if no principal is present (i.e., unauthenticated request).
func GetPrincipal(ctx context.Context) *model.User {
	if u, ok := ctx.Value(PrincipalKey).(*model.User); ok {
		return u
	}
	return nil
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.ErrorResponse{
		Error: model.ErrorDetail{Code: status, Message: message},
	})
}
