package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/infinitops/infinitops/internal/model"
	"github.com/infinitops/infinitops/internal/service"
)

// AuthHandler exposes the login endpoints. Both variants delegate to the same
// authenticate operation and return the same token payload.
type AuthHandler struct {
	authSvc *service.AuthService
	logger  *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authSvc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, logger: logger}
}

// loginRequest is the JSON payload for the LoginJSON endpoint.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates form-encoded credentials and returns a bearer token.
// POST /api/v1/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid form body")
		return
	}
	h.login(w, r, r.PostFormValue("username"), r.PostFormValue("password"))
}

// LoginJSON authenticates a JSON credential payload and returns a bearer
// token. Functionally identical to Login.
// POST /api/v1/login/json
func (h *AuthHandler) LoginJSON(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	h.login(w, r, req.Username, req.Password)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request, username, password string) {
	if username == "" || password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	token, err := h.authSvc.Authenticate(r.Context(), username, password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			// Unknown user and wrong password share one message.
			writeError(w, http.StatusUnauthorized, "Invalid username or password")
		case errors.Is(err, service.ErrAccountInactive):
			writeError(w, http.StatusBadRequest, "Account is inactive")
		default:
			// Includes malformed stored hashes: credential store corruption.
			h.logger.Error("authentication failure", "username", username, "error", err)
			writeError(w, http.StatusInternalServerError, "Authentication error")
		}
		return
	}

	writeJSON(w, http.StatusOK, model.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}
