package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/infinitops/infinitops/internal/model"
	"github.com/infinitops/infinitops/internal/store"
)

// CredentialStore is the slice of the store the auth service depends on.
type CredentialStore interface {
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
}

// dummyHash is a well-formed bcrypt digest compared against when a username
// does not exist, so unknown-user and wrong-password failures take the same
// time.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// AuthService orchestrates credential verification, token issuance, and
// bearer-token resolution against the credential store.
type AuthService struct {
	creds  CredentialStore
	tokens *TokenService
	ttl    time.Duration
}

// NewAuthService constructs an AuthService. The configuration is validated
// once here and treated as immutable afterwards.
func NewAuthService(creds CredentialStore, cfg Config) (*AuthService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &AuthService{
		creds:  creds,
		tokens: NewTokenService(cfg),
		ttl:    cfg.TokenTTL,
	}, nil
}

// Tokens exposes the underlying token service.
func (s *AuthService) Tokens() *TokenService {
	return s.tokens
}

// Authenticate verifies username/password credentials and returns a signed
// bearer token. Unknown usernames and wrong passwords both fail with
// ErrInvalidCredentials; a disabled account fails with ErrAccountInactive,
// checked only after the password verified.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (string, error) {
	user, err := s.creds.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn a bcrypt comparison anyway so a missing account is not
			// distinguishable from a wrong password by timing.
			_, _ = VerifyPassword(password, dummyHash)
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("look up user: %w", err)
	}

	ok, err := VerifyPassword(password, user.PasswordHash)
	if err != nil {
		// Corrupt stored hash: a server-side failure, not a bad credential.
		return "", err
	}
	if !ok {
		return "", ErrInvalidCredentials
	}
	if !user.IsActive {
		return "", ErrAccountInactive
	}

	return s.tokens.Issue(user.ID, s.ttl)
}

// Resolve validates a bearer token and returns the user it identifies.
// Token failures surface as *TokenError (ErrTokenInvalid class); a subject
// that no longer exists fails with ErrPrincipalNotFound; a deactivated
// account fails with ErrAccountInactive even if the token itself is valid.
func (s *AuthService) Resolve(ctx context.Context, token string) (*model.User, error) {
	userID, err := s.tokens.Validate(token)
	if err != nil {
		return nil, err
	}

	user, err := s.creds.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("look up principal: %w", err)
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}
	return user, nil
}
