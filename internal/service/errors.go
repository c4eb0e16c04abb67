package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials covers both unknown usernames and wrong
	// passwords. The two cases are deliberately merged so the error cannot
	// be used to enumerate valid usernames.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountInactive is returned for a disabled account. During login it
	// is only surfaced after the password verified, so it does not leak
	// account existence either.
	ErrAccountInactive = errors.New("account inactive")

	// ErrTokenInvalid is the class all token validation failures match via
	// errors.Is. The concrete error is a *TokenError carrying the reason.
	ErrTokenInvalid = errors.New("invalid token")

	// ErrPrincipalNotFound is returned when a valid token's subject no
	// longer resolves to a user (e.g. the account was deleted).
	ErrPrincipalNotFound = errors.New("principal not found")

	// ErrMalformedHash indicates a stored password hash is not a
	// recognizable bcrypt digest. This means credential store corruption and
	// is treated as a server-side failure, never as a bad credential.
	ErrMalformedHash = errors.New("malformed password hash")
)

// Token failure reasons carried by TokenError.
const (
	ReasonBadSignature = "bad-signature"
	ReasonExpired      = "expired"
	ReasonMalformed    = "malformed"
)

// TokenError describes why a token failed validation. It matches
// ErrTokenInvalid through errors.Is; the Reason is surfaced for logging only,
// callers should not branch on it for authorization decisions.
type TokenError struct {
	Reason string
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("invalid token: %s", e.Reason)
}

// Unwrap makes every TokenError match ErrTokenInvalid.
func (e *TokenError) Unwrap() error {
	return ErrTokenInvalid
}
