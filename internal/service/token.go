package service

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService issues and validates signed bearer tokens. Tokens are
// stateless: nothing is persisted, and a token simply stops validating once
// its expiration instant passes. Rotating the secret invalidates every
// outstanding token.
type TokenService struct {
	secret []byte
	issuer string
}

// NewTokenService constructs a TokenService from the process configuration.
func NewTokenService(cfg Config) *TokenService {
	return &TokenService{
		secret: []byte(cfg.SecretKey),
		issuer: cfg.Issuer,
	}
}

// Issue creates a signed HS256 token for the given user id, expiring after
// ttl. The subject claim is the stringified user id.
func (t *TokenService) Issue(userID int64, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		Issuer:    t.issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Validate verifies the token's signature and expiry and returns the subject
// user id. Failures are *TokenError values (bad-signature, expired, or
// malformed), all matching ErrTokenInvalid.
func (t *TokenService) Validate(tokenStr string) (int64, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	})
	if err != nil {
		return 0, &TokenError{Reason: tokenFailureReason(err)}
	}
	if !token.Valid {
		return 0, &TokenError{Reason: ReasonMalformed}
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, &TokenError{Reason: ReasonMalformed}
	}
	return userID, nil
}

func tokenFailureReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ReasonExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ReasonBadSignature
	default:
		return ReasonMalformed
	}
}
