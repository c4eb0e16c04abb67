package service

import (
	"errors"
	"testing"
	"time"
)

func testConfig(secret string) Config {
	cfg := DefaultConfig()
	cfg.SecretKey = secret
	return cfg
}

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokenService(testConfig("test-secret-key"))

	token, err := tokens.Issue(42, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	userID, err := tokens.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if userID != 42 {
		t.Errorf("userID: got %d, want 42", userID)
	}
}

func TestTokenExpired(t *testing.T) {
	tokens := NewTokenService(testConfig("test-secret-key"))

	token, err := tokens.Issue(1, -1*time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	_, err = tokens.Validate(token)
	if err == nil {
		t.Fatal("expected error for expired token")
	}
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}
	var terr *TokenError
	if !errors.As(err, &terr) || terr.Reason != ReasonExpired {
		t.Errorf("expected reason %q, got %v", ReasonExpired, err)
	}
}

func TestTokenWrongKey(t *testing.T) {
	issuer := NewTokenService(testConfig("key-one"))
	verifier := NewTokenService(testConfig("key-two"))

	token, err := issuer.Issue(7, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	_, err = verifier.Validate(token)
	if err == nil {
		t.Fatal("expected error for token signed with a different key")
	}
	var terr *TokenError
	if !errors.As(err, &terr) || terr.Reason != ReasonBadSignature {
		t.Errorf("expected reason %q, got %v", ReasonBadSignature, err)
	}
}

func TestTokenGarbage(t *testing.T) {
	tokens := NewTokenService(testConfig("test-secret-key"))

	for _, bad := range []string{"", "garbage", "a.b.c", "still not a token"} {
		_, err := tokens.Validate(bad)
		if err == nil {
			t.Errorf("Validate(%q): expected error", bad)
			continue
		}
		if !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("Validate(%q): expected ErrTokenInvalid, got %v", bad, err)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing secret key")
	}

	cfg.SecretKey = "secret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if cfg.TokenTTL != DefaultTokenTTL {
		t.Errorf("TokenTTL: got %v, want %v", cfg.TokenTTL, DefaultTokenTTL)
	}

	cfg.Algorithm = "RS256"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unsupported algorithm")
	}

	cfg.Algorithm = "HS256"
	cfg.TokenTTL = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero TTL")
	}
}
