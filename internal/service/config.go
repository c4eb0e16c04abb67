package service

import (
	"fmt"
	"time"
)

// DefaultTokenTTL is how long issued tokens remain valid unless configured
// otherwise.
const DefaultTokenTTL = 30 * time.Minute

// Config is the immutable authentication configuration, built once at process
// start and injected into the auth service. There is no package-level mutable
// state: substituting keys and TTLs in tests means constructing a new Config.
type Config struct {
	SecretKey string
	Algorithm string // signing algorithm identifier; only "HS256" is supported
	TokenTTL  time.Duration
	Issuer    string
}

// DefaultConfig returns a Config with the default algorithm and TTL. The
// secret key has no default and must be supplied.
func DefaultConfig() Config {
	return Config{
		Algorithm: "HS256",
		TokenTTL:  DefaultTokenTTL,
		Issuer:    "infinitops",
	}
}

// Validate checks the configuration at startup.
func (c Config) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("auth: secret key is required")
	}
	if c.Algorithm != "HS256" {
		return fmt.Errorf("auth: unsupported signing algorithm %q (only HS256)", c.Algorithm)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("auth: token TTL must be positive")
	}
	return nil
}
