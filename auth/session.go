package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the persisted client authentication state.
type Session struct {
	// APIKey is the API key of the selected project.
	APIKey string `yaml:"api_key,omitempty"`

	// ProjectID and TenantID identify the selected project.
	ProjectID string `yaml:"project_id,omitempty"`
	TenantID  string `yaml:"tenant_id,omitempty"`

	// Token is the bearer token for the tenant-management service.
	Token string `yaml:"token,omitempty"`

	// Version increases on every write.
	Version uint64 `yaml:"version"`
}

// Empty reports whether the session holds no credentials.
func (s Session) Empty() bool {
	return s.APIKey == "" && s.Token == ""
}

// TokenUsable reports whether the bearer token is present and not expired
// at now. Tokens without a readable expiry are assumed usable; the server
// is the authority and answers 401 otherwise.
func (s Session) TokenUsable(now time.Time) bool {
	if s.Token == "" {
		return false
	}
	exp, err := TokenExpiry(s.Token)
	if err != nil {
		return true
	}
	return now.Before(exp)
}

// TokenExpiry reads the exp claim of a JWT without verifying its signature.
// The client cannot verify tokens; it only uses expiry to avoid sending a
// token that is certain to be rejected.
func TokenExpiry(token string) (time.Time, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	if exp == nil {
		return time.Time{}, ErrNoExpiry
	}
	return exp.Time, nil
}
