package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signToken(t, jwt.MapClaims{"sub": "user-1", "exp": exp.Unix()})

	got, err := TokenExpiry(token)
	if err != nil {
		t.Fatalf("TokenExpiry() error = %v", err)
	}
	if !got.Equal(exp) {
		t.Errorf("TokenExpiry() = %v, want %v", got, exp)
	}
}

func TestTokenExpiry_Errors(t *testing.T) {
	if _, err := TokenExpiry("not-a-jwt"); !errors.Is(err, ErrTokenMalformed) {
		t.Errorf("malformed token: error = %v, want ErrTokenMalformed", err)
	}

	noExp := signToken(t, jwt.MapClaims{"sub": "user-1"})
	if _, err := TokenExpiry(noExp); !errors.Is(err, ErrNoExpiry) {
		t.Errorf("token without exp: error = %v, want ErrNoExpiry", err)
	}
}

func TestSession_TokenUsable(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"no token", "", false},
		{"valid", signToken(t, jwt.MapClaims{"exp": now.Add(time.Hour).Unix()}), true},
		{"expired", signToken(t, jwt.MapClaims{"exp": now.Add(-time.Minute).Unix()}), false},
		{"opaque token", "opaque-session-token", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Session{Token: tt.token}
			if got := s.TokenUsable(now); got != tt.want {
				t.Errorf("TokenUsable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSession_Empty(t *testing.T) {
	if !(Session{Version: 3}).Empty() {
		t.Error("session without credentials should be empty")
	}
	if (Session{APIKey: "k"}).Empty() {
		t.Error("session with API key should not be empty")
	}
}
