package auth

import "errors"

// Sentinel errors for session handling.
var (
	ErrTokenMalformed = errors.New("auth: token malformed")
	ErrNoExpiry       = errors.New("auth: token has no expiry")
)
