package apierr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind is the classification of a failed call.
type Kind int

const (
	// KindOther is an HTTP error status without a more specific kind.
	KindOther Kind = iota
	// KindUnauthorized is HTTP 401.
	KindUnauthorized
	// KindForbidden is HTTP 403.
	KindForbidden
	// KindNotFound is HTTP 404.
	KindNotFound
	// KindServer is any HTTP 5xx.
	KindServer
	// KindNetwork means the request was sent but no response arrived.
	KindNetwork
	// KindRequestSetup means the request was never sent.
	KindRequestSetup
	// KindValidation is a caller-side, field-level rejection.
	KindValidation
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindServer:
		return "server_error"
	case KindNetwork:
		return "network_error"
	case KindRequestSetup:
		return "request_setup_error"
	case KindValidation:
		return "validation_error"
	default:
		return "other"
	}
}

// Retryable reports whether failures of this kind may succeed on retry.
func (k Kind) Retryable() bool {
	return k == KindNetwork || k == KindServer
}

// Sentinel errors, one per kind, for use with errors.Is.
var (
	ErrOther        = &Error{Kind: KindOther, Code: "ERROR", Message: "apierr: request failed"}
	ErrUnauthorized = &Error{Kind: KindUnauthorized, Code: "UNAUTHORIZED", Message: "apierr: unauthorized"}
	ErrForbidden    = &Error{Kind: KindForbidden, Code: "FORBIDDEN", Message: "apierr: forbidden"}
	ErrNotFound     = &Error{Kind: KindNotFound, Code: "NOT_FOUND", Message: "apierr: not found"}
	ErrServer       = &Error{Kind: KindServer, Code: "SERVER_ERROR", Message: "apierr: server error"}
	ErrNetwork      = &Error{Kind: KindNetwork, Code: "NETWORK_ERROR", Message: "apierr: network error"}
	ErrRequestSetup = &Error{Kind: KindRequestSetup, Code: "REQUEST_SETUP_ERROR", Message: "apierr: request setup failed"}
	ErrValidation   = &Error{Kind: KindValidation, Code: "VALIDATION_ERROR", Message: "apierr: validation failed"}
)

// Error is a classified API failure.
type Error struct {
	Kind Kind

	// Status is the HTTP status code, zero when no response arrived.
	Status int

	// Message is a single human-readable message.
	Message string

	// Code is the machine-readable code, server-provided when available.
	Code string

	// Cause is the optional server-provided cause.
	Cause string

	// Diagnostic refines network failures (timeout, refused, dns, reset,
	// unreachable). It is informational only.
	Diagnostic string

	// Method and Path identify the failed request when known.
	Method string
	Path   string

	// Fields holds field-level messages for validation errors.
	Fields map[string]string

	// Err is the underlying transport error, if any.
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Method != "" || e.Path != "" {
		fmt.Fprintf(&b, "%s %s: ", e.Method, e.Path)
	}
	b.WriteString(e.Message)
	if e.Code != "" {
		fmt.Fprintf(&b, " (%s)", e.Code)
	}
	if e.Kind == KindValidation && len(e.Fields) > 0 {
		names := make([]string, 0, len(e.Fields))
		for name := range e.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, 0, len(names))
		for _, name := range names {
			parts = append(parts, name+": "+e.Fields[name])
		}
		b.WriteString(": ")
		b.WriteString(strings.Join(parts, "; "))
	}
	return b.String()
}

// Unwrap returns the underlying transport error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Retryable reports whether the failure may succeed on retry.
func (e *Error) Retryable() bool {
	return e.Kind.Retryable()
}

// KindOf returns the kind of err, or KindOther with ok=false when err is not
// a classified error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return KindOther, false
}

// IsRetryable reports whether err is a classified, retryable failure.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable()
	}
	return false
}

// Validation builds a caller-side validation error from field messages.
// It returns nil when fields is empty.
func Validation(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &Error{
		Kind:    KindValidation,
		Code:    "VALIDATION_ERROR",
		Message: "invalid input",
		Fields:  fields,
	}
}
