package apierr

import (
	"context"
	"errors"
	"net"
	"net/http"
	"syscall"

	"github.com/tidwall/gjson"
)

// genericMessages are used when the response body carries no error message.
var genericMessages = map[Kind]string{
	KindUnauthorized: "authentication required",
	KindForbidden:    "you do not have access to this resource",
	KindNotFound:     "resource not found",
	KindServer:       "the server encountered an error",
	KindOther:        "request failed",
}

// KindForStatus maps an HTTP status code to a kind.
func KindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status >= 500:
		return KindServer
	default:
		return KindOther
	}
}

// Classify builds the error for a response with an error status.
//
// Message, code and cause are read from a body of the form
// {"error":{"message":...,"code":...,"cause":...}}. Anything else falls back
// to the generic message and code for the kind.
func Classify(status int, body []byte) *Error {
	kind := KindForStatus(status)
	e := &Error{
		Kind:    kind,
		Status:  status,
		Message: genericMessages[kind],
		Code:    defaultCode(kind),
	}

	if !gjson.ValidBytes(body) {
		return e
	}
	errObj := gjson.GetBytes(body, "error")
	if !errObj.IsObject() {
		return e
	}
	if msg := errObj.Get("message"); msg.Type == gjson.String && msg.Str != "" {
		e.Message = msg.Str
	}
	if code := errObj.Get("code"); code.Exists() && code.String() != "" {
		e.Code = code.String()
	}
	if cause := errObj.Get("cause"); cause.Exists() && cause.Type != gjson.Null {
		if cause.Type == gjson.String {
			e.Cause = cause.Str
		} else {
			e.Cause = cause.Raw
		}
	}
	return e
}

// FromTransport classifies an error returned by http.Client.Do, i.e. a
// request that was sent but produced no response.
func FromTransport(err error) *Error {
	return &Error{
		Kind:       KindNetwork,
		Code:       "NETWORK_ERROR",
		Message:    "unable to reach the server",
		Diagnostic: diagnose(err),
		Err:        err,
	}
}

// Setup classifies a failure that happened before the request was sent.
func Setup(err error) *Error {
	return &Error{
		Kind:    KindRequestSetup,
		Code:    "REQUEST_SETUP_ERROR",
		Message: "request could not be created: " + err.Error(),
		Err:     err,
	}
}

// Malformed classifies a success response whose body could not be decoded.
func Malformed(status int, err error) *Error {
	return &Error{
		Kind:    KindOther,
		Status:  status,
		Code:    "MALFORMED_RESPONSE",
		Message: "the server returned an unreadable response",
		Err:     err,
	}
}

func defaultCode(kind Kind) string {
	switch kind {
	case KindUnauthorized:
		return ErrUnauthorized.Code
	case KindForbidden:
		return ErrForbidden.Code
	case KindNotFound:
		return ErrNotFound.Code
	case KindServer:
		return ErrServer.Code
	default:
		return ErrOther.Code
	}
}

func diagnose(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "dns"
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return "refused"
	}
	if errors.Is(err, syscall.ECONNRESET) {
		return "reset"
	}
	return "unreachable"
}
