package apierr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"testing"
)

// TestClassify_NotFoundWithBody checks that classification depends only on
// status and body, never on the endpoint.
func TestClassify_NotFoundWithBody(t *testing.T) {
	body := []byte(`{"error":{"message":"x","code":"NOT_FOUND"}}`)

	for i := 0; i < 3; i++ {
		e := Classify(404, body)
		e.Path = fmt.Sprintf("/endpoint/%d", i)

		if e.Kind != KindNotFound {
			t.Fatalf("Kind = %v, want %v", e.Kind, KindNotFound)
		}
		if e.Message != "x" {
			t.Errorf("Message = %q, want %q", e.Message, "x")
		}
		if e.Code != "NOT_FOUND" {
			t.Errorf("Code = %q, want %q", e.Code, "NOT_FOUND")
		}
		if !errors.Is(e, ErrNotFound) {
			t.Error("errors.Is(e, ErrNotFound) = false")
		}
	}
}

func TestClassify_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{401, KindUnauthorized},
		{403, KindForbidden},
		{404, KindNotFound},
		{500, KindServer},
		{502, KindServer},
		{503, KindServer},
		{400, KindOther},
		{409, KindOther},
		{422, KindOther},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			e := Classify(tt.status, nil)
			if e.Kind != tt.want {
				t.Errorf("Classify(%d).Kind = %v, want %v", tt.status, e.Kind, tt.want)
			}
			if e.Status != tt.status {
				t.Errorf("Status = %d, want %d", e.Status, tt.status)
			}
			if e.Message == "" {
				t.Error("expected generic message")
			}
		})
	}
}

func TestClassify_FallbackForUnstructuredBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"html", "<html>Bad Gateway</html>"},
		{"string error", `{"error":"boom"}`},
		{"no error key", `{"message":"hidden"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Classify(502, []byte(tt.body))
			if e.Message != genericMessages[KindServer] {
				t.Errorf("Message = %q, want generic", e.Message)
			}
			if e.Code != "SERVER_ERROR" {
				t.Errorf("Code = %q, want SERVER_ERROR", e.Code)
			}
		})
	}
}

func TestClassify_Cause(t *testing.T) {
	e := Classify(403, []byte(`{"error":{"message":"nope","code":"NO_ROLE","cause":"missing role admin"}}`))
	if e.Cause != "missing role admin" {
		t.Errorf("Cause = %q", e.Cause)
	}

	e = Classify(500, []byte(`{"error":{"message":"db","cause":{"table":"experiments"}}}`))
	if e.Cause != `{"table":"experiments"}` {
		t.Errorf("Cause = %q", e.Cause)
	}
	if e.Code != "SERVER_ERROR" {
		t.Errorf("Code = %q, want fallback", e.Code)
	}
}

func TestFromTransport_Diagnostics(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), "timeout"},
		{"dns", &net.DNSError{Err: "no such host", Name: "api.invalid"}, "dns"},
		{"refused", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, "refused"},
		{"reset", &net.OpError{Op: "read", Err: syscall.ECONNRESET}, "reset"},
		{"other", errors.New("blocked"), "unreachable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := FromTransport(tt.err)
			if e.Kind != KindNetwork {
				t.Fatalf("Kind = %v, want network", e.Kind)
			}
			if e.Diagnostic != tt.want {
				t.Errorf("Diagnostic = %q, want %q", e.Diagnostic, tt.want)
			}
			if !e.Retryable() {
				t.Error("network errors must be retryable")
			}
			if !errors.Is(e, tt.err) {
				t.Error("underlying error should be reachable via errors.Is")
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	retryable := map[Kind]bool{
		KindNetwork:      true,
		KindServer:       true,
		KindUnauthorized: false,
		KindForbidden:    false,
		KindNotFound:     false,
		KindOther:        false,
		KindRequestSetup: false,
		KindValidation:   false,
	}
	for kind, want := range retryable {
		if got := (&Error{Kind: kind}).Retryable(); got != want {
			t.Errorf("%v.Retryable() = %v, want %v", kind, got, want)
		}
	}

	wrapped := fmt.Errorf("list experiments: %w", Classify(503, nil))
	if !IsRetryable(wrapped) {
		t.Error("IsRetryable should see through wrapping")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("unclassified errors are not reported retryable")
	}
}

func TestValidation(t *testing.T) {
	if err := Validation(nil); err != nil {
		t.Fatalf("Validation(nil) = %v, want nil", err)
	}

	err := Validation(map[string]string{"name": "is required", "tags": "too many"})
	if !errors.Is(err, ErrValidation) {
		t.Fatal("expected validation kind")
	}
	msg := err.Error()
	if !strings.Contains(msg, "name: is required; tags: too many") {
		t.Errorf("Error() = %q, fields should be sorted", msg)
	}
}

func TestKindOf(t *testing.T) {
	kind, ok := KindOf(fmt.Errorf("wrap: %w", ErrForbidden))
	if !ok || kind != KindForbidden {
		t.Errorf("KindOf = %v, %v", kind, ok)
	}
	if _, ok := KindOf(errors.New("x")); ok {
		t.Error("KindOf should report false for plain errors")
	}
}

func TestError_Message(t *testing.T) {
	e := Classify(404, []byte(`{"error":{"message":"experiment 42 not found","code":"NOT_FOUND"}}`))
	e.Method, e.Path = "GET", "/experiments/42"

	want := "GET /experiments/42: experiment 42 not found (NOT_FOUND)"
	if got := e.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestMalformed(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	e := Malformed(200, cause)
	if e.Kind != KindOther || e.Code != "MALFORMED_RESPONSE" {
		t.Errorf("got kind %v code %q", e.Kind, e.Code)
	}
	if e.Retryable() {
		t.Error("malformed responses are terminal")
	}
	if !errors.Is(e, cause) {
		t.Error("cause should be reachable")
	}
}
