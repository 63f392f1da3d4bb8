package health

import (
	"context"
	"errors"
	"testing"
)

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusHealthy, "healthy"},
		{StatusDegraded, "degraded"},
		{StatusUnhealthy, "unhealthy"},
		{Status(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestResultConstructors(t *testing.T) {
	cause := errors.New("boom")

	if r := Healthy("ok"); r.Status != StatusHealthy || r.Message != "ok" || r.Error != nil {
		t.Errorf("Healthy() = %+v", r)
	}
	if r := Degraded("slow", nil); r.Status != StatusDegraded || r.Message != "slow" {
		t.Errorf("Degraded() = %+v", r)
	}
	if r := Unhealthy("down", cause); r.Status != StatusUnhealthy || !errors.Is(r.Error, cause) {
		t.Errorf("Unhealthy() = %+v", r)
	}

	r := Healthy("ok").WithDetails(map[string]any{"latency_ms": 12})
	if r.Details["latency_ms"] != 12 {
		t.Errorf("WithDetails() = %+v", r.Details)
	}
}

func TestResult_WithDetailsMerges(t *testing.T) {
	base := Degraded("credentials rejected", nil).WithDetails(map[string]any{"kind": "auth", "status": 401})
	r := base.WithDetails(map[string]any{"status": 403, "latency_ms": 8})

	want := map[string]any{"kind": "auth", "status": 403, "latency_ms": 8}
	for k, v := range want {
		if r.Details[k] != v {
			t.Errorf("Details[%q] = %v, want %v", k, r.Details[k], v)
		}
	}
	if base.Details["status"] != 401 {
		t.Errorf("WithDetails modified the receiver: %+v", base.Details)
	}
}

func TestStatus_Worse(t *testing.T) {
	tests := []struct {
		a, b, want Status
	}{
		{StatusHealthy, StatusHealthy, StatusHealthy},
		{StatusHealthy, StatusDegraded, StatusDegraded},
		{StatusUnhealthy, StatusDegraded, StatusUnhealthy},
	}
	for _, tt := range tests {
		if got := tt.a.Worse(tt.b); got != tt.want {
			t.Errorf("%v.Worse(%v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCheckerFunc(t *testing.T) {
	called := false
	checker := NewCheckerFunc("store", func(ctx context.Context) Result {
		called = true
		return Healthy("ok")
	})

	if checker.Name() != "store" {
		t.Errorf("Name() = %q, want %q", checker.Name(), "store")
	}
	if r := checker.Check(context.Background()); r.Status != StatusHealthy {
		t.Errorf("Check() status = %v", r.Status)
	}
	if !called {
		t.Error("check function was not called")
	}
}
