package health

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jonwraymond/abclient/apierr"
)

func TestAPIChecker_Classification(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus Status
		wantKind   string
	}{
		{name: "reachable", err: nil, wantStatus: StatusHealthy},
		{name: "unauthorized", err: apierr.Classify(http.StatusUnauthorized, nil), wantStatus: StatusDegraded, wantKind: "unauthorized"},
		{name: "forbidden", err: apierr.Classify(http.StatusForbidden, nil), wantStatus: StatusDegraded, wantKind: "forbidden"},
		{name: "server error", err: apierr.Classify(http.StatusBadGateway, nil), wantStatus: StatusUnhealthy, wantKind: "server_error"},
		{name: "network", err: apierr.FromTransport(context.DeadlineExceeded), wantStatus: StatusUnhealthy, wantKind: "network_error"},
		{name: "setup", err: apierr.Setup(errors.New("no base URL")), wantStatus: StatusUnhealthy, wantKind: "request_setup_error"},
		{name: "other status", err: apierr.Classify(http.StatusTeapot, nil), wantStatus: StatusDegraded, wantKind: "other"},
		{name: "unclassified", err: errors.New("boom"), wantStatus: StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewAPIChecker("project_api", func(context.Context) error { return tt.err })
			r := checker.Check(context.Background())

			if r.Status != tt.wantStatus {
				t.Errorf("Status = %v, want %v", r.Status, tt.wantStatus)
			}
			if tt.wantKind != "" && r.Details["kind"] != tt.wantKind {
				t.Errorf("kind = %v, want %v", r.Details["kind"], tt.wantKind)
			}
			if tt.err != nil && !errors.Is(r.Error, tt.err) {
				t.Errorf("Error = %v, want %v", r.Error, tt.err)
			}
		})
	}
}

func TestAPIChecker_Details(t *testing.T) {
	checker := NewAPIChecker("identity_api", func(context.Context) error {
		return apierr.FromTransport(context.DeadlineExceeded)
	})
	r := checker.Check(context.Background())
	if r.Details["diagnostic"] != "timeout" {
		t.Errorf("diagnostic = %v, want timeout", r.Details["diagnostic"])
	}

	checker = NewAPIChecker("project_api", func(context.Context) error {
		return apierr.Classify(http.StatusServiceUnavailable, nil)
	})
	if r := checker.Check(context.Background()); r.Details["status"] != http.StatusServiceUnavailable {
		t.Errorf("status detail = %v", r.Details["status"])
	}
}

func TestAPIChecker_SlowResponse(t *testing.T) {
	clock := clockwork.NewFakeClock()
	probe := func(context.Context) error {
		clock.Advance(3 * time.Second)
		return nil
	}

	r := NewAPIChecker("project_api", probe, WithCheckerClock(clock)).Check(context.Background())
	if r.Status != StatusDegraded {
		t.Errorf("slow probe status = %v, want degraded", r.Status)
	}
	if r.Details["latency_ms"] != int64(3000) {
		t.Errorf("latency_ms = %v", r.Details["latency_ms"])
	}

	r = NewAPIChecker("project_api", probe, WithCheckerClock(clock), WithSlowThreshold(0)).Check(context.Background())
	if r.Status != StatusHealthy {
		t.Errorf("status with latency check disabled = %v", r.Status)
	}
}
