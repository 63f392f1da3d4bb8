package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jonwraymond/abclient/apierr"
)

// DefaultSlowThreshold is the response time above which a reachable
// backend is reported as degraded.
const DefaultSlowThreshold = 2 * time.Second

// APIChecker probes a backend with a single API call.
type APIChecker struct {
	name  string
	probe func(context.Context) error
	slow  time.Duration
	clock clockwork.Clock
}

// APICheckerOption configures an APIChecker.
type APICheckerOption func(*APIChecker)

// WithSlowThreshold sets the latency above which the backend is degraded.
// Zero disables the latency check.
func WithSlowThreshold(d time.Duration) APICheckerOption {
	return func(c *APIChecker) { c.slow = d }
}

// WithCheckerClock sets the clock used to time the probe.
func WithCheckerClock(clock clockwork.Clock) APICheckerOption {
	return func(c *APIChecker) { c.clock = clock }
}

// NewAPIChecker creates a checker that runs probe. Probe errors are
// expected to be *apierr.Error values.
func NewAPIChecker(name string, probe func(context.Context) error, opts ...APICheckerOption) *APIChecker {
	c := &APIChecker{
		name:  name,
		probe: probe,
		slow:  DefaultSlowThreshold,
		clock: clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the name of this checker.
func (c *APIChecker) Name() string { return c.name }

// Check runs the probe and classifies its outcome.
func (c *APIChecker) Check(ctx context.Context) Result {
	start := c.clock.Now()
	err := c.probe(ctx)
	elapsed := c.clock.Since(start)

	if err == nil {
		if c.slow > 0 && elapsed > c.slow {
			return Degraded(fmt.Sprintf("slow response (%s)", elapsed.Round(time.Millisecond)), nil).
				WithDetails(map[string]any{"latency_ms": elapsed.Milliseconds()})
		}
		return Healthy("reachable").WithDetails(map[string]any{"latency_ms": elapsed.Milliseconds()})
	}
	return classify(err)
}

func classify(err error) Result {
	kind, ok := apierr.KindOf(err)
	if !ok {
		return Unhealthy("probe failed", err)
	}

	details := map[string]any{"kind": kind.String()}
	var e *apierr.Error
	if errors.As(err, &e) {
		if e.Status != 0 {
			details["status"] = e.Status
		}
		if e.Diagnostic != "" {
			details["diagnostic"] = e.Diagnostic
		}
	}

	var r Result
	switch kind {
	case apierr.KindUnauthorized, apierr.KindForbidden:
		r = Degraded("reachable, credentials rejected", err)
	case apierr.KindNetwork:
		r = Unhealthy("unreachable", err)
	case apierr.KindServer:
		r = Unhealthy("server error", err)
	case apierr.KindRequestSetup:
		r = Unhealthy("client misconfigured", err)
	default:
		r = Degraded("unexpected response", err)
	}
	return r.WithDetails(details)
}
