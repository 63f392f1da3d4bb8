package health

import (
	"context"
	"maps"
	"time"
)

// Status grades one backend service, or the client's view of all of them.
// Larger values are worse.
type Status int

const (
	StatusHealthy Status = iota
	// StatusDegraded means the service answers but cannot serve this
	// client fully: it rejects the stored credentials or is slow.
	StatusDegraded
	StatusUnhealthy
)

var statusNames = [...]string{
	StatusHealthy:   "healthy",
	StatusDegraded:  "degraded",
	StatusUnhealthy: "unhealthy",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// Worse returns the more severe of s and other.
func (s Status) Worse(other Status) Status {
	return max(s, other)
}

// Result is what one check reports. Duration and Timestamp are filled in by
// the Aggregator, so checkers leave them zero.
type Result struct {
	Status  Status
	Message string
	Details map[string]any
	Error   error

	Duration  time.Duration
	Timestamp time.Time
}

func Healthy(message string) Result {
	return Result{Status: StatusHealthy, Message: message}
}

func Degraded(message string, err error) Result {
	return Result{Status: StatusDegraded, Message: message, Error: err}
}

func Unhealthy(message string, err error) Result {
	return Result{Status: StatusUnhealthy, Message: message, Error: err}
}

// WithDetails returns r with details merged over the ones it already has.
// The receiver's map is never modified.
func (r Result) WithDetails(details map[string]any) Result {
	merged := make(map[string]any, len(r.Details)+len(details))
	maps.Copy(merged, r.Details)
	maps.Copy(merged, details)
	r.Details = merged
	return r
}

// Checker probes one dependency.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

// CheckerFunc is a check without a name. Pass it to NewCheckerFunc to
// register it.
type CheckerFunc func(ctx context.Context) Result

// NewCheckerFunc names fn so it can be registered with an Aggregator.
func NewCheckerFunc(name string, fn CheckerFunc) Checker {
	return namedCheck{name: name, fn: fn}
}

type namedCheck struct {
	name string
	fn   CheckerFunc
}

func (c namedCheck) Name() string                     { return c.name }
func (c namedCheck) Check(ctx context.Context) Result { return c.fn(ctx) }
