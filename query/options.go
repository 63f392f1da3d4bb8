package query

import (
	"time"

	"github.com/jonwraymond/abclient/resilience"
)

// Default query options.
const (
	DefaultStaleTime = 5 * time.Minute
	DefaultGCTime    = 10 * time.Minute
	DefaultRetry     = 3
)

// Options control how a query is cached and refreshed. The options of the
// most recent observer apply to the entry.
type Options struct {
	// StaleTime is how long fetched data counts as fresh. Negative means
	// data never goes stale on its own.
	StaleTime time.Duration

	// GCTime is how long an unobserved entry is kept. Negative means never
	// evict.
	GCTime time.Duration

	// Retry is the total number of attempts per fetch, including the
	// first. Values below 1 mean a single attempt.
	Retry int

	// RetryDelay computes the delay before retry n (1-based).
	RetryDelay resilience.Backoff

	// Enabled gates automatic fetching.
	Enabled bool

	// RefetchOnFocus, RefetchOnMount and RefetchOnReconnect refetch stale
	// data on Client.Focus, on a new observer, and on Client.Reconnect.
	RefetchOnFocus     bool
	RefetchOnMount     bool
	RefetchOnReconnect bool
}

// DefaultOptions returns the default query options.
func DefaultOptions() Options {
	return Options{
		StaleTime:          DefaultStaleTime,
		GCTime:             DefaultGCTime,
		Retry:              DefaultRetry,
		RetryDelay:         resilience.DefaultBackoff(),
		Enabled:            true,
		RefetchOnFocus:     true,
		RefetchOnMount:     true,
		RefetchOnReconnect: true,
	}
}

// Option adjusts Options.
type Option func(*Options)

// WithStaleTime sets Options.StaleTime.
func WithStaleTime(d time.Duration) Option {
	return func(o *Options) { o.StaleTime = d }
}

// WithGCTime sets Options.GCTime.
func WithGCTime(d time.Duration) Option {
	return func(o *Options) { o.GCTime = d }
}

// WithRetry sets the total number of attempts.
func WithRetry(attempts int) Option {
	return func(o *Options) { o.Retry = attempts }
}

// WithRetryDelay sets the retry backoff.
func WithRetryDelay(b resilience.Backoff) Option {
	return func(o *Options) {
		if b != nil {
			o.RetryDelay = b
		}
	}
}

// WithEnabled sets Options.Enabled.
func WithEnabled(enabled bool) Option {
	return func(o *Options) { o.Enabled = enabled }
}

// WithRefetchOnFocus sets Options.RefetchOnFocus.
func WithRefetchOnFocus(v bool) Option {
	return func(o *Options) { o.RefetchOnFocus = v }
}

// WithRefetchOnMount sets Options.RefetchOnMount.
func WithRefetchOnMount(v bool) Option {
	return func(o *Options) { o.RefetchOnMount = v }
}

// WithRefetchOnReconnect sets Options.RefetchOnReconnect.
func WithRefetchOnReconnect(v bool) Option {
	return func(o *Options) { o.RefetchOnReconnect = v }
}

func (o Options) attempts() int {
	if o.Retry < 1 {
		return 1
	}
	return o.Retry
}
