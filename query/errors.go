package query

import (
	"context"
	"errors"
)

var (
	// ErrDisabled is returned by Subscription.Wait for a disabled query that
	// has no data.
	ErrDisabled = errors.New("query: query is disabled")

	// ErrUnsubscribed is returned by Subscription.Wait after Unsubscribe or
	// once the observed entry has been removed.
	ErrUnsubscribed = errors.New("query: subscription closed")

	// ErrClientClosed is the error of fetches cut short by Close and of
	// queries observed after it.
	ErrClientClosed = errors.New("query: client closed")
)

// retryable is implemented by classified errors.
type retryable interface {
	Retryable() bool
}

// shouldRetryFetch reports whether a failed fetch may be retried. Errors
// that classify themselves decide; anything else is retried.
func shouldRetryFetch(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var r retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return true
}

// shouldRetryMutation reports whether a failed mutation may be retried.
// Writes are not idempotent, so only errors that declare themselves
// retryable qualify.
func shouldRetryMutation(err error) bool {
	var r retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return false
}
