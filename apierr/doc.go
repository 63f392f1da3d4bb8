// Package apierr classifies failures of calls against the console REST API.
//
// Every failure that leaves the transport layer is an *Error carrying a
// Kind, a human-readable Message and a machine Code. Classification happens
// in exactly one place (see Classify, FromTransport and Setup) so callers
// never inspect raw HTTP responses or network errors themselves.
//
// Kinds can be matched with errors.Is against the sentinel values:
//
//	if errors.Is(err, apierr.ErrNotFound) {
//	    // render an empty state
//	}
//
// Network and server failures report Retryable() == true; the query cache
// uses that to decide what to retry.
package apierr
