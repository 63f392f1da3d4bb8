// Package transport is the single HTTP client used for every call against
// the console REST API.
//
// For each request the Client resolves the base URL of the target service
// through a config.Chain, injects JSON and credential headers from the
// current auth session, bounds the call with a timeout, and converts every
// failure into an *apierr.Error. A 401 response clears the stored session
// once per session version, however many concurrent requests observe it.
//
// The transport never retries; retry policy belongs to the query cache.
package transport
