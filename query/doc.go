// Package query is a key-addressed cache of server state.
//
// A Client stores the result of each read operation ("query") under a
// structural Key. Observers attach with Observe and receive the cached
// value immediately when one exists; stale values are served while a
// background fetch refreshes them. At most one fetch runs per key, failed
// fetches are retried with backoff, and entries nobody observes are evicted
// after a grace period.
//
// Writes ("mutations") run through Mutate. On success they invalidate the
// key prefixes they declare, and any updates queued by their OnSuccess
// continuation, in one atomic step before the mutation reports success.
// Invalidation always supersedes a fetch that was already in flight: the
// older result is discarded.
//
// The package knows nothing about HTTP. Executors are plain functions; an
// error is retried unless it reports Retryable() == false.
package query
