// Package resilience provides the retry and backoff primitives shared by
// the query cache and mutation runner.
//
// Backoff policies are plain functions from a 1-based attempt number to a
// delay, so they can be stored in query options and compared in tests:
//
//	backoff := resilience.Exponential(time.Second, 30*time.Second)
//	backoff(1) // 1s
//	backoff(2) // 2s
//	backoff(6) // 30s (capped)
//
// Retry runs an operation until it succeeds, a non-retryable error is
// returned, or the attempt budget is exhausted:
//
//	r := resilience.NewRetry(resilience.RetryConfig{
//	    MaxAttempts: 2,
//	    RetryIf:     apierr.IsRetryable,
//	})
//	err := r.Execute(ctx, func(ctx context.Context) error {
//	    return createExperiment(ctx)
//	})
package resilience
