package query

import (
	"context"
	"sync"
	"time"

	"github.com/jonwraymond/abclient/observe"
	"github.com/jonwraymond/abclient/resilience"
)

// MutationStatus is the lifecycle state of a mutation.
type MutationStatus int

const (
	MutationIdle MutationStatus = iota
	MutationPending
	MutationSuccess
	MutationError
)

func (s MutationStatus) String() string {
	switch s {
	case MutationPending:
		return "pending"
	case MutationSuccess:
		return "success"
	case MutationError:
		return "error"
	default:
		return "idle"
	}
}

// MaxMutationAttempts bounds MutationOptions.Retry.
const MaxMutationAttempts = 2

// MutationOptions configure one mutation.
type MutationOptions[V, T any] struct {
	// Retry is the total number of attempts. The default is 1 and values
	// above MaxMutationAttempts are clamped. Only errors reporting
	// Retryable() == true are retried.
	Retry int

	// RetryDelay is the backoff before the retry.
	RetryDelay resilience.Backoff

	// Invalidates lists key prefixes invalidated on success.
	Invalidates []Key

	// OnSuccess runs after a successful attempt and before the mutation
	// resolves. Updates queued on batch are applied atomically, together
	// with Invalidates, after OnSuccess returns.
	OnSuccess func(result T, vars V, batch *Batch)

	// OnError runs once on terminal failure, before the mutation resolves.
	OnError func(err error, vars V)
}

// MutationFunc performs a write.
type MutationFunc[V, T any] func(ctx context.Context, vars V) (T, error)

// Mutation is the handle of one mutation invocation. It resolves exactly
// once.
type Mutation[V, T any] struct {
	vars V
	done chan struct{}

	mu     sync.Mutex
	status MutationStatus
	result T
	err    error
}

// Mutate runs fn(vars) in the background and returns its handle.
func Mutate[V, T any](ctx context.Context, c *Client, fn MutationFunc[V, T], vars V, opts MutationOptions[V, T]) *Mutation[V, T] {
	m := &Mutation[V, T]{
		vars:   vars,
		done:   make(chan struct{}),
		status: MutationPending,
	}
	go m.run(ctx, c, fn, opts)
	return m
}

func (m *Mutation[V, T]) run(ctx context.Context, c *Client, fn MutationFunc[V, T], opts MutationOptions[V, T]) {
	attempts := opts.Retry
	if attempts < 1 {
		attempts = 1
	}
	if attempts > MaxMutationAttempts {
		attempts = MaxMutationAttempts
	}

	retry := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts: attempts,
		Backoff:     opts.RetryDelay,
		RetryIf:     shouldRetryMutation,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			c.logger.Debug(ctx, "mutation failed, retrying",
				observe.F("attempt", attempt),
				observe.F("delay_ms", delay.Milliseconds()),
				observe.F("error", err),
			)
		},
	})

	var result T
	err := retry.Execute(ctx, func(ctx context.Context) error {
		r, err := fn(ctx, m.vars)
		if err != nil {
			return err
		}
		result = r
		return nil
	})

	if err != nil {
		if opts.OnError != nil {
			opts.OnError(err, m.vars)
		}
		m.resolve(MutationError, result, err)
		return
	}

	batch := &Batch{}
	for _, prefix := range opts.Invalidates {
		batch.Invalidate(prefix)
	}
	if opts.OnSuccess != nil {
		opts.OnSuccess(result, m.vars, batch)
	}
	c.Apply(batch)
	m.resolve(MutationSuccess, result, nil)
}

func (m *Mutation[V, T]) resolve(status MutationStatus, result T, err error) {
	m.mu.Lock()
	m.status = status
	m.result = result
	m.err = err
	m.mu.Unlock()
	close(m.done)
}

// Variables returns the input the mutation was invoked with.
func (m *Mutation[V, T]) Variables() V { return m.vars }

// Status returns the current lifecycle state.
func (m *Mutation[V, T]) Status() MutationStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Done is closed when the mutation resolves.
func (m *Mutation[V, T]) Done() <-chan struct{} { return m.done }

// Result returns the outcome. It is meaningful only after Done is closed.
func (m *Mutation[V, T]) Result() (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.result, m.err
}

// Wait blocks until the mutation resolves or ctx is done. By the time Wait
// returns a success, every invalidation the mutation declared has been
// applied.
func (m *Mutation[V, T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-m.done:
		return m.Result()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
