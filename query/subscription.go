package query

import (
	"context"
	"sync"
)

// Fetcher loads the value for a query.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Subscription is a live view of one query entry.
type Subscription[T any] struct {
	c       *Client
	e       *entry
	id      uint64
	opts    Options
	updates chan State[T]
	done    chan struct{}
	once    sync.Once
}

// Observe registers interest in key and returns a live view of its entry.
//
// When the entry has fresh data it is served without calling fn. Stale
// data is served immediately while fn runs in the background. Without data
// the subscription is pending until the first fetch resolves. Concurrent
// observers of the same key share one in-flight fetch.
func Observe[T any](c *Client, key Key, fn Fetcher[T], opts ...Option) *Subscription[T] {
	o := c.defaults
	for _, opt := range opts {
		opt(&o)
	}
	if o.RetryDelay == nil {
		o.RetryDelay = DefaultOptions().RetryDelay
	}

	s := &Subscription[T]{
		c:       c,
		opts:    o,
		updates: make(chan State[T], 1),
		done:    make(chan struct{}),
	}
	exec := func(ctx context.Context) (any, error) {
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
	s.id, s.e = c.attach(key, exec, o, s.push)
	return s
}

// push delivers the latest state, replacing an unread one. It is called
// with the client lock held, so pushes never race with each other.
func (s *Subscription[T]) push(st State[any]) {
	typed := convertState[T](st)
	select {
	case s.updates <- typed:
		return
	default:
	}
	select {
	case <-s.updates:
	default:
	}
	select {
	case s.updates <- typed:
	default:
	}
}

// State returns the current state of the entry.
func (s *Subscription[T]) State() State[T] {
	st, _ := s.c.state(s.e)
	return convertState[T](st)
}

// Updates delivers state changes. Only the latest unread state is kept.
func (s *Subscription[T]) Updates() <-chan State[T] {
	return s.updates
}

// Wait blocks until the entry has data or a terminal error. It returns the
// data immediately when some is cached, even if stale.
func (s *Subscription[T]) Wait(ctx context.Context) (T, error) {
	var zero T
	for {
		st, changed := s.c.state(s.e)
		switch {
		case st.Removed:
			return zero, ErrUnsubscribed
		case st.Status == StatusError:
			return convertState[T](st).Data, st.Err
		case st.HasData:
			return convertState[T](st).Data, nil
		case !s.opts.Enabled && st.Status != StatusFetching:
			return zero, ErrDisabled
		}

		select {
		case <-changed:
		case <-s.done:
			return zero, ErrUnsubscribed
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// Refetch starts a fetch now, or joins the one in flight, regardless of
// staleness or Enabled.
func (s *Subscription[T]) Refetch() {
	s.c.refetch(s.e)
}

// Unsubscribe detaches the observer. When the last observer leaves, the
// entry is evicted after its GCTime. In-flight fetches are not cancelled.
// Unsubscribe is idempotent.
func (s *Subscription[T]) Unsubscribe() {
	s.once.Do(func() {
		close(s.done)
		s.c.unsubscribe(s.e, s.id)
	})
}

// Fetch observes key, waits for a value, and unsubscribes.
func Fetch[T any](ctx context.Context, c *Client, key Key, fn Fetcher[T], opts ...Option) (T, error) {
	sub := Observe(c, key, fn, opts...)
	defer sub.Unsubscribe()
	return sub.Wait(ctx)
}

// EntryDataOf returns the cached data for key as T.
func EntryDataOf[T any](c *Client, key Key) (T, bool) {
	var zero T
	v, ok := c.EntryData(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}

// UpdateEntryData is SetEntryData with a typed updater.
func UpdateEntryData[T any](c *Client, key Key, updater func(old T, ok bool) T) {
	c.SetEntryData(key, func(old any, ok bool) any {
		typed, isT := old.(T)
		return updater(typed, ok && isT)
	})
}
