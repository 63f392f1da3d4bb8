package query

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/abclient/observe"
)

// Client owns the key->entry map. Create one per application (or per test)
// and pass it wherever queries and mutations are issued.
//
// Contract:
//   - Concurrency: safe for concurrent use. Executors run on their own
//     goroutines, outside the client lock.
//   - Ordering: invalidating an entry discards the result of any fetch
//     issued before the invalidation.
//   - Single-flight: every launch of the same attempt of the same entry
//     generation joins one executor call.
type Client struct {
	mu      sync.Mutex
	entries map[string]*entry
	nextID  uint64
	closed  bool

	sf       singleflight.Group // keyed by flightKey
	clock    clockwork.Clock
	logger   observe.Logger
	metrics  observe.Metrics
	defaults Options

	ctx    context.Context
	cancel context.CancelFunc
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClock sets the clock used for staleness, retries and eviction.
func WithClock(clock clockwork.Clock) ClientOption {
	return func(c *Client) { c.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(l observe.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observe.Metrics) ClientOption {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithDefaults adjusts the options every query starts from.
func WithDefaults(opts ...Option) ClientOption {
	return func(c *Client) {
		for _, opt := range opts {
			opt(&c.defaults)
		}
	}
}

// NewClient creates an empty cache.
func NewClient(opts ...ClientOption) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		entries:  make(map[string]*entry),
		clock:    clockwork.NewRealClock(),
		logger:   observe.NoopLogger(),
		metrics:  observe.NoopMetrics(),
		defaults: DefaultOptions(),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close cancels in-flight executors and stops all timers. Pending fetches
// fail with ErrClientClosed, and so do queries observed afterwards.
func (c *Client) Close() {
	c.cancel()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for _, e := range c.entries {
		e.stopRetry()
		e.stopGC()
		if e.fetching {
			e.gen++
			e.fetching = false
			c.failClosedLocked(e)
		}
	}
}

// failClosedLocked settles e with ErrClientClosed.
func (c *Client) failClosedLocked(e *entry) {
	e.status = StatusError
	e.settled = StatusError
	e.err = ErrClientClosed
	c.notifyLocked(e)
}

type fetchFunc func(ctx context.Context) (any, error)

type observer struct {
	id     uint64
	notify func(State[any])
}

type entry struct {
	key  Key
	hash string

	status  Status
	settled Status // status to fall back to when a fetch is abandoned
	data    any
	hasData bool
	err     error

	fetchedAt   time.Time
	invalidated bool
	retryCount  int

	// removed is set once the entry is dropped from the map.
	removed bool

	// gen increases on every invalidation; a fetch result is applied only
	// if gen is unchanged since the fetch was issued.
	gen      uint64
	fetching bool

	opts      Options
	fn        fetchFunc
	observers map[uint64]*observer
	changed   chan struct{}

	gcTimer    clockwork.Timer
	gcSeq      uint64
	retryTimer clockwork.Timer
}

func newEntry(key Key, hash string, opts Options) *entry {
	return &entry{
		key:       key,
		hash:      hash,
		opts:      opts,
		observers: make(map[uint64]*observer),
		changed:   make(chan struct{}),
	}
}

func (e *entry) isStale(now time.Time) bool {
	if !e.hasData || e.invalidated {
		return true
	}
	if e.opts.StaleTime < 0 {
		return false
	}
	return !now.Before(e.fetchedAt.Add(e.opts.StaleTime))
}

func (e *entry) stopGC() {
	if e.gcTimer != nil {
		e.gcTimer.Stop()
		e.gcTimer = nil
	}
	e.gcSeq++
}

func (e *entry) stopRetry() {
	if e.retryTimer != nil {
		e.retryTimer.Stop()
		e.retryTimer = nil
	}
}

func (e *entry) snapshot(now time.Time) State[any] {
	s := State[any]{
		Key:        e.key,
		Status:     e.status,
		Data:       e.data,
		HasData:    e.hasData,
		Err:        e.err,
		FetchedAt:  e.fetchedAt,
		RetryCount: e.retryCount,
		Observers:  len(e.observers),
		IsStale:    e.isStale(now),
		Removed:    e.removed,
	}
	if e.hasData && e.opts.StaleTime >= 0 {
		s.StaleAt = e.fetchedAt.Add(e.opts.StaleTime)
	}
	return s
}

func (c *Client) notifyLocked(e *entry) {
	close(e.changed)
	e.changed = make(chan struct{})
	if len(e.observers) == 0 {
		return
	}
	s := e.snapshot(c.clock.Now())
	for _, o := range e.observers {
		o.notify(s)
	}
}

func (c *Client) loggerFor(key Key) observe.Logger {
	return c.logger.WithOperation(observe.Operation{Name: key.Scope(), Service: "query"})
}

// attach registers an observer and decides whether to fetch.
func (c *Client) attach(key Key, fn fetchFunc, opts Options, notify func(State[any])) (uint64, *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	hash := key.String()
	e, ok := c.entries[hash]
	if !ok {
		e = newEntry(key, hash, opts)
		c.entries[hash] = e
	}
	e.stopGC()
	e.opts = opts
	e.fn = fn

	c.nextID++
	o := &observer{id: c.nextID, notify: notify}
	e.observers[o.id] = o

	scope := key.Scope()
	switch {
	case c.closed:
		c.failClosedLocked(e)
		return o.id, e
	case !opts.Enabled:
	case !e.hasData:
		c.metrics.RecordCache(c.ctx, scope, observe.CacheMiss)
		c.startFetchLocked(e)
	case e.isStale(now):
		c.metrics.RecordCache(c.ctx, scope, observe.CacheStaleHit)
		if opts.RefetchOnMount {
			c.startFetchLocked(e)
		}
	default:
		c.metrics.RecordCache(c.ctx, scope, observe.CacheHit)
	}

	c.notifyLocked(e)
	return o.id, e
}

func (c *Client) unsubscribe(e *entry, id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := e.observers[id]; !ok {
		return
	}
	delete(e.observers, id)
	if len(e.observers) == 0 && c.entries[e.hash] == e {
		c.scheduleGCLocked(e)
	}
	c.notifyLocked(e)
}

func (c *Client) scheduleGCLocked(e *entry) {
	e.stopGC()
	if e.opts.GCTime < 0 || c.closed {
		return
	}
	seq := e.gcSeq
	e.gcTimer = c.clock.AfterFunc(e.opts.GCTime, func() { go c.evict(e, seq) })
}

func (c *Client) evict(e *entry, seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entries[e.hash] != e || len(e.observers) > 0 || e.gcSeq != seq {
		return
	}
	c.dropLocked(e)
	c.metrics.RecordCache(c.ctx, e.key.Scope(), observe.CacheEvict)
	c.loggerFor(e.key).Debug(c.ctx, "query evicted", observe.F("key", e.key.String()))
}

// dropLocked removes e from the map. In-flight results for it are
// discarded. Remaining observers get a final state with Removed set.
func (c *Client) dropLocked(e *entry) {
	delete(c.entries, e.hash)
	e.stopGC()
	e.stopRetry()
	e.gen++
	if e.fetching {
		e.fetching = false
		e.status = e.settled
	}
	e.removed = true
	c.notifyLocked(e)
}

// startFetchLocked begins a fetch cycle for e, or joins the attempt in
// flight. While a retry is scheduled the retry is the next attempt.
func (c *Client) startFetchLocked(e *entry) {
	if e.fn == nil || c.closed {
		return
	}
	if e.fetching {
		if e.retryTimer != nil {
			return
		}
	} else {
		e.settled = e.status
		e.fetching = true
		e.status = StatusFetching
		e.retryCount = 0
	}
	c.launchLocked(e)
}

func (c *Client) launchLocked(e *entry) {
	go c.runFetch(e, e.gen, e.retryCount, e.fn)
}

// flightKey names one attempt of one entry generation.
func flightKey(hash string, gen uint64, attempt int) string {
	return hash + "#" + strconv.FormatUint(gen, 10) + "#" + strconv.Itoa(attempt)
}

// runFetch executes attempt unless its result has already been applied.
// Concurrent launches of the same attempt share the leader's call, and only
// the leader applies the result.
func (c *Client) runFetch(e *entry, gen uint64, attempt int, fn fetchFunc) {
	_, _, _ = c.sf.Do(flightKey(e.hash, gen, attempt), func() (any, error) {
		if !c.pending(e, gen, attempt) {
			return nil, nil
		}
		start := c.clock.Now()
		v, err := safeCall(c.ctx, fn)
		c.metrics.RecordFetch(c.ctx, e.key.Scope(), c.clock.Since(start), err)
		c.complete(e, gen, attempt, v, err)
		return nil, nil
	})
}

// pending reports whether attempt of generation gen still awaits a result.
func (c *Client) pending(e *entry, gen uint64, attempt int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[e.hash] == e && e.gen == gen && e.fetching && e.retryCount == attempt
}

func safeCall(ctx context.Context, fn fetchFunc) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("query: executor panicked: %v", r)
		}
	}()
	return fn(ctx)
}

// complete applies the result of attempt issued under gen.
func (c *Client) complete(e *entry, gen uint64, attempt int, v any, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	scope := e.key.Scope()
	if c.entries[e.hash] != e || e.gen != gen || !e.fetching || e.retryCount != attempt {
		c.metrics.RecordCache(c.ctx, scope, observe.CacheDiscard)
		c.loggerFor(e.key).Debug(c.ctx, "discarded superseded fetch result", observe.F("key", e.key.String()))
		return
	}

	if err == nil {
		e.status = StatusSuccess
		e.settled = StatusSuccess
		e.data = v
		e.hasData = true
		e.err = nil
		e.fetchedAt = c.clock.Now()
		e.invalidated = false
		e.retryCount = 0
		e.fetching = false
		c.notifyLocked(e)
		return
	}

	e.retryCount++
	logger := c.loggerFor(e.key)
	if shouldRetryFetch(err) && e.retryCount < e.opts.attempts() && !c.closed {
		delay := e.opts.RetryDelay(e.retryCount)
		c.metrics.RecordCache(c.ctx, scope, observe.CacheRetry)
		logger.Debug(c.ctx, "query fetch failed, retrying",
			observe.F("key", e.key.String()),
			observe.F("attempt", e.retryCount),
			observe.F("delay_ms", delay.Milliseconds()),
			observe.F("error", err),
		)
		e.retryTimer = c.clock.AfterFunc(delay, func() { go c.retry(e, gen) })
		c.notifyLocked(e)
		return
	}

	e.status = StatusError
	e.settled = StatusError
	e.err = err
	e.fetching = false
	logger.Warn(c.ctx, "query fetch failed",
		observe.F("key", e.key.String()),
		observe.F("attempts", e.retryCount),
		observe.F("error", err),
	)
	c.notifyLocked(e)
}

func (c *Client) retry(e *entry, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entries[e.hash] != e || e.gen != gen || !e.fetching || c.closed {
		return
	}
	e.retryTimer = nil
	c.launchLocked(e)
}

func (c *Client) refetch(e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entries[e.hash] != e {
		return
	}
	c.startFetchLocked(e)
	c.notifyLocked(e)
}

func (c *Client) state(e *entry) (State[any], <-chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return e.snapshot(c.clock.Now()), e.changed
}

// Invalidate marks every entry whose key starts with prefix as stale and
// returns how many matched. Observed entries refetch immediately; results
// of fetches already in flight for them are discarded.
func (c *Client) Invalidate(prefix Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invalidateLocked(prefix)
}

func (c *Client) invalidateLocked(prefix Key) int {
	n := 0
	for _, e := range c.entries {
		if !e.key.HasPrefix(prefix) {
			continue
		}
		n++
		e.invalidated = true
		e.gen++
		e.stopRetry()
		if e.fetching {
			e.fetching = false
			e.status = e.settled
		}
		if len(e.observers) > 0 && e.opts.Enabled {
			c.startFetchLocked(e)
		}
		c.metrics.RecordCache(c.ctx, e.key.Scope(), observe.CacheInvalidate)
		c.notifyLocked(e)
	}
	return n
}

// SetEntryData writes data for key directly, creating the entry if needed.
// It does not change whether the entry is stale. updater receives the
// current data and whether there is any; it runs under the client lock and
// must not call back into the Client.
func (c *Client) SetEntryData(key Key, updater func(old any, ok bool) any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setEntryDataLocked(key, updater)
}

func (c *Client) setEntryDataLocked(key Key, updater func(old any, ok bool) any) {
	hash := key.String()
	e, ok := c.entries[hash]
	if !ok {
		e = newEntry(key, hash, c.defaults)
		c.entries[hash] = e
		e.fetchedAt = c.clock.Now()
		c.scheduleGCLocked(e)
	}

	e.data = updater(e.data, e.hasData)
	e.hasData = true
	e.err = nil
	e.settled = StatusSuccess
	if !e.fetching {
		e.status = StatusSuccess
	}
	c.notifyLocked(e)
}

// EntryData returns the cached data for key.
func (c *Client) EntryData(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	if !ok || !e.hasData {
		return nil, false
	}
	return e.data, true
}

// Entry returns a snapshot of the entry for key.
func (c *Client) Entry(key Key) (State[any], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	if !ok {
		return State[any]{}, false
	}
	return e.snapshot(c.clock.Now()), true
}

// Remove drops every entry whose key starts with prefix and returns how
// many were dropped. Observers of a removed entry receive one last state
// with Removed set and no updates after it; their Wait returns
// ErrUnsubscribed.
func (c *Client) Remove(prefix Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeLocked(prefix)
}

func (c *Client) removeLocked(prefix Key) int {
	n := 0
	for _, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			c.dropLocked(e)
			n++
		}
	}
	return n
}

// Len returns the number of cached entries.
func (c *Client) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Focus refetches observed, stale entries that opt into RefetchOnFocus. It
// returns how many fetches were started; entries already fetching join the
// fetch in flight and are not counted.
func (c *Client) Focus() int {
	return c.refetchActive(func(o Options) bool { return o.RefetchOnFocus })
}

// Reconnect refetches observed, stale entries that opt into
// RefetchOnReconnect. It returns how many fetches were started.
func (c *Client) Reconnect() int {
	return c.refetchActive(func(o Options) bool { return o.RefetchOnReconnect })
}

func (c *Client) refetchActive(want func(Options) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	n := 0
	for _, e := range c.entries {
		if len(e.observers) == 0 || !e.opts.Enabled || !want(e.opts) || !e.isStale(now) {
			continue
		}
		if !e.fetching {
			n++
		}
		c.startFetchLocked(e)
		c.notifyLocked(e)
	}
	return n
}

// Batch queues cache updates to apply atomically with Client.Apply.
type Batch struct {
	ops []func(c *Client)
}

// Invalidate queues Client.Invalidate(prefix).
func (b *Batch) Invalidate(prefix Key) {
	b.ops = append(b.ops, func(c *Client) { c.invalidateLocked(prefix) })
}

// SetEntryData queues Client.SetEntryData(key, updater).
func (b *Batch) SetEntryData(key Key, updater func(old any, ok bool) any) {
	b.ops = append(b.ops, func(c *Client) { c.setEntryDataLocked(key, updater) })
}

// Remove queues Client.Remove(prefix).
func (b *Batch) Remove(prefix Key) {
	b.ops = append(b.ops, func(c *Client) { c.removeLocked(prefix) })
}

// Len returns the number of queued operations.
func (b *Batch) Len() int { return len(b.ops) }

// Apply runs every queued operation under one lock acquisition, so no
// observer sees a partially applied batch.
func (c *Client) Apply(b *Batch) {
	if b == nil || len(b.ops) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, op := range b.ops {
		op(c)
	}
}
