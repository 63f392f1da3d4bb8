package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jonwraymond/abclient/apierr"
)

// CacheEvent names a query cache event counted by RecordCache.
type CacheEvent string

// Cache events.
const (
	CacheHit        CacheEvent = "hit"
	CacheStaleHit   CacheEvent = "stale_hit"
	CacheMiss       CacheEvent = "miss"
	CacheInvalidate CacheEvent = "invalidate"
	CacheEvict      CacheEvent = "evict"
	CacheRetry      CacheEvent = "retry"
	CacheDiscard    CacheEvent = "discard"
)

// Metrics records request and cache metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordRequest records one HTTP call with its status (zero when no
	// response arrived), duration, and error.
	RecordRequest(ctx context.Context, op Operation, status int, duration time.Duration, err error)

	// RecordFetch records one executor run by the query cache. Scope is the
	// first element of the cache key.
	RecordFetch(ctx context.Context, scope string, duration time.Duration, err error)

	// RecordCache counts a cache event for the given scope.
	RecordCache(ctx context.Context, scope string, event CacheEvent)
}

type metricsImpl struct {
	requestTotal    metric.Int64Counter
	requestErrors   metric.Int64Counter
	requestDuration metric.Float64Histogram
	fetchTotal      metric.Int64Counter
	fetchErrors     metric.Int64Counter
	fetchDuration   metric.Float64Histogram
	cacheEvents     metric.Int64Counter
}

// NewMetrics creates the client instruments on the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	m := &metricsImpl{}
	var err error

	if m.requestTotal, err = meter.Int64Counter(
		"abclient.request.total",
		metric.WithDescription("Total number of API requests"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}
	if m.requestErrors, err = meter.Int64Counter(
		"abclient.request.errors",
		metric.WithDescription("Total number of failed API requests"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, err
	}
	if m.requestDuration, err = meter.Float64Histogram(
		"abclient.request.duration_ms",
		metric.WithDescription("API request duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.fetchTotal, err = meter.Int64Counter(
		"abclient.query.fetch.total",
		metric.WithDescription("Total number of query executor runs"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}
	if m.fetchErrors, err = meter.Int64Counter(
		"abclient.query.fetch.errors",
		metric.WithDescription("Total number of failed query executor runs"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, err
	}
	if m.fetchDuration, err = meter.Float64Histogram(
		"abclient.query.fetch.duration_ms",
		metric.WithDescription("Query executor duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.cacheEvents, err = meter.Int64Counter(
		"abclient.query.events",
		metric.WithDescription("Query cache events by kind"),
		metric.WithUnit("{event}"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *metricsImpl) RecordRequest(ctx context.Context, op Operation, status int, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("op.name", op.Name),
		attribute.String("op.service", op.Service),
		attribute.String("http.method", op.Method),
		attribute.String("http.route", op.Route),
		attribute.Int("http.status_code", status),
	}
	if err != nil {
		attrs = append(attrs, attribute.String("error.kind", errorKind(err)))
	}
	opt := metric.WithAttributes(attrs...)

	m.requestTotal.Add(ctx, 1, opt)
	if err != nil {
		m.requestErrors.Add(ctx, 1, opt)
	}
	m.requestDuration.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *metricsImpl) RecordFetch(ctx context.Context, scope string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{attribute.String("query.scope", scope)}
	if err != nil {
		attrs = append(attrs, attribute.String("error.kind", errorKind(err)))
	}
	opt := metric.WithAttributes(attrs...)

	m.fetchTotal.Add(ctx, 1, opt)
	if err != nil {
		m.fetchErrors.Add(ctx, 1, opt)
	}
	m.fetchDuration.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *metricsImpl) RecordCache(ctx context.Context, scope string, event CacheEvent) {
	m.cacheEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("query.scope", scope),
		attribute.String("query.event", string(event)),
	))
}

func errorKind(err error) string {
	if kind, ok := apierr.KindOf(err); ok {
		return kind.String()
	}
	return "unclassified"
}

// NoopMetrics returns a Metrics that records nothing.
func NoopMetrics() Metrics { return noopMetrics{} }

type noopMetrics struct{}

func (noopMetrics) RecordRequest(context.Context, Operation, int, time.Duration, error) {}
func (noopMetrics) RecordFetch(context.Context, string, time.Duration, error)          {}
func (noopMetrics) RecordCache(context.Context, string, CacheEvent)                    {}
