package observe

import (
	"context"
	"time"
)

// RequestFunc performs one request and reports the response status, zero
// when no response arrived.
type RequestFunc func(ctx context.Context, op Operation) (status int, err error)

// Middleware wraps requests with tracing, metrics, and logging.
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe RequestFunc.
//   - Context: Propagates context through tracing spans.
//   - Errors: Errors from wrapped function are recorded and propagated unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
	now     func() time.Time
}

// NewMiddleware creates a new Middleware. Nil components are replaced by
// no-op implementations.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NoopTracer()
	}
	if metrics == nil {
		metrics = NoopMetrics()
	}
	if logger == nil {
		logger = NoopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// NoopMiddleware returns a Middleware that records nothing.
func NoopMiddleware() *Middleware {
	return NewMiddleware(nil, nil, nil)
}

// Wrap wraps a RequestFunc with tracing, metrics, and logging.
func (m *Middleware) Wrap(fn RequestFunc) RequestFunc {
	return func(ctx context.Context, op Operation) (int, error) {
		ctx, span := m.tracer.StartSpan(ctx, op)
		start := m.now()

		status, err := fn(ctx, op)

		duration := m.now().Sub(start)
		m.tracer.EndSpan(span, status, err)
		m.metrics.RecordRequest(ctx, op, status, duration, err)

		logger := m.logger.WithOperation(op)
		fields := []Field{
			F("status", status),
			F("duration_ms", float64(duration.Milliseconds())),
		}
		if err != nil {
			fields = append(fields, F("error", err.Error()), F("error.kind", errorKind(err)))
			logger.Warn(ctx, "request failed", fields...)
		} else {
			logger.Debug(ctx, "request completed", fields...)
		}

		return status, err
	}
}

// Run executes fn under the middleware.
func (m *Middleware) Run(ctx context.Context, op Operation, fn RequestFunc) (int, error) {
	return m.Wrap(fn)(ctx, op)
}

// Metrics returns the middleware's metrics recorder.
func (m *Middleware) Metrics() Metrics { return m.metrics }

// Logger returns the middleware's base logger.
func (m *Middleware) Logger() Logger { return m.logger }

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
