package observe

import (
	"context"
	"io"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func BenchmarkLogger_Info(b *testing.B) {
	logger := NewLoggerWithWriter("info", io.Discard).WithOperation(listOp)
	ctx := context.Background()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		logger.Info(ctx, "request completed", F("status", 200), F("duration_ms", 1.5))
	}
}

func BenchmarkLogger_LevelFiltering(b *testing.B) {
	logger := NewLoggerWithWriter("error", io.Discard)
	ctx := context.Background()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		logger.Debug(ctx, "dropped")
	}
}

func BenchmarkMetrics_RecordRequest(b *testing.B) {
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	m, err := NewMetrics(mp.Meter("bench"))
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		m.RecordRequest(ctx, listOp, 200, time.Millisecond, nil)
	}
}

func BenchmarkMiddleware_Run(b *testing.B) {
	mw := NoopMiddleware()
	ctx := context.Background()
	fn := func(context.Context, Operation) (int, error) { return 200, nil }
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = mw.Run(ctx, listOp, fn)
	}
}
