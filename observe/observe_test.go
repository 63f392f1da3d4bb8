package observe

import (
	"context"
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			ServiceName: "abctl",
			Version:     "1.0.0",
			Tracing:     TracingConfig{Enabled: true, Exporter: "stdout", SamplePct: 1.0},
			Metrics:     MetricsConfig{Enabled: true, Exporter: "prometheus"},
			Logging:     LoggingConfig{Enabled: true, Level: "info"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing service name", mutate: func(c *Config) { c.ServiceName = "" }, wantErr: ErrMissingServiceName},
		{name: "unknown tracing exporter", mutate: func(c *Config) { c.Tracing.Exporter = "zipkin" }, wantErr: ErrInvalidTracingExporter},
		{name: "unknown metrics exporter", mutate: func(c *Config) { c.Metrics.Exporter = "statsd" }, wantErr: ErrInvalidMetricsExporter},
		{name: "sample pct too high", mutate: func(c *Config) { c.Tracing.SamplePct = 1.5 }, wantErr: ErrInvalidSamplePct},
		{name: "sample pct negative", mutate: func(c *Config) { c.Tracing.SamplePct = -0.1 }, wantErr: ErrInvalidSamplePct},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "verbose" }, wantErr: ErrInvalidLogLevel},
		{
			name: "disabled subsystems are not validated",
			mutate: func(c *Config) {
				c.Tracing = TracingConfig{Exporter: "zipkin", SamplePct: 9}
				c.Metrics = MetricsConfig{Exporter: "statsd"}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewObserver_Disabled(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{ServiceName: "abctl"})
	if err != nil {
		t.Fatalf("NewObserver: %v", err)
	}
	if obs.Tracer() == nil || obs.Meter() == nil || obs.Logger() == nil {
		t.Fatal("disabled observer must still return usable components")
	}
	if err := obs.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestNewObserver_Enabled(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{
		ServiceName: "abctl",
		Tracing:     TracingConfig{Enabled: true, Exporter: "none", SamplePct: 1},
		Metrics:     MetricsConfig{Enabled: true, Exporter: "none"},
		Logging:     LoggingConfig{Enabled: true, Level: "error"},
	})
	if err != nil {
		t.Fatalf("NewObserver: %v", err)
	}
	defer obs.Shutdown(context.Background())

	mw, err := MiddlewareFromObserver(obs)
	if err != nil {
		t.Fatalf("MiddlewareFromObserver: %v", err)
	}
	status, err := mw.Run(context.Background(), Operation{Name: "health", Method: "GET", Route: "/health"},
		func(context.Context, Operation) (int, error) { return 200, nil })
	if err != nil || status != 200 {
		t.Fatalf("Run = %d, %v", status, err)
	}
}

func TestNewObserver_InvalidConfig(t *testing.T) {
	if _, err := NewObserver(context.Background(), Config{}); !errors.Is(err, ErrMissingServiceName) {
		t.Fatalf("err = %v, want ErrMissingServiceName", err)
	}
}
