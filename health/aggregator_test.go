package health

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func staticChecker(name string, r Result) Checker {
	return NewCheckerFunc(name, func(context.Context) Result { return r })
}

func TestNewAggregator(t *testing.T) {
	agg := NewAggregator()

	if agg.config.Timeout != 10*time.Second {
		t.Errorf("Default timeout = %v, want 10s", agg.config.Timeout)
	}
	if !agg.config.Parallel {
		t.Error("Default Parallel should be true")
	}
	if agg.config.Clock == nil {
		t.Error("Default clock not set")
	}
}

func TestAggregator_RegisterOrder(t *testing.T) {
	agg := NewAggregator()
	agg.Register(staticChecker("project_api", Healthy("ok")))
	agg.Register(staticChecker("identity_api", Healthy("ok")))
	agg.Register(staticChecker("project_api", Degraded("replaced", nil)))

	names := agg.CheckerNames()
	if len(names) != 2 || names[0] != "project_api" || names[1] != "identity_api" {
		t.Fatalf("CheckerNames() = %v", names)
	}

	r, err := agg.Check(context.Background(), "project_api")
	if err != nil {
		t.Fatal(err)
	}
	if r.Status != StatusDegraded {
		t.Errorf("re-registered checker not used: %+v", r)
	}
}

func TestAggregator_CheckNotFound(t *testing.T) {
	agg := NewAggregator()
	if _, err := agg.Check(context.Background(), "missing"); !errors.Is(err, ErrCheckerNotFound) {
		t.Errorf("Check() error = %v, want ErrCheckerNotFound", err)
	}
}

func TestOverallStatus(t *testing.T) {
	tests := []struct {
		name    string
		results map[string]Result
		want    Status
	}{
		{name: "empty", results: nil, want: StatusHealthy},
		{name: "all healthy", results: map[string]Result{"a": Healthy(""), "b": Healthy("")}, want: StatusHealthy},
		{name: "one degraded", results: map[string]Result{"a": Healthy(""), "b": Degraded("", nil)}, want: StatusDegraded},
		{name: "unhealthy wins", results: map[string]Result{"a": Degraded("", nil), "b": Unhealthy("", nil)}, want: StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OverallStatus(tt.results); got != tt.want {
				t.Errorf("OverallStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAggregator_CheckAll(t *testing.T) {
	for _, parallel := range []bool{true, false} {
		agg := NewAggregator(AggregatorConfig{Parallel: parallel})
		var calls atomic.Int32
		for _, name := range []string{"a", "b", "c"} {
			agg.Register(NewCheckerFunc(name, func(context.Context) Result {
				calls.Add(1)
				return Healthy("ok")
			}))
		}

		results := agg.CheckAll(context.Background())
		if len(results) != 3 || calls.Load() != 3 {
			t.Errorf("parallel=%v: %d results, %d calls", parallel, len(results), calls.Load())
		}
		for name, r := range results {
			if r.Timestamp.IsZero() {
				t.Errorf("parallel=%v: %s has no timestamp", parallel, name)
			}
		}
	}
}

func TestAggregator_Timeout(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{Timeout: 20 * time.Millisecond, Parallel: true})
	release := make(chan struct{})
	defer close(release)
	agg.Register(NewCheckerFunc("hung", func(ctx context.Context) Result {
		<-release
		return Healthy("late")
	}))

	r, err := agg.Check(context.Background(), "hung")
	if err != nil {
		t.Fatal(err)
	}
	if r.Status != StatusUnhealthy || !errors.Is(r.Error, ErrCheckTimeout) {
		t.Errorf("hung check = %+v, want timeout", r)
	}
}

func TestAggregator_Panic(t *testing.T) {
	agg := NewAggregator()
	agg.Register(NewCheckerFunc("bad", func(context.Context) Result { panic("nil store") }))

	r, _ := agg.Check(context.Background(), "bad")
	if r.Status != StatusUnhealthy || !errors.Is(r.Error, ErrCheckFailed) {
		t.Errorf("panicking check = %+v", r)
	}
}

func TestAggregator_Report(t *testing.T) {
	agg := NewAggregator()
	agg.Register(staticChecker("project_api", Healthy("reachable")))
	agg.Register(staticChecker("identity_api", Degraded("reachable, credentials rejected", nil)))

	report := agg.Report(context.Background())
	if report.Status != StatusDegraded {
		t.Errorf("Status = %v, want degraded", report.Status)
	}
	if len(report.Names) != 2 || report.Names[0] != "project_api" {
		t.Errorf("Names = %v", report.Names)
	}
	if report.Results["identity_api"].Message != "reachable, credentials rejected" {
		t.Errorf("Results = %+v", report.Results)
	}
	if report.Timestamp.IsZero() {
		t.Error("report has no timestamp")
	}
}
