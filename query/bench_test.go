package query

import (
	"context"
	"testing"
)

func BenchmarkKeyString(b *testing.B) {
	key := Key{"experiments", "list", map[string]any{"status": "LIVE", "page": 2, "limit": 20}}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = key.String()
	}
}

func BenchmarkObserve_CacheHit(b *testing.B) {
	c := NewClient()
	defer c.Close()
	key := Key{"tenants", "list"}
	c.SetEntryData(key, func(any, bool) any { return []string{"t1", "t2"} })
	fetch := func(context.Context) ([]string, error) { return nil, nil }

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		sub := Observe(c, key, fetch)
		sub.Unsubscribe()
	}
}

func BenchmarkInvalidate(b *testing.B) {
	c := NewClient(WithDefaults(WithGCTime(-1)))
	defer c.Close()
	for i := 0; i < 500; i++ {
		c.SetEntryData(Key{"experiments", "detail", i}, func(any, bool) any { return i })
		c.SetEntryData(Key{"audiences", "detail", i}, func(any, bool) any { return i })
	}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		c.Invalidate(Key{"experiments"})
	}
}
