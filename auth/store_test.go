package auth

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
)

func storesUnderTest(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(Session{}),
		"file":   NewFileStore(filepath.Join(t.TempDir(), "nested", "session.yaml")),
	}
}

func TestStore_SelectProjectAndLoad(t *testing.T) {
	ctx := context.Background()
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.SelectProject(ctx, "t-1", "p-1", "key-1"); err != nil {
				t.Fatalf("SelectProject() error = %v", err)
			}
			sess, err := store.Load(ctx)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if sess.APIKey != "key-1" || sess.ProjectID != "p-1" || sess.TenantID != "t-1" {
				t.Errorf("Load() = %+v", sess)
			}
			if sess.Version != 1 {
				t.Errorf("Version = %d, want 1", sess.Version)
			}

			if err := store.SetToken(ctx, "tok"); err != nil {
				t.Fatalf("SetToken() error = %v", err)
			}
			sess, _ = store.Load(ctx)
			if sess.Token != "tok" || sess.APIKey != "key-1" || sess.Version != 2 {
				t.Errorf("Load() after SetToken = %+v", sess)
			}
		})
	}
}

func TestStore_ClearIfVersion(t *testing.T) {
	ctx := context.Background()
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			_ = store.SelectProject(ctx, "t", "p", "key")
			sess, _ := store.Load(ctx)

			cleared, err := store.ClearIf(ctx, sess.Version+10)
			if err != nil || cleared {
				t.Fatalf("ClearIf(stale version) = %v, %v; want false", cleared, err)
			}

			cleared, err = store.ClearIf(ctx, sess.Version)
			if err != nil || !cleared {
				t.Fatalf("ClearIf(current version) = %v, %v; want true", cleared, err)
			}

			after, _ := store.Load(ctx)
			if !after.Empty() {
				t.Errorf("session not cleared: %+v", after)
			}
			if after.Version <= sess.Version {
				t.Errorf("Version = %d, want > %d", after.Version, sess.Version)
			}
		})
	}
}

// TestStore_ConcurrentClearOnce checks that many concurrent 401 handlers
// that read the same session version clear it exactly once.
func TestStore_ConcurrentClearOnce(t *testing.T) {
	ctx := context.Background()
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			_ = store.SelectProject(ctx, "t", "p", "key")
			sess, _ := store.Load(ctx)

			var clears atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if ok, _ := store.ClearIf(ctx, sess.Version); ok {
						clears.Add(1)
					}
				}()
			}
			wg.Wait()

			if got := clears.Load(); got != 1 {
				t.Errorf("clears = %d, want 1", got)
			}
		})
	}
}

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "none.yaml"))
	sess, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !sess.Empty() || sess.Version != 0 {
		t.Errorf("Load() = %+v, want zero session", sess)
	}
}
