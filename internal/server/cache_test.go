package server

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/twiced-technology-gmbh/taskboard/internal/remote"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

type stubLister struct {
	calls int
	fn    func(ctx context.Context, boardID string) ([]task.Task, error)
}

func (s *stubLister) ListTasks(ctx context.Context, boardID string) ([]task.Task, error) {
	s.calls++
	if s.fn == nil {
		return nil, errors.New("unexpected ListTasks call")
	}
	return s.fn(ctx, boardID)
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCacheMissThenHit(t *testing.T) {
	mr, client := newRedis(t)
	logger, _ := test.NewNullLogger()
	base := &stubLister{fn: func(context.Context, string) ([]task.Task, error) {
		return []task.Task{{ID: "t1", Title: "Cached", Status: task.StatusTodo}}, nil
	}}
	cache := NewCache(base, client, time.Minute, logger)
	ctx := context.Background()

	for range 2 {
		tasks, err := cache.ListTasks(ctx, "team")
		if err != nil {
			t.Fatalf("ListTasks: %v", err)
		}
		if len(tasks) != 1 || tasks[0].Title != "Cached" {
			t.Fatalf("unexpected tasks %+v", tasks)
		}
	}
	if base.calls != 1 {
		t.Fatalf("expected 1 backend call, got %d", base.calls)
	}
	if ttl := mr.TTL(cacheKey("team")); ttl != time.Minute {
		t.Fatalf("expected ttl %v, got %v", time.Minute, ttl)
	}
}

func TestCacheEvict(t *testing.T) {
	mr, client := newRedis(t)
	logger, _ := test.NewNullLogger()
	base := &stubLister{fn: func(context.Context, string) ([]task.Task, error) { return nil, nil }}
	cache := NewCache(base, client, time.Minute, logger)
	ctx := context.Background()

	_, _ = cache.ListTasks(ctx, "team")
	_, _ = cache.ListTasks(ctx, "ops")
	cache.Evict(ctx, "team")
	if mr.Exists(cacheKey("team")) || !mr.Exists(cacheKey("ops")) {
		t.Fatalf("expected only team evicted, keys %v", mr.Keys())
	}

	cache.EvictAll(ctx)
	if mr.Exists(cacheKey("team")) || mr.Exists(cacheKey("ops")) {
		t.Fatalf("expected no listings, got %v", mr.Keys())
	}
}

func TestCacheSkipsListingReadBeforeEviction(t *testing.T) {
	_, client := newRedis(t)
	logger, _ := test.NewNullLogger()
	ctx := context.Background()

	status := task.StatusTodo
	var cache *Cache
	base := &stubLister{}
	base.fn = func(context.Context, string) ([]task.Task, error) {
		snapshot := []task.Task{{ID: "t1", Status: status}}
		if base.calls == 1 {
			// A save lands after the read and before the fill.
			status = task.StatusDone
			cache.Evict(ctx, "team")
		}
		return snapshot, nil
	}
	cache = NewCache(base, client, time.Minute, logger)

	if _, err := cache.ListTasks(ctx, "team"); err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	tasks, err := cache.ListTasks(ctx, "team")
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if base.calls != 2 || tasks[0].Status != task.StatusDone {
		t.Fatalf("expected a fresh DONE listing, got %s after %d loads", tasks[0].Status, base.calls)
	}

	if _, err := cache.ListTasks(ctx, "team"); err != nil || base.calls != 2 {
		t.Fatalf("expected the fresh listing to be cached, calls=%d err=%v", base.calls, err)
	}
}

func TestCacheSkipsListingReadBeforeEvictAll(t *testing.T) {
	_, client := newRedis(t)
	logger, _ := test.NewNullLogger()
	ctx := context.Background()

	var cache *Cache
	base := &stubLister{}
	base.fn = func(context.Context, string) ([]task.Task, error) {
		if base.calls == 1 {
			cache.EvictAll(ctx)
		}
		return []task.Task{{ID: "t1"}}, nil
	}
	cache = NewCache(base, client, time.Minute, logger)

	_, _ = cache.ListTasks(ctx, "team")
	_, _ = cache.ListTasks(ctx, "team")
	if base.calls != 2 {
		t.Fatalf("expected the listing raced by EvictAll not to be cached, calls=%d", base.calls)
	}
}

func TestCacheZeroTTLPassesThrough(t *testing.T) {
	mr, client := newRedis(t)
	logger, _ := test.NewNullLogger()
	base := &stubLister{fn: func(context.Context, string) ([]task.Task, error) { return nil, nil }}
	cache := NewCache(base, client, 0, logger)

	_, _ = cache.ListTasks(context.Background(), "team")
	_, _ = cache.ListTasks(context.Background(), "team")
	if base.calls != 2 || len(mr.Keys()) != 0 {
		t.Fatalf("expected pass-through, calls=%d keys=%v", base.calls, mr.Keys())
	}
}

func TestCacheCorruptEntryFallsBack(t *testing.T) {
	mr, client := newRedis(t)
	logger, _ := test.NewNullLogger()
	base := &stubLister{fn: func(context.Context, string) ([]task.Task, error) {
		return []task.Task{{ID: "t1"}}, nil
	}}
	cache := NewCache(base, client, time.Minute, logger)
	if err := mr.Set(cacheKey("team"), "not json"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	tasks, err := cache.ListTasks(context.Background(), "team")
	if err != nil || len(tasks) != 1 || base.calls != 1 {
		t.Fatalf("expected fallback to backend, got %+v (%v), calls=%d", tasks, err, base.calls)
	}
}

func TestMutationEvictsServerCache(t *testing.T) {
	mr, client := newRedis(t)
	f := newFixture(t, nil)

	// Rebuild the server with redis attached.
	auth, _ := NewAuth(testSecret, nil, "")
	srv, err := New(Options{
		DataDir:  t.TempDir(),
		Boards:   []string{"team"},
		Auth:     auth,
		Redis:    client,
		CacheTTL: time.Minute,
		Logger:   f.logger,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.srv = srv

	f.create(t, "First", "")
	f.do(t, http.MethodGet, "/api/boards/team/tasks", nil)
	if !mr.Exists(cacheKey("team")) {
		t.Fatal("expected listing to be cached")
	}

	f.create(t, "Second", "")
	if mr.Exists(cacheKey("team")) {
		t.Fatal("expected create to evict the listing")
	}
	resp := decode[remote.TasksResponse](t, f.do(t, http.MethodGet, "/api/boards/team/tasks", nil))
	if len(resp.Tasks) != 2 {
		t.Fatalf("expected fresh listing with 2 tasks, got %d", len(resp.Tasks))
	}
}
