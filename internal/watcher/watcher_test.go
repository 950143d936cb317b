package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatcherDebouncesMatchingEvents(t *testing.T) {
	dir := t.TempDir()

	var calls atomic.Int32
	fired := make(chan struct{}, 10)
	w, err := New([]string{dir}, Options{
		Debounce: 20 * time.Millisecond,
		Match:    MatchExt(".md"),
		OnChange: func() {
			calls.Add(1)
			fired <- struct{}{}
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx, nil)

	for i := range 3 {
		name := filepath.Join(dir, "task-"+string(rune('a'+i))+".md")
		if err := os.WriteFile(name, []byte("---\n---\n"), 0o600); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a change notification")
	}
	time.Sleep(100 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected 1 debounced call, got %d", got)
	}
}

func TestWatcherIgnoresNonMatching(t *testing.T) {
	dir := t.TempDir()

	fired := make(chan struct{}, 1)
	w, err := New([]string{dir}, Options{
		Debounce: 10 * time.Millisecond,
		Match:    MatchExt(".md"),
		OnChange: func() { fired <- struct{}{} },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx, nil)

	if err := os.WriteFile(filepath.Join(dir, "activity.jsonl"), []byte("{}\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	select {
	case <-fired:
		t.Fatal("unexpected notification for non-matching file")
	case <-time.After(150 * time.Millisecond):
	}
}
