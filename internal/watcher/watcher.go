// Package watcher provides debounced file system watching of the server's
// task directory.
package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the time to wait after the last file event before
// triggering the callback. Rapid changes such as an atomic rename of a task
// file coalesce into a single notification.
const DefaultDebounce = 100 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	// Debounce overrides DefaultDebounce when positive.
	Debounce time.Duration
	// Match filters events by file path. Nil matches everything.
	Match func(path string) bool
	// OnChange is invoked, debounced, after matching events.
	OnChange func()
}

// Watcher watches task directories and invokes a callback with debouncing.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	match    func(string) bool
	onChange func()

	mu    sync.Mutex
	timer *time.Timer
}

// New creates a Watcher that monitors the given paths.
func New(paths []string, opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	for _, p := range paths {
		if err := fsw.Add(p); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}

	d := opts.Debounce
	if d <= 0 {
		d = DefaultDebounce
	}
	onChange := opts.OnChange
	if onChange == nil {
		onChange = func() {}
	}
	return &Watcher{
		fsw:      fsw,
		debounce: d,
		match:    opts.Match,
		onChange: onChange,
	}, nil
}

// MatchExt returns a Match function accepting files with extension ext.
func MatchExt(ext string) func(string) bool {
	return func(path string) bool {
		return filepath.Ext(path) == ext
	}
}

// Run starts the watch loop. It blocks until the context is canceled or the
// watcher is closed. Errors from the underlying watcher are passed to the
// optional errFn callback.
func (w *Watcher) Run(ctx context.Context, errFn func(error)) {
	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				w.stopTimer()
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.schedule()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				w.stopTimer()
				return
			}
			if errFn != nil {
				errFn(err)
			}
		}
	}
}

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return w.match == nil || w.match(event.Name)
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.onChange)
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}
