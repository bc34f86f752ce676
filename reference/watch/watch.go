// Package watch wraps fsnotify over a workspace root to supply
// source_update_time without a stat-per-tick poll, and to recognize the
// provider-rescan cancellation trigger's real-world analogue: a directory
// being replaced wholesale (spec.md §4.5, §5 "cancellation & timeouts").
// Grounded on alex60217101990-opa's and junjiewwang-perf-analysis's
// fsnotify dependency.
package watch

import (
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher observes a workspace root and records the last time each path
// changed, in a map guarded by a lock. A background goroutine drains
// fsnotify events; the per-tick budgeted scheduler never blocks on
// fsnotify itself (spec.md §5 "workers... do not block on I/O inside a
// step"); it only reads LastObserved.
type Watcher struct {
	fsw *fsnotify.Watcher

	mu      sync.RWMutex
	mtimes  map[string]time.Time
	rescans chan string

	done chan struct{}
}

// New creates a watcher over every directory under root.
func New(root string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsw:     fsw,
		mtimes:  make(map[string]time.Time),
		rescans: make(chan string, 16),
		done:    make(chan struct{}),
	}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
	if err != nil {
		fsw.Close()
		return nil, err
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.mu.Lock()
			w.mtimes[ev.Name] = time.Now()
			w.mu.Unlock()
			if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				select {
				case w.rescans <- ev.Name:
				default:
				}
			}
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		case <-w.done:
			return
		}
	}
}

// LastObserved returns the last time path was seen to change, if ever.
func (w *Watcher) LastObserved(path string) (time.Time, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	t, ok := w.mtimes[path]
	return t, ok
}

// Rescans reports directories removed or renamed out from under the
// watcher, the real-world trigger for spec.md's "provider rescan"
// cancellation signal.
func (w *Watcher) Rescans() <-chan string { return w.rescans }

// Close stops the watcher's background goroutine and releases its
// underlying OS resources.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
