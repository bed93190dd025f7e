// Package watcher tracks workspace changes between indexing runs. It
// does not re-index on its own; it marks the index stale so the next
// turn can tell the user retrieval may be out of date.
package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"koda/internal/indexer"
	"koda/internal/logging"
)

// Config holds watcher settings.
type Config struct {
	DebounceMs int // quiet period before a change counts (default: 500)
	MaxWatches int // directory watch cap (default: 1000)
}

// StaleHandler is invoked once per debounced batch of relevant changes.
type StaleHandler func(paths []string)

// Watcher watches a workspace for changes to indexable files.
type Watcher struct {
	fsWatcher  *fsnotify.Watcher
	root       string
	ignores    *indexer.IgnoreList
	debounce   time.Duration
	maxWatches int

	mu       sync.Mutex
	pending  map[string]time.Time
	stale    bool
	onStale  StaleHandler
	running  bool
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a watcher for the workspace rooted at root.
func New(root string, cfg Config) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if cfg.DebounceMs <= 0 {
		cfg.DebounceMs = 500
	}
	if cfg.MaxWatches <= 0 {
		cfg.MaxWatches = 1000
	}

	return &Watcher{
		fsWatcher:  fsWatcher,
		root:       root,
		ignores:    indexer.LoadIgnoreList(root),
		debounce:   time.Duration(cfg.DebounceMs) * time.Millisecond,
		maxWatches: cfg.MaxWatches,
		pending:    make(map[string]time.Time),
		done:       make(chan struct{}),
	}, nil
}

// SetOnStale registers the handler called when the index goes stale.
func (w *Watcher) SetOnStale(handler StaleHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onStale = handler
}

// Stale reports whether indexable files changed since the last Reset.
func (w *Watcher) Stale() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stale
}

// Reset clears the stale flag, typically after a re-index.
func (w *Watcher) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stale = false
}

// Start begins watching. Safe to call once.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.addDirectories(); err != nil {
		return err
	}

	go w.processEvents()
	go w.processDebounce()
	return nil
}

// Stop shuts the watcher down.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	w.stopOnce.Do(func() { close(w.done) })
	return w.fsWatcher.Close()
}

// addDirectories registers every non-ignored directory up to the cap.
func (w *Watcher) addDirectories() error {
	count := 0
	return filepath.Walk(w.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if count >= w.maxWatches {
			return filepath.SkipDir
		}
		if w.skipDir(path, info.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsWatcher.Add(path); err != nil {
			return nil
		}
		count++
		return nil
	})
}

func (w *Watcher) skipDir(path, name string) bool {
	if path != w.root && indexer.IsStandardIgnore(name) {
		return true
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return false
	}
	return w.ignores.Ignored(filepath.ToSlash(rel), true)
}

func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			logging.Debug("watch error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name
	base := filepath.Base(path)
	if base == "" || base[0] == '.' || base[0] == '#' || base[len(base)-1] == '~' {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !w.skipDir(path, info.Name()) && len(w.fsWatcher.WatchList()) < w.maxWatches {
				_ = w.fsWatcher.Add(path)
			}
			return
		}
	}

	// only indexable files can make the index stale
	if !indexer.IsIndexableFile(base) {
		return
	}
	if rel, err := filepath.Rel(w.root, path); err == nil {
		if w.ignores.Ignored(filepath.ToSlash(rel), false) {
			return
		}
	}

	w.mu.Lock()
	w.pending[path] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) processDebounce() {
	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.flushPending()
		}
	}
}

func (w *Watcher) flushPending() {
	w.mu.Lock()
	now := time.Now()
	var changed []string
	for path, at := range w.pending {
		if now.Sub(at) >= w.debounce {
			changed = append(changed, path)
			delete(w.pending, path)
		}
	}
	if len(changed) > 0 {
		w.stale = true
	}
	handler := w.onStale
	w.mu.Unlock()

	if len(changed) > 0 {
		logging.Debug("index marked stale", "changed", len(changed))
		if handler != nil {
			handler(changed)
		}
	}
}
