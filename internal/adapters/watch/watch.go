// Package watch reports content changes of files in a directory. Bursts
// of filesystem events are debounced per file, and a change is only
// reported when the file's xxh3 fingerprint differs from the last one
// seen, so saves that rewrite identical bytes are ignored.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/zeebo/xxh3"

	"github.com/bft-labs/carconsole/pkg/log"
)

// Event describes one settled change.
type Event struct {
	Path    string
	Removed bool
	// Sum is the xxh3 fingerprint of the new contents; zero when removed.
	Sum uint64
}

// Handler is called once per settled change. Calls are serialized.
type Handler func(Event)

// Config holds watcher options.
type Config struct {
	// DebounceDelay is how long a file must be quiet before it is read.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	// Match selects the files of interest. Nil matches every file.
	Match func(path string) bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{DebounceDelay: 100 * time.Millisecond}
}

// Watcher watches a single directory.
type Watcher struct {
	dir     string
	cfg     Config
	logger  log.Logger
	handler Handler

	mu     sync.Mutex
	sums   map[string]uint64
	timers map[string]*time.Timer

	// serializes handler calls
	callMu sync.Mutex
}

// New creates a watcher for dir.
func New(dir string, cfg Config, handler Handler, logger log.Logger) *Watcher {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = DefaultConfig().DebounceDelay
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Watcher{
		dir:     filepath.Clean(dir),
		cfg:     cfg,
		logger:  logger,
		handler: handler,
		sums:    make(map[string]uint64),
		timers:  make(map[string]*time.Timer),
	}
}

// Fingerprint returns the xxh3 hash used to detect content changes.
func Fingerprint(data []byte) uint64 {
	return xxh3.Hash(data)
}

// Prime records the current fingerprint of every matching file so that
// only later changes are reported.
func (w *Watcher) Prime() error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(w.dir, e.Name())
		if !w.matches(path) {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		w.mu.Lock()
		w.sums[path] = Fingerprint(data)
		w.mu.Unlock()
	}
	return nil
}

// Run watches until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	if err := w.Prime(); err != nil {
		w.logger.Warn("watch: prime failed", log.String("dir", w.dir), log.Err(err))
	}
	w.logger.Debug("watching", log.String("dir", w.dir))
	defer w.stopTimers()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			path := filepath.Clean(event.Name)
			if !w.matches(path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.debounce(ctx, path)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch: watcher error", log.String("dir", w.dir), log.Err(err))
		}
	}
}

func (w *Watcher) matches(path string) bool {
	if filepath.Dir(path) != w.dir {
		return false
	}
	return w.cfg.Match == nil || w.cfg.Match(path)
}

func (w *Watcher) debounce(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.cfg.DebounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		w.settle(path)
	})
}

// settle reads path and reports it if its fingerprint changed.
func (w *Watcher) settle(path string) {
	ev := Event{Path: path}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		ev.Removed = true
	case err != nil:
		w.logger.Warn("watch: read failed", log.String("path", path), log.Err(err))
		return
	default:
		ev.Sum = Fingerprint(data)
	}

	w.mu.Lock()
	prev, known := w.sums[path]
	if ev.Removed {
		delete(w.sums, path)
	} else {
		w.sums[path] = ev.Sum
	}
	delete(w.timers, path)
	w.mu.Unlock()

	if ev.Removed && !known {
		return
	}
	if !ev.Removed && known && prev == ev.Sum {
		w.logger.Debug("watch: contents unchanged", log.String("path", path))
		return
	}

	w.callMu.Lock()
	defer w.callMu.Unlock()
	w.handler(ev)
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for p, t := range w.timers {
		t.Stop()
		delete(w.timers, p)
	}
}
