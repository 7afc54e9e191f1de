// Package layoutwatch reloads the layout document when its file changes.
// A document that fails to parse is reported and the running layout is
// kept until the file is fixed.
package layoutwatch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/bft-labs/carconsole/internal/adapters/watch"
	"github.com/bft-labs/carconsole/internal/app"
	"github.com/bft-labs/carconsole/pkg/console"
	"github.com/bft-labs/carconsole/pkg/log"
)

// Name is the extension identifier.
const Name = "layoutwatch"

// Reloader swaps in the layout file's current contents.
type Reloader interface {
	ReloadLayout(ctx context.Context) error
}

// Extension watches the layout file.
type Extension struct {
	mu sync.Mutex

	// Configuration
	debounceDelay time.Duration
	retryInterval time.Duration

	// Runtime state
	logger log.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Config holds configuration options for the layout watcher.
type Config struct {
	// DebounceDelay is how long the file must be quiet before it is re-read.
	// Editors often write a file in several steps.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	// RetryInterval is the first delay before watching again after the
	// watcher fails, e.g. because the directory does not exist yet.
	// Default: 1 second
	RetryInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 100 * time.Millisecond,
		RetryInterval: time.Second,
	}
}

// New creates a layout watcher with the given configuration.
func New(cfg Config) *Extension {
	def := DefaultConfig()
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = def.DebounceDelay
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = def.RetryInterval
	}
	return &Extension{
		debounceDelay: cfg.DebounceDelay,
		retryInterval: cfg.RetryInterval,
	}
}

// Name returns the extension identifier.
func (e *Extension) Name() string {
	return Name
}

// Initialize starts watching cfg.LayoutPath.
func (e *Extension) Initialize(ctx context.Context, cfg console.ExtensionConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	logger = log.With(logger, log.String("extension", Name))

	if cfg.LayoutPath == "" || cfg.Console == nil {
		logger.Warn("layout watcher disabled: no layout path configured")
		return nil
	}
	e.start(ctx, cfg.LayoutPath, cfg.Console, logger)
	return nil
}

func (e *Extension) start(ctx context.Context, path string, r Reloader, logger log.Logger) {
	target := filepath.Clean(path)
	w := watch.New(filepath.Dir(target), watch.Config{
		DebounceDelay: e.debounceDelay,
		Match:         func(p string) bool { return p == target },
	}, func(ev watch.Event) {
		if ev.Removed {
			logger.Warn("layout file removed, keeping current layout", log.String("path", ev.Path))
			return
		}
		// Failures are logged and reported by the reloader.
		_ = r.ReloadLayout(ctx)
	}, logger)

	watchCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.logger = logger
	e.cancel = cancel
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		app.Supervise(watchCtx, w.Run, app.SupervisorConfig{
			Name:           Name,
			BackoffInitial: e.retryInterval,
		}, logger)
	}()
	logger.Info("layout watcher started", log.String("path", target))
}

// Shutdown stops the watcher.
func (e *Extension) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	e.wg.Wait()
	return nil
}

// Ensure Extension implements console.Extension.
var _ console.Extension = (*Extension)(nil)
