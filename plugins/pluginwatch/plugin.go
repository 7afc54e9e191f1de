// Package pluginwatch hot-reloads plugin modules in the plugin directory.
// A changed or new module is loaded and replaces the running plugin of
// the same name once it has initialised; a removed module is unloaded.
package pluginwatch

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bft-labs/carconsole/internal/adapters/watch"
	"github.com/bft-labs/carconsole/internal/app"
	"github.com/bft-labs/carconsole/pkg/console"
	"github.com/bft-labs/carconsole/pkg/log"
)

// Name is the extension identifier.
const Name = "pluginwatch"

// Reloader loads and unloads plugin modules by path.
type Reloader interface {
	ReloadPlugin(ctx context.Context, path string) error
	UnloadPath(ctx context.Context, path string) error
}

// Extension watches the plugin directory.
type Extension struct {
	mu sync.Mutex

	debounceDelay time.Duration
	retryInterval time.Duration
	extensions    []string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Config holds configuration options for the plugin watcher.
type Config struct {
	// DebounceDelay is how long a module must be quiet before it is loaded.
	// Default: 250 milliseconds
	DebounceDelay time.Duration

	// RetryInterval is the first delay before watching again after the
	// watcher fails.
	// Default: 1 second
	RetryInterval time.Duration

	// Extensions lists the file extensions that are reloaded. Go plugin
	// modules (.so) cannot be unloaded from a running process, so they are
	// not watched by default.
	// Default: [".lua"]
	Extensions []string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 250 * time.Millisecond,
		RetryInterval: time.Second,
		Extensions:    []string{".lua"},
	}
}

// New creates a plugin watcher with the given configuration.
func New(cfg Config) *Extension {
	def := DefaultConfig()
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = def.DebounceDelay
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = def.RetryInterval
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = def.Extensions
	}
	exts := make([]string, len(cfg.Extensions))
	for i, ext := range cfg.Extensions {
		exts[i] = strings.ToLower(ext)
	}
	return &Extension{
		debounceDelay: cfg.DebounceDelay,
		retryInterval: cfg.RetryInterval,
		extensions:    exts,
	}
}

// Name returns the extension identifier.
func (e *Extension) Name() string {
	return Name
}

// Initialize starts watching cfg.PluginDir.
func (e *Extension) Initialize(ctx context.Context, cfg console.ExtensionConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	logger = log.With(logger, log.String("extension", Name))

	if cfg.PluginDir == "" || cfg.Console == nil {
		logger.Warn("plugin watcher disabled: no plugin directory configured")
		return nil
	}
	e.start(ctx, cfg.PluginDir, cfg.Console, logger)
	return nil
}

func (e *Extension) watched(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range e.extensions {
		if ext == want {
			return true
		}
	}
	return false
}

func (e *Extension) start(ctx context.Context, dir string, r Reloader, logger log.Logger) {
	w := watch.New(dir, watch.Config{
		DebounceDelay: e.debounceDelay,
		Match:         e.watched,
	}, func(ev watch.Event) {
		if ev.Removed {
			if err := r.UnloadPath(ctx, ev.Path); err != nil {
				logger.Debug("removed module was not loaded", log.String("path", ev.Path), log.Err(err))
				return
			}
			logger.Info("plugin module removed, unloaded", log.String("path", ev.Path))
			return
		}
		if err := r.ReloadPlugin(ctx, ev.Path); err != nil {
			logger.Warn("plugin reload failed", log.String("path", ev.Path), log.Err(err))
			return
		}
		logger.Info("plugin reloaded", log.String("path", ev.Path))
	}, logger)

	watchCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
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
	logger.Info("plugin watcher started", log.String("dir", dir))
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
