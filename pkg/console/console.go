package console

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bft-labs/carconsole/internal/adapters/fs"
	"github.com/bft-labs/carconsole/internal/adapters/loader"
	"github.com/bft-labs/carconsole/internal/app"
	"github.com/bft-labs/carconsole/pkg/dispatch"
	"github.com/bft-labs/carconsole/pkg/layout"
	"github.com/bft-labs/carconsole/pkg/log"
	"github.com/bft-labs/carconsole/pkg/plugin"
	"github.com/bft-labs/carconsole/pkg/telemetry"
)

// Console is a vehicle dashboard that can be embedded in other
// applications. Use New() to create an instance, then Start() to begin
// rendering.
type Console struct {
	config    Config
	opts      options
	lifecycle *app.Lifecycle
	emitter   *eventEmitter
	logger    log.Logger

	builtin   *loader.Builtin
	mux       *loader.Mux
	registry  *plugin.Registry
	bus       *telemetry.Bus
	display   dispatch.Display
	layouts   *fs.LayoutStore
	snapshots *fs.SnapshotStore

	mu     sync.RWMutex
	loop   *dispatch.Loop
	cancel context.CancelFunc

	// layoutFallback is set while the tree on screen is not the one in
	// the layout file, which must then not be overwritten on exit.
	layoutFallback atomic.Bool
}

// New creates a Console with the given configuration.
// The instance is created in StateStopped; call Start() to begin.
// Returns an error if configuration is invalid.
func New(cfg Config, opts ...Option) (*Console, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := validateModuleVersions(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	emitter := &eventEmitter{handler: o.eventHandler}
	logger := o.logger

	builtin := loader.NewBuiltin()
	for _, b := range o.builtins {
		builtin.Register(b.manifest, b.factory)
	}
	mux := loader.NewMux(builtin)
	var modules plugin.ModuleLoader = mux
	if o.loader != nil {
		custom := o.loader
		modules = plugin.LoaderFunc(func(path string) (plugin.Module, error) {
			if strings.HasPrefix(path, loader.BuiltinScheme) {
				return builtin.Open(path)
			}
			return custom.Open(path)
		})
	}

	display := o.display
	if display == nil {
		display = dispatch.NewHeadlessDisplay()
	}

	c := &Console{
		config:    cfg,
		opts:      o,
		lifecycle: app.NewLifecycle(logger, emitter),
		emitter:   emitter,
		logger:    logger,
		builtin:   builtin,
		mux:       mux,
		registry:  plugin.NewRegistry(modules, log.With(logger, log.String("component", "registry"))),
		bus:       telemetry.NewBus(telemetry.BusConfig{Cadence: cfg.Cadence}),
		display:   display,
	}
	if cfg.LayoutPath != "" {
		c.layouts = fs.NewLayoutStore(cfg.LayoutPath)
	}
	if cfg.SnapshotPath != "" {
		c.snapshots = fs.NewSnapshotStore(cfg.SnapshotPath)
	}
	return c, nil
}

// Start loads the layout and plugins and begins ticking in the
// background. The provided context bounds the console's lifetime.
func (c *Console) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.lifecycle.Begin(); err != nil {
		return err
	}

	doc, err := c.loadLayout()
	if err != nil {
		_ = c.lifecycle.Fail("layout: " + err.Error())
		return err
	}
	c.restoreSnapshot(ctx)

	loop := dispatch.New(dispatch.Config{
		Document: doc,
		Registry: c.registry,
		Frames:   c.bus,
		Display:  c.display,
		Logger:   log.With(c.logger, log.String("component", "dispatch")),
		OnFault: func(name string, err error) {
			c.emitter.pluginError(PluginErrorEvent{Name: name, Err: err, Fault: true})
		},
	})
	c.loop = loop
	c.loadPlugins()

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	extCfg := ExtensionConfig{
		Console:    c,
		LayoutPath: c.config.LayoutPath,
		PluginDir:  c.config.PluginDir,
		Logger:     c.logger,
	}
	for _, e := range c.opts.extensions {
		if err := e.Initialize(runCtx, extCfg); err != nil {
			c.logger.Error("extension initialization failed",
				log.String("extension", e.Name()),
				log.Err(err))
			cancel()
			c.shutdownExtensions()
			_ = c.registry.UnloadAll()
			_ = c.lifecycle.Fail("extension init failed: " + e.Name())
			return err
		}
		c.logger.Info("extension initialized", log.String("extension", e.Name()))
	}

	if !c.config.Manual {
		c.lifecycle.Go("telemetry", func() {
			_ = c.bus.Run(runCtx)
		})
		c.lifecycle.Go("dispatch", func() {
			_ = loop.Run(runCtx, c.config.FPS)
		})
	}
	for _, src := range c.opts.sources {
		src := src
		c.lifecycle.Go("source:"+src.Name(), func() {
			app.Supervise(runCtx, func(ctx context.Context) error {
				return src.Run(ctx, c.bus)
			}, app.SupervisorConfig{
				Name: src.Name(),
				OnError: func(err error, restarts int) {
					c.emitter.sourceError(SourceErrorEvent{Source: src.Name(), Err: err, Restarts: restarts})
				},
			}, log.With(c.logger, log.String("source", src.Name())))
		})
	}

	return c.lifecycle.Started(c.config.Manual)
}

// Stop shuts the console down: workers are cancelled, the telemetry
// snapshot and (optionally) the layout are saved and every plugin is
// unloaded in reverse load order.
// Returns nil on graceful shutdown. If workers outlive ShutdownTimeout
// it returns ErrShutdownTimeout, leaves plugins loaded and moves to
// StateCrashed.
func (c *Console) Stop() error {
	c.mu.Lock()
	if err := c.lifecycle.BeginStop(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()

	stuck, err := c.lifecycle.Wait(c.config.ShutdownTimeout)

	c.shutdownExtensions()

	// After a timeout the loop may still be running. Its frame and tree
	// are only read, and plugins only unloaded, once it has exited.
	if err == nil && c.snapshots != nil {
		if serr := c.snapshots.Save(context.Background(), c.bus.Last()); serr != nil {
			c.logger.Warn("save telemetry snapshot failed", log.Err(serr))
		}
	}
	if err == nil && c.config.SaveLayoutOnExit && c.layouts != nil && !c.layoutFallback.Load() {
		if serr := c.layouts.Save(c.loop.Document()); serr != nil {
			c.logger.Warn("save layout failed", log.String("path", c.layouts.Path()), log.Err(serr))
		} else {
			c.logger.Info("layout saved", log.String("path", c.layouts.Path()))
		}
	}
	if err == nil {
		if uerr := c.registry.UnloadAll(); uerr != nil {
			c.logger.Warn("plugin unload failed", log.Err(uerr))
		}
		_ = c.lifecycle.Stopped()
		return nil
	}
	_ = c.lifecycle.Fail(fmt.Sprintf("shutdown timeout, still running: %s", strings.Join(stuck, ", ")))
	return err
}

func (c *Console) shutdownExtensions() {
	ctx := context.Background()
	for i := len(c.opts.extensions) - 1; i >= 0; i-- {
		e := c.opts.extensions[i]
		if err := e.Shutdown(ctx); err != nil {
			c.logger.Error("extension shutdown failed",
				log.String("extension", e.Name()),
				log.Err(err))
		} else {
			c.logger.Info("extension shutdown complete", log.String("extension", e.Name()))
		}
	}
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (c *Console) Status() State {
	return convertState(c.lifecycle.State())
}

// Config returns the configuration the console was created with.
func (c *Console) Config() Config { return c.config }

// Logger returns the console's logger.
func (c *Console) Logger() log.Logger { return c.logger }

// Registry returns the plugin registry.
func (c *Console) Registry() *plugin.Registry { return c.registry }

// Bus returns the telemetry bus. Embedders without a Source can ingest
// samples directly.
func (c *Console) Bus() *telemetry.Bus { return c.bus }

// Builtins returns the names of the compiled-in plugins.
func (c *Console) Builtins() []string { return c.builtin.Names() }

// Submit queues cmd for the next tick of the dispatch loop. When the
// console is not running the returned channel yields ErrNotRunning.
func (c *Console) Submit(cmd dispatch.Command) <-chan error {
	c.mu.RLock()
	loop := c.loop
	c.mu.RUnlock()

	if loop == nil || c.Status() != StateRunning {
		done := make(chan error, 1)
		done <- ErrNotRunning
		return done
	}
	return loop.Submit(cmd)
}

// Tick seals the samples ingested so far and runs one dispatch tick on
// the caller's goroutine. It is only available in manual mode.
func (c *Console) Tick() (dispatch.TickReport, error) {
	if !c.config.Manual {
		return dispatch.TickReport{}, ErrNotManual
	}
	c.mu.RLock()
	loop := c.loop
	c.mu.RUnlock()
	if loop == nil || c.Status() != StateRunning {
		return dispatch.TickReport{}, ErrNotRunning
	}
	c.bus.Seal()
	return loop.Tick(), nil
}

// Do submits cmd and waits for its result. In manual mode another
// goroutine must call Tick for Do to return.
func (c *Console) Do(ctx context.Context, cmd dispatch.Command) error {
	select {
	case err := <-c.Submit(cmd):
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns a copy of the current layout, taken between ticks.
func (c *Console) Snapshot(ctx context.Context) (*layout.Document, error) {
	var doc *layout.Document
	err := c.Do(ctx, dispatch.Inspect(func(d *layout.Document) {
		doc = d.Clone()
	}))
	return doc, err
}

// ReloadLayout re-reads the layout file and swaps it in. When the file
// does not parse the current tree is kept and the parse error returned.
func (c *Console) ReloadLayout(ctx context.Context) error {
	if c.layouts == nil {
		return fmt.Errorf("reload layout: no layout path configured")
	}
	doc, err := c.layouts.Reload()
	if err != nil {
		c.logger.Warn("layout reload failed, keeping current layout",
			log.String("path", c.layouts.Path()), log.Err(err))
		c.emitter.layoutChanged(LayoutEvent{Path: c.layouts.Path(), Err: err})
		return err
	}
	if err := c.Do(ctx, dispatch.ReplaceLayout(doc)); err != nil {
		c.emitter.layoutChanged(LayoutEvent{Path: c.layouts.Path(), Err: err})
		return err
	}
	c.layoutFallback.Store(false)
	c.logger.Info("layout reloaded", log.String("path", c.layouts.Path()))
	c.emitter.layoutChanged(LayoutEvent{Path: c.layouts.Path()})
	return nil
}

// ReloadPlugin loads the module at path, replacing a loaded plugin of the
// same name only once the new one has initialised.
func (c *Console) ReloadPlugin(ctx context.Context, path string) error {
	var desc plugin.Descriptor
	err := c.Do(ctx, func(l *dispatch.Loop) error {
		d, err := l.Registry().Load(path, plugin.Replace())
		desc = d
		return err
	})
	if err != nil {
		c.emitter.pluginError(PluginErrorEvent{Path: path, Name: loadErrorName(err), Err: err})
		return err
	}
	c.emitter.pluginLoaded(desc)
	return nil
}

// UnloadPath unloads whichever plugin was loaded from path.
func (c *Console) UnloadPath(ctx context.Context, path string) error {
	return c.Do(ctx, func(l *dispatch.Loop) error {
		for _, d := range l.Registry().List() {
			if d.Path == path {
				return l.Registry().Unload(d.Name)
			}
		}
		return fmt.Errorf("unload %s: %w", path, plugin.ErrNotFound)
	})
}

func (c *Console) loadLayout() (*layout.Document, error) {
	c.layoutFallback.Store(false)
	if c.layouts == nil {
		return layout.Default(), nil
	}
	doc, exists, err := c.layouts.Load()
	var perr *layout.ParseError
	if errors.As(err, &perr) {
		doc = c.layouts.LastGood()
		if doc == nil {
			doc = layout.Default()
		}
		c.layoutFallback.Store(true)
		c.logger.Error("layout does not parse, using fallback layout",
			log.String("path", c.layouts.Path()), log.Err(err))
		c.emitter.layoutChanged(LayoutEvent{Path: c.layouts.Path(), Err: err})
		return doc, nil
	}
	if err != nil {
		return nil, err
	}
	if !exists {
		c.logger.Info("layout file not found, using default layout",
			log.String("path", c.layouts.Path()))
	}
	return doc, nil
}

func (c *Console) restoreSnapshot(ctx context.Context) {
	if c.snapshots == nil {
		return
	}
	frame, ok, err := c.snapshots.Load(ctx)
	if err != nil {
		c.logger.Warn("telemetry snapshot unreadable", log.Err(err))
		return
	}
	if ok {
		c.bus.Seed(frame)
		c.logger.Debug("telemetry seeded from snapshot", log.Int("channels", frame.Len()))
	}
}

// loadPlugins loads builtins, then discovered files, then configured
// paths. Failures are logged and reported; panels bound to a plugin that
// did not load show a placeholder.
func (c *Console) loadPlugins() {
	paths := c.builtin.Paths()
	if c.config.PluginDir != "" {
		found, err := c.mux.Discover(c.config.PluginDir)
		if err != nil {
			c.logger.Warn("plugin discovery failed",
				log.String("dir", c.config.PluginDir), log.Err(err))
		}
		paths = append(paths, found...)
	}
	paths = append(paths, c.config.Plugins...)

	for _, path := range paths {
		desc, err := c.registry.Load(path)
		if err != nil {
			c.emitter.pluginError(PluginErrorEvent{Name: loadErrorName(err), Path: path, Err: err})
			continue
		}
		c.emitter.pluginLoaded(desc)
	}
}

func loadErrorName(err error) string {
	var le *plugin.LoadError
	if errors.As(err, &le) {
		return le.Name
	}
	return ""
}
