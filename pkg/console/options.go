package console

import (
	"context"

	"github.com/bft-labs/carconsole/pkg/dispatch"
	"github.com/bft-labs/carconsole/pkg/log"
	"github.com/bft-labs/carconsole/pkg/plugin"
	"github.com/bft-labs/carconsole/pkg/telemetry"
)

// Extension is a service that runs alongside the console, such as a file
// watcher. Extensions are initialised in registration order after the
// layout and plugins are loaded, and shut down in reverse order.
type Extension interface {
	Name() string
	Initialize(ctx context.Context, cfg ExtensionConfig) error
	Shutdown(ctx context.Context) error
}

// ExtensionConfig is handed to extensions on start.
type ExtensionConfig struct {
	Console    *Console
	LayoutPath string
	PluginDir  string
	Logger     log.Logger
}

// Option configures optional behavior of a Console.
type Option func(*options)

type builtin struct {
	manifest plugin.Manifest
	factory  plugin.Factory
}

type options struct {
	logger       log.Logger
	loader       plugin.ModuleLoader
	display      dispatch.Display
	eventHandler EventHandler
	sources      []telemetry.Source
	builtins     []builtin
	extensions   []Extension
}

func defaultOptions() options {
	return options{logger: log.NewNoopLogger()}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithLoader replaces the module loader used for plugin files. Builtin
// paths keep working. If not provided, .lua and .so files are supported.
func WithLoader(l plugin.ModuleLoader) Option {
	return func(o *options) {
		o.loader = l
	}
}

// WithDisplay sets where frames are drawn. If not provided, a
// dispatch.HeadlessDisplay is used.
func WithDisplay(d dispatch.Display) Option {
	return func(o *options) {
		o.display = d
	}
}

// WithEventHandler sets a handler for console events.
// If not provided, no events are emitted.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithSource adds a telemetry source. Each source runs in its own
// goroutine and is restarted with backoff when it fails.
func WithSource(s telemetry.Source) Option {
	return func(o *options) {
		o.sources = append(o.sources, s)
	}
}

// WithBuiltin registers a plugin compiled into the binary. Builtins are
// loaded on start, before plugin files. Use the option functions of the
// plugins packages rather than calling this directly.
func WithBuiltin(m plugin.Manifest, factory plugin.Factory) Option {
	return func(o *options) {
		o.builtins = append(o.builtins, builtin{manifest: m, factory: factory})
	}
}

// WithExtension registers an extension.
func WithExtension(e Extension) Option {
	return func(o *options) {
		o.extensions = append(o.extensions, e)
	}
}
