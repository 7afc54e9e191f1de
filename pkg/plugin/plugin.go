package plugin

import (
	"github.com/bft-labs/carconsole/pkg/surface"
	"github.com/bft-labs/carconsole/pkg/telemetry"
)

// Plugin is the capability every dashboard plugin implements.
type Plugin interface {
	// Init performs one-time setup. A non-nil error aborts the load.
	Init() error

	// Update absorbs a telemetry frame. It must not block.
	Update(frame telemetry.Frame)

	// Render draws the plugin's last absorbed state into s.
	Render(s surface.Surface)
}

// Closer is implemented by plugins holding resources that must be
// released when they are unloaded.
type Closer interface {
	Close() error
}

// Factory creates a fresh plugin instance.
type Factory func() Plugin

// Manifest is what a module declares about itself.
type Manifest struct {
	Name    string
	Version string
	ABI     string
}

// ModuleLoader opens loadable modules from paths.
type ModuleLoader interface {
	Open(path string) (Module, error)
}

// LoaderFunc adapts a function to ModuleLoader.
type LoaderFunc func(path string) (Module, error)

// Open calls f(path).
func (f LoaderFunc) Open(path string) (Module, error) { return f(path) }

// Module is an opened loadable unit exporting one plugin factory.
type Module interface {
	Manifest() Manifest

	// Factory returns the module's entry point, or an error matching
	// ErrSymbolMissing when the module does not export one.
	Factory() (Factory, error)

	// Close releases the module. It is called after the plugin it produced
	// has been closed, or when a load fails.
	Close() error
}

// Binder is notified when a plugin is unloaded so that layout panels
// bound to it can be reverted to the unbound state.
type Binder interface {
	UnbindPlugin(name string) int
}
