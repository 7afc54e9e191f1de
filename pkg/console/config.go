package console

import (
	"fmt"
	"time"

	"github.com/bft-labs/carconsole/pkg/dispatch"
	"github.com/bft-labs/carconsole/pkg/telemetry"
)

// Config holds the settings of a Console.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config struct {
	// LayoutPath is the layout document (.xml, .yaml or .yml). A missing
	// file starts the console with the default single-panel layout; an
	// empty path does the same without persistence.
	LayoutPath string

	// PluginDir is scanned for loadable modules on start and created if it
	// does not exist. Empty disables discovery.
	PluginDir string

	// Plugins lists additional module paths to load on start.
	Plugins []string

	// FPS is the dispatch tick rate.
	// Default: 30
	FPS int

	// Cadence is how often the telemetry bus assembles a frame.
	// Default: 50ms
	Cadence time.Duration

	// SnapshotPath stores the last telemetry frame across restarts.
	// Empty disables snapshots.
	SnapshotPath string

	// SaveLayoutOnExit writes the (possibly edited) layout back to
	// LayoutPath on Stop.
	// Default: false
	SaveLayoutOnExit bool

	// ShutdownTimeout bounds how long Stop waits for workers.
	// Default: 5s
	ShutdownTimeout time.Duration

	// Manual disables the background tick and sealing loops. The caller
	// advances the console with Tick; commands submitted in the meantime
	// run on the next Tick.
	// Default: false
	Manual bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		FPS:             dispatch.DefaultFPS,
		Cadence:         telemetry.DefaultCadence,
		ShutdownTimeout: 5 * time.Second,
	}
}

// SetDefaults fills zero fields with their defaults.
func (c *Config) SetDefaults() {
	def := DefaultConfig()
	if c.FPS == 0 {
		c.FPS = def.FPS
	}
	if c.Cadence == 0 {
		c.Cadence = def.Cadence
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = def.ShutdownTimeout
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.FPS < 1 || c.FPS > 240 {
		return fmt.Errorf("%w: fps must be between 1 and 240, got %d", ErrInvalidConfig, c.FPS)
	}
	if c.Cadence <= 0 {
		return fmt.Errorf("%w: cadence must be positive, got %s", ErrInvalidConfig, c.Cadence)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: shutdown timeout must be positive, got %s", ErrInvalidConfig, c.ShutdownTimeout)
	}
	if c.SaveLayoutOnExit && c.LayoutPath == "" {
		return fmt.Errorf("%w: save layout on exit needs a layout path", ErrInvalidConfig)
	}
	return nil
}
