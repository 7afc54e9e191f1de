package tripcomputer

import (
	"github.com/bft-labs/carconsole/pkg/console"
	"github.com/bft-labs/carconsole/pkg/plugin"
)

// WithTripComputer returns a console Option that links the trip computer
// into the binary. Panels bind to it with plugin="tripcomputer".
func WithTripComputer(cfg Config) console.Option {
	return console.WithBuiltin(plugin.Manifest{Name: Name, Version: Version}, func() plugin.Plugin {
		return New(cfg)
	})
}

// WithDefaultTripComputer links the trip computer with default settings.
func WithDefaultTripComputer() console.Option {
	return WithTripComputer(DefaultConfig())
}
