package tachometer

import (
	"github.com/bft-labs/carconsole/pkg/console"
	"github.com/bft-labs/carconsole/pkg/plugin"
)

// WithTachometer returns a console Option that links the tachometer into
// the binary. Panels bind to it with plugin="tachometer".
func WithTachometer(cfg Config) console.Option {
	return console.WithBuiltin(plugin.Manifest{Name: Name, Version: Version}, func() plugin.Plugin {
		return New(cfg)
	})
}

// WithDefaultTachometer links the tachometer with an 8000 RPM scale.
func WithDefaultTachometer() console.Option {
	return WithTachometer(DefaultConfig())
}
