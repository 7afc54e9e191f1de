package warnings

import (
	"github.com/bft-labs/carconsole/pkg/console"
	"github.com/bft-labs/carconsole/pkg/plugin"
)

// WithWarnings returns a console Option that links the status panel into
// the binary. Panels bind to it with plugin="warnings".
func WithWarnings(cfg Config) console.Option {
	return console.WithBuiltin(plugin.Manifest{Name: Name, Version: Version}, func() plugin.Plugin {
		return New(cfg)
	})
}
