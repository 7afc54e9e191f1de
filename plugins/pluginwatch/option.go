package pluginwatch

import "github.com/bft-labs/carconsole/pkg/console"

// WithPluginWatch returns a console Option that hot-reloads modules in the
// plugin directory.
//
// Usage:
//
//	c, err := console.New(cfg,
//	    pluginwatch.WithPluginWatch(pluginwatch.Config{
//	        Extensions: []string{".lua"},
//	    }),
//	)
func WithPluginWatch(cfg Config) console.Option {
	return console.WithExtension(New(cfg))
}

// WithDefaultPluginWatch returns a console Option that enables plugin
// watching with default settings (Lua modules, debounce 250ms).
func WithDefaultPluginWatch() console.Option {
	return WithPluginWatch(DefaultConfig())
}
