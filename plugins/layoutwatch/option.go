package layoutwatch

import "github.com/bft-labs/carconsole/pkg/console"

// WithLayoutWatch returns a console Option that reloads the layout file
// whenever it changes on disk.
//
// Usage:
//
//	c, err := console.New(cfg,
//	    layoutwatch.WithLayoutWatch(layoutwatch.Config{
//	        DebounceDelay: 250 * time.Millisecond,
//	    }),
//	)
func WithLayoutWatch(cfg Config) console.Option {
	return console.WithExtension(New(cfg))
}

// WithDefaultLayoutWatch returns a console Option that enables layout
// watching with default settings (debounce 100ms).
//
// Usage:
//
//	c, err := console.New(cfg, layoutwatch.WithDefaultLayoutWatch())
func WithDefaultLayoutWatch() console.Option {
	return WithLayoutWatch(DefaultConfig())
}
