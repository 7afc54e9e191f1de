package speedometer

import (
	"github.com/bft-labs/carconsole/pkg/console"
	"github.com/bft-labs/carconsole/pkg/plugin"
)

// WithSpeedometer returns a console Option that links the speedometer
// into the binary. Panels bind to it with plugin="speedometer".
//
// Usage:
//
//	c, err := console.New(cfg,
//	    speedometer.WithSpeedometer(speedometer.Config{
//	        Metric:   false,
//	        MaxSpeed: 200,
//	    }),
//	)
func WithSpeedometer(cfg Config) console.Option {
	return console.WithBuiltin(plugin.Manifest{Name: Name, Version: Version}, func() plugin.Plugin {
		return New(cfg)
	})
}

// WithDefaultSpeedometer returns a console Option that links the
// speedometer with default settings (km/h, 240 full scale).
//
// Usage:
//
//	c, err := console.New(cfg, speedometer.WithDefaultSpeedometer())
func WithDefaultSpeedometer() console.Option {
	return WithSpeedometer(DefaultConfig())
}
