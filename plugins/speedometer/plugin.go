// Package speedometer provides the built-in speed gauge panel.
// It shows the current road speed, a bar scaled to the gauge maximum and
// the engine speed underneath.
package speedometer

import (
	"github.com/bft-labs/carconsole/pkg/surface"
	"github.com/bft-labs/carconsole/pkg/telemetry"
	"github.com/bft-labs/carconsole/pkg/vehicle"
)

const (
	// Name is the plugin name panels bind to.
	Name = "speedometer"
	// Version is the plugin version reported in its manifest.
	Version = "1.0.0"
)

// Config holds configuration options for the speedometer.
type Config struct {
	// Metric shows km/h instead of mph.
	// Default: true
	Metric bool

	// MaxSpeed is the full-scale reading of the bar in km/h.
	// Default: 240
	MaxSpeed float64

	// WarnSpeed colors the bar yellow from this speed in km/h, and red
	// from 90% of MaxSpeed.
	// Default: 130
	WarnSpeed float64
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Metric:    true,
		MaxSpeed:  240,
		WarnSpeed: 130,
	}
}

// Plugin is the speed gauge.
type Plugin struct {
	cfg   Config
	speed float64
	rpm   float64
	seen  bool
	stale bool
}

// New creates a speedometer with the given configuration.
func New(cfg Config) *Plugin {
	def := DefaultConfig()
	if cfg.MaxSpeed <= 0 {
		cfg.MaxSpeed = def.MaxSpeed
	}
	if cfg.WarnSpeed <= 0 {
		cfg.WarnSpeed = def.WarnSpeed
	}
	return &Plugin{cfg: cfg}
}

// Init resets the readings.
func (p *Plugin) Init() error {
	p.speed, p.rpm, p.seen, p.stale = 0, 0, false, false
	return nil
}

// Update copies speed and engine speed from the frame.
func (p *Plugin) Update(f telemetry.Frame) {
	if v, ok := f.Number(vehicle.ChannelSpeed); ok {
		p.speed = v
		p.seen = true
	}
	if v, ok := f.Number(vehicle.ChannelRPM); ok {
		p.rpm = v
	}
	p.stale = f.Stale()
}

// Render draws the gauge.
func (p *Plugin) Render(s surface.Surface) {
	b := s.Bounds()
	heading := surface.Plain.Emphasis()
	s.Text(0, 0, "Speedometer", heading)
	if p.stale {
		s.Text(b.Width-len("stale"), 0, "stale", surface.Plain.Foreground(surface.Gray))
	}
	if !p.seen {
		s.Text(0, 1, "Speed: --", surface.Plain)
		return
	}
	s.Text(0, 1, "Speed: "+vehicle.FormatSpeed(p.speed, p.cfg.Metric), surface.Plain)
	s.Text(0, 2, "RPM: "+vehicle.FormatRPM(p.rpm), surface.Plain)

	bar := surface.Plain.Foreground(surface.Threshold(p.speed, p.cfg.WarnSpeed, 0.9*p.cfg.MaxSpeed))
	surface.Meter(s, 0, 3, b.Width, p.speed/p.cfg.MaxSpeed, bar, surface.Plain.Foreground(surface.Gray))
}
