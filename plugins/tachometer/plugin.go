// Package tachometer provides the built-in engine speed panel: RPM with a
// redline bar, the selected (or estimated) gear and engine load.
package tachometer

import (
	"strconv"

	"github.com/bft-labs/carconsole/pkg/surface"
	"github.com/bft-labs/carconsole/pkg/telemetry"
	"github.com/bft-labs/carconsole/pkg/vehicle"
)

const (
	Name    = "tachometer"
	Version = "1.0.0"
)

// Config holds configuration options for the tachometer.
type Config struct {
	// MaxRPM is the full-scale reading of the bar.
	// Default: 8000
	MaxRPM float64

	// Redline is the fraction of MaxRPM from which the bar turns red.
	// The bar is yellow from 10 points below it.
	// Default: 0.85
	Redline float64
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxRPM:  vehicle.DefaultMaxRPM,
		Redline: 0.85,
	}
}

// Plugin is the engine speed gauge.
type Plugin struct {
	cfg      Config
	rpm      float64
	speed    float64
	throttle float64
	gear     string
	stale    bool
}

// New creates a tachometer with the given configuration.
func New(cfg Config) *Plugin {
	def := DefaultConfig()
	if cfg.MaxRPM <= 0 {
		cfg.MaxRPM = def.MaxRPM
	}
	if cfg.Redline <= 0 || cfg.Redline > 1 {
		cfg.Redline = def.Redline
	}
	return &Plugin{cfg: cfg}
}

func (p *Plugin) Init() error {
	*p = Plugin{cfg: p.cfg}
	return nil
}

func (p *Plugin) Update(f telemetry.Frame) {
	p.rpm = f.NumberOr(vehicle.ChannelRPM, p.rpm)
	p.speed = f.NumberOr(vehicle.ChannelSpeed, p.speed)
	p.throttle = f.NumberOr(vehicle.ChannelThrottle, p.throttle)
	p.gear = ""
	if v, ok := f.Get(vehicle.ChannelGear); ok {
		p.gear = v.String()
	}
	p.stale = f.Stale()
}

// Gear returns the reported gear, or one estimated from speed and engine
// speed when the vehicle does not report it. "N" means neutral or stopped.
func (p *Plugin) Gear() string {
	if p.gear != "" {
		return p.gear
	}
	g := vehicle.EstimateGear(vehicle.KmhToMph(p.speed), p.rpm)
	if g == 0 {
		return "N"
	}
	return strconv.Itoa(g)
}

func (p *Plugin) Render(s surface.Surface) {
	b := s.Bounds()
	s.Text(0, 0, "Tachometer", surface.Plain.Emphasis())
	if p.stale {
		s.Text(b.Width-len("stale"), 0, "stale", surface.Plain.Foreground(surface.Gray))
	}
	s.Text(0, 1, vehicle.FormatRPM(p.rpm), surface.Plain)
	s.Text(0, 2, "Gear: "+p.Gear(), surface.Plain)
	load := vehicle.EngineLoad(p.rpm, p.throttle, p.cfg.MaxRPM)
	s.Text(0, 3, "Load: "+vehicle.FormatPercent(load), surface.Plain)

	frac := p.rpm / p.cfg.MaxRPM
	bar := surface.Plain.Foreground(surface.Threshold(frac, p.cfg.Redline-0.1, p.cfg.Redline))
	surface.Meter(s, 0, 4, b.Width, frac, bar, surface.Plain.Foreground(surface.Gray))
}
