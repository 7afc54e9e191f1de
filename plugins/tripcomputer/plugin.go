// Package tripcomputer provides the built-in trip panel. It integrates
// distance from the speed channel, keeps a moving average and peak speed
// and shows the elapsed driving time, coolant temperature and, when the
// vehicle reports one, the current lap.
package tripcomputer

import (
	"fmt"
	"time"

	"github.com/bft-labs/carconsole/pkg/surface"
	"github.com/bft-labs/carconsole/pkg/telemetry"
	"github.com/bft-labs/carconsole/pkg/vehicle"
)

const (
	Name    = "tripcomputer"
	Version = "1.0.0"
)

// Config holds configuration options for the trip computer.
type Config struct {
	// AverageWindow is how many fresh frames the average speed covers.
	// Default: 100
	AverageWindow int

	// MaxGap caps the time credited between two frames, so a pause in the
	// feed does not count as distance.
	// Default: 2 seconds
	MaxGap time.Duration

	// Celsius shows the coolant temperature in °C.
	// Default: true
	Celsius bool

	// CoolantWarn colors the temperature red from this reading in °F.
	// Default: 230
	CoolantWarn float64
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		AverageWindow: 100,
		MaxGap:        2 * time.Second,
		Celsius:       true,
		CoolantWarn:   230,
	}
}

// Plugin is the trip computer.
type Plugin struct {
	cfg Config

	speeds   *vehicle.Window
	distance float64 // km
	driving  time.Duration
	peak     float64
	coolant  float64
	hasTemp  bool
	lastSeen time.Time
	lastSpd  float64

	lap         int
	lapDistance float64 // km
	hasLap      bool
}

// New creates a trip computer with the given configuration.
func New(cfg Config) *Plugin {
	def := DefaultConfig()
	if cfg.AverageWindow <= 0 {
		cfg.AverageWindow = def.AverageWindow
	}
	if cfg.MaxGap <= 0 {
		cfg.MaxGap = def.MaxGap
	}
	if cfg.CoolantWarn <= 0 {
		cfg.CoolantWarn = def.CoolantWarn
	}
	p := &Plugin{cfg: cfg}
	p.reset()
	return p
}

func (p *Plugin) reset() {
	*p = Plugin{cfg: p.cfg, speeds: vehicle.NewWindow(p.cfg.AverageWindow)}
}

// Init starts a new trip.
func (p *Plugin) Init() error {
	p.reset()
	return nil
}

// Update accumulates fresh speed samples. Stale frames, and speed values
// carried forward from a sample already counted, are ignored.
func (p *Plugin) Update(f telemetry.Frame) {
	if f.Stale() {
		return
	}
	if v, ok := f.Number(vehicle.ChannelCoolant); ok {
		p.coolant, p.hasTemp = v, true
	}
	if v, ok := f.Number(vehicle.ChannelLapNumber); ok {
		p.lap, p.hasLap = int(v), true
		p.lapDistance = f.NumberOr(vehicle.ChannelLapDistance, p.lapDistance)
	}
	speed, ok := f.Number(vehicle.ChannelSpeed)
	if !ok {
		return
	}
	ts := f.SampledAt(vehicle.ChannelSpeed)
	if !p.lastSeen.IsZero() && !ts.After(p.lastSeen) {
		// carried forward from a frame already counted
		return
	}
	if !p.lastSeen.IsZero() {
		dt := min(ts.Sub(p.lastSeen), p.cfg.MaxGap)
		// Trapezoid between the two readings.
		p.distance += (p.lastSpd + speed) / 2 * dt.Hours()
		if vehicle.IsMoving(vehicle.KmhToMph(speed)) {
			p.driving += dt
		}
	}
	p.lastSeen, p.lastSpd = ts, speed
	p.speeds.Push(speed)
	p.peak = max(p.peak, speed)
}

// Distance returns the trip distance in km.
func (p *Plugin) Distance() float64 { return p.distance }

// AverageSpeed returns the moving average speed in km/h.
func (p *Plugin) AverageSpeed() float64 { return p.speeds.Mean() }

// PeakSpeed returns the highest speed of the trip in km/h.
func (p *Plugin) PeakSpeed() float64 { return p.peak }

// Render draws the trip figures.
func (p *Plugin) Render(s surface.Surface) {
	s.Text(0, 0, "Trip", surface.Plain.Emphasis())
	s.Text(0, 1, "Distance: "+vehicle.FormatDistance(p.distance), surface.Plain)
	s.Text(0, 2, "Avg: "+vehicle.FormatSpeed(p.AverageSpeed(), true), surface.Plain)
	s.Text(0, 3, "Max: "+vehicle.FormatSpeed(p.peak, true), surface.Plain)
	s.Text(0, 4, "Time: "+vehicle.FormatHours(p.driving.Hours()), surface.Plain)
	if p.hasTemp {
		st := surface.Plain
		if p.coolant >= p.cfg.CoolantWarn {
			st = st.Foreground(surface.Red).Emphasis()
		}
		s.Text(0, 5, "Coolant: "+vehicle.FormatTemperature(p.coolant, p.cfg.Celsius), st)
	}
	if p.hasLap {
		s.Text(0, 6, fmt.Sprintf("Lap %d: %s", p.lap, vehicle.FormatDistance(p.lapDistance)), surface.Plain)
	}
}
