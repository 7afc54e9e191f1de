// Package warnings provides the built-in status panel: the current driver
// warning and message, and the pressure of each tire.
package warnings

import (
	"strings"

	"github.com/bft-labs/carconsole/pkg/surface"
	"github.com/bft-labs/carconsole/pkg/telemetry"
	"github.com/bft-labs/carconsole/pkg/vehicle"
)

const (
	Name    = "warnings"
	Version = "1.0.0"
)

// Config holds configuration options for the status panel.
type Config struct {
	// LowPressure is the tire pressure, in PSI, below which a tire is
	// flagged.
	// Default: 28
	LowPressure float64

	// HighPressure is the tire pressure, in PSI, above which a tire is
	// flagged.
	// Default: 42
	HighPressure float64

	// Bar shows tire pressures in bar instead of PSI.
	Bar bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LowPressure:  28,
		HighPressure: 42,
	}
}

// Plugin is the status panel.
type Plugin struct {
	cfg      Config
	warning  string
	message  string
	pressure map[string]float64
	stale    bool
}

// New creates a status panel with the given configuration.
func New(cfg Config) *Plugin {
	def := DefaultConfig()
	if cfg.LowPressure <= 0 {
		cfg.LowPressure = def.LowPressure
	}
	if cfg.HighPressure <= cfg.LowPressure {
		cfg.HighPressure = max(def.HighPressure, cfg.LowPressure+1)
	}
	return &Plugin{cfg: cfg, pressure: make(map[string]float64)}
}

func (p *Plugin) Init() error {
	*p = Plugin{cfg: p.cfg, pressure: make(map[string]float64)}
	return nil
}

func (p *Plugin) Update(f telemetry.Frame) {
	p.warning = text(f, vehicle.ChannelWarning)
	p.message = text(f, vehicle.ChannelMessage)
	for _, loc := range vehicle.TireLocations {
		if v, ok := f.Number(vehicle.TirePressureChannel(loc)); ok {
			p.pressure[loc] = v
		}
	}
	p.stale = f.Stale()
}

func text(f telemetry.Frame, channel string) string {
	v, ok := f.Get(channel)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v.String())
}

// Warning returns the active driver warning, if any.
func (p *Plugin) Warning() string { return p.warning }

// LowTires returns the locations whose pressure is outside the configured
// range, in TireLocations order.
func (p *Plugin) LowTires() []string {
	var out []string
	for _, loc := range vehicle.TireLocations {
		if v, ok := p.pressure[loc]; ok && !p.inRange(v) {
			out = append(out, loc)
		}
	}
	return out
}

func (p *Plugin) inRange(psi float64) bool {
	return psi >= p.cfg.LowPressure && psi <= p.cfg.HighPressure
}

func (p *Plugin) Render(s surface.Surface) {
	b := s.Bounds()
	s.Text(0, 0, "Status", surface.Plain.Emphasis())
	if p.stale {
		s.Text(b.Width-len("stale"), 0, "stale", surface.Plain.Foreground(surface.Gray))
	}

	if p.warning != "" {
		s.Text(0, 1, "! "+p.warning, surface.Plain.Foreground(surface.Red).Emphasis())
	} else {
		s.Text(0, 1, "No warnings", surface.Plain.Foreground(surface.Gray))
	}
	if p.message != "" {
		s.Text(0, 2, p.message, surface.Plain)
	}

	// Two tires per row, front axle first.
	for i, loc := range vehicle.TireLocations {
		x, y := (i%2)*(b.Width/2), 3+i/2
		label := strings.ToUpper(loc) + " "
		v, ok := p.pressure[loc]
		if !ok {
			s.Text(x, y, label+"--", surface.Plain.Foreground(surface.Gray))
			continue
		}
		st := surface.Plain
		if !p.inRange(v) {
			st = st.Foreground(surface.Red).Emphasis()
		}
		s.Text(x, y, label+vehicle.FormatPressure(v, p.cfg.Bar), st)
	}
}
