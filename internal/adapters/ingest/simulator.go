package ingest

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/bft-labs/carconsole/pkg/telemetry"
	"github.com/bft-labs/carconsole/pkg/vehicle"
)

// SimulatorConfig controls the synthetic signal.
type SimulatorConfig struct {
	// Interval between steps.
	// Default: 100ms
	Interval time.Duration

	// SpeedStep is added to the speed on every step.
	// Default: 0.1
	SpeedStep float64

	// RPMStep is added to the engine speed on every step.
	// Default: 10
	RPMStep float64

	// MaxRPM is the value above which the engine speed wraps to IdleRPM.
	// Default: 8000
	MaxRPM float64

	// IdleRPM is the wrap target.
	// Default: 1000
	IdleRPM float64

	// Clock supplies sample timestamps.
	// Default: time.Now
	Clock func() time.Time
}

// DefaultSimulatorConfig returns a SimulatorConfig with sensible defaults.
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		Interval:  100 * time.Millisecond,
		SpeedStep: 0.1,
		RPMStep:   10,
		MaxRPM:    vehicle.DefaultMaxRPM,
		IdleRPM:   1000,
		Clock:     time.Now,
	}
}

// Simulator produces a slowly accelerating vehicle.
type Simulator struct {
	cfg SimulatorConfig

	step    int
	speed   float64
	rpm     float64
	coolant float64
}

// NewSimulator creates a simulator. Zero fields of cfg take their defaults.
func NewSimulator(cfg SimulatorConfig) *Simulator {
	def := DefaultSimulatorConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.SpeedStep == 0 {
		cfg.SpeedStep = def.SpeedStep
	}
	if cfg.RPMStep == 0 {
		cfg.RPMStep = def.RPMStep
	}
	if cfg.MaxRPM <= 0 {
		cfg.MaxRPM = def.MaxRPM
	}
	if cfg.IdleRPM <= 0 {
		cfg.IdleRPM = def.IdleRPM
	}
	if cfg.Clock == nil {
		cfg.Clock = def.Clock
	}
	return &Simulator{cfg: cfg, rpm: cfg.IdleRPM, coolant: 70}
}

// Name implements telemetry.Source.
func (s *Simulator) Name() string { return "simulator" }

// Run implements telemetry.Source.
func (s *Simulator) Run(ctx context.Context, sink telemetry.Sink) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		for _, sample := range s.Step() {
			if err := sink.Ingest(sample); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Step advances the simulation once and returns the resulting samples.
func (s *Simulator) Step() []telemetry.Sample {
	s.step++

	s.speed += s.cfg.SpeedStep
	if s.speed > 200 {
		s.speed = 0
	}
	s.rpm += s.cfg.RPMStep
	if s.rpm > s.cfg.MaxRPM {
		s.rpm = s.cfg.IdleRPM
	}
	if s.coolant < 195 {
		s.coolant = math.Min(195, s.coolant+0.5)
	}
	throttle := vehicle.Clamp(30+20*math.Sin(float64(s.step)/50), 0, 100)

	gear := "N"
	if g := vehicle.EstimateGear(vehicle.KmhToMph(s.speed), s.rpm); g > 0 {
		gear = strconv.Itoa(g)
	}

	warning := ""
	if s.coolant < coldEngineF {
		warning = "Engine cold"
	}

	now := s.cfg.Clock()
	samples := []telemetry.Sample{
		{Channel: vehicle.ChannelSpeed, Value: telemetry.Number(s.speed), Timestamp: now},
		{Channel: vehicle.ChannelRPM, Value: telemetry.Number(s.rpm), Timestamp: now},
		{Channel: vehicle.ChannelCoolant, Value: telemetry.Number(s.coolant), Timestamp: now},
		{Channel: vehicle.ChannelThrottle, Value: telemetry.Number(throttle), Timestamp: now},
		{Channel: vehicle.ChannelGear, Value: telemetry.Text(gear), Timestamp: now},
		{Channel: vehicle.ChannelWarning, Value: telemetry.Text(warning), Timestamp: now},
	}
	for i, loc := range vehicle.TireLocations {
		// Tires warm up and drift a little out of phase with each other.
		psi := 32 + math.Sin(float64(s.step)/80+float64(i))
		samples = append(samples, telemetry.Sample{
			Channel:   vehicle.TirePressureChannel(loc),
			Value:     telemetry.Number(psi),
			Timestamp: now,
		})
	}
	return samples
}

// coldEngineF is the coolant temperature below which the simulator raises
// a warning.
const coldEngineF = 160
