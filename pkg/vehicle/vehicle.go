// Package vehicle holds the unit conversions, estimates and formatting
// helpers shared by the built-in plugins and the simulator.
package vehicle

import (
	"fmt"
	"math"
	"sort"

	"github.com/dustin/go-humanize"
)

// Well-known telemetry channel names.
const (
	ChannelSpeed    = "speed_kph"
	ChannelRPM      = "rpm"
	ChannelCoolant  = "coolant_temp_f"
	ChannelThrottle = "throttle_pct"
	ChannelGear     = "gear"

	ChannelMessage     = "message"
	ChannelWarning     = "warning"
	ChannelLapNumber   = "lap_number"
	ChannelLapDistance = "lap_distance_km"
	tirePressurePrefix = "tire_pressure_"
)

// TireLocations are the wheel positions that report a tire pressure, front
// left first.
var TireLocations = []string{"fl", "fr", "rl", "rr"}

// TirePressureChannel names the channel carrying the pressure, in PSI, of
// the tire at location.
func TirePressureChannel(location string) string { return tirePressurePrefix + location }

// DefaultMaxRPM is the redline assumed when a plugin is not told otherwise.
const DefaultMaxRPM = 8000.0

const (
	kmPerMile  = 1.60934
	mpsPerMph  = 0.44704
	barPerPSI  = 0.0689476
	maxPowerHP = 200.0
)

func MphToKmh(mph float64) float64 { return mph * kmPerMile }
func KmhToMph(kmh float64) float64 { return kmh / kmPerMile }
func RPMToHz(rpm float64) float64  { return rpm / 60 }
func HzToRPM(hz float64) float64   { return hz * 60 }

// FahrenheitToCelsius converts a temperature.
func FahrenheitToCelsius(f float64) float64 { return (f - 32) * 5 / 9 }

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

// EstimateGear guesses the gear from the speed/rpm ratio. It returns 0
// when the vehicle is stopped or the engine is off.
func EstimateGear(speedMph, rpm float64) int {
	if rpm <= 0 || speedMph <= 0 {
		return 0
	}
	ratio := speedMph / rpm
	switch {
	case ratio < 0.01:
		return 1
	case ratio < 0.02:
		return 2
	case ratio < 0.03:
		return 3
	case ratio < 0.04:
		return 4
	case ratio < 0.05:
		return 5
	default:
		return 6
	}
}

// EngineLoad combines rpm and throttle into a 0-100 load figure; each
// contributes half.
func EngineLoad(rpm, throttlePct, maxRPM float64) float64 {
	if maxRPM <= 0 {
		maxRPM = DefaultMaxRPM
	}
	return Clamp(rpm/maxRPM*50+throttlePct*0.5, 0, 100)
}

// EnginePower is a rough horsepower estimate.
func EnginePower(rpm, throttlePct float64) float64 {
	return Clamp(rpm/DefaultMaxRPM, 0, 1) * throttlePct / 100 * maxPowerHP
}

// FuelRate approximates consumption in litres per hour. A cold engine
// (below 160°F) burns half as much again.
func FuelRate(rpm, throttlePct, coolantF float64) float64 {
	base := rpm * 0.0001
	throttle := 1 + throttlePct/100*2
	temp := 1.0
	if coolantF < 160 {
		temp = 1.5
	}
	return base * throttle * temp
}

// BrakingDistance returns metres needed to stop from speedMph at the
// given deceleration in m/s².
func BrakingDistance(speedMph, decel float64) float64 {
	v := speedMph * mpsPerMph
	return v * v / (2 * decel)
}

// TravelTime returns hours to cover distance at speed, or +Inf when
// stationary.
func TravelTime(distance, speed float64) float64 {
	if speed <= 0 {
		return math.Inf(1)
	}
	return distance / speed
}

func IsMoving(speedMph float64) bool   { return speedMph > 1 }
func IsEngineRunning(rpm float64) bool { return rpm > 100 }
func ValidSpeed(mph float64) bool      { return mph >= 0 && mph <= 200 }
func ValidRPM(rpm float64) bool        { return rpm >= 0 && rpm <= 10000 }

// FormatSpeed renders a speed given in km/h.
func FormatSpeed(kmh float64, metric bool) string {
	if metric {
		return fmt.Sprintf("%.1f km/h", kmh)
	}
	return fmt.Sprintf("%.1f mph", KmhToMph(kmh))
}

// FormatRPM renders engine speed with thousands separators.
func FormatRPM(rpm float64) string {
	return humanize.Comma(int64(math.Round(rpm))) + " RPM"
}

// FormatTemperature renders a temperature given in °F.
func FormatTemperature(f float64, celsius bool) string {
	if celsius {
		return fmt.Sprintf("%.1f°C", FahrenheitToCelsius(f))
	}
	return fmt.Sprintf("%.1f°F", f)
}

// FormatPressure renders a pressure given in PSI.
func FormatPressure(psi float64, bar bool) string {
	if bar {
		return fmt.Sprintf("%.1f bar", psi*barPerPSI)
	}
	return fmt.Sprintf("%.1f PSI", psi)
}

// FormatPercent renders a percentage with one decimal.
func FormatPercent(v float64) string { return fmt.Sprintf("%.1f%%", v) }

// FormatDistance renders kilometres with a thousands separator.
func FormatDistance(km float64) string {
	return humanize.CommafWithDigits(km, 1) + " km"
}

// FormatHours renders a duration in hours as "1h 5m" or "42m".
func FormatHours(hours float64) string {
	total := int(hours * 60)
	h, m := total/60, total%60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

// Median returns the median of values, or 0 for an empty slice.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 0 {
		return (s[n/2-1] + s[n/2]) / 2
	}
	return s[n/2]
}
