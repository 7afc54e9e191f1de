package surface

import "math"

// Meter draws a horizontal bar width cells wide at x, y, filled to frac
// (clamped to [0, 1]). Filled cells use on, the remainder off.
func Meter(s Surface, x, y, width int, frac float64, on, off Style) {
	if width <= 0 {
		return
	}
	if math.IsNaN(frac) {
		frac = 0
	}
	frac = math.Max(0, math.Min(frac, 1))
	n := int(math.Round(frac * float64(width)))
	s.HLine(x, y, n, '█', on)
	s.HLine(x+n, y, width-n, '░', off)
}

// Threshold picks a color for a reading: green below warn, yellow below
// alarm and red from alarm up.
func Threshold(v, warn, alarm float64) Color {
	switch {
	case v >= alarm:
		return Red
	case v >= warn:
		return Yellow
	default:
		return Green
	}
}
