package geom

import "math"

// Axis selects the dimension along which Divide subdivides a rectangle.
type Axis int

const (
	// AxisX divides left to right; the weights control widths.
	AxisX Axis = iota
	// AxisY divides top to bottom; the weights control heights.
	AxisY
)

// Extent returns the size of r along the axis.
func (a Axis) Extent(r Rect) int {
	if a == AxisX {
		return r.Width
	}
	return r.Height
}

// Divide splits area into len(weights) adjacent rectangles along axis.
//
// Each entry receives floor(total * w / sum) cells; whatever the flooring
// leaves over is added to the last entry, so the extents always sum to the
// extent of area with no gap or overlap. A weight <= 0 (or NaN/Inf) counts
// as 1, which makes an all-unset weight list an equal distribution.
func Divide(area Rect, axis Axis, weights []float64) []Rect {
	n := len(weights)
	if n == 0 {
		return nil
	}

	total := axis.Extent(area)
	if total < 0 {
		total = 0
	}

	// Weights are scaled by the largest so the sum stays finite.
	norm := make([]float64, n)
	peak := 0.0
	for i, w := range weights {
		norm[i] = EffectiveWeight(w)
		peak = max(peak, norm[i])
	}
	sum := 0.0
	for i := range norm {
		norm[i] /= peak
		sum += norm[i]
	}

	sizes := make([]int, n)
	used := 0
	for i := 0; i < n-1; i++ {
		size := int(math.Floor(float64(total) * (norm[i] / sum)))
		sizes[i] = min(max(size, 0), total-used)
		used += sizes[i]
	}
	// Last entry gets the remainder to avoid rounding drift.
	sizes[n-1] = total - used

	rects := make([]Rect, n)
	pos := 0
	for i := 0; i < n; i++ {
		switch axis {
		case AxisX:
			rects[i] = Rect{X: area.X + pos, Y: area.Y, Width: sizes[i], Height: area.Height}
		default:
			rects[i] = Rect{X: area.X, Y: area.Y + pos, Width: area.Width, Height: sizes[i]}
		}
		pos += sizes[i]
	}
	return rects
}

// EffectiveWeight maps an unset or invalid weight to the default of 1.
func EffectiveWeight(w float64) float64 {
	if w <= 0 || math.IsNaN(w) || math.IsInf(w, 0) {
		return 1
	}
	return w
}
