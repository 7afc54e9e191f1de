package vehicle

// Window is a fixed-size moving window over the latest readings.
type Window struct {
	buf  []float64
	next int
	full bool
}

// NewWindow creates a window holding up to size readings.
func NewWindow(size int) *Window {
	if size < 1 {
		size = 1
	}
	return &Window{buf: make([]float64, size)}
}

// Push records v, evicting the oldest reading when full.
func (w *Window) Push(v float64) {
	w.buf[w.next] = v
	w.next = (w.next + 1) % len(w.buf)
	if w.next == 0 {
		w.full = true
	}
}

// Len returns how many readings are held.
func (w *Window) Len() int {
	if w.full {
		return len(w.buf)
	}
	return w.next
}

// Values returns the readings oldest first.
func (w *Window) Values() []float64 {
	if !w.full {
		return append([]float64(nil), w.buf[:w.next]...)
	}
	out := make([]float64, 0, len(w.buf))
	out = append(out, w.buf[w.next:]...)
	return append(out, w.buf[:w.next]...)
}

// Mean returns the average reading, or 0 when empty.
func (w *Window) Mean() float64 {
	n := w.Len()
	if n == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range w.Values() {
		sum += v
	}
	return sum / float64(n)
}

// Max returns the largest reading, or 0 when empty.
func (w *Window) Max() float64 {
	vals := w.Values()
	if len(vals) == 0 {
		return 0
	}
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
