package dispatch

import (
	"sync"

	"github.com/bft-labs/carconsole/pkg/layout"
	"github.com/bft-labs/carconsole/pkg/surface"
)

// Display provides one drawing target per window and shows the result of
// a tick.
type Display interface {
	// Target returns the cell grid for window, or nil to skip it.
	Target(window *layout.Node) surface.Target
	// Present flushes everything drawn during the tick.
	Present() error
}

// HeadlessDisplay keeps an in-memory canvas per window, sized to the
// window's declared width and height. Canvases of windows not drawn in a
// tick are dropped when it is presented.
type HeadlessDisplay struct {
	mu       sync.Mutex
	canvases map[string]*surface.Canvas
	drawn    map[string]bool
	presents int
}

// NewHeadlessDisplay creates an empty headless display.
func NewHeadlessDisplay() *HeadlessDisplay {
	return &HeadlessDisplay{
		canvases: make(map[string]*surface.Canvas),
		drawn:    make(map[string]bool),
	}
}

func (h *HeadlessDisplay) Target(window *layout.Node) surface.Target {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drawn[window.ID] = true
	c, ok := h.canvases[window.ID]
	if ok {
		w, ht := c.Size()
		if w == min(window.Width, surface.MaxCanvasSize) && ht == min(window.Height, surface.MaxCanvasSize) {
			return c
		}
	}
	c = surface.NewCanvas(window.Width, window.Height)
	h.canvases[window.ID] = c
	return c
}

func (h *HeadlessDisplay) Present() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id := range h.canvases {
		if !h.drawn[id] {
			delete(h.canvases, id)
		}
	}
	clear(h.drawn)
	h.presents++
	return nil
}

// Canvas returns the canvas of a window by ID.
func (h *HeadlessDisplay) Canvas(windowID string) (*surface.Canvas, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.canvases[windowID]
	return c, ok
}

// Presents returns how many ticks have been presented.
func (h *HeadlessDisplay) Presents() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.presents
}
