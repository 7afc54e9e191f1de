package dispatch

import (
	"fmt"

	"github.com/bft-labs/carconsole/pkg/surface"
)

var (
	placeholderBorder = surface.Plain.Foreground(surface.Gray)
	placeholderTitle  = surface.Plain.Foreground(surface.Blue).Emphasis()
	placeholderDim    = surface.Plain.Foreground(surface.Gray)
	faultBorder       = surface.Plain.Foreground(surface.Red)
	faultTitle        = surface.Plain.Foreground(surface.Red).Emphasis()
)

// drawPlaceholder draws a bordered box with the title and a status line
// centred vertically, plus the size the region was rendered at.
func drawPlaceholder(s surface.Surface, title, status string, border, heading surface.Style) {
	b := s.Bounds()
	if b.Empty() {
		return
	}
	s.Box(b, border)

	lines := []struct {
		text string
		st   surface.Style
	}{
		{title, heading},
		{status, placeholderDim},
		{fmt.Sprintf("%dx%d", b.Width, b.Height), placeholderDim},
	}
	inner := b.Inset(1)
	top := inner.Y + max((inner.Height-len(lines))/2, 0)
	for i, ln := range lines {
		y := top + i
		if y >= inner.Bottom() || ln.text == "" {
			continue
		}
		text := []rune(ln.text)
		if len(text) > inner.Width {
			text = text[:max(inner.Width, 0)]
		}
		x := inner.X + (inner.Width-len(text))/2
		s.Text(x, y, string(text), ln.st)
	}
}

func drawUnbound(s surface.Surface, title, plugin string) {
	status := "unbound"
	if plugin != "" {
		status = plugin + " not loaded"
	}
	drawPlaceholder(s, title, status, placeholderBorder, placeholderTitle)
}

func drawFaulted(s surface.Surface, title, plugin string) {
	drawPlaceholder(s, title, plugin+" faulted", faultBorder, faultTitle)
}

func drawEmptyWindow(s surface.Surface, title string) {
	drawPlaceholder(s, title, "empty window", placeholderBorder, placeholderTitle)
}
