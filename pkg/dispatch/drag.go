package dispatch

import (
	"fmt"

	"github.com/bft-labs/carconsole/pkg/geom"
	"github.com/bft-labs/carconsole/pkg/layout"
)

// Grip identifies a split boundary picked up by a drag gesture. It holds
// IDs rather than nodes so that it stays valid across ticks.
type Grip struct {
	WindowID string
	SplitID  string
	Index    int
	// Vertical is set when the split stacks its children top to bottom,
	// so drags follow the y coordinate.
	Vertical bool
	Client   geom.Rect
}

// Grab looks for a split boundary under x, y in the window laid out in
// client and hands the result to found. found runs on the loop goroutine.
func Grab(windowID string, client geom.Rect, x, y int, found func(Grip, bool)) Command {
	return func(l *Loop) error {
		win := l.doc.Find(windowID)
		if win == nil || win.Kind != layout.KindWindow {
			found(Grip{}, false)
			return nil
		}
		h, ok := layout.HandleAt(layout.Handles(win, client), x, y)
		if !ok {
			found(Grip{}, false)
			return nil
		}
		found(Grip{
			WindowID: windowID,
			SplitID:  h.Split.ID,
			Index:    h.Index,
			Vertical: h.Split.Direction == layout.Vertical,
			Client:   client,
		}, true)
		return nil
	}
}

// Drag moves the gripped boundary to pos along its split's axis and
// applies the resulting weights as a resize edit.
func Drag(g Grip, pos int) Command {
	return func(l *Loop) error {
		win := l.doc.Find(g.WindowID)
		if win == nil {
			return fmt.Errorf("drag: window %s: %w", g.WindowID, layout.ErrInvalidEdit)
		}
		for _, h := range layout.Handles(win, g.Client) {
			if h.Split.ID != g.SplitID || h.Index != g.Index {
				continue
			}
			weights := h.Drag(pos)
			if weights == nil {
				return nil
			}
			return layout.ResizeEdit{SplitID: g.SplitID, Weights: weights}.Apply(l.doc, l.reg)
		}
		return fmt.Errorf("drag: split %s: %w", g.SplitID, layout.ErrInvalidEdit)
	}
}
