package layout

import (
	"github.com/bft-labs/carconsole/pkg/geom"
)

// Placement is the rectangle assigned to one node of a window.
type Placement struct {
	Node  *Node
	Rect  geom.Rect
	Depth int
}

func (d Direction) axis() geom.Axis {
	if d == Vertical {
		return geom.AxisY
	}
	return geom.AxisX
}

// Weights returns the effective weights of a split's children.
func (n *Node) Weights() []float64 {
	ws := make([]float64, len(n.Children))
	for i, c := range n.Children {
		ws[i] = geom.EffectiveWeight(c.Weight)
	}
	return ws
}

// Arrange computes the rectangle of every split and panel in window,
// depth first, given the window's client area.
func Arrange(window *Node, client geom.Rect) []Placement {
	var out []Placement
	for _, c := range window.Children {
		out = arrange(c, client, 1, out)
	}
	return out
}

func arrange(n *Node, area geom.Rect, depth int, out []Placement) []Placement {
	out = append(out, Placement{Node: n, Rect: area, Depth: depth})
	if n.Kind != KindSplit {
		return out
	}
	rects := geom.Divide(area, n.Direction.axis(), n.Weights())
	for i, c := range n.Children {
		out = arrange(c, rects[i], depth+1, out)
	}
	return out
}

// Handle is the draggable boundary between two adjacent split children.
type Handle struct {
	Split *Node
	// Index is the child before the boundary; the boundary separates
	// Children[Index] and Children[Index+1].
	Index int
	// Area is the split's full rectangle.
	Area geom.Rect
	// Pos is the boundary's coordinate along the split axis: the first
	// cell of Children[Index+1].
	Pos int
}

// Handles returns every split boundary in window.
func Handles(window *Node, client geom.Rect) []Handle {
	var out []Handle
	for _, p := range Arrange(window, client) {
		if p.Node.Kind != KindSplit {
			continue
		}
		rects := geom.Divide(p.Rect, p.Node.Direction.axis(), p.Node.Weights())
		for i := 0; i+1 < len(rects); i++ {
			pos := rects[i+1].X
			if p.Node.Direction == Vertical {
				pos = rects[i+1].Y
			}
			out = append(out, Handle{Split: p.Node, Index: i, Area: p.Rect, Pos: pos})
		}
	}
	return out
}

// HandleAt returns the innermost handle whose boundary passes through the
// cell x, y.
func HandleAt(handles []Handle, x, y int) (Handle, bool) {
	var best Handle
	found := false
	for _, h := range handles {
		if !h.Area.Contains(x, y) {
			continue
		}
		along := x
		if h.Split.Direction == Vertical {
			along = y
		}
		if along != h.Pos {
			continue
		}
		if !found || best.Split.Contains(h.Split) {
			best, found = h, true
		}
	}
	return best, found
}

// Drag returns the split's new weights after moving the boundary to pos.
// Both neighbours keep at least one cell; the rest of the children keep
// their current extents. It returns nil when the neighbours are too small
// to move the boundary.
func (h Handle) Drag(pos int) []float64 {
	return DragWeights(h.Split, h.Area, h.Index, pos)
}

// DragWeights converts a drag of the boundary after child index of split
// (laid out in area) to pos into weights proportional to the resulting
// extents.
func DragWeights(split *Node, area geom.Rect, index, pos int) []float64 {
	if split.Kind != KindSplit || index < 0 || index+1 >= len(split.Children) {
		return nil
	}
	axis := split.Direction.axis()
	rects := geom.Divide(area, axis, split.Weights())
	ext := make([]int, len(rects))
	for i, r := range rects {
		ext[i] = axis.Extent(r)
	}

	lo := rects[index].X
	if axis == geom.AxisY {
		lo = rects[index].Y
	}
	hi := lo + ext[index] + ext[index+1]
	if hi-lo < 2 {
		return nil
	}
	pos = max(lo+1, min(pos, hi-1))
	ext[index] = pos - lo
	ext[index+1] = hi - pos

	ws := make([]float64, len(ext))
	for i, e := range ext {
		ws[i] = float64(e)
	}
	return ws
}
