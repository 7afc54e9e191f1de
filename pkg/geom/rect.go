// Package geom provides the integer rectangle type shared by the layout
// engine and the drawing surface, and the weighted subdivision used to
// size the children of a split.
package geom

import "fmt"

// Rect is an axis-aligned rectangle in surface cells. X and Y are the
// top-left corner; Right and Bottom are exclusive.
type Rect struct {
	X, Y, Width, Height int
}

// R is shorthand for Rect{X: x, Y: y, Width: w, Height: h}.
func R(x, y, w, h int) Rect {
	return Rect{X: x, Y: y, Width: w, Height: h}
}

// Area returns the number of cells in this rectangle.
func (r Rect) Area() int {
	if r.Empty() {
		return 0
	}
	return r.Width * r.Height
}

// Empty returns true if this rectangle has zero area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Right returns the X coordinate of the right edge (exclusive).
func (r Rect) Right() int {
	return r.X + r.Width
}

// Bottom returns the Y coordinate of the bottom edge (exclusive).
func (r Rect) Bottom() int {
	return r.Y + r.Height
}

// Inset returns a new Rect shrunk by margin on all sides. A margin that
// would produce negative dimensions yields a zero-size rect.
func (r Rect) Inset(margin int) Rect {
	if margin < 0 {
		margin = 0
	}
	w := max(r.Width-2*margin, 0)
	h := max(r.Height-2*margin, 0)
	return Rect{X: r.X + margin, Y: r.Y + margin, Width: w, Height: h}
}

// Contains reports whether the point (px, py) lies within this rectangle.
func (r Rect) Contains(px, py int) bool {
	return px >= r.X && px < r.Right() && py >= r.Y && py < r.Bottom()
}

// Intersect returns the overlapping region of two rectangles, or a
// zero-size Rect when they do not overlap.
func (r Rect) Intersect(other Rect) Rect {
	x1 := max(r.X, other.X)
	y1 := max(r.Y, other.Y)
	x2 := min(r.Right(), other.Right())
	y2 := min(r.Bottom(), other.Bottom())
	if x2 <= x1 || y2 <= y1 {
		return Rect{}
	}
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// Translate returns the rectangle moved by (dx, dy).
func (r Rect) Translate(dx, dy int) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, Width: r.Width, Height: r.Height}
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d@%d,%d", r.Width, r.Height, r.X, r.Y)
}
