package surface

import (
	"image"
	"image/color"

	"github.com/bft-labs/carconsole/pkg/geom"
)

// Target is a grid of character cells a display exposes for one window.
type Target interface {
	Size() (width, height int)
	SetCell(x, y int, ch rune, st Style)
	Clear()
}

// Surface is what a plugin draws on. Coordinates are local to Bounds,
// whose origin is always 0,0.
type Surface interface {
	Bounds() geom.Rect
	Text(x, y int, s string, st Style)
	Fill(r geom.Rect, ch rune, st Style)
	Box(r geom.Rect, st Style)
	HLine(x, y, length int, ch rune, st Style)
	Image(r geom.Rect, img image.Image)
}

// Region is a Surface over part of a Target.
type Region struct {
	target Target
	area   geom.Rect
}

// NewRegion returns a surface drawing into area of t. The area is clipped
// to the target's size.
func NewRegion(t Target, area geom.Rect) *Region {
	w, h := t.Size()
	return &Region{target: t, area: area.Intersect(geom.R(0, 0, w, h))}
}

// Area returns the region's rectangle in target coordinates.
func (r *Region) Area() geom.Rect { return r.area }

// Bounds returns the local drawing rectangle.
func (r *Region) Bounds() geom.Rect {
	return geom.R(0, 0, r.area.Width, r.area.Height)
}

// Sub returns a surface for a rectangle in local coordinates, clipped to r.
func (r *Region) Sub(local geom.Rect) *Region {
	abs := local.Intersect(r.Bounds()).Translate(r.area.X, r.area.Y)
	return &Region{target: r.target, area: abs}
}

func (r *Region) set(x, y int, ch rune, st Style) {
	if x < 0 || y < 0 || x >= r.area.Width || y >= r.area.Height {
		return
	}
	r.target.SetCell(r.area.X+x, r.area.Y+y, ch, st)
}

// Text writes s starting at x, y; one cell per rune, no wrapping.
func (r *Region) Text(x, y int, s string, st Style) {
	for _, ch := range s {
		if x >= r.area.Width {
			return
		}
		r.set(x, y, ch, st)
		x++
	}
}

// Fill paints every cell of rect with ch.
func (r *Region) Fill(rect geom.Rect, ch rune, st Style) {
	rect = rect.Intersect(r.Bounds())
	for y := rect.Y; y < rect.Bottom(); y++ {
		for x := rect.X; x < rect.Right(); x++ {
			r.set(x, y, ch, st)
		}
	}
}

// Box draws a single-line border along the edge of rect.
func (r *Region) Box(rect geom.Rect, st Style) {
	if rect.Width < 2 || rect.Height < 2 {
		r.Fill(rect, '█', st)
		return
	}
	right, bottom := rect.Right()-1, rect.Bottom()-1
	for x := rect.X + 1; x < right; x++ {
		r.set(x, rect.Y, '─', st)
		r.set(x, bottom, '─', st)
	}
	for y := rect.Y + 1; y < bottom; y++ {
		r.set(rect.X, y, '│', st)
		r.set(right, y, '│', st)
	}
	r.set(rect.X, rect.Y, '┌', st)
	r.set(right, rect.Y, '┐', st)
	r.set(rect.X, bottom, '└', st)
	r.set(right, bottom, '┘', st)
}

// HLine draws a horizontal run of ch.
func (r *Region) HLine(x, y, length int, ch rune, st Style) {
	for i := 0; i < length; i++ {
		r.set(x+i, y, ch, st)
	}
}

// Image draws img scaled into rect with nearest-neighbour sampling. Each
// cell becomes a blank whose background is the sampled pixel.
func (r *Region) Image(rect geom.Rect, img image.Image) {
	if img == nil || rect.Empty() {
		return
	}
	b := img.Bounds()
	if b.Empty() {
		return
	}
	for cy := 0; cy < rect.Height; cy++ {
		py := b.Min.Y + cy*b.Dy()/rect.Height
		for cx := 0; cx < rect.Width; cx++ {
			px := b.Min.X + cx*b.Dx()/rect.Width
			r.set(rect.X+cx, rect.Y+cy, ' ', Style{Bg: fromColor(img.At(px, py))})
		}
	}
}

func fromColor(c color.Color) Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return RGB(n.R, n.G, n.B)
}
