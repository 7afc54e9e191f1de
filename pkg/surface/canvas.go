package surface

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

type cell struct {
	ch rune
	st Style
}

// Canvas is an in-memory Target.
type Canvas struct {
	width, height int
	cells         []cell
}

// MaxCanvasSize bounds each side of a Canvas.
const MaxCanvasSize = 4096

// NewCanvas allocates a blank canvas. Negative sizes are treated as zero
// and sides are capped at MaxCanvasSize.
func NewCanvas(width, height int) *Canvas {
	width = min(max(width, 0), MaxCanvasSize)
	height = min(max(height, 0), MaxCanvasSize)
	c := &Canvas{width: width, height: height, cells: make([]cell, width*height)}
	c.Clear()
	return c
}

func (c *Canvas) Size() (int, int) { return c.width, c.height }

func (c *Canvas) SetCell(x, y int, ch rune, st Style) {
	if x < 0 || y < 0 || x >= c.width || y >= c.height {
		return
	}
	c.cells[y*c.width+x] = cell{ch: ch, st: st}
}

func (c *Canvas) Clear() {
	for i := range c.cells {
		c.cells[i] = cell{ch: ' '}
	}
}

// Cell returns the rune and style at x, y.
func (c *Canvas) Cell(x, y int) (rune, Style) {
	if x < 0 || y < 0 || x >= c.width || y >= c.height {
		return 0, Plain
	}
	cl := c.cells[y*c.width+x]
	return cl.ch, cl.st
}

// Row returns line y as plain text.
func (c *Canvas) Row(y int) string {
	if y < 0 || y >= c.height {
		return ""
	}
	var sb strings.Builder
	for _, cl := range c.cells[y*c.width : (y+1)*c.width] {
		sb.WriteRune(cl.ch)
	}
	return sb.String()
}

// String returns the canvas as plain text, one line per row.
func (c *Canvas) String() string {
	rows := make([]string, c.height)
	for y := range rows {
		rows[y] = c.Row(y)
	}
	return strings.Join(rows, "\n")
}

// ANSI returns the canvas with styles rendered as true-color escape
// sequences.
func (c *Canvas) ANSI() string {
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(termenv.TrueColor)

	rows := make([]string, c.height)
	for y := 0; y < c.height; y++ {
		var sb strings.Builder
		line := c.cells[y*c.width : (y+1)*c.width]
		for start := 0; start < len(line); {
			end := start + 1
			for end < len(line) && line[end].st == line[start].st {
				end++
			}
			var run strings.Builder
			for _, cl := range line[start:end] {
				run.WriteRune(cl.ch)
			}
			sb.WriteString(styleFor(r, line[start].st).Render(run.String()))
			start = end
		}
		rows[y] = sb.String()
	}
	return strings.Join(rows, "\n")
}

func styleFor(r *lipgloss.Renderer, st Style) lipgloss.Style {
	ls := r.NewStyle()
	if !st.Fg.IsDefault() {
		ls = ls.Foreground(lipgloss.Color(st.Fg.Hex()))
	}
	if !st.Bg.IsDefault() {
		ls = ls.Background(lipgloss.Color(st.Bg.Hex()))
	}
	if st.Bold {
		ls = ls.Bold(true)
	}
	if st.Reverse {
		ls = ls.Reverse(true)
	}
	return ls
}
