package surface

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is a 24-bit RGB color. The zero Color means "terminal default".
type Color uint32

const colorSet = 1 << 24

// RGB returns an explicit color.
func RGB(r, g, b uint8) Color {
	return Color(colorSet | uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

// Palette used by the built-in plugins and placeholders.
var (
	Default = Color(0)
	Black   = RGB(0x00, 0x00, 0x00)
	White   = RGB(0xee, 0xee, 0xee)
	Gray    = RGB(0x80, 0x80, 0x80)
	Red     = RGB(0xe0, 0x40, 0x40)
	Green   = RGB(0x40, 0xc0, 0x60)
	Yellow  = RGB(0xe0, 0xc0, 0x40)
	Blue    = RGB(0x40, 0x80, 0xe0)
	Cyan    = RGB(0x40, 0xc0, 0xc0)
)

// IsDefault reports whether c is the terminal default color.
func (c Color) IsDefault() bool { return c&colorSet == 0 }

// RGB returns the color components. Default returns zeros.
func (c Color) RGB() (r, g, b uint8) {
	return uint8(c >> 16), uint8(c >> 8), uint8(c)
}

// Hex returns "#rrggbb", or "" for Default.
func (c Color) Hex() string {
	if c.IsDefault() {
		return ""
	}
	r, g, b := c.RGB()
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

// ParseHex parses "#rrggbb" (the leading '#' is optional).
func ParseHex(s string) (Color, error) {
	h := strings.TrimPrefix(s, "#")
	if len(h) != 6 {
		return Default, fmt.Errorf("color %q: want #rrggbb", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Default, fmt.Errorf("color %q: %w", s, err)
	}
	return RGB(uint8(v>>16), uint8(v>>8), uint8(v)), nil
}

// Style describes how a cell is drawn.
type Style struct {
	Fg      Color
	Bg      Color
	Bold    bool
	Reverse bool
}

// Plain is the unstyled default.
var Plain = Style{}

// Foreground returns a copy of s with the foreground set.
func (s Style) Foreground(c Color) Style {
	s.Fg = c
	return s
}

// Background returns a copy of s with the background set.
func (s Style) Background(c Color) Style {
	s.Bg = c
	return s
}

// Emphasis returns a copy of s drawn bold.
func (s Style) Emphasis() Style {
	s.Bold = true
	return s
}
