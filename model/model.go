package model

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Sample is one report from the digitizer.
type Sample struct {
	Contact bool
	X       float64
	Y       float64
}

func Down(x, y float64) Sample {
	return Sample{Contact: true, X: x, Y: y}
}

func Up() Sample {
	return Sample{}
}

func (s Sample) String() string {
	if !s.Contact {
		return "up"
	}
	return fmt.Sprintf("down(%g,%g)", s.X, s.Y)
}

// Segment is a straight line between two consecutive contact samples.
type Segment struct {
	FromX, FromY float64
	ToX, ToY     float64
}

func (s Segment) String() string {
	return fmt.Sprintf("(%g,%g)-(%g,%g)", s.FromX, s.FromY, s.ToX, s.ToY)
}

// RGBA is a non premultiplied color.
type RGBA struct {
	R, G, B, A uint8
}

var Black = RGBA{0, 0, 0, 0xff}

// ParseRGBA parses #rgb, #rrggbb and #rrggbbaa.
func ParseRGBA(s string) (RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(h) {
	case 3:
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]}) + "ff"
	case 6:
		h += "ff"
	case 8:
	default:
		return RGBA{}, fmt.Errorf("invalid color %q", s)
	}

	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	return RGBA{uint8(v >> 24), uint8(v >> 16), uint8(v >> 8), uint8(v)}, nil
}

func (c RGBA) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

func (c RGBA) Color() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// Style is the pen applied to every segment drawn after it is set.
type Style struct {
	Color RGBA
	Width float64
}

var DefaultStyle = Style{Color: Black, Width: 3}
