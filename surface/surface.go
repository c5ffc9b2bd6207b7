// Package surface is the in-memory raster the signature is drawn on.
package surface

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/draw"
	"image/png"
	"math"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"golang.org/x/image/vector"

	"github.com/juruen/sigpad/model"
)

// capSteps is the number of edges used for each round line cap.
const capSteps = 8

type Surface struct {
	img   *image.RGBA
	style model.Style
	z     *vector.Rasterizer

	exportWidth, exportHeight int
}

type Option func(*Surface)

// WithExportSize scales exported images to width x height. A zero
// dimension keeps the aspect ratio; both zero exports at native size.
func WithExportSize(width, height int) Option {
	return func(s *Surface) {
		s.exportWidth, s.exportHeight = width, height
	}
}

// New allocates a cleared surface with the default style. It panics on a
// non positive size.
func New(width, height int, opts ...Option) *Surface {
	if width <= 0 || height <= 0 {
		panic("surface: invalid size")
	}
	s := &Surface{
		img:   image.NewRGBA(image.Rect(0, 0, width, height)),
		style: model.DefaultStyle,
		z:     vector.NewRasterizer(width, height),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Surface) mustInit() {
	if s == nil || s.img == nil {
		panic("surface: not initialized")
	}
}

func (s *Surface) Bounds() image.Rectangle {
	s.mustInit()
	return s.img.Bounds()
}

func (s *Surface) Configure(style model.Style) {
	s.mustInit()
	s.style = style
}

func (s *Surface) Style() model.Style {
	s.mustInit()
	return s.style
}

// Clear erases every pixel to transparent.
func (s *Surface) Clear() {
	s.mustInit()
	for i := range s.img.Pix {
		s.img.Pix[i] = 0
	}
}

// DrawSegment paints an anti-aliased line with round caps using the
// current style.
func (s *Surface) DrawSegment(seg model.Segment) {
	s.mustInit()
	radius := s.style.Width / 2
	if radius <= 0 || s.style.Color.A == 0 {
		return
	}

	b := s.img.Bounds()
	s.z.Reset(b.Dx(), b.Dy())
	s.z.DrawOp = draw.Over

	// the rasterizer clips to its size, so vertices off the canvas are
	// passed through unchanged
	pts := outline(seg, radius)
	s.z.MoveTo(float32(pts[0].x), float32(pts[0].y))
	for _, p := range pts[1:] {
		s.z.LineTo(float32(p.x), float32(p.y))
	}
	s.z.ClosePath()
	s.z.Draw(s.img, b, image.NewUniform(s.style.Color.Color()), image.Point{})
}

type point struct{ x, y float64 }

// outline returns the convex polygon of a thick line with round caps: a
// half circle around the end point followed by one around the start.
func outline(seg model.Segment, radius float64) []point {
	theta := math.Atan2(seg.ToY-seg.FromY, seg.ToX-seg.FromX)
	pts := make([]point, 0, 2*(capSteps+1))

	arc := func(cx, cy, from float64) {
		for i := 0; i <= capSteps; i++ {
			a := from + math.Pi*float64(i)/capSteps
			pts = append(pts, point{cx + radius*math.Cos(a), cy + radius*math.Sin(a)})
		}
	}
	arc(seg.ToX, seg.ToY, theta-math.Pi/2)
	arc(seg.FromX, seg.FromY, theta+math.Pi/2)
	return pts
}

// Image returns a copy of the current pixels.
func (s *Surface) Image() *image.RGBA {
	s.mustInit()
	out := image.NewRGBA(s.img.Bounds())
	copy(out.Pix, s.img.Pix)
	return out
}

// Export encodes the current pixels as PNG. It does not modify the
// surface, so repeated calls without drawing return identical bytes.
func (s *Surface) Export() ([]byte, error) {
	s.mustInit()

	var img image.Image = s.img
	if s.exportWidth > 0 || s.exportHeight > 0 {
		img = resize.Resize(uint(s.exportWidth), uint(s.exportHeight), s.img, resize.Bilinear)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, errors.Wrap(err, "can't encode signature")
	}
	return buf.Bytes(), nil
}

// ExportDataURI is Export as a data:image/png;base64 URI.
func (s *Surface) ExportDataURI() (string, error) {
	raw, err := s.Export()
	if err != nil {
		return "", err
	}
	return DataURI(raw), nil
}

const dataURIPrefix = "data:image/png;base64,"

func DataURI(raw []byte) string {
	return dataURIPrefix + base64.StdEncoding.EncodeToString(raw)
}

// DecodeDataURI reverses DataURI.
func DecodeDataURI(uri string) ([]byte, error) {
	if len(uri) < len(dataURIPrefix) || uri[:len(dataURIPrefix)] != dataURIPrefix {
		return nil, errors.New("not a PNG data URI")
	}
	raw, err := base64.StdEncoding.DecodeString(uri[len(dataURIPrefix):])
	if err != nil {
		return nil, errors.Wrap(err, "bad data URI payload")
	}
	return raw, nil
}
