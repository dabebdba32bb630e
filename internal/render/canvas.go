package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// Align is the horizontal anchor of a text run.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// Baseline is the vertical anchor of a text run.
type Baseline int

const (
	// BaselineAlphabetic places the glyph baseline at y.
	BaselineAlphabetic Baseline = iota
	// BaselineMiddle centres the glyphs on y.
	BaselineMiddle
	// BaselineTop places the top of the glyphs at y.
	BaselineTop
)

// Point is a sub-pixel canvas coordinate.
type Point struct {
	X, Y float32
}

// Canvas is the drawing surface handed to a Painter.
type Canvas struct {
	img          *image.RGBA
	footerHeight int
	typeface     *typeface
	faces        map[TextStyle]font.Face
	preview      bool
}

func newCanvas(width, height, footerHeight int, tf *typeface) *Canvas {
	return &Canvas{
		img:          image.NewRGBA(image.Rect(0, 0, width, height)),
		footerHeight: footerHeight,
		typeface:     tf,
		faces:        make(map[TextStyle]font.Face, len(faceSpecs)),
	}
}

// Preview reports whether the frame is an operator preview that is never
// pushed. Painters must not advance shared state on a preview canvas.
func (c *Canvas) Preview() bool { return c.preview }

// Width returns the canvas width in pixels.
func (c *Canvas) Width() int { return c.img.Bounds().Dx() }

// Height returns the canvas height in pixels.
func (c *Canvas) Height() int { return c.img.Bounds().Dy() }

// FooterHeight returns the height of the footer bar.
func (c *Canvas) FooterHeight() int { return c.footerHeight }

// Clear paints the whole canvas white.
func (c *Canvas) Clear() {
	c.FillRect(c.img.Bounds(), color.White)
}

// FillRect fills r with col.
func (c *Canvas) FillRect(r image.Rectangle, col color.Color) {
	draw.Draw(c.img, r, image.NewUniform(col), image.Point{}, draw.Src)
}

// DrawImage composites src with its top-left corner at at.
func (c *Canvas) DrawImage(src image.Image, at image.Point) {
	b := src.Bounds()
	draw.Draw(c.img, image.Rectangle{Min: at, Max: at.Add(b.Size())}, src, b.Min, draw.Over)
}

// MeasureText returns the advance width of s in pixels.
func (c *Canvas) MeasureText(style TextStyle, s string) int {
	return font.MeasureString(c.face(style), s).Ceil()
}

// LineHeight returns the recommended line spacing for style.
func (c *Canvas) LineHeight(style TextStyle) int {
	return c.face(style).Metrics().Height.Ceil()
}

// Text draws s anchored at (x, y).
func (c *Canvas) Text(style TextStyle, s string, x, y int, align Align, base Baseline, col color.Color) {
	face := c.face(style)

	switch align {
	case AlignCenter:
		x -= c.MeasureText(style, s) / 2 //nolint:mnd // halve for centring
	case AlignRight:
		x -= c.MeasureText(style, s)
	}

	m := face.Metrics()
	switch base {
	case BaselineMiddle:
		y += (m.Ascent - m.Descent).Ceil() / 2 //nolint:mnd // halve for centring
	case BaselineTop:
		y += m.Ascent.Ceil()
	}

	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// Polyline strokes the connected segments through pts with the given width.
func (c *Canvas) Polyline(pts []Point, width float32, col color.Color) {
	if len(pts) < 2 { //nolint:mnd // a segment needs two points
		return
	}
	z := vector.NewRasterizer(c.Width(), c.Height())
	half := width / 2 //nolint:mnd // offset either side of the centre line
	for i := 1; i < len(pts); i++ {
		a, b := pts[i-1], pts[i]
		dx, dy := b.X-a.X, b.Y-a.Y
		length := float32(math.Hypot(float64(dx), float64(dy)))
		if length == 0 {
			continue
		}
		// Square caps: extend each segment by half the stroke width.
		ux, uy := dx/length*half, dy/length*half
		nx, ny := -uy, ux
		z.MoveTo(a.X-ux+nx, a.Y-uy+ny)
		z.LineTo(b.X+ux+nx, b.Y+uy+ny)
		z.LineTo(b.X+ux-nx, b.Y+uy-ny)
		z.LineTo(a.X-ux-nx, a.Y-uy-ny)
		z.ClosePath()
	}
	z.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{})
}

func (c *Canvas) face(style TextStyle) font.Face {
	if f, ok := c.faces[style]; ok {
		return f
	}
	f := c.typeface.face(faceSpecs[style])
	c.faces[style] = f
	return f
}
