package render

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Options describes the display geometry.
type Options struct {
	Width        int
	Height       int
	FooterHeight int
}

// Pipeline renders screens at a fixed display size. It is safe for
// concurrent use.
type Pipeline struct {
	opts     Options
	typeface *typeface
}

// NewPipeline validates opts and loads the display fonts.
func NewPipeline(opts Options) (*Pipeline, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("%w: size %dx%d", ErrInvalidOptions, opts.Width, opts.Height)
	}
	if opts.FooterHeight < 0 || opts.FooterHeight > opts.Height {
		return nil, fmt.Errorf("%w: footer height %d", ErrInvalidOptions, opts.FooterHeight)
	}

	tf, err := loadTypeface()
	if err != nil {
		return nil, err
	}
	return &Pipeline{opts: opts, typeface: tf}, nil
}

// Options returns the pipeline geometry.
func (p *Pipeline) Options() Options { return p.opts }

// Render runs painter on a fresh canvas. A panicking painter is reported
// as ErrRenderFailed rather than taking down the caller.
func (p *Pipeline) Render(painter Painter, balance decimal.Decimal) (*Frame, error) {
	return p.render(painter, balance, false)
}

// Preview renders like Render on a preview canvas, leaving the promotion
// rotation where it is.
func (p *Pipeline) Preview(painter Painter, balance decimal.Decimal) (*Frame, error) {
	return p.render(painter, balance, true)
}

func (p *Pipeline) render(painter Painter, balance decimal.Decimal, preview bool) (frame *Frame, err error) {
	if painter == nil {
		return nil, ErrNoPainter
	}

	c := newCanvas(p.opts.Width, p.opts.Height, p.opts.FooterHeight, p.typeface)
	c.preview = preview

	defer func() {
		if r := recover(); r != nil {
			frame = nil
			err = fmt.Errorf("%w: %v", ErrRenderFailed, r)
		}
	}()

	painter.Paint(c, balance)
	return &Frame{img: c.img}, nil
}
