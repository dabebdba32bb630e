package render

import (
	"image"
	"image/color"

	"github.com/shopspring/decimal"
)

// Painter draws one screen onto a canvas. Every painter finishes by
// calling Canvas.DrawFooter.
type Painter interface {
	Paint(c *Canvas, balance decimal.Decimal)
}

// PainterFunc adapts an ordinary function to the Painter interface.
type PainterFunc func(c *Canvas, balance decimal.Decimal)

// Paint calls f(c, balance).
func (f PainterFunc) Paint(c *Canvas, balance decimal.Decimal) { f(c, balance) }

// Footer captions of the stock screens.
const (
	CaptionPromo = "Press button to view menu"
	CaptionMenu  = "Press to pay, or hold for help"
	CaptionPay   = "Press for menu, or hold for help"
	CaptionHelp  = "Hold button to cancel help request"
)

const (
	noPromotionsText = "No promotions available"
	helpTitle        = "Help has been requested"
	helpBody         = "A member of our staff will be with you shortly"
	helpBodyWidth    = 390
	scanForText      = "SCAN FOR"

	promoTitleY = 100
	promoDescY  = 140
	promoEmptyY = 120
	scanForY    = 30
	qrTop       = 50
	qrLabelGap  = 20
	helpTitleY  = 73
	helpBodyY   = 145
)

// PromoPainter draws the next promotion from a shared rotation. Preview
// canvases peek at the rotation instead of advancing it.
type PromoPainter struct {
	rotation *Rotation
}

// NewPromoPainter creates a promotional screen painter over rotation.
func NewPromoPainter(rotation *Rotation) *PromoPainter {
	return &PromoPainter{rotation: rotation}
}

// Paint implements Painter.
func (p *PromoPainter) Paint(c *Canvas, balance decimal.Decimal) {
	c.Clear()
	cx := c.Width() / 2 //nolint:mnd // centre

	next := p.rotation.Next
	if c.Preview() {
		next = p.rotation.Peek
	}
	promo, ok := next()
	if ok {
		c.Text(StyleCaption, promo.Title, cx, promoTitleY, AlignCenter, BaselineAlphabetic, color.Black)
		c.Text(StyleBody, promo.Description, cx, promoDescY, AlignCenter, BaselineAlphabetic, color.Black)
	} else {
		c.Text(StyleCaption, noPromotionsText, cx, promoEmptyY, AlignCenter, BaselineAlphabetic, color.Black)
	}

	c.DrawFooter(Footer{Caption: CaptionPromo, Arrow: true}, balance)
}

// QRPainter draws a centred QR code between "SCAN FOR" and a label.
type QRPainter struct {
	code    image.Image
	label   string
	caption string
}

// NewMenuPainter draws the ordering QR code.
func NewMenuPainter(code image.Image) *QRPainter {
	return &QRPainter{code: code, label: "MENU", caption: CaptionMenu}
}

// NewPayPainter draws the payment QR code.
func NewPayPainter(code image.Image) *QRPainter {
	return &QRPainter{code: code, label: "PAY", caption: CaptionPay}
}

// Paint implements Painter.
func (p *QRPainter) Paint(c *Canvas, balance decimal.Decimal) {
	c.Clear()
	cx := c.Width() / 2 //nolint:mnd // centre

	c.Text(StyleBody, scanForText, cx, scanForY, AlignCenter, BaselineAlphabetic, color.Black)

	qrHeight := 0
	if p.code != nil {
		size := p.code.Bounds().Size()
		c.DrawImage(p.code, image.Pt((c.Width()-size.X)/2, qrTop)) //nolint:mnd // centre
		qrHeight = size.Y
	}

	c.Text(StyleBody, p.label, cx, qrTop+qrHeight+qrLabelGap, AlignCenter, BaselineAlphabetic, color.Black)

	c.DrawFooter(Footer{Caption: p.caption, Arrow: true}, balance)
}

// HelpPainter draws the help-requested notice.
type HelpPainter struct{}

// NewHelpPainter creates the help screen painter.
func NewHelpPainter() HelpPainter { return HelpPainter{} }

// Paint implements Painter.
func (HelpPainter) Paint(c *Canvas, balance decimal.Decimal) {
	c.Clear()
	cx := c.Width() / 2 //nolint:mnd // centre

	c.Text(StyleHeadline, helpTitle, cx, helpTitleY, AlignCenter, BaselineAlphabetic, color.Black)

	lines := WrapText(func(s string) int {
		return c.MeasureText(StyleHeadline, s)
	}, helpBody, helpBodyWidth)
	y := helpBodyY
	for _, line := range lines {
		c.Text(StyleHeadline, line, cx, y, AlignCenter, BaselineAlphabetic, color.Black)
		y += c.LineHeight(StyleHeadline)
	}

	c.DrawFooter(Footer{Caption: CaptionHelp, Arrow: true}, balance)
}
