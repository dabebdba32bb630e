package render

import (
	"image"
	"image/color"
	"strings"

	"github.com/shopspring/decimal"
)

// Footer geometry, in pixels, relative to the footer bar.
const (
	captionLineHeight = 28
	captionMargin     = 50 // horizontal space reserved around the caption
	captionDrop       = 10 // caption centre sits below the bar midline
	arrowInset        = 25 // caption shifts left by this when an arrow is drawn
	arrowStroke       = 5
	balanceInset      = 10
)

// Footer describes the caption bar at the bottom of every screen.
type Footer struct {
	Caption string

	// Invert draws dark text on a light bar instead of light on dark.
	Invert bool

	// Arrow draws a downward arrow near the right edge, pointing at the
	// physical button.
	Arrow bool
}

// DrawFooter paints f into the bottom FooterHeight pixels of the canvas
// and right-aligns the balance label in the bar's top margin.
func (c *Canvas) DrawFooter(f Footer, balance decimal.Decimal) {
	w, h := c.Width(), c.Height()
	bar := c.FooterHeight()
	top := h - bar

	var bg, fg color.Color = color.Black, color.White
	if f.Invert {
		bg, fg = color.White, color.Black
	}

	c.FillRect(image.Rect(0, top, w, h), bg)

	mid := float32(h) - float32(bar)/2 //nolint:mnd // bar midline
	if f.Arrow {
		fw := float32(w)
		c.Polyline([]Point{
			{X: fw - 25, Y: mid + 10},
			{X: fw - 37.5, Y: mid + 35},
			{X: fw - 50, Y: mid + 10},
		}, arrowStroke, fg)
		c.Polyline([]Point{
			{X: fw - 37.5, Y: mid + 35},
			{X: fw - 37.5, Y: mid - 15},
		}, arrowStroke, fg)
	}

	lines := WrapText(func(s string) int {
		return c.MeasureText(StyleCaption, s)
	}, f.Caption, w-captionMargin)

	x := w / 2 //nolint:mnd // centre
	if f.Arrow {
		x -= arrowInset
	}
	y := int(mid) + captionDrop - (len(lines)-1)*captionLineHeight/2 //nolint:mnd // centre the block
	for _, line := range lines {
		c.Text(StyleCaption, line, x, y, AlignCenter, BaselineMiddle, fg)
		y += captionLineHeight
	}

	c.Text(StyleBalance, FormatBalance(balance), w-balanceInset, top+balanceInset, AlignRight, BaselineTop, fg)
}

// WrapText greedily breaks text on spaces so each line measures at most
// maxWidth. A single word wider than maxWidth gets a line of its own.
func WrapText(measure func(string) int, text string, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	line := words[0]
	for _, word := range words[1:] {
		candidate := line + " " + word
		if measure(candidate) > maxWidth {
			lines = append(lines, line)
			line = word
			continue
		}
		line = candidate
	}
	return append(lines, line)
}

// FormatBalance renders the footer label, e.g. "Balance: $4.00".
// Amounts are rounded half away from zero to two places.
func FormatBalance(balance decimal.Decimal) string {
	return "Balance: $" + FormatAmount(balance)
}

// FormatAmount renders d with exactly two fractional digits.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2) //nolint:mnd // currency precision
}
