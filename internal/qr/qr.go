// Package qr encodes table ordering and payment links as QR code images.
package qr

import (
	"errors"
	"fmt"
	"image"
	"net/url"

	qrcode "github.com/skip2/go-qrcode"
)

// ErrInvalidSize is returned for a non-positive image size.
var ErrInvalidSize = errors.New("qr: size must be positive")

// Encoder renders QR codes at a fixed error-correction level.
type Encoder struct {
	level qrcode.RecoveryLevel
}

// NewEncoder returns an Encoder using medium (15%) error correction.
func NewEncoder() *Encoder {
	return &Encoder{level: qrcode.Medium}
}

// Encode returns a size x size black-on-white QR code for value, without
// the quiet-zone border so it fills the space reserved on the display.
func (e *Encoder) Encode(value string, size int) (image.Image, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	code, err := qrcode.New(value, e.level)
	if err != nil {
		return nil, fmt.Errorf("encoding %q: %w", value, err)
	}
	code.DisableBorder = true
	return code.Image(size), nil
}

// TableURL appends the table identifier to base as the "table" query
// parameter, e.g. "http://localhost:3001/order?table=7".
func TableURL(base, tableID string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing %q: %w", base, err)
	}
	q := u.Query()
	q.Set("table", tableID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
