package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
)

// Frame is one rendered bitmap, ready to push to a display.
type Frame struct {
	img *image.RGBA
}

// Image returns the frame's pixels.
func (f *Frame) Image() image.Image { return f.img }

// PNG encodes the frame.
func (f *Frame) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, f.img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURL encodes the frame as a base64 PNG data URL, the form the fleet
// API expects in its content field.
func (f *Frame) DataURL() (string, error) {
	b, err := f.PNG()
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(b), nil
}
