package render

import (
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// TextStyle selects one of the fixed font faces used on the displays.
type TextStyle int

const (
	// StyleCaption is the footer caption and promotion title (bold 24px).
	StyleCaption TextStyle = iota
	// StyleBalance is the footer balance label (bold 20px).
	StyleBalance
	// StyleBody is secondary text such as "SCAN FOR" (20px).
	StyleBody
	// StyleHeadline is the help screen text (29px).
	StyleHeadline
)

type faceSpec struct {
	bold bool
	size float64
}

var faceSpecs = map[TextStyle]faceSpec{
	StyleCaption:  {bold: true, size: 24},
	StyleBalance:  {bold: true, size: 20},
	StyleBody:     {bold: false, size: 20},
	StyleHeadline: {bold: false, size: 29},
}

// typeface holds the parsed Go fonts. Parsed fonts are safe for
// concurrent use; the faces built from them are not, so every canvas
// builds its own.
type typeface struct {
	regular *opentype.Font
	bold    *opentype.Font
}

var loadTypeface = sync.OnceValues(func() (*typeface, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing bold font: %w", err)
	}
	return &typeface{regular: regular, bold: bold}, nil
})

// face returns a new face for spec, falling back to the fixed bitmap face.
func (t *typeface) face(spec faceSpec) font.Face {
	if t == nil {
		return basicfont.Face7x13
	}
	f := t.regular
	if spec.bold {
		f = t.bold
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    spec.size,
		DPI:     72, //nolint:mnd // 1pt == 1px
		Hinting: font.HintingFull,
	})
	if err != nil {
		return basicfont.Face7x13
	}
	return face
}
