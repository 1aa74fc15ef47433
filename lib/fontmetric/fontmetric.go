// Package fontmetric reads the font measurements equations are scaled by.
package fontmetric

import (
	"fmt"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

// Metrics of a font at a given size, in points.
type Metrics struct {
	Size    float64 `json:"size"`
	XHeight float64 `json:"xHeight"`
	Ascent  float64 `json:"ascent"`
	Descent float64 `json:"descent"`
}

// EM returns the size of one em in points.
func (m Metrics) EM() float64 {
	return m.Size
}

// FromTTF measures the TrueType font ttf at sizePt points.
//
// The x-height is the top of the glyph x. Fonts without one fall back to half an em.
func FromTTF(ttf []byte, sizePt float64) (Metrics, error) {
	if sizePt <= 0 {
		return Metrics{}, fmt.Errorf("invalid font size %v", sizePt)
	}
	f, err := truetype.Parse(ttf)
	if err != nil {
		return Metrics{}, fmt.Errorf("failed to parse font: %w", err)
	}
	// At the default 72 DPI one pixel is one point.
	face := truetype.NewFace(f, &truetype.Options{
		Size:    sizePt,
		Hinting: font.HintingNone,
	})
	defer face.Close()

	m := face.Metrics()
	xHeight := sizePt / 2
	if f.Index('x') != 0 {
		b, _, ok := face.GlyphBounds('x')
		if ok && b.Min.Y < 0 {
			xHeight = toFloat(-b.Min.Y)
		}
	}
	return Metrics{
		Size:    sizePt,
		XHeight: xHeight,
		Ascent:  toFloat(m.Ascent),
		Descent: toFloat(m.Descent),
	}, nil
}

// Default returns the metrics of Go Regular at sizePt points.
func Default(sizePt float64) (Metrics, error) {
	return FromTTF(goregular.TTF, sizePt)
}

func toFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
