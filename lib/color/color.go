// Package color parses CSS colors for equation ink and highlights.
package color

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/mazznoer/csscolorparser"
)

const (
	// CurrentColor is what MathJax fills and strokes glyphs with.
	CurrentColor = "currentColor"

	Black = "#000000"
)

// Hex returns colorString as #rrggbb. Alpha is dropped.
func Hex(colorString string) (string, error) {
	c, err := csscolorparser.Parse(colorString)
	if err != nil {
		return "", err
	}
	return colorful.Color{R: c.R, G: c.G, B: c.B}.Clamped().Hex(), nil
}

// Tint blends colorString towards white by amount in [0, 1].
func Tint(colorString string, amount float64) (string, error) {
	c, err := csscolorparser.Parse(colorString)
	if err != nil {
		return "", err
	}
	white := colorful.Color{R: 1, G: 1, B: 1}
	return colorful.Color{R: c.R, G: c.G, B: c.B}.BlendRgb(white, amount).Clamped().Hex(), nil
}

func Luminance(colorString string) (float64, error) {
	c, err := csscolorparser.Parse(colorString)
	if err != nil {
		return 0, err
	}

	l := float64(
		float64(0.299)*float64(c.R) +
			float64(0.587)*float64(c.G) +
			float64(0.114)*float64(c.B),
	)
	return l, nil
}

// IsDark reports whether text in colorString needs a light background to stay readable.
func IsDark(colorString string) (bool, error) {
	l, err := Luminance(colorString)
	if err != nil {
		return false, err
	}
	return l < .55, nil
}

// Colorize replaces currentColor in svg with colorString.
func Colorize(svg, colorString string) (string, error) {
	if colorString == "" || colorString == CurrentColor {
		return svg, nil
	}
	hex, err := Hex(colorString)
	if err != nil {
		return "", fmt.Errorf("invalid color %q: %w", colorString, err)
	}
	return strings.ReplaceAll(svg, CurrentColor, hex), nil
}
