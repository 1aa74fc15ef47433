// Package mtraster turns equation SVG into bitmaps.
package mtraster

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"strings"

	"golang.org/x/image/draw"
)

// Rasterizer draws svg into an image of width*scale by height*scale pixels. width and
// height are in points.
type Rasterizer interface {
	Rasterize(ctx context.Context, svg string, width, height, scale float64) (image.Image, error)
}

var ErrEmptySVG = errors.New("no svg element to rasterize")

// ExtractSVG returns the outermost <svg> element of markup, dropping wrappers like the
// mjx-container MathJax emits.
func ExtractSVG(markup string) (string, error) {
	start := strings.Index(markup, "<svg")
	end := strings.LastIndex(markup, "</svg>")
	if start == -1 {
		return "", ErrEmptySVG
	}
	if end == -1 || end < start {
		// Self closing root.
		i := strings.Index(markup[start:], "/>")
		if i == -1 {
			return "", ErrEmptySVG
		}
		return markup[start : start+i+2], nil
	}
	return markup[start : end+len("</svg>")], nil
}

// PixelSize converts a size in points at scale to whole pixels, at least 1x1.
func PixelSize(width, height, scale float64) (int, int, error) {
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return 0, 0, fmt.Errorf("invalid scale %v", scale)
	}
	if width < 0 || height < 0 || math.IsNaN(width) || math.IsNaN(height) {
		return 0, 0, fmt.Errorf("invalid size %vx%v", width, height)
	}
	w := int(math.Ceil(width * scale))
	h := int(math.Ceil(height * scale))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h, nil
}

// Fit scales img to exactly w by h pixels.
func Fit(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
