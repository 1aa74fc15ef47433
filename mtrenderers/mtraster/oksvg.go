package mtraster

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"oss.terrastruct.com/mathtext/lib/color"
)

// OKSVG rasterizes in process. It handles the path and group subset of SVG MathJax
// emits when its font cache is disabled.
type OKSVG struct {
	// Color replaces currentColor. Defaults to black.
	Color string
	// Strict fails on SVG elements oksvg cannot draw instead of skipping them.
	Strict bool
}

var _ Rasterizer = OKSVG{}

func (o OKSVG) Rasterize(ctx context.Context, svg string, width, height, scale float64) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w, h, err := PixelSize(width, height, scale)
	if err != nil {
		return nil, err
	}
	svg, err = ExtractSVG(svg)
	if err != nil {
		return nil, err
	}
	c := o.Color
	if c == "" {
		c = color.Black
	}
	svg, err = color.Colorize(svg, c)
	if err != nil {
		return nil, err
	}

	mode := oksvg.IgnoreErrorMode
	if o.Strict {
		mode = oksvg.StrictErrorMode
	}
	icon, err := oksvg.ReadIconStream(strings.NewReader(svg), mode)
	if err != nil {
		return nil, fmt.Errorf("failed to parse svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(w), float64(h))

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	raster := rasterx.NewDasher(w, h, scanner)
	icon.Draw(raster, 1)
	return img, nil
}
