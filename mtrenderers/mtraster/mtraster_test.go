package mtraster_test

import (
	"context"
	"image"
	"image/color"
	"testing"

	tassert "github.com/stretchr/testify/assert"

	"oss.terrastruct.com/util-go/assert"

	"oss.terrastruct.com/mathtext/mtrenderers/mtraster"
)

const square = `<mjx-container class="MathJax" jax="SVG"><svg style="vertical-align: 0ex;" xmlns="http://www.w3.org/2000/svg" width="1ex" height="1ex" viewBox="0 0 10 10"><g fill="currentColor" stroke="currentColor" stroke-width="0"><path d="M0 0 H10 V10 H0 Z"/></g></svg></mjx-container>`

func TestExtractSVG(t *testing.T) {
	t.Parallel()

	svg, err := mtraster.ExtractSVG(square)
	assert.Success(t, err)
	tassert.True(t, len(svg) > 0 && svg[:4] == "<svg")
	tassert.True(t, svg[len(svg)-6:] == "</svg>")

	svg, err = mtraster.ExtractSVG(`<p><svg width="1ex"/></p>`)
	assert.Success(t, err)
	assert.String(t, `<svg width="1ex"/>`, svg)

	_, err = mtraster.ExtractSVG("<p>no svg</p>")
	assert.ErrorString(t, err, mtraster.ErrEmptySVG.Error())
}

func TestPixelSize(t *testing.T) {
	t.Parallel()

	w, h, err := mtraster.PixelSize(10.2, 4, 2)
	assert.Success(t, err)
	assert.Equal(t, 21, w)
	assert.Equal(t, 8, h)

	w, h, err = mtraster.PixelSize(0, 0, 1)
	assert.Success(t, err)
	assert.Equal(t, 1, w)
	assert.Equal(t, 1, h)

	_, _, err = mtraster.PixelSize(1, 1, 0)
	assert.ErrorString(t, err, "invalid scale 0")
}

func TestOKSVG(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	img, err := mtraster.OKSVG{Color: "red"}.Rasterize(ctx, square, 10, 10, 2)
	assert.Success(t, err)
	assert.Equal(t, image.Rect(0, 0, 20, 20), img.Bounds())

	r, g, b, a := img.At(10, 10).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Equal(t, uint32(0), g)
	assert.Equal(t, uint32(0), b)
	assert.Equal(t, uint32(0xffff), a)

	img, err = mtraster.OKSVG{}.Rasterize(ctx, square, 10, 10, 1)
	assert.Success(t, err)
	tassert.Equal(t, color.RGBAModel.Convert(color.Black), color.RGBAModel.Convert(img.At(5, 5)))

	_, err = mtraster.OKSVG{Color: "nope"}.Rasterize(ctx, square, 10, 10, 1)
	assert.True(t, err != nil)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = mtraster.OKSVG{}.Rasterize(cctx, square, 10, 10, 1)
	assert.ErrorString(t, err, context.Canceled.Error())
}

func TestFit(t *testing.T) {
	t.Parallel()

	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	assert.True(t, mtraster.Fit(src, 4, 4) == image.Image(src))
	assert.Equal(t, image.Rect(0, 0, 8, 2), mtraster.Fit(src, 8, 2).Bounds())
}
