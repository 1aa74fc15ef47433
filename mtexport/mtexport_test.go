package mtexport_test

import (
	"context"
	"encoding/json"
	"image"
	"strings"
	"testing"

	"cdr.dev/slog/sloggers/slogtest"
	tassert "github.com/stretchr/testify/assert"

	"oss.terrastruct.com/util-go/assert"

	"oss.terrastruct.com/mathtext/lib/fontmetric"
	"oss.terrastruct.com/mathtext/lib/log"
	"oss.terrastruct.com/mathtext/lib/version"
	"oss.terrastruct.com/mathtext/mtast"
	"oss.terrastruct.com/mathtext/mtblock"
	"oss.terrastruct.com/mathtext/mtexport"
	"oss.terrastruct.com/mathtext/mtparser"
	"oss.terrastruct.com/mathtext/mtrender"
	"oss.terrastruct.com/mathtext/mttarget"
)

const eqSVG = `<mjx-container class="MathJax" jax="SVG"><svg style="vertical-align: -0.5ex;" xmlns="http://www.w3.org/2000/svg" width="2ex" height="3ex" viewBox="0 -1000 900 1300"><path fill="currentColor" d="M0 0"></path></svg></mjx-container>`

var metrics = fontmetric.Metrics{Size: 16, XHeight: 8}

func result(errorText string) mttarget.RenderResult {
	g, _ := mttarget.ParseGeometry(eqSVG)
	return mttarget.RenderResult{SVG: eqSVG, Geometry: g, ErrorText: errorText}
}

func withResults(blocks []mtast.Block, res func(s mtast.Segment) *mttarget.RenderResult) []mtast.Block {
	out := make([]mtast.Block, len(blocks))
	for i, b := range blocks {
		segs := make([]mtast.Segment, len(b.Segments))
		for j, s := range b.Segments {
			segs[j] = s
			if s.IsEquation() {
				if r := res(s); r != nil {
					segs[j] = s.WithResult(*r)
				}
			}
		}
		out[i] = mtast.Block{Segments: segs}
	}
	return out
}

func TestHTML(t *testing.T) {
	t.Parallel()

	ctx := log.WithTB(context.Background(), t, nil)
	blocks := mtblock.Group(mtparser.Segment(`Cost *is* \$5 &amp; $x$ more \[y\] end`))
	blocks = withResults(blocks, func(s mtast.Segment) *mttarget.RenderResult {
		r := result("")
		return &r
	})

	out, err := mtexport.HTML(ctx, blocks, mtexport.Options{Metrics: metrics, Color: "blue"})
	assert.Success(t, err)
	s := string(out)

	tassert.Contains(t, s, `<p class="mt-inline">Cost <em>is</em> $5 &amp; <svg`)
	tassert.Contains(t, s, `width="16pt"`)
	tassert.Contains(t, s, `height="24pt"`)
	tassert.Contains(t, s, `vertical-align: -4pt;`)
	tassert.Contains(t, s, `viewBox="0 -1000 900 1300"`)
	tassert.Contains(t, s, `fill="#0000ff"`)
	tassert.Contains(t, s, `<div class="mt-block"><svg`)
	tassert.Contains(t, s, `vertical-align: 0pt;`)
	tassert.Contains(t, s, `<p class="mt-inline"> end</p>`)
	tassert.NotContains(t, s, "mjx-container")
	tassert.NotContains(t, s, "<html>")
}

func TestHTMLFallback(t *testing.T) {
	t.Parallel()

	ctx := log.WithTB(context.Background(), t, nil)
	blocks := mtblock.Group(mtparser.Segment(`$a<b$ and $\bad$`))
	blocks = withResults(blocks, func(s mtast.Segment) *mttarget.RenderResult {
		if s.Text == `\bad` {
			r := result(`Undefined control sequence \bad`)
			return &r
		}
		return nil
	})

	testCases := []struct {
		name     string
		opts     mtexport.Options
		contains []string
		excludes []string
	}{
		{
			name:     "original",
			opts:     mtexport.Options{},
			contains: []string{`<span class="mt-source">$a&lt;b$</span>`, `<span class="mt-source">$\bad$</span>`},
			excludes: []string{"<svg", "mt-error"},
		},
		{
			name:     "error",
			opts:     mtexport.Options{Fallback: mtexport.FallbackError},
			contains: []string{`<span class="mt-source">$a&lt;b$</span>`, `<span class="mt-error" title="$\bad$">Undefined control sequence \bad</span>`},
		},
		{
			name:     "none",
			opts:     mtexport.Options{Fallback: mtexport.FallbackNone},
			contains: []string{`<p class="mt-inline"> and </p>`},
			excludes: []string{"mt-source", "mt-error"},
		},
		{
			name:     "engine_errors",
			opts:     mtexport.Options{ShowEngineErrors: true},
			contains: []string{`<span class="mt-source">$a&lt;b$</span>`, "<svg"},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			tc.opts.Metrics = metrics
			out, err := mtexport.HTML(ctx, blocks, tc.opts)
			assert.Success(t, err)
			for _, c := range tc.contains {
				tassert.Contains(t, string(out), c)
			}
			for _, c := range tc.excludes {
				tassert.NotContains(t, string(out), c)
			}
		})
	}
}

type fakeRasterizer struct{}

func (fakeRasterizer) Rasterize(ctx context.Context, svg string, width, height, scale float64) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, int(width*scale), int(height*scale))), nil
}

func TestHTMLRaster(t *testing.T) {
	t.Parallel()

	ctx := log.WithTB(context.Background(), t, &slogtest.Options{IgnoreErrors: true})
	blocks := withResults(mtblock.Group(mtparser.Segment(`$x$`)), func(s mtast.Segment) *mttarget.RenderResult {
		r := result("")
		return &r
	})

	r := mtrender.New(mtrender.Options{Rasterizer: fakeRasterizer{}})
	out, err := mtexport.HTML(ctx, blocks, mtexport.Options{
		Metrics:  metrics,
		Raster:   true,
		Renderer: r,
		Scale:    2,
	})
	assert.Success(t, err)
	tassert.Contains(t, string(out), `<img class="mt-equation" alt="x" src="data:image/png;base64,`)
	tassert.Contains(t, string(out), `width: 16pt; height: 24pt; vertical-align: -4pt;`)
	assert.Equal(t, 1, r.Stats().Image.Entries)

	_, err = mtexport.HTML(ctx, blocks, mtexport.Options{Raster: true})
	assert.ErrorString(t, err, "failed to export HTML: raster output needs a renderer")
}

func TestHTMLDocument(t *testing.T) {
	t.Parallel()

	ctx := log.WithTB(context.Background(), t, nil)
	out, err := mtexport.HTML(ctx, mtblock.Group(mtparser.Segment("hi")), mtexport.Options{
		Metrics:  metrics,
		Document: true,
		Title:    "a <b>",
		Color:    "white",
	})
	assert.Success(t, err)
	s := string(out)
	assert.True(t, strings.HasPrefix(s, "<!DOCTYPE html>"))
	tassert.Contains(t, s, "<title>a &lt;b&gt;</title>")
	tassert.Contains(t, s, `<meta name="generator" content="mathtext `+version.Version+`"/>`)
	tassert.Contains(t, s, "color: #ffffff; background: #1e1e1e; font-size: 16pt;")
	tassert.Contains(t, s, `<p class="mt-inline">hi</p>`)
	assert.True(t, strings.HasSuffix(s, "</html>\n"))
}

func TestParseFallback(t *testing.T) {
	t.Parallel()

	for _, f := range []mtexport.Fallback{mtexport.FallbackOriginal, mtexport.FallbackError, mtexport.FallbackNone} {
		got, err := mtexport.ParseFallback(f.String())
		assert.Success(t, err)
		assert.Equal(t, f, got)
	}
	_, err := mtexport.ParseFallback("loud")
	assert.ErrorString(t, err, `unknown fallback "loud", expected original, error or none`)
}

func TestJSON(t *testing.T) {
	t.Parallel()

	b, err := mtexport.JSON(nil)
	assert.Success(t, err)
	assert.String(t, "[]\n", string(b))

	blocks := mtblock.Group(mtparser.Segment(`a $x$`))
	b, err = mtexport.JSON(blocks)
	assert.Success(t, err)

	var got []mtast.Block
	assert.Success(t, json.Unmarshal(b, &got))
	tassert.Equal(t, blocks, got)
	tassert.Contains(t, string(b), `"kind": "inline_equation"`)
}
