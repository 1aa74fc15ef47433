// Package mtexport writes rendered blocks out as HTML or JSON.
package mtexport

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image/png"
	"strconv"
	"strings"

	"cdr.dev/slog"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"oss.terrastruct.com/util-go/xdefer"

	"oss.terrastruct.com/mathtext/lib/color"
	"oss.terrastruct.com/mathtext/lib/fontmetric"
	"oss.terrastruct.com/mathtext/lib/log"
	"oss.terrastruct.com/mathtext/lib/version"
	"oss.terrastruct.com/mathtext/mtast"
	"oss.terrastruct.com/mathtext/mtrender"
	"oss.terrastruct.com/mathtext/mttarget"
)

// Fallback selects what is shown for an equation without a usable render.
type Fallback int

const (
	FallbackOriginal Fallback = iota
	FallbackError
	FallbackNone
)

func (f Fallback) String() string {
	switch f {
	case FallbackError:
		return "error"
	case FallbackNone:
		return "none"
	default:
		return "original"
	}
}

func ParseFallback(s string) (Fallback, error) {
	switch s {
	case "", "original":
		return FallbackOriginal, nil
	case "error":
		return FallbackError, nil
	case "none":
		return FallbackNone, nil
	}
	return 0, fmt.Errorf("unknown fallback %q, expected original, error or none", s)
}

type Options struct {
	Fallback Fallback
	// ShowEngineErrors shows the engine's own drawing of a TeX error when it made one.
	ShowEngineErrors bool

	// Raster embeds equations as PNG images drawn by Renderer instead of inline SVG.
	Raster   bool
	Renderer *mtrender.Renderer
	Scale    float64

	Metrics fontmetric.Metrics
	// Color is the text and equation ink color.
	Color string

	// Document wraps the output in a standalone HTML page.
	Document bool
	Title    string
}

type exporter struct {
	ctx  context.Context
	opts Options
	buf  bytes.Buffer

	errorBackground string
}

// HTML renders blocks. Inline blocks become paragraphs and display equations become
// centered divs.
func HTML(ctx context.Context, blocks []mtast.Block, opts Options) (_ []byte, err error) {
	defer xdefer.Errorf(&err, "failed to export HTML")

	if opts.Metrics.XHeight == 0 {
		opts.Metrics, err = fontmetric.Default(16)
		if err != nil {
			return nil, err
		}
	}
	if opts.Scale == 0 {
		opts.Scale = 1
	}
	if opts.Raster && opts.Renderer == nil {
		return nil, fmt.Errorf("raster output needs a renderer")
	}

	e := &exporter{ctx: ctx, opts: opts}
	e.errorBackground, err = color.Tint("red", 0.85)
	if err != nil {
		return nil, err
	}

	if opts.Document {
		err = e.header()
		if err != nil {
			return nil, err
		}
	}
	for _, b := range blocks {
		err = e.block(b)
		if err != nil {
			return nil, err
		}
	}
	if opts.Document {
		e.buf.WriteString("</body>\n</html>\n")
	}
	return e.buf.Bytes(), nil
}

func (e *exporter) header() error {
	ink := color.Black
	background := "#ffffff"
	if e.opts.Color != "" {
		var err error
		ink, err = color.Hex(e.opts.Color)
		if err != nil {
			return err
		}
		dark, err := color.IsDark(ink)
		if err != nil {
			return err
		}
		if !dark {
			background = "#1e1e1e"
		}
	}
	title := e.opts.Title
	if title == "" {
		title = "mathtext"
	}
	fmt.Fprintf(&e.buf, `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8"/>
<meta name="generator" content="mathtext %s"/>
<title>%s</title>
<style>
body { color: %s; background: %s; font-size: %spt; line-height: 1.5; }
.mt-block { text-align: center; margin: 1em 0; }
.mt-error { background: %s; }
</style>
</head>
<body>
`, version.Version, html.EscapeString(title), ink, background, formatFloat(e.opts.Metrics.Size), e.errorBackground)
	return nil
}

func (e *exporter) block(b mtast.Block) error {
	if b.IsEquation() {
		e.buf.WriteString(`<div class="mt-block">`)
	} else {
		e.buf.WriteString(`<p class="mt-inline">`)
	}
	for _, s := range b.Segments {
		if !s.IsEquation() {
			text, err := inlineMarkdown(s.Text)
			if err != nil {
				return err
			}
			e.buf.WriteString(text)
			continue
		}
		err := e.equation(s)
		if err != nil {
			return err
		}
	}
	if b.IsEquation() {
		e.buf.WriteString("</div>\n")
	} else {
		e.buf.WriteString("</p>\n")
	}
	return nil
}

func (e *exporter) equation(s mtast.Segment) error {
	switch s.State() {
	case mtast.Rendered:
		return e.render(s, *s.Result)
	case mtast.Errored:
		if e.opts.ShowEngineErrors && s.Result.SVG != "" {
			return e.render(s, *s.Result)
		}
		e.fallback(s, s.Result.ErrorText)
	default:
		e.fallback(s, "")
	}
	return nil
}

func (e *exporter) fallback(s mtast.Segment, errorText string) {
	switch e.opts.Fallback {
	case FallbackNone:
	case FallbackError:
		if errorText != "" {
			fmt.Fprintf(&e.buf, `<span class="mt-error" title="%s">%s</span>`, html.EscapeString(s.Source()), html.EscapeString(errorText))
			return
		}
		fallthrough
	default:
		fmt.Fprintf(&e.buf, `<span class="mt-source">%s</span>`, html.EscapeString(html.UnescapeString(s.Source())))
	}
}

func (e *exporter) render(s mtast.Segment, res mttarget.RenderResult) error {
	xh := e.opts.Metrics.XHeight
	w, h := res.Geometry.Size(xh)
	valign := res.Geometry.Baseline(xh)
	if !s.IsInline() {
		valign = 0
	}

	if e.opts.Raster {
		img, err := e.opts.Renderer.Image(e.ctx, res, e.opts.Metrics, e.opts.Scale)
		if err != nil {
			log.Warn(e.ctx, "failed to rasterize equation", slog.F("range", s.Range), slog.Error(err))
			e.fallback(s, res.ErrorText)
			return nil
		}
		var buf bytes.Buffer
		err = png.Encode(&buf, img)
		if err != nil {
			return err
		}
		fmt.Fprintf(&e.buf, `<img class="mt-equation" alt="%s" src="data:image/png;base64,%s" style="width: %spt; height: %spt; vertical-align: %spt;"/>`,
			html.EscapeString(s.Text), base64.StdEncoding.EncodeToString(buf.Bytes()), formatFloat(w), formatFloat(h), formatFloat(valign))
		return nil
	}

	svg, err := sizeSVG(res.SVG, w, h, valign)
	if err != nil {
		log.Warn(e.ctx, "failed to embed equation", slog.F("range", s.Range), slog.Error(err))
		e.fallback(s, res.ErrorText)
		return nil
	}
	if e.opts.Color != "" {
		svg, err = color.Colorize(svg, e.opts.Color)
		if err != nil {
			return err
		}
	}
	e.buf.WriteString(svg)
	return nil
}

// sizeSVG returns the root svg element of markup sized in points.
func sizeSVG(markup string, w, h, valign float64) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", err
	}
	sel := doc.Find("svg").First()
	if sel.Length() == 0 {
		return "", &mttarget.ParsingError{Err: mttarget.ErrMissingSVGElement}
	}
	sel.SetAttr("width", formatFloat(w)+"pt")
	sel.SetAttr("height", formatFloat(h)+"pt")
	sel.SetAttr("style", "vertical-align: "+formatFloat(valign)+"pt;")
	return goquery.OuterHtml(sel)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
