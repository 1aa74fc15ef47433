// Package mtrender renders the equations of grouped blocks through a TeX engine and
// materializes them as images on demand.
package mtrender

import (
	"context"
	"errors"
	"fmt"
	"image"

	"cdr.dev/slog"
	"go.uber.org/multierr"

	"oss.terrastruct.com/mathtext/lib/color"
	"oss.terrastruct.com/mathtext/lib/fontmetric"
	"oss.terrastruct.com/mathtext/lib/log"
	"oss.terrastruct.com/mathtext/lib/rendercache"
	"oss.terrastruct.com/mathtext/mtast"
	"oss.terrastruct.com/mathtext/mtrenderers/mtlatex"
	"oss.terrastruct.com/mathtext/mtrenderers/mtraster"
	"oss.terrastruct.com/mathtext/mttarget"
)

// Engine converts TeX to SVG. *mtlatex.Engine implements it.
type Engine interface {
	TeX2SVG(ctx context.Context, tex string, display bool, opts mtlatex.EngineOptions) (mtlatex.Output, error)
}

var _ Engine = (*mtlatex.Engine)(nil)

var ErrNoRasterizer = errors.New("no rasterizer configured")

type Options struct {
	// Engine may be nil, in which case Render returns blocks unrendered.
	Engine     Engine
	Rasterizer mtraster.Rasterizer

	// Caches are created when nil. Share them between renderers to share results.
	SVGCache   *rendercache.Cache[mttarget.RenderResult]
	ImageCache *rendercache.Cache[image.Image]

	EngineOptions mtlatex.EngineOptions
	// Color replaces currentColor in rasterized equations.
	Color string
}

type Renderer struct {
	engine     Engine
	rasterizer mtraster.Rasterizer
	svgCache   *rendercache.Cache[mttarget.RenderResult]
	imageCache *rendercache.Cache[image.Image]
	engineOpts mtlatex.EngineOptions
	color      string
}

func New(opts Options) *Renderer {
	r := &Renderer{
		engine:     opts.Engine,
		rasterizer: opts.Rasterizer,
		svgCache:   opts.SVGCache,
		imageCache: opts.ImageCache,
		engineOpts: opts.EngineOptions.Normalize(),
		color:      opts.Color,
	}
	if r.svgCache == nil {
		r.svgCache = rendercache.New[mttarget.RenderResult](0)
	}
	if r.imageCache == nil {
		r.imageCache = rendercache.New[image.Image](0)
	}
	return r
}

// Available reports whether r has an engine to render with.
func (r *Renderer) Available() bool {
	return r.engine != nil
}

type svgKey struct {
	Text    string                `json:"text"`
	Display bool                  `json:"display"`
	Options mtlatex.EngineOptions `json:"options"`
}

// Render returns a copy of blocks with every equation segment carrying a RenderResult.
//
// A block whose equations cannot all be rendered is returned as it was given and the
// failure is included in the returned error. TeX errors reported by the engine are not
// failures: they are carried in RenderResult.ErrorText. Once ctx is done the remaining
// blocks are returned unrendered.
func (r *Renderer) Render(ctx context.Context, blocks []mtast.Block) ([]mtast.Block, error) {
	out := make([]mtast.Block, len(blocks))
	copy(out, blocks)
	if r.engine == nil {
		log.Debug(ctx, "no tex engine, leaving equations unrendered")
		return out, nil
	}

	var errs error
	for i, b := range blocks {
		if err := ctx.Err(); err != nil {
			errs = multierr.Append(errs, err)
			break
		}
		rb, err := r.renderBlock(ctx, b)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		out[i] = rb
	}
	log.Debug(ctx, "rendered blocks", slog.F("blocks", len(blocks)), slog.F("svg_cache", r.svgCache.Stats()))
	return out, errs
}

func (r *Renderer) renderBlock(ctx context.Context, b mtast.Block) (mtast.Block, error) {
	segs := make([]mtast.Segment, len(b.Segments))
	for i, s := range b.Segments {
		if !s.IsEquation() {
			segs[i] = s
			continue
		}
		res, err := r.RenderSegment(ctx, s)
		if err != nil {
			log.Warn(ctx, "failed to render equation", slog.F("range", s.Range), slog.F("tex", s.Text), slog.Error(err))
			return b, err
		}
		segs[i] = s.WithResult(res)
	}
	return mtast.Block{Segments: segs}, nil
}

// RenderSegment renders one equation segment through the SVG cache.
func (r *Renderer) RenderSegment(ctx context.Context, s mtast.Segment) (mttarget.RenderResult, error) {
	if r.engine == nil {
		return mttarget.RenderResult{}, mtlatex.ErrEngineUnavailable
	}
	if !s.IsEquation() {
		return mttarget.RenderResult{}, fmt.Errorf("%v is not an equation", s.Kind)
	}
	display := !s.IsInline()
	key := rendercache.Key(ctx, svgKey{
		Text:    s.Text,
		Display: display,
		Options: r.engineOpts,
	})
	return r.svgCache.GetOrCompute(ctx, key, func(ctx context.Context) (mttarget.RenderResult, error) {
		return r.convert(ctx, s.Text, display)
	})
}

func (r *Renderer) convert(ctx context.Context, tex string, display bool) (mttarget.RenderResult, error) {
	out, err := r.engine.TeX2SVG(ctx, tex, display, r.engineOpts)
	if err != nil {
		return mttarget.RenderResult{}, err
	}

	g, err := mttarget.ParseGeometry(out.SVG)
	if out.ConversionError != nil {
		res := mttarget.RenderResult{ErrorText: out.ConversionError.Error()}
		if err == nil {
			res.SVG = out.SVG
			res.Geometry = g
		}
		return res, nil
	}
	if err != nil {
		return mttarget.RenderResult{}, err
	}
	res := mttarget.RenderResult{
		SVG:      out.SVG,
		Geometry: g,
	}
	if !res.Valid() {
		return mttarget.RenderResult{}, fmt.Errorf("engine returned no output for %q", tex)
	}
	return res, nil
}

// Result of an asynchronous render.
type Result struct {
	Blocks []mtast.Block
	Err    error
}

// RenderAsync runs Render in a goroutine. The channel receives exactly one Result.
//
// Callers that start a new render for newer input can drop the channel of the old one.
// Each render produces its own block list so a stale result never aliases a fresh one.
func (r *Renderer) RenderAsync(ctx context.Context, blocks []mtast.Block) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		blocks, err := r.Render(ctx, blocks)
		ch <- Result{Blocks: blocks, Err: err}
	}()
	return ch
}

type imageKey struct {
	SVG     string  `json:"svg"`
	XHeight float64 `json:"xHeight"`
	Scale   float64 `json:"scale"`
	Color   string  `json:"color"`
}

// Image rasterizes res for a font with metrics m at the device scale.
func (r *Renderer) Image(ctx context.Context, res mttarget.RenderResult, m fontmetric.Metrics, scale float64) (image.Image, error) {
	if r.rasterizer == nil {
		return nil, ErrNoRasterizer
	}
	if res.SVG == "" {
		return nil, &mttarget.ParsingError{Err: mttarget.ErrMissingSVGElement}
	}
	key := rendercache.Key(ctx, imageKey{
		SVG:     res.SVG,
		XHeight: m.XHeight,
		Scale:   scale,
		Color:   r.color,
	})
	return r.imageCache.GetOrCompute(ctx, key, func(ctx context.Context) (image.Image, error) {
		svg, err := color.Colorize(res.SVG, r.color)
		if err != nil {
			return nil, err
		}
		w, h := res.Geometry.Size(m.XHeight)
		return r.rasterizer.Rasterize(ctx, svg, w, h, scale)
	})
}

func (r *Renderer) ClearSVGCache() {
	r.svgCache.Clear()
}

func (r *Renderer) ClearImageCache() {
	r.imageCache.Clear()
}

type Stats struct {
	SVG   rendercache.Stats `json:"svg"`
	Image rendercache.Stats `json:"image"`
}

func (r *Renderer) Stats() Stats {
	return Stats{
		SVG:   r.svgCache.Stats(),
		Image: r.imageCache.Stats(),
	}
}
