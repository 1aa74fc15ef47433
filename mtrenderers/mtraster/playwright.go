package mtraster

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/multierr"

	"oss.terrastruct.com/util-go/xdefer"

	"oss.terrastruct.com/mathtext/lib/color"
	"oss.terrastruct.com/mathtext/lib/log"
)

//go:embed draw_svg.js
var drawSVGScript string

// Playwright rasterizes with headless Chromium, for SVG features oksvg does not draw.
type Playwright struct {
	// Color replaces currentColor. Chromium draws it as black otherwise.
	Color string

	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
}

var _ Rasterizer = &Playwright{}

// NewPlaywright starts Chromium, installing the driver and browser first if needed.
func NewPlaywright(ctx context.Context) (_ *Playwright, err error) {
	defer xdefer.Errorf(&err, "failed to start Playwright")

	pw, err := playwright.Run()
	if err != nil {
		log.Info(ctx, "installing Playwright driver and Chromium")
		err = playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}})
		if err != nil {
			return nil, err
		}
		pw, err = playwright.Run()
		if err != nil {
			return nil, err
		}
	}
	p := &Playwright{pw: pw}
	err = p.launch()
	if err != nil {
		return nil, multierr.Append(err, pw.Stop())
	}
	return p, nil
}

func (p *Playwright) launch() error {
	browser, err := p.pw.Chromium.Launch()
	if err != nil {
		return err
	}
	bctx, err := browser.NewContext()
	if err != nil {
		return multierr.Append(err, browser.Close())
	}
	page, err := bctx.NewPage()
	if err != nil {
		return multierr.Append(err, browser.Close())
	}
	p.browser = browser
	p.page = page
	return nil
}

// Restart replaces the browser, for when a page has crashed.
func (p *Playwright) Restart() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.browser.Close(); err != nil {
		return err
	}
	return p.launch()
}

func (p *Playwright) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return multierr.Combine(p.browser.Close(), p.pw.Stop())
}

func (p *Playwright) Rasterize(ctx context.Context, svg string, width, height, scale float64) (_ image.Image, err error) {
	defer xdefer.Errorf(&err, "failed to rasterize with Chromium")

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
	svg, err = color.Colorize(svg, p.Color)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.page == nil {
		return nil, fmt.Errorf("Playwright was not initialized properly")
	}

	src := "data:image/svg+xml;charset=utf-8;base64," + base64.StdEncoding.EncodeToString([]byte(svg))
	v, err := p.page.Evaluate(drawSVGScript, map[string]interface{}{
		"src":    src,
		"width":  w,
		"height": h,
	})
	if err != nil {
		return nil, err
	}

	pngString := fmt.Sprintf("%v", v)
	pngPrefix := "data:image/png;base64,"
	if !strings.HasPrefix(pngString, pngPrefix) {
		if len(pngString) > 50 {
			pngString = pngString[0:50] + "..."
		}
		return nil, fmt.Errorf("invalid PNG: %v", pngString)
	}
	b, err := base64.StdEncoding.DecodeString(pngString[len(pngPrefix):])
	if err != nil {
		return nil, err
	}
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	return Fit(img, w, h), nil
}
