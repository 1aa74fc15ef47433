// Package mtlatex converts TeX to SVG with MathJax running in an embedded JavaScript VM.
package mtlatex

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"
	"text/template"

	"cdr.dev/slog"

	"oss.terrastruct.com/util-go/xdefer"

	"oss.terrastruct.com/mathtext/lib/compression"
	"oss.terrastruct.com/mathtext/lib/env"
	"oss.terrastruct.com/mathtext/lib/jsrunner"
	"oss.terrastruct.com/mathtext/lib/log"
)

// ErrEngineUnavailable is wrapped by every error that leaves the engine unable to convert
// anything. Callers fall back to showing source text.
var ErrEngineUnavailable = errors.New("tex engine unavailable")

//go:embed setup.js.tmpl
var defaultSetup string

// ConversionError is a TeX error MathJax reported for one equation.
type ConversionError struct {
	Message string `json:"message"`
}

// Error returns the message, or "TeX error" when MathJax gave none.
func (e *ConversionError) Error() string {
	if e.Message == "" {
		return "TeX error"
	}
	return e.Message
}

type Output struct {
	SVG             string
	ConversionError *ConversionError
}

type Config struct {
	// Bundle is the MathJax JavaScript source. BundlePath is read when Bundle is empty,
	// defaulting to $MATHTEXT_MATHJAX. Paths ending in .gz or .br are decompressed.
	Bundle     string
	BundlePath string
	// Setup is a text/template executed with EngineOptions. It must define the global
	// function tex2svg(tex, display) returning SVG markup.
	Setup string
	// Polyfills run before the bundle.
	Polyfills string
	// Stderr receives console output from the VM. Defaults to os.Stderr.
	Stderr io.Writer
}

// Engine is safe for concurrent use. Conversions are serialized since the VM is single
// threaded.
type Engine struct {
	mu sync.Mutex

	bundle    string
	polyfills string
	setup     *template.Template
	stderr    io.Writer

	runner jsrunner.JSRunner
	opts   EngineOptions
}

// New loads the bundle and initializes the VM with DefaultOptions.
func New(ctx context.Context, cfg Config) (_ *Engine, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
		}
	}()

	bundle := cfg.Bundle
	if bundle == "" {
		path := cfg.BundlePath
		if path == "" {
			path = env.MathJax()
		}
		if path == "" {
			return nil, errors.New("no MathJax bundle configured")
		}
		bundle, err = readBundle(path)
		if err != nil {
			return nil, err
		}
	}

	setup := cfg.Setup
	if setup == "" {
		setup = defaultSetup
	}
	tmpl, err := template.New("setup.js").Funcs(template.FuncMap{
		"json": func(v interface{}) (string, error) {
			b, err := json.Marshal(v)
			return string(b), err
		},
	}).Parse(setup)
	if err != nil {
		return nil, fmt.Errorf("failed to parse setup template: %w", err)
	}

	e := &Engine{
		bundle:    bundle,
		polyfills: cfg.Polyfills,
		setup:     tmpl,
		stderr:    cfg.Stderr,
	}
	if e.stderr == nil {
		e.stderr = os.Stderr
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	err = e.init(ctx, DefaultOptions())
	if err != nil {
		return nil, err
	}
	log.Debug(ctx, "initialized tex engine", slog.F("bundle_bytes", len(bundle)))
	return e, nil
}

func readBundle(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	bundle, err := compression.Decompress(path, b)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return bundle, nil
}

// init builds a fresh VM configured with opts. e.mu must be held.
func (e *Engine) init(ctx context.Context, opts EngineOptions) (err error) {
	defer xdefer.Errorf(&err, "failed to initialize MathJax")

	e.runner = nil

	var setup strings.Builder
	err = e.setup.Execute(&setup, opts)
	if err != nil {
		return err
	}

	r := jsrunner.NewJSRunnerWriter(e.stderr)
	if e.polyfills != "" {
		if _, err := jsrunner.RunContext(ctx, r, "polyfills.js", e.polyfills); err != nil {
			return err
		}
	}
	if _, err := jsrunner.RunContext(ctx, r, "mathjax.js", e.bundle); err != nil {
		return err
	}
	if _, err := jsrunner.RunContext(ctx, r, "setup.js", setup.String()); err != nil {
		return err
	}
	if _, ok := r.Get("tex2svg"); !ok {
		return errors.New("setup did not define tex2svg")
	}

	e.runner = r
	e.opts = opts
	return nil
}

var mjxErrorRe = regexp.MustCompile(`data-mjx-error="([^"]*)"`)

// TeX2SVG converts tex. display selects display mode over inline mode.
//
// A TeX error MathJax can report is returned in Output.ConversionError, alongside whatever
// SVG MathJax drew for it. A returned error means the engine itself failed.
func (e *Engine) TeX2SVG(ctx context.Context, tex string, display bool, opts EngineOptions) (_ Output, err error) {
	defer xdefer.Errorf(&err, "failed to convert TeX")

	opts = opts.Normalize()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.runner == nil || !e.opts.equal(opts) {
		log.Debug(ctx, "reinitializing tex engine", slog.F("options", opts))
		err = e.init(ctx, opts)
		if err != nil {
			return Output{}, err
		}
	}

	err = e.runner.Set("__tex", tex)
	if err != nil {
		return Output{}, err
	}
	err = e.runner.Set("__display", display)
	if err != nil {
		return Output{}, err
	}
	v, err := jsrunner.RunContext(ctx, e.runner, "tex2svg.js", "tex2svg(__tex, __display)")
	if err != nil {
		if ctx.Err() != nil {
			// The VM may have been stopped halfway through MathJax state changes.
			e.runner = nil
		}
		return Output{}, err
	}

	out := Output{SVG: v.String()}
	if m := mjxErrorRe.FindStringSubmatch(out.SVG); m != nil {
		out.ConversionError = &ConversionError{Message: html.UnescapeString(m[1])}
	}
	return out, nil
}

// Options returns the options the VM is currently configured with.
func (e *Engine) Options() EngineOptions {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts
}
