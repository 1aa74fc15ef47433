package mtcli

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"time"

	"cdr.dev/slog"
	"github.com/spf13/pflag"

	"oss.terrastruct.com/util-go/go2"
	"oss.terrastruct.com/util-go/xdefer"
	"oss.terrastruct.com/util-go/xmain"

	"oss.terrastruct.com/mathtext/lib/color"
	"oss.terrastruct.com/mathtext/lib/fontmetric"
	"oss.terrastruct.com/mathtext/lib/log"
	"oss.terrastruct.com/mathtext/lib/rendercache"
	"oss.terrastruct.com/mathtext/lib/version"
	"oss.terrastruct.com/mathtext/lib/xbrowser"
	"oss.terrastruct.com/mathtext/mtast"
	"oss.terrastruct.com/mathtext/mtexport"
	"oss.terrastruct.com/mathtext/mtlib"
	"oss.terrastruct.com/mathtext/mtrender"
	"oss.terrastruct.com/mathtext/mtrenderers/mtlatex"
	"oss.terrastruct.com/mathtext/mtrenderers/mtraster"
	"oss.terrastruct.com/mathtext/mttarget"
)

var formats = []string{"html", "json"}

var rasterizers = []string{"oksvg", "playwright"}

func Run(ctx context.Context, ms *xmain.State) (err error) {
	ctx = log.Stderr(ctx, ms.Stderr)
	// These should be kept up-to-date with help.go
	watchFlag, err := ms.Opts.Bool("MATHTEXT_WATCH", "watch", "w", false, "watch for changes to input and render again.")
	if err != nil {
		return err
	}
	debugFlag, err := ms.Opts.Bool("DEBUG", "debug", "d", false, "print debug logs.")
	if err != nil {
		ms.Log.Warn.Printf("Invalid DEBUG flag value ignored")
		debugFlag = go2.Pointer(false)
	}
	mathjaxFlag := ms.Opts.String("MATHTEXT_MATHJAX", "mathjax", "m", "", "path to the MathJax bundle. Bundles ending in .gz or .br are decompressed. Equations are left unrendered without one")
	formatFlag := ms.Opts.String("MATHTEXT_FORMAT", "format", "f", "", "output format, html or json. Defaults to the output file extension and then html")
	fontFlag := ms.Opts.String("MATHTEXT_FONT", "font", "", "", "path to the TrueType font equations are sized against. Defaults to Go Regular")
	fontSizeFlag, err := ms.Opts.Float64("MATHTEXT_FONT_SIZE", "font-size", "", 16, "font size in points")
	if err != nil {
		return err
	}
	rasterFlag, err := ms.Opts.Bool("MATHTEXT_RASTER", "raster", "r", false, "embed equations as PNG images instead of SVG")
	if err != nil {
		return err
	}
	rasterizerFlag := ms.Opts.String("MATHTEXT_RASTERIZER", "rasterizer", "", "oksvg", "rasterizer used with --raster, oksvg or playwright")
	scaleFlag, err := ms.Opts.Float64("MATHTEXT_SCALE", "scale", "", 2, "pixels per point of raster equations")
	if err != nil {
		return err
	}
	colorFlag := ms.Opts.String("MATHTEXT_COLOR", "color", "c", "", "CSS color of text and equations")
	processEscapesFlag, err := ms.Opts.Bool("MATHTEXT_PROCESS_ESCAPES", "process-escapes", "", true, "let the TeX engine process \\$ escapes inside equations")
	if err != nil {
		return err
	}
	suppressErrorsFlag, err := ms.Opts.Bool("MATHTEXT_SUPPRESS_ERRORS", "suppress-errors", "", true, "load the noerrors and noundefined TeX packages so MathJax draws bad TeX instead of reporting an error")
	if err != nil {
		return err
	}
	fallbackFlag := ms.Opts.String("MATHTEXT_FALLBACK", "fallback", "", "original", "shown for equations that fail to render: original, error or none")
	engineErrorsFlag, err := ms.Opts.Bool("MATHTEXT_ENGINE_ERRORS", "engine-errors", "", false, "show the engine's own drawing of TeX errors")
	if err != nil {
		return err
	}
	documentFlag, err := ms.Opts.Bool("MATHTEXT_DOCUMENT", "document", "", true, "wrap HTML output in a standalone page")
	if err != nil {
		return err
	}
	utf16Flag, err := ms.Opts.Bool("MATHTEXT_UTF16", "utf16", "", false, "count range columns in UTF-16 code units")
	if err != nil {
		return err
	}
	cacheSizeFlag, err := ms.Opts.Int64("MATHTEXT_CACHE_SIZE", "cache-size", "", 0, "maximum number of renders kept in each cache. 0 is unbounded")
	if err != nil {
		return err
	}
	timeoutFlag, err := ms.Opts.Int64("MATHTEXT_TIMEOUT", "timeout", "", 120, "the maximum number of seconds mathtext runs for before timing out")
	if err != nil {
		return err
	}
	browserFlag, err := ms.Opts.Bool("MATHTEXT_BROWSER", "browser", "b", false, "open HTML output in the browser. $BROWSER overrides the system default")
	if err != nil {
		return err
	}
	versionFlag, err := ms.Opts.Bool("", "version", "v", false, "get the version")
	if err != nil {
		return err
	}

	err = ms.Opts.Flags.Parse(ms.Opts.Args)
	if !errors.Is(err, pflag.ErrHelp) && err != nil {
		return xmain.UsageErrorf("failed to parse flags: %v", err)
	}

	if errors.Is(err, pflag.ErrHelp) {
		help(ms)
		return nil
	}

	if *debugFlag {
		ctx = log.Leveled(ctx, slog.LevelDebug)
	}

	if len(ms.Opts.Flags.Args()) > 0 {
		switch ms.Opts.Flags.Arg(0) {
		case "segments":
			return segmentsCmd(ctx, ms, *utf16Flag)
		case "version":
			if len(ms.Opts.Flags.Args()) > 1 {
				return xmain.UsageErrorf("version subcommand accepts no arguments")
			}
			fmt.Fprintf(ms.Stdout, "%s\n", version.Version)
			return nil
		}
	}

	if len(ms.Opts.Flags.Args()) == 0 {
		if versionFlag != nil && *versionFlag {
			fmt.Fprintf(ms.Stdout, "%s\n", version.Version)
			return nil
		}
		help(ms)
		return nil
	} else if len(ms.Opts.Flags.Args()) >= 3 {
		return xmain.UsageErrorf("too many arguments passed")
	}

	inputPath := ms.Opts.Flags.Arg(0)
	var outputPath string
	if len(ms.Opts.Flags.Args()) >= 2 {
		outputPath = ms.Opts.Flags.Arg(1)
	}

	format, err := outputFormat(*formatFlag, outputPath)
	if err != nil {
		return xmain.UsageErrorf("%v", err)
	}
	if outputPath == "" {
		if inputPath == "-" {
			outputPath = "-"
		} else {
			outputPath = renameExt(inputPath, "."+format)
		}
	}
	if inputPath != "-" {
		inputPath = ms.AbsPath(inputPath)
	}
	if outputPath != "-" {
		outputPath = ms.AbsPath(outputPath)
	}
	if inputPath == outputPath && inputPath != "-" {
		return xmain.UsageErrorf("output would overwrite input %s", ms.HumanPath(inputPath))
	}

	fallback, err := mtexport.ParseFallback(*fallbackFlag)
	if err != nil {
		return xmain.UsageErrorf("--fallback: %v", err)
	}
	if *colorFlag != "" {
		_, err = color.Hex(*colorFlag)
		if err != nil {
			return xmain.UsageErrorf("--color: %v", err)
		}
	}
	if *fontSizeFlag <= 0 {
		return xmain.UsageErrorf("--font-size must be positive.\nYou provided: %v", *fontSizeFlag)
	}
	if *scaleFlag <= 0 {
		return xmain.UsageErrorf("--scale must be positive.\nYou provided: %v", *scaleFlag)
	}
	if !go2.Contains(rasterizers, *rasterizerFlag) {
		return xmain.UsageErrorf("--rasterizer must be one of %s.\nYou provided: %s", strings.Join(rasterizers, ", "), *rasterizerFlag)
	}
	if *cacheSizeFlag < 0 {
		return xmain.UsageErrorf("--cache-size cannot be negative")
	}
	if *watchFlag && inputPath == "-" {
		return xmain.UsageErrorf("-w[atch] cannot be combined with reading input from stdin")
	}
	if *browserFlag && (outputPath == "-" || format != "html") {
		return xmain.UsageErrorf("-b[rowser] needs an HTML output file")
	}

	metrics, err := loadMetrics(ms, *fontFlag, *fontSizeFlag)
	if err != nil {
		return err
	}
	ms.Log.Debug.Printf("font size %vpt, x-height %vpt", metrics.Size, metrics.XHeight)

	engineOpts := mtlatex.DefaultOptions()
	engineOpts.ProcessEscapes = *processEscapesFlag
	engineOpts = engineOpts.SuppressErrors(*suppressErrorsFlag)

	renderOpts := mtrender.Options{
		SVGCache:      rendercache.New[mttarget.RenderResult](int(*cacheSizeFlag)),
		ImageCache:    rendercache.New[image.Image](int(*cacheSizeFlag)),
		EngineOptions: engineOpts,
		Color:         *colorFlag,
	}
	bundlePath := *mathjaxFlag
	if bundlePath != "" {
		bundlePath = ms.AbsPath(bundlePath)
	}
	engine, err := mtlatex.New(ctx, mtlatex.Config{
		BundlePath: bundlePath,
		Stderr:     ms.Stderr,
	})
	if err != nil {
		if !errors.Is(err, mtlatex.ErrEngineUnavailable) {
			return err
		}
		ms.Log.Warn.Printf("equations will not be rendered: %v", err)
	} else {
		renderOpts.Engine = engine
	}

	if *rasterFlag && format == "html" {
		switch *rasterizerFlag {
		case "playwright":
			var pw *mtraster.Playwright
			pw, err = mtraster.NewPlaywright(ctx)
			if err != nil {
				return err
			}
			defer func() {
				cleanupErr := pw.Close()
				if err == nil {
					err = cleanupErr
				}
			}()
			pw.Color = *colorFlag
			renderOpts.Rasterizer = pw
		default:
			renderOpts.Rasterizer = mtraster.OKSVG{Color: *colorFlag}
		}
		ms.Log.Debug.Printf("rasterizing equations with %s", *rasterizerFlag)
	}
	renderer := mtrender.New(renderOpts)

	title := "mathtext"
	if inputPath != "-" {
		title = filepath.Base(inputPath)
	}
	opts := compileOpts{
		browser:  *browserFlag,
		format:   format,
		utf16:    *utf16Flag,
		renderer: renderer,
		export: mtexport.Options{
			Fallback:         fallback,
			ShowEngineErrors: *engineErrorsFlag,
			Raster:           *rasterFlag,
			Renderer:         renderer,
			Scale:            *scaleFlag,
			Metrics:          metrics,
			Color:            *colorFlag,
			Document:         *documentFlag,
			Title:            title,
		},
	}

	if *watchFlag {
		ms.Log.SetTS(true)
		w, err := newWatcher(ctx, ms, watcherOpts{
			compileOpts: opts,
			inputPath:   inputPath,
			outputPath:  outputPath,
		})
		if err != nil {
			return err
		}
		return w.run()
	}

	ctx, cancel := log.WithTimeout(ctx, time.Duration(*timeoutFlag)*time.Second)
	defer cancel()

	t := time.Now()
	written, err := compile(ctx, ms, opts, inputPath, outputPath)
	if err != nil {
		if written {
			return fmt.Errorf("failed to fully compile %s (partial output written): %w", ms.HumanPath(inputPath), err)
		}
		return fmt.Errorf("failed to compile %s: %w", ms.HumanPath(inputPath), err)
	}
	dur := time.Since(t)
	ms.Log.Success.Printf("successfully compiled %s to %s in %s", ms.HumanPath(inputPath), ms.HumanPath(outputPath), dur)
	if opts.browser {
		openBrowser(ctx, ms, outputPath)
	}
	return nil
}

func openBrowser(ctx context.Context, ms *xmain.State, outputPath string) {
	u := xbrowser.FileURL(outputPath)
	err := xbrowser.OpenURL(ctx, ms.Env, u)
	if err != nil {
		ms.Log.Warn.Printf("failed to open browser to %v: %v", u, err)
	}
}

type compileOpts struct {
	browser  bool
	format   string
	utf16    bool
	renderer *mtrender.Renderer
	export   mtexport.Options
}

// compile renders inputPath to outputPath. Nothing is written once ctx is done. written is
// true when output was written despite blocks left unrendered.
func compile(ctx context.Context, ms *xmain.State, opts compileOpts, inputPath, outputPath string) (written bool, _ error) {
	input, err := ms.ReadPath(inputPath)
	if err != nil {
		return false, err
	}

	path := ""
	if inputPath != "-" {
		path = ms.HumanPath(inputPath)
	}
	blocks, renderErr := mtlib.Compile(ctx, string(input), &mtlib.CompileOptions{
		Path:     path,
		UTF16:    opts.utf16,
		Renderer: opts.renderer,
	})
	if blocks == nil && renderErr != nil {
		return false, renderErr
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	log.Debug(ctx, "compiled", slog.F("blocks", len(blocks)), slog.F("stats", opts.renderer.Stats()))

	out, err := export(ctx, blocks, opts)
	if err != nil {
		return false, err
	}
	err = ms.WritePath(outputPath, out)
	if err != nil {
		return false, err
	}
	return renderErr != nil, renderErr
}

func export(ctx context.Context, blocks []mtast.Block, opts compileOpts) ([]byte, error) {
	switch opts.format {
	case "json":
		return mtexport.JSON(blocks)
	default:
		return mtexport.HTML(ctx, blocks, opts.export)
	}
}

func segmentsCmd(ctx context.Context, ms *xmain.State, utf16 bool) (err error) {
	defer xdefer.Errorf(&err, "failed to segment")

	args := ms.Opts.Flags.Args()[1:]
	if len(args) == 0 {
		return xmain.UsageErrorf("segments must be passed an input file or -")
	} else if len(args) > 2 {
		return xmain.UsageErrorf("too many arguments passed")
	}
	inputPath := args[0]
	outputPath := "-"
	if len(args) == 2 {
		outputPath = args[1]
	}
	path := ""
	if inputPath != "-" {
		inputPath = ms.AbsPath(inputPath)
		path = ms.HumanPath(inputPath)
	}
	if outputPath != "-" {
		outputPath = ms.AbsPath(outputPath)
	}

	input, err := ms.ReadPath(inputPath)
	if err != nil {
		return err
	}
	blocks, err := mtlib.Compile(ctx, string(input), &mtlib.CompileOptions{
		Path:  path,
		UTF16: utf16,
	})
	if err != nil {
		return err
	}
	out, err := mtexport.JSON(blocks)
	if err != nil {
		return err
	}
	return ms.WritePath(outputPath, out)
}

func outputFormat(formatFlag, outputPath string) (string, error) {
	if formatFlag != "" {
		if !go2.Contains(formats, formatFlag) {
			return "", fmt.Errorf("--format must be one of %s.\nYou provided: %s", strings.Join(formats, ", "), formatFlag)
		}
		return formatFlag, nil
	}
	if strings.EqualFold(filepath.Ext(outputPath), ".json") {
		return "json", nil
	}
	return "html", nil
}

func loadMetrics(ms *xmain.State, fontPath string, size float64) (fontmetric.Metrics, error) {
	if fontPath == "" {
		return fontmetric.Default(size)
	}
	ttf, err := ms.ReadPath(ms.AbsPath(fontPath))
	if err != nil {
		return fontmetric.Metrics{}, err
	}
	m, err := fontmetric.FromTTF(ttf, size)
	if err != nil {
		return fontmetric.Metrics{}, fmt.Errorf("failed to load font %s: %w", ms.HumanPath(fontPath), err)
	}
	return m, nil
}

// newExt must include leading .
func renameExt(fp string, newExt string) string {
	ext := filepath.Ext(fp)
	if ext == "" {
		return fp + newExt
	} else {
		return strings.TrimSuffix(fp, ext) + newExt
	}
}
