package mtcli

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"oss.terrastruct.com/util-go/xmain"

	"oss.terrastruct.com/mathtext/lib/background"
)

type watcherOpts struct {
	compileOpts
	inputPath  string
	outputPath string
}

type watcher struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	ms *xmain.State
	watcherOpts

	compileCh chan struct{}
	// browserOpened is only accessed by compile.
	browserOpened bool

	fw *fsnotify.Watcher

	closeMu sync.Mutex
	closing bool

	errMu sync.Mutex
	err   error
}

func newWatcher(ctx context.Context, ms *xmain.State, opts watcherOpts) (*watcher, error) {
	ctx, cancel := context.WithCancel(ctx)

	w := &watcher{
		ctx:    ctx,
		cancel: cancel,

		ms:          ms,
		watcherOpts: opts,

		compileCh: make(chan struct{}, 1),
	}
	err := w.init()
	if err != nil {
		cancel()
		return nil, err
	}
	return w, nil
}

func (w *watcher) init() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fw = fw
	return nil
}

func (w *watcher) run() error {
	defer w.close()

	stop := background.Repeat(func() {
		s := w.renderer.Stats()
		w.ms.Log.Debug.Printf("svg cache: %d entries, %d hits, %d misses", s.SVG.Entries, s.SVG.Hits, s.SVG.Misses)
	}, time.Minute)
	defer stop()

	w.goFunc(w.watchLoop)
	w.goFunc(w.compileLoop)

	w.wg.Wait()
	w.close()
	return w.err
}

func (w *watcher) close() {
	w.closeMu.Lock()
	if w.closing {
		w.closeMu.Unlock()
		return
	}
	w.closing = true
	w.closeMu.Unlock()

	w.cancel()
	if w.fw != nil {
		err := w.fw.Close()
		w.setErr(err)
	}
}

func (w *watcher) setErr(err error) {
	w.errMu.Lock()
	if w.err == nil {
		w.err = err
	}
	w.errMu.Unlock()
}

func (w *watcher) goFunc(fn func(context.Context) error) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer w.cancel()

		err := fn(w.ctx)
		w.setErr(err)
	}()
}

// watchLoop requests a compile once events on the input stop arriving for 16ms. Editors
// often save with a burst of writes and chmods that should become one render.
func (w *watcher) watchLoop(ctx context.Context) error {
	lastModified, err := w.ensureAddWatch(ctx, w.inputPath)
	if err != nil {
		return err
	}
	w.ms.Log.Info.Printf("compiling %v...", w.ms.HumanPath(w.inputPath))
	w.requestCompile()

	eatBurstTimer := time.NewTimer(0)
	<-eatBurstTimer.C
	pollTicker := time.NewTicker(time.Second * 10)
	defer pollTicker.Stop()

	changed := false
	for {
		select {
		case <-pollTicker.C:
			// Some editors replace the file, which can drop the watch without an event.
			mt, err := w.ensureAddWatch(ctx, w.inputPath)
			if err != nil {
				return err
			}
			if !mt.Equal(lastModified) {
				lastModified = mt
				w.requestCompile()
			}
		case ev, ok := <-w.fw.Events:
			if !ok {
				return errors.New("fsnotify watcher closed")
			}
			w.ms.Log.Debug.Printf("received file system event %v", ev)
			mt, err := w.ensureAddWatch(ctx, ev.Name)
			if err != nil {
				return err
			}
			if ev.Op == fsnotify.Chmod {
				if mt.Equal(lastModified) {
					continue
				}
			}
			lastModified = mt
			changed = true
			eatBurstTimer.Reset(time.Millisecond * 16)
		case <-eatBurstTimer.C:
			if !changed {
				continue
			}
			changed = false
			w.ms.Log.Info.Printf("detected change in %s: recompiling...", w.ms.HumanPath(w.inputPath))
			w.requestCompile()
		case err, ok := <-w.fw.Errors:
			if !ok {
				return errors.New("fsnotify watcher closed")
			}
			w.ms.Log.Error.Printf("fsnotify error: %v", err)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *watcher) requestCompile() {
	select {
	case w.compileCh <- struct{}{}:
	default:
	}
}

func (w *watcher) ensureAddWatch(ctx context.Context, path string) (time.Time, error) {
	interval := time.Millisecond * 16
	tc := time.NewTimer(0)
	<-tc.C
	for {
		mt, err := w.addWatch(path)
		if err == nil {
			return mt, nil
		}
		if interval >= time.Second {
			w.ms.Log.Error.Printf("failed to watch %q: %v (retrying in %v)", w.ms.HumanPath(path), err, interval)
		}

		tc.Reset(interval)
		select {
		case <-tc.C:
			if interval < time.Second {
				interval = time.Second
			}
			if interval < time.Second*16 {
				interval *= 2
			}
		case <-ctx.Done():
			return time.Time{}, ctx.Err()
		}
	}
}

func (w *watcher) addWatch(path string) (time.Time, error) {
	err := w.fw.Add(path)
	if err != nil {
		return time.Time{}, err
	}
	d, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return d.ModTime(), nil
}

// compileLoop runs one render at a time. A compile request cancels the render in flight
// and waits for it to return before starting the next, so stale output is never written
// over fresh output.
func (w *watcher) compileLoop(ctx context.Context) error {
	firstCompile := true
	cancelPrev := func() {}
	done := make(chan struct{})
	close(done)
	defer func() {
		cancelPrev()
		<-done
	}()

	for {
		select {
		case <-w.compileCh:
		case <-ctx.Done():
			return ctx.Err()
		}

		cancelPrev()
		<-done

		recompiledPrefix := ""
		if !firstCompile {
			recompiledPrefix = "re"
		}
		firstCompile = false

		var compileCtx context.Context
		compileCtx, cancelPrev = context.WithCancel(ctx)
		done = make(chan struct{})
		go func(ctx context.Context, done chan struct{}) {
			defer close(done)
			w.compile(ctx, recompiledPrefix)
		}(compileCtx, done)
	}
}

// compile is only called from compileLoop, one at a time.
func (w *watcher) compile(ctx context.Context, recompiledPrefix string) {
	t := time.Now()
	written, err := compile(ctx, w.ms, w.compileOpts, w.inputPath, w.outputPath)
	if err != nil {
		if ctx.Err() != nil {
			w.ms.Log.Debug.Printf("discarded stale %scompile: %v", recompiledPrefix, err)
			return
		}
		if !written {
			w.ms.Log.Error.Printf("failed to %scompile: %v", recompiledPrefix, err)
			return
		}
		w.ms.Log.Error.Printf("failed to fully %scompile (partial output written): %v", recompiledPrefix, err)
	} else {
		w.ms.Log.Success.Printf("successfully %scompiled %s to %s in %s", recompiledPrefix, w.ms.HumanPath(w.inputPath), w.ms.HumanPath(w.outputPath), time.Since(t))
	}

	if w.browser && !w.browserOpened {
		w.browserOpened = true
		openBrowser(ctx, w.ms, w.outputPath)
	}
}
