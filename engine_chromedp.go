package pdfexport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/resumesite/pdfexport/internal/process"
)

// networkIdleGrace caps the best-effort wait for the networkIdle lifecycle
// event after load.
const networkIdleGrace = 5 * time.Second

// addStyleJS appends a <style> element; chromedp has no AddStyleTag helper.
const addStyleJS = `(css) => {
  const style = document.createElement('style');
  style.textContent = css;
  (document.head || document.documentElement).appendChild(style);
  return true;
}`

// Compile-time interface checks
var (
	_ Browser = (*chromedpBrowser)(nil)
	_ Tab     = (*chromedpTab)(nil)
)

// chromedpBrowser drives Chrome through chromedp's exec allocator.
type chromedpBrowser struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	logger        *slog.Logger

	mu     sync.Mutex // serializes tab creation
	closed bool
}

func launchChromedp(ctx context.Context, opts LaunchOptions) (Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if opts.Bin != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.Bin))
	}
	if opts.NoSandbox {
		allocOpts = append(allocOpts, chromedp.NoSandbox)
	}

	// The browser outlives the launch call; Close cancels it.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	started := make(chan error, 1)
	go func() { started <- chromedp.Run(browserCtx) }()

	select {
	case err := <-started:
		if err != nil {
			browserCancel()
			allocCancel()
			return nil, fmt.Errorf("%w: %v", ErrBrowserLaunch, err)
		}
	case <-ctx.Done():
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("%w: %v", ErrBrowserLaunch, ctx.Err())
	}

	logger.Debug("browser launched", "engine", EngineChromedp)
	return &chromedpBrowser{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		logger:        logger,
	}, nil
}

// NewTab opens a new target in the shared browser.
func (b *chromedpBrowser) NewTab(ctx context.Context) (Tab, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("%w: browser closed", ErrPageCreate)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}

	tabCtx, cancel := chromedp.NewContext(b.browserCtx)
	// The first Run on a fresh context creates the target. It must not run on a
	// deadline-scoped child, or the tab would close when the deadline passes.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	return &chromedpTab{ctx: tabCtx, cancel: cancel}, nil
}

// Close shuts the browser down and kills any leftover process tree.
// Safe to call more than once.
func (b *chromedpBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	pid := 0
	if c := chromedp.FromContext(b.browserCtx); c != nil && c.Browser != nil {
		if p := c.Browser.Process(); p != nil {
			pid = p.Pid
		}
	}

	err := chromedp.Cancel(b.browserCtx)
	b.browserCancel()
	b.allocCancel()
	if pid > 0 {
		_ = process.KillGroup(pid)
	}
	b.logger.Debug("browser closed", "engine", EngineChromedp)
	return err
}

// chromedpTab is one target of a chromedpBrowser.
type chromedpTab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// scope derives a context that carries the tab's executor and the deadline
// and cancellation of ctx.
func (t *chromedpTab) scope(ctx context.Context) (context.Context, context.CancelFunc) {
	var (
		scoped context.Context
		cancel context.CancelFunc
	)
	if deadline, ok := ctx.Deadline(); ok {
		scoped, cancel = context.WithDeadline(t.ctx, deadline)
	} else {
		scoped, cancel = context.WithCancel(t.ctx)
	}
	stop := context.AfterFunc(ctx, cancel)
	return scoped, func() {
		stop()
		cancel()
	}
}

func (t *chromedpTab) run(ctx context.Context, actions ...chromedp.Action) error {
	scoped, cancel := t.scope(ctx)
	defer cancel()
	return chromedp.Run(scoped, actions...)
}

func (t *chromedpTab) BlockImages(ctx context.Context, allow []string) error {
	chromedp.ListenTarget(t.ctx, func(ev any) {
		e, ok := ev.(*fetch.EventRequestPaused)
		if !ok {
			return
		}
		// Listeners run on the event loop; CDP calls must not block it.
		go func() {
			c := chromedp.FromContext(t.ctx)
			if c == nil || c.Target == nil {
				return
			}
			exec := cdp.WithExecutor(t.ctx, c.Target)
			if e.ResourceType == network.ResourceTypeImage && !imageAllowed(e.Request.URL, allow) {
				_ = fetch.FailRequest(e.RequestID, network.ErrorReasonBlockedByClient).Do(exec)
				return
			}
			_ = fetch.ContinueRequest(e.RequestID).Do(exec)
		}()
	})

	return t.run(ctx, fetch.Enable().WithPatterns([]*fetch.RequestPattern{
		{URLPattern: "*", ResourceType: network.ResourceTypeImage},
	}))
}

func (t *chromedpTab) SetViewport(ctx context.Context, v Viewport) error {
	return t.run(ctx, emulation.SetDeviceMetricsOverride(int64(v.Width), int64(v.Height), v.Scale, false))
}

func (t *chromedpTab) Navigate(ctx context.Context, url string, networkIdle bool) error {
	if !networkIdle {
		return t.run(ctx, chromedp.Navigate(url))
	}

	listenCtx, stopListening := context.WithCancel(t.ctx)
	defer stopListening()

	idle := make(chan struct{}, 1)
	chromedp.ListenTarget(listenCtx, func(ev any) {
		if e, ok := ev.(*page.EventLifecycleEvent); ok && e.Name == "networkIdle" {
			select {
			case idle <- struct{}{}:
			default:
			}
		}
	})

	if err := t.run(ctx, page.SetLifecycleEventsEnabled(true), chromedp.Navigate(url)); err != nil {
		return err
	}

	timer := time.NewTimer(networkIdleGrace)
	defer timer.Stop()
	select {
	case <-idle:
	case <-timer.C:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (t *chromedpTab) EmulateMedia(ctx context.Context, media string) error {
	return t.run(ctx, emulation.SetEmulatedMedia().WithMedia(media))
}

func (t *chromedpTab) AddStyle(ctx context.Context, css string) error {
	return t.Eval(ctx, addStyleJS, nil, css)
}

func (t *chromedpTab) Eval(ctx context.Context, js string, out any, args ...any) error {
	expr, err := callExpression(js, args...)
	if err != nil {
		return err
	}
	return t.run(ctx, chromedp.Evaluate(expr, out, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}))
}

func (t *chromedpTab) PrintPDF(ctx context.Context, opts PrintOptions) ([]byte, error) {
	var buf []byte
	err := t.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		params := page.PrintToPDF().
			WithPaperWidth(opts.PaperWidthIn).
			WithPaperHeight(opts.PaperHeightIn).
			WithMarginTop(opts.MarginIn).
			WithMarginBottom(opts.MarginIn).
			WithMarginLeft(opts.MarginIn).
			WithMarginRight(opts.MarginIn).
			WithPreferCSSPageSize(opts.PreferCSSPageSize).
			WithPrintBackground(opts.PrintBackground)
		if opts.PageRanges != "" {
			params = params.WithPageRanges(opts.PageRanges)
		}
		data, _, err := params.Do(ctx)
		if err != nil {
			return err
		}
		buf = data
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func (t *chromedpTab) Close() error {
	err := chromedp.Cancel(t.ctx)
	t.cancel()
	return err
}

// callExpression wraps a function expression into an immediate call with
// JSON-encoded arguments.
func callExpression(js string, args ...any) (string, error) {
	fn := strings.TrimSuffix(strings.TrimSpace(js), ";")
	encoded := make([]string, 0, len(args))
	for i, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return "", fmt.Errorf("encoding argument %d: %w", i, err)
		}
		encoded = append(encoded, string(b))
	}
	return "(" + fn + ")(" + strings.Join(encoded, ", ") + ")", nil
}
