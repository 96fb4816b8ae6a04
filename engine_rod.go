package pdfexport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/resumesite/pdfexport/internal/process"
)

// requestIdleWindow is how long the network must stay quiet to count as idle.
const requestIdleWindow = 500 * time.Millisecond

// Compile-time interface checks
var (
	_ Browser = (*rodBrowser)(nil)
	_ Tab     = (*rodTab)(nil)
)

// rodBrowser drives Chrome through go-rod. Rod downloads Chromium on first
// run when no binary is configured or found.
type rodBrowser struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	logger   *slog.Logger

	mu     sync.Mutex // serializes tab creation
	closed bool
}

func launchRod(ctx context.Context, opts LaunchOptions) (Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	l := launcher.New().Headless(true)
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}
	// NoSandbox required for CI and containerized environments
	if opts.NoSandbox {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserLaunch, err)
	}

	b := rod.New().ControlURL(u).Context(ctx)
	if err := b.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, fmt.Errorf("%w: %v", ErrBrowserLaunch, err)
	}

	logger.Debug("browser launched", "engine", EngineRod, "pid", l.PID())
	// Detach from the launch context; Close owns the lifetime from here.
	return &rodBrowser{launcher: l, browser: b.Context(context.Background()), logger: logger}, nil
}

// NewTab opens a blank page.
func (b *rodBrowser) NewTab(ctx context.Context) (Tab, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("%w: browser closed", ErrPageCreate)
	}
	page, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	// Tabs outlive the creating context; each call scopes its own.
	return &rodTab{page: page.Context(context.Background())}, nil
}

// Close disconnects, then kills the browser process tree and removes the
// temporary profile. Safe to call more than once.
func (b *rodBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	err := b.browser.Close()
	pid := b.launcher.PID()
	b.launcher.Kill()
	if pid > 0 {
		_ = process.KillGroup(pid)
	}
	b.launcher.Cleanup()
	b.logger.Debug("browser closed", "engine", EngineRod)
	return err
}

// rodTab is one page of a rodBrowser.
type rodTab struct {
	page   *rod.Page
	router *rod.HijackRouter
}

func (t *rodTab) BlockImages(ctx context.Context, allow []string) error {
	router := t.page.HijackRequests()
	err := router.Add("*", proto.NetworkResourceTypeImage, func(h *rod.Hijack) {
		if imageAllowed(h.Request.URL().String(), allow) {
			h.ContinueRequest(&proto.FetchContinueRequest{})
			return
		}
		h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
	})
	if err != nil {
		return err
	}
	go router.Run()
	t.router = router
	return nil
}

func (t *rodTab) SetViewport(ctx context.Context, v Viewport) error {
	return t.page.Context(ctx).SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             v.Width,
		Height:            v.Height,
		DeviceScaleFactor: v.Scale,
		Mobile:            false,
	})
}

func (t *rodTab) Navigate(ctx context.Context, url string, networkIdle bool) error {
	p := t.page.Context(ctx)

	var waitIdle func()
	if networkIdle {
		waitIdle = p.WaitRequestIdle(requestIdleWindow, nil, nil, nil)
	}
	if err := p.Navigate(url); err != nil {
		return err
	}
	if err := p.WaitLoad(); err != nil {
		return err
	}
	if waitIdle != nil {
		waitIdle()
	}
	return nil
}

func (t *rodTab) EmulateMedia(ctx context.Context, media string) error {
	return proto.EmulationSetEmulatedMedia{Media: media}.Call(t.page.Context(ctx))
}

func (t *rodTab) AddStyle(ctx context.Context, css string) error {
	return t.page.Context(ctx).AddStyleTag("", css)
}

func (t *rodTab) Eval(ctx context.Context, js string, out any, args ...any) error {
	res, err := t.page.Context(ctx).Eval(js, args...)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return res.Value.Unmarshal(out)
}

func (t *rodTab) PrintPDF(ctx context.Context, opts PrintOptions) ([]byte, error) {
	req := &proto.PagePrintToPDF{
		PaperWidth:        floatPtr(opts.PaperWidthIn),
		PaperHeight:       floatPtr(opts.PaperHeightIn),
		MarginTop:         floatPtr(opts.MarginIn),
		MarginBottom:      floatPtr(opts.MarginIn),
		MarginLeft:        floatPtr(opts.MarginIn),
		MarginRight:       floatPtr(opts.MarginIn),
		PreferCSSPageSize: opts.PreferCSSPageSize,
		PrintBackground:   opts.PrintBackground,
		PageRanges:        opts.PageRanges,
	}

	reader, err := t.page.Context(ctx).PDF(req)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading PDF stream: %w", err)
	}
	return data, nil
}

func (t *rodTab) Close() error {
	if t.router != nil {
		_ = t.router.Stop()
		t.router = nil
	}
	return t.page.Close()
}

// floatPtr returns a pointer to a float64 value.
func floatPtr(v float64) *float64 {
	return &v
}
