package pdfexport

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Engine names a browser automation backend.
type Engine string

// Engines.
const (
	EngineRod      Engine = "rod"
	EngineChromedp Engine = "chromedp"
)

// Browser is one launched headless browser, shared by every job of a run.
// NewTab must be safe for concurrent use.
type Browser interface {
	NewTab(ctx context.Context) (Tab, error)
	Close() error
}

// Tab is an isolated page owned by a single export job. Methods are called
// from one goroutine at a time.
type Tab interface {
	// BlockImages aborts image requests whose URL contains none of allow.
	BlockImages(ctx context.Context, allow []string) error
	SetViewport(ctx context.Context, v Viewport) error
	// Navigate loads url and waits for the load event. With networkIdle it
	// also waits, best effort, for in-flight requests to finish.
	Navigate(ctx context.Context, url string, networkIdle bool) error
	EmulateMedia(ctx context.Context, media string) error
	AddStyle(ctx context.Context, css string) error
	// Eval calls the JavaScript function expression js with JSON-encoded
	// args, awaits a returned promise and decodes the result into out.
	// A nil out discards the result.
	Eval(ctx context.Context, js string, out any, args ...any) error
	PrintPDF(ctx context.Context, opts PrintOptions) ([]byte, error)
	Close() error
}

// PrintOptions are the paper settings passed to the browser, in inches.
type PrintOptions struct {
	PaperWidthIn      float64
	PaperHeightIn     float64
	MarginIn          float64 // all four sides
	PreferCSSPageSize bool
	PrintBackground   bool
	PageRanges        string // "" = all pages
}

// LaunchOptions configure a browser launch.
type LaunchOptions struct {
	Bin       string // empty = engine default (auto-detect or download)
	NoSandbox bool
	Logger    *slog.Logger
}

// Launcher starts a browser. Engines and test fakes implement it.
type Launcher func(ctx context.Context, opts LaunchOptions) (Browser, error)

// LauncherFor returns the launcher of the named engine.
func LauncherFor(e Engine) (Launcher, error) {
	switch Engine(strings.ToLower(string(e))) {
	case EngineRod, "":
		return launchRod, nil
	case EngineChromedp:
		return launchChromedp, nil
	default:
		return nil, fmt.Errorf("%w: unknown engine %q", ErrBrowserLaunch, e)
	}
}

// browserBinEnv lists the variables consulted for an external browser, in
// order of precedence.
var browserBinEnv = []string{"PDFEXPORT_BROWSER_BIN", "PUPPETEER_EXECUTABLE_PATH", "ROD_BROWSER_BIN"}

// BrowserBinFromEnv returns the first browser path set in the environment.
func BrowserBinFromEnv() string {
	return BrowserBinFrom(os.Getenv)
}

// BrowserBinFrom is BrowserBinFromEnv over a custom lookup.
func BrowserBinFrom(getenv func(string) string) string {
	for _, name := range browserBinEnv {
		if v := strings.TrimSpace(getenv(name)); v != "" {
			return v
		}
	}
	return ""
}

// imageAllowed reports whether url contains one of the allow-list substrings.
func imageAllowed(url string, allow []string) bool {
	for _, a := range allow {
		if a != "" && strings.Contains(url, a) {
			return true
		}
	}
	return false
}
