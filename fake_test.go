package pdfexport

// Notes:
// - fakeBrowser/fakeTab stand in for a real engine. The tab answers each
//   embedded script by name, so the stage code under test runs unmodified.
// - Page behavior is keyed by URL path and selected on Navigate, the way a
//   real tab only learns what it shows after loading.
// - PrintPDF returns a real minimal PDF sized from the print options, so the
//   pdfcpu verification runs for real.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/resumesite/pdfexport/internal/assets"
	"github.com/resumesite/pdfexport/internal/logger"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func discardLogger() *slog.Logger {
	return logger.Discard().Logger
}

// testWaits keeps degraded waits short.
func testWaits() Waits {
	return Waits{
		Navigation: 5 * time.Second,
		Fonts:      150 * time.Millisecond,
		Library:    150 * time.Millisecond,
		Diagrams:   250 * time.Millisecond,
		Interval:   10 * time.Millisecond,
	}
}

// newSite writes one trivial HTML file per name under a temp root.
func newSite(t *testing.T, names ...string) string {
	t.Helper()

	root := t.TempDir()
	for _, name := range names {
		p := filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(name, "/")))
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("<html><body>"+name+"</body></html>"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

// testPDF writes a minimal document with one page per entry in sizes, given
// in points.
func testPDF(sizes ...[2]float64) []byte {
	var buf bytes.Buffer
	offsets := []int{}

	buf.WriteString("%PDF-1.4\n")

	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	kids := ""
	for i := range sizes {
		kids += fmt.Sprintf("%d 0 R ", i+3)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, len(sizes)))
	for _, s := range sizes {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %.2f %.2f] /Resources << >> >>", s[0], s[1]))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

// embeddedScripts maps each embedded script body to its name.
var embeddedScripts = sync.OnceValue(func() map[string]string {
	l := assets.NewEmbeddedLoader()
	m := make(map[string]string, len(assets.Scripts))
	for _, name := range assets.Scripts {
		js, err := l.LoadScript(name)
		if err != nil {
			panic(err)
		}
		m[strings.TrimSpace(js)] = name
	}
	return m
})

// decodeInto mimics the engines' JSON decoding of script results.
func decodeInto(out, v any) error {
	if out == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

// fakePage scripts how a loaded page answers the readiness probes.
type fakePage struct {
	fontsPending   bool  // document.fonts never reports loaded
	diagrams       int   // placeholders on the page
	libraryMissing bool  // renderer global never appears
	renderAfter    int   // readiness polls before diagrams render; -1 never
	navErr         error // returned by Navigate
	normalizeErr   error // returned by the normalize script
	printErr       error // returned by PrintPDF
	pdf            []byte
}

type fakeBrowser struct {
	pages     map[string]fakePage
	newTabErr error
	closeErr  error
	hold      time.Duration // PrintPDF duration, to observe overlap

	mu        sync.Mutex
	tabs      []*fakeTab
	active    int
	maxActive int
	closed    int
	launches  int
	opts      LaunchOptions
}

func (b *fakeBrowser) launch(_ context.Context, opts LaunchOptions) (Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.launches++
	b.opts = opts
	return b, nil
}

func (b *fakeBrowser) NewTab(ctx context.Context) (Tab, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.newTabErr != nil {
		return nil, b.newTabErr
	}
	t := &fakeTab{browser: b}
	b.tabs = append(b.tabs, t)
	b.active++
	b.maxActive = max(b.maxActive, b.active)
	return t, nil
}

func (b *fakeBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed++
	return b.closeErr
}

// tabFor returns the tab that navigated to path.
func (b *fakeBrowser) tabFor(t *testing.T, path string) *fakeTab {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, tab := range b.tabs {
		if tab.path == path {
			return tab
		}
	}
	t.Fatalf("no tab navigated to %s", path)
	return nil
}

type fakeTab struct {
	browser *fakeBrowser

	mu        sync.Mutex
	path      string
	page      fakePage
	calls     []string
	polls     int
	allow     []string
	viewport  Viewport
	styles    []string
	rules     any
	printOpts PrintOptions
	closed    bool
}

func (t *fakeTab) record(call string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, call)
}

// sequence returns the calls with consecutive repeats collapsed.
func (t *fakeTab) sequence() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []string
	for _, c := range t.calls {
		if len(out) == 0 || out[len(out)-1] != c {
			out = append(out, c)
		}
	}
	return out
}

func (t *fakeTab) BlockImages(_ context.Context, allow []string) error {
	t.record("block")
	t.allow = allow
	return nil
}

func (t *fakeTab) SetViewport(_ context.Context, v Viewport) error {
	t.record("viewport")
	t.viewport = v
	return nil
}

func (t *fakeTab) Navigate(ctx context.Context, rawURL string, _ bool) error {
	t.record("navigate")
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.path = u.Path
	t.page = t.browser.pages[u.Path]
	t.mu.Unlock()
	if t.page.navErr != nil {
		return t.page.navErr
	}
	return ctx.Err()
}

func (t *fakeTab) EmulateMedia(_ context.Context, media string) error {
	t.record("media:" + media)
	return nil
}

func (t *fakeTab) AddStyle(_ context.Context, css string) error {
	t.record("style")
	t.styles = append(t.styles, css)
	return nil
}

func (t *fakeTab) Eval(ctx context.Context, js string, out any, args ...any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, ok := embeddedScripts()[strings.TrimSpace(js)]
	if !ok {
		return errors.New("fake tab: unknown script")
	}
	t.record("eval:" + name)

	p := t.page
	switch name {
	case assets.ScriptFontsReady:
		return decodeInto(out, !p.fontsPending)
	case assets.ScriptDiagramCount:
		return decodeInto(out, p.diagrams)
	case assets.ScriptLibraryReady:
		return decodeInto(out, !p.libraryMissing)
	case assets.ScriptDiagramsReady:
		t.polls++
		ready := 0
		if p.renderAfter >= 0 && t.polls > p.renderAfter {
			ready = p.diagrams
		}
		return decodeInto(out, map[string]int{"total": p.diagrams, "ready": ready})
	case assets.ScriptNormalize:
		if p.normalizeErr != nil {
			return p.normalizeErr
		}
		if len(args) > 0 {
			t.rules = args[0]
		}
		return decodeInto(out, 4)
	default:
		return fmt.Errorf("fake tab: no answer for %s", name)
	}
}

func (t *fakeTab) PrintPDF(ctx context.Context, opts PrintOptions) ([]byte, error) {
	t.record("print")
	t.printOpts = opts
	if t.browser.hold > 0 {
		select {
		case <-time.After(t.browser.hold):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if t.page.printErr != nil {
		return nil, t.page.printErr
	}
	if t.page.pdf != nil {
		return t.page.pdf, nil
	}
	return testPDF([2]float64{opts.PaperWidthIn * 72, opts.PaperHeightIn * 72}), nil
}

func (t *fakeTab) Close() error {
	t.record("close")
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	t.browser.mu.Lock()
	t.browser.active--
	t.browser.mu.Unlock()
	return nil
}

// newTestExporter wires an Exporter to b, serving root on a free port and
// writing into a temp directory.
func newTestExporter(t *testing.T, b *fakeBrowser, root string, opts ...Option) (*Exporter, string) {
	t.Helper()

	out := t.TempDir()
	base := []Option{
		WithRoot(root),
		WithServer("127.0.0.1", 0),
		WithOutputDir(out),
		WithLauncher(b.launch),
		WithWaits(testWaits()),
		WithLogger(discardLogger()),
	}
	return NewExporter(append(base, opts...)...), out
}
