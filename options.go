package pdfexport

import (
	"log/slog"
	"net/http"

	"github.com/resumesite/pdfexport/internal/normalize"
	"github.com/resumesite/pdfexport/internal/server"
)

// Print normalization rules, re-exported for callers that customize them.
type (
	Ruleset = normalize.Ruleset
	Rule    = normalize.Rule
	Decl    = normalize.Decl
)

// DefaultRuleset returns the rules for the résumé and portfolio markup.
func DefaultRuleset() Ruleset {
	return normalize.Default()
}

// Option configures an Exporter.
type Option func(*Exporter)

// settings holds the resolved configuration shared read-only by every job.
type settings struct {
	root      string
	host      string
	port      int
	outputDir string
	assetsDir string

	engine     Engine
	browserBin string
	noSandbox  bool

	viewport      Viewport
	allowImages   []string
	emulateScreen bool
	extraCSS      string
	waits         Waits
	diagrams      Diagrams
	rules         Ruleset
	concurrency   int
}

func defaultSettings() settings {
	return settings{
		root:          ".",
		host:          server.DefaultHost,
		port:          server.DefaultPort,
		engine:        EngineRod,
		viewport:      DefaultViewport,
		allowImages:   DefaultImageAllowList(),
		emulateScreen: true,
		waits:         DefaultWaits(),
		diagrams:      DefaultDiagrams(),
		rules:         DefaultRuleset(),
	}
}

// WithRoot sets the directory served to the browser.
func WithRoot(dir string) Option {
	return func(e *Exporter) {
		e.cfg.root = dir
	}
}

// WithServer sets the static server address. Port 0 picks a free port.
// Panics if port is out of range.
func WithServer(host string, port int) Option {
	if port < 0 || port > 65535 {
		panic("pdfexport: WithServer port must be between 0 and 65535")
	}
	return func(e *Exporter) {
		e.cfg.host = host
		e.cfg.port = port
	}
}

// WithOutputDir resolves relative target outputs against dir.
func WithOutputDir(dir string) Option {
	return func(e *Exporter) {
		e.cfg.outputDir = dir
	}
}

// WithAssetsDir overrides embedded scripts and styles with files from dir.
func WithAssetsDir(dir string) Option {
	return func(e *Exporter) {
		e.cfg.assetsDir = dir
	}
}

// WithEngine selects the browser automation backend.
func WithEngine(engine Engine) Option {
	return func(e *Exporter) {
		e.cfg.engine = engine
	}
}

// WithLauncher replaces the engine launcher, mainly for tests.
func WithLauncher(l Launcher) Option {
	return func(e *Exporter) {
		e.launcher = l
	}
}

// WithBrowserBin uses an installed Chrome or Chromium instead of the engine
// default.
func WithBrowserBin(path string) Option {
	return func(e *Exporter) {
		e.cfg.browserBin = path
	}
}

// WithNoSandbox disables the Chrome sandbox, required in most containers.
func WithNoSandbox(noSandbox bool) Option {
	return func(e *Exporter) {
		e.cfg.noSandbox = noSandbox
	}
}

// WithViewport sets the tab viewport.
// Panics on a non-positive size or scale.
func WithViewport(v Viewport) Option {
	if v.Width <= 0 || v.Height <= 0 || v.Scale <= 0 {
		panic("pdfexport: WithViewport size and scale must be positive")
	}
	return func(e *Exporter) {
		e.cfg.viewport = v
	}
}

// WithImageAllowList sets the URL substrings of images that are still loaded.
// An empty list blocks every image.
func WithImageAllowList(allow []string) Option {
	return func(e *Exporter) {
		e.cfg.allowImages = append([]string(nil), allow...)
	}
}

// WithWaits sets the readiness timeouts.
// Panics if the navigation timeout is not positive.
func WithWaits(w Waits) Option {
	if w.Navigation <= 0 {
		panic("pdfexport: WithWaits navigation timeout must be positive")
	}
	return func(e *Exporter) {
		e.cfg.waits = w
	}
}

// WithDiagrams describes the diagram placeholders to wait for.
func WithDiagrams(d Diagrams) Option {
	return func(e *Exporter) {
		e.cfg.diagrams = d
	}
}

// WithRuleset replaces the print normalization rules.
func WithRuleset(rules Ruleset) Option {
	return func(e *Exporter) {
		e.cfg.rules = rules
	}
}

// WithConcurrency bounds the number of targets exported at once: 1 is
// sequential, 0 runs every target in parallel and ConcurrencyAuto derives a
// limit from GOMAXPROCS.
// Panics on any other negative value.
func WithConcurrency(n int) Option {
	if n < ConcurrencyAuto {
		panic("pdfexport: WithConcurrency must be >= 0 or ConcurrencyAuto")
	}
	return func(e *Exporter) {
		e.cfg.concurrency = n
	}
}

// WithEmulateScreen toggles screen media emulation before printing.
func WithEmulateScreen(on bool) Option {
	return func(e *Exporter) {
		e.cfg.emulateScreen = on
	}
}

// WithExtraCSS injects css after the embedded font stack.
func WithExtraCSS(css string) Option {
	return func(e *Exporter) {
		e.cfg.extraCSS = css
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithHTTPClient sets the client used to probe pages before navigation.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Exporter) {
		if c != nil {
			e.client = c
		}
	}
}
