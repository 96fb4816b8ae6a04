package pdfexport

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// PageMode selects how the paper size of a target is determined.
type PageMode string

// Page modes.
const (
	// ModeCSS prints on A4 and lets the page's @page rules override it.
	ModeCSS PageMode = "css"

	// ModeExplicit prints exactly one page of WidthMM x HeightMM.
	ModeExplicit PageMode = "explicit"
)

// Margin bounds in millimetres.
const (
	MinMarginMM        = 0.0
	MaxMarginMM        = 50.0
	DefaultCSSMarginMM = 12.0
)

// A4 paper in inches, the CSS-mode fallback when a page declares no @page size.
const (
	a4WidthIn  = 8.27
	a4HeightIn = 11.69
	mmPerInch  = 25.4
)

// PageSpec configures the paper for one target.
type PageSpec struct {
	Mode     PageMode
	WidthMM  float64 // explicit mode only
	HeightMM float64 // explicit mode only
	MarginMM float64 // applied to all sides
}

// CSSPage returns a CSS-mode spec with the default margin.
func CSSPage() PageSpec {
	return PageSpec{Mode: ModeCSS, MarginMM: DefaultCSSMarginMM}
}

// ExplicitPage returns a borderless single-page spec.
func ExplicitPage(widthMM, heightMM float64) PageSpec {
	return PageSpec{Mode: ModeExplicit, WidthMM: widthMM, HeightMM: heightMM}
}

// Validate checks the mode, size and margin.
func (p PageSpec) Validate() error {
	switch p.Mode {
	case ModeCSS:
	case ModeExplicit:
		if p.WidthMM <= 0 || p.HeightMM <= 0 {
			return fmt.Errorf("%w: %.1fx%.1fmm (width and height must be positive)", ErrInvalidPageSize, p.WidthMM, p.HeightMM)
		}
		if 2*p.MarginMM >= p.WidthMM || 2*p.MarginMM >= p.HeightMM {
			return fmt.Errorf("%w: %.1fmm leaves no printable area on %.1fx%.1fmm", ErrInvalidMargin, p.MarginMM, p.WidthMM, p.HeightMM)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidPageSize, p.Mode)
	}
	if p.MarginMM < MinMarginMM || p.MarginMM > MaxMarginMM {
		return fmt.Errorf("%w: %.1fmm (must be between %.0f and %.0f)", ErrInvalidMargin, p.MarginMM, MinMarginMM, MaxMarginMM)
	}
	return nil
}

// Target is one page to export. Output identifies the target within a batch.
type Target struct {
	Name   string   // used in logs and the summary
	Path   string   // URL path relative to the server root, e.g. /resume.html
	Output string   // PDF file path
	Page   PageSpec // paper settings
}

// Validate checks required fields and the page spec.
func (t Target) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidTarget)
	}
	if strings.TrimSpace(t.Path) == "" {
		return fmt.Errorf("%w: %s: empty path", ErrInvalidTarget, t.Name)
	}
	if strings.Contains(t.Path, "://") {
		return fmt.Errorf("%w: %s: path %q must be relative to the server root", ErrInvalidTarget, t.Name, t.Path)
	}
	if strings.TrimSpace(t.Output) == "" {
		return fmt.Errorf("%w: %s: empty output", ErrInvalidTarget, t.Name)
	}
	if err := t.Page.Validate(); err != nil {
		return fmt.Errorf("%s: %w", t.Name, err)
	}
	return nil
}

// urlPath returns Path with exactly one leading slash.
func (t Target) urlPath() string {
	return "/" + strings.TrimLeft(t.Path, "/")
}

// ValidateTargets checks every target and rejects two targets writing the same
// file, before any browser work starts.
func ValidateTargets(targets []Target) error {
	if len(targets) == 0 {
		return ErrNoTargets
	}
	seen := make(map[string]string, len(targets))
	for _, t := range targets {
		if err := t.Validate(); err != nil {
			return err
		}
		key := outputKey(t.Output)
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("%w: %s and %s both write %s", ErrDuplicateOutput, prev, t.Name, t.Output)
		}
		seen[key] = t.Name
	}
	return nil
}

func outputKey(output string) string {
	if abs, err := filepath.Abs(output); err == nil {
		return abs
	}
	return filepath.Clean(output)
}

// DefaultTargets returns the résumé and portfolio pages of the site, writing
// into outDir.
func DefaultTargets(outDir string) []Target {
	out := func(name string) string { return filepath.Join(outDir, name+".pdf") }
	return []Target{
		{Name: "resume", Path: "/resume.html", Output: out("resume"), Page: CSSPage()},
		{Name: "portfolio", Path: "/portfolio.html", Output: out("portfolio"), Page: CSSPage()},
		{Name: "resume-horizontal", Path: "/resume-horizontal.html", Output: out("resume-horizontal"), Page: CSSPage()},
		{Name: "portfolio-horizontal", Path: "/portfolio-horizontal.html", Output: out("portfolio-horizontal"), Page: CSSPage()},
		{Name: "intro-cards", Path: "/intro-cards.html", Output: out("intro-cards"), Page: ExplicitPage(210, 500)},
	}
}

// Viewport is the CSS pixel size of every tab.
type Viewport struct {
	Width  int
	Height int
	Scale  float64
}

// DefaultViewport is wide enough for the desktop layout.
var DefaultViewport = Viewport{Width: 1200, Height: 1600, Scale: 1}

// Waits bounds every readiness wait. Zero Fonts, Library or Diagrams skips
// that wait; zero Settle skips the settle delay.
type Waits struct {
	Navigation  time.Duration
	Fonts       time.Duration
	Library     time.Duration
	Diagrams    time.Duration
	Interval    time.Duration // diagram polling period
	Settle      time.Duration // pause after diagrams render, for transitions
	NetworkIdle bool          // also wait for the network to go quiet after load
}

// DefaultWaits returns the timeouts tuned for the résumé site.
func DefaultWaits() Waits {
	return Waits{
		Navigation: 30 * time.Second,
		Fonts:      15 * time.Second,
		Library:    10 * time.Second,
		Diagrams:   20 * time.Second,
		Interval:   200 * time.Millisecond,
		Settle:     time.Second,
	}
}

// Diagrams describes the asynchronously rendered diagram placeholders.
type Diagrams struct {
	Selector    string // placeholder elements
	Library     string // window global present once the renderer script loaded
	MinElements int    // svg descendants required before a placeholder counts as rendered
}

// DefaultDiagrams matches Mermaid markup.
func DefaultDiagrams() Diagrams {
	return Diagrams{Selector: ".mermaid", Library: "mermaid", MinElements: 3}
}

// DefaultImageAllowList keeps the favicon and the profile photo.
func DefaultImageAllowList() []string {
	return []string{"favicon", "profile", "/images/"}
}
