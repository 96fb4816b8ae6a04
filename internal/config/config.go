// Package config loads the optional pdfexport.yaml file and validates it.
//
// The file is decoded over DefaultConfig, so a config only needs the keys it
// changes. Environment variables and flags are layered on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/resumesite/pdfexport/internal/logger"
	"github.com/resumesite/pdfexport/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrConfigParse    = errors.New("failed to parse config")
	ErrConfigInvalid  = errors.New("invalid config")
	ErrFieldTooLong   = errors.New("field exceeds maximum length")
)

// FileName is the stem searched for when no config path is given.
const FileName = "pdfexport"

// Field length limits.
const (
	MaxSelectorLength = 500
	MaxPathLength     = 4096
	MaxNameLength     = 100
	MaxExtraCSSLength = 64 << 10
	MaxAllowPatterns  = 50
)

// Engines.
const (
	EngineRod      = "rod"
	EngineChromedp = "chromedp"
)

// ConcurrencyAuto derives the target limit from the CPU count.
const ConcurrencyAuto = -1

// Page modes.
const (
	ModeCSS      = "css"
	ModeExplicit = "explicit"
)

// Config holds everything the CLI can configure.
type Config struct {
	Server        ServerConfig   `yaml:"server"`
	Output        OutputConfig   `yaml:"output"`
	Browser       BrowserConfig  `yaml:"browser"`
	Wait          WaitConfig     `yaml:"wait"`
	Diagrams      DiagramConfig  `yaml:"diagrams"`
	Images        ImageConfig    `yaml:"images"`
	Assets        AssetsConfig   `yaml:"assets"`
	Concurrency   int            `yaml:"concurrency"` // 0 = every target at once, 1 = sequential, -1 = auto
	Strict        bool           `yaml:"strict"`      // exit non-zero when any target fails
	EmulateScreen bool           `yaml:"emulateScreen"`
	ExtraCSS      string         `yaml:"extraCSS"`
	Log           LogConfig      `yaml:"log"`
	Targets       []TargetConfig `yaml:"targets"` // empty = built-in résumé/portfolio set
}

// ServerConfig defines the static file server.
type ServerConfig struct {
	Root string `yaml:"root"`
	Host string `yaml:"host"`
	Port int    `yaml:"port"` // 0 picks a free port
}

// OutputConfig defines where PDFs are written.
type OutputConfig struct {
	Dir string `yaml:"dir"` // relative target outputs resolve against this
}

// BrowserConfig defines the headless browser.
type BrowserConfig struct {
	Engine    string         `yaml:"engine"`    // rod or chromedp
	Bin       string         `yaml:"bin"`       // empty = auto-detect or download
	NoSandbox bool           `yaml:"noSandbox"` // required in most containers
	Viewport  ViewportConfig `yaml:"viewport"`
}

// ViewportConfig is the CSS pixel viewport of every tab.
type ViewportConfig struct {
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	Scale  float64 `yaml:"scale"`
}

// WaitConfig holds readiness timeouts as Go duration strings ("30s", "200ms").
type WaitConfig struct {
	Navigation  string `yaml:"navigation"`
	Fonts       string `yaml:"fonts"`
	Library     string `yaml:"library"`
	Diagrams    string `yaml:"diagrams"`
	Interval    string `yaml:"interval"`
	Settle      string `yaml:"settle"`
	NetworkIdle bool   `yaml:"networkIdle"`
}

// Waits is WaitConfig with parsed durations.
type Waits struct {
	Navigation  time.Duration
	Fonts       time.Duration
	Library     time.Duration
	Diagrams    time.Duration
	Interval    time.Duration
	Settle      time.Duration
	NetworkIdle bool
}

// DiagramConfig describes the asynchronously rendered diagrams.
type DiagramConfig struct {
	Selector    string `yaml:"selector"`
	Library     string `yaml:"library"` // window global that signals the renderer loaded
	MinElements int    `yaml:"minElements"`
}

// ImageConfig controls request filtering.
type ImageConfig struct {
	Allow []string `yaml:"allow"` // URL substrings whose images still load
}

// AssetsConfig points at an optional override directory for injected scripts
// and styles.
type AssetsConfig struct {
	Dir string `yaml:"dir"`
}

// LogConfig defines logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TargetConfig is one page to export.
type TargetConfig struct {
	Name     string   `yaml:"name"`
	Path     string   `yaml:"path"`
	Output   string   `yaml:"output"`
	Mode     string   `yaml:"mode"` // css (default) or explicit
	WidthMM  float64  `yaml:"widthMM"`
	HeightMM float64  `yaml:"heightMM"`
	MarginMM *float64 `yaml:"marginMM"` // nil = mode default
}

// DefaultConfig returns the settings the exporter ships with.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Root: ".", Host: "127.0.0.1", Port: 8080},
		Output: OutputConfig{Dir: "dist"},
		Browser: BrowserConfig{
			Engine:    EngineRod,
			NoSandbox: true,
			Viewport:  ViewportConfig{Width: 1200, Height: 1600, Scale: 1},
		},
		Wait: WaitConfig{
			Navigation: "30s",
			Fonts:      "15s",
			Library:    "10s",
			Diagrams:   "20s",
			Interval:   "200ms",
			Settle:     "1s",
		},
		Diagrams:      DiagramConfig{Selector: ".mermaid", Library: "mermaid", MinElements: 3},
		Images:        ImageConfig{Allow: []string{"favicon", "profile", "/images/"}},
		Concurrency:   0,
		Strict:        true,
		EmulateScreen: true,
		Log:           LogConfig{Level: "info", Format: "text"},
	}
}

// Validate checks ranges, enumerations and field lengths.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return invalid("server.port: must be between 0 and 65535, got %d", c.Server.Port)
	}
	if err := validateFieldLength("server.root", c.Server.Root, MaxPathLength); err != nil {
		return err
	}
	if err := validateFieldLength("output.dir", c.Output.Dir, MaxPathLength); err != nil {
		return err
	}
	if err := validateFieldLength("assets.dir", c.Assets.Dir, MaxPathLength); err != nil {
		return err
	}
	if err := validateFieldLength("browser.bin", c.Browser.Bin, MaxPathLength); err != nil {
		return err
	}

	switch strings.ToLower(c.Browser.Engine) {
	case EngineRod, EngineChromedp:
	default:
		return invalid("browser.engine: must be %s or %s, got %q", EngineRod, EngineChromedp, c.Browser.Engine)
	}
	vp := c.Browser.Viewport
	if vp.Width <= 0 || vp.Height <= 0 {
		return invalid("browser.viewport: width and height must be positive, got %dx%d", vp.Width, vp.Height)
	}
	if vp.Scale <= 0 || vp.Scale > 4 {
		return invalid("browser.viewport.scale: must be in (0, 4], got %g", vp.Scale)
	}

	if _, err := c.Wait.Parse(); err != nil {
		return err
	}

	if strings.TrimSpace(c.Diagrams.Selector) == "" {
		return invalid("diagrams.selector: required")
	}
	if err := validateFieldLength("diagrams.selector", c.Diagrams.Selector, MaxSelectorLength); err != nil {
		return err
	}
	if c.Diagrams.MinElements < 0 {
		return invalid("diagrams.minElements: must be >= 0, got %d", c.Diagrams.MinElements)
	}
	if len(c.Images.Allow) > MaxAllowPatterns {
		return invalid("images.allow: at most %d patterns, got %d", MaxAllowPatterns, len(c.Images.Allow))
	}
	for i, p := range c.Images.Allow {
		if p == "" {
			return invalid("images.allow[%d]: empty pattern", i)
		}
	}

	if c.Concurrency < ConcurrencyAuto {
		return invalid("concurrency: must be >= 0 or %d (auto), got %d", ConcurrencyAuto, c.Concurrency)
	}
	if err := validateFieldLength("extraCSS", c.ExtraCSS, MaxExtraCSSLength); err != nil {
		return err
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrConfigInvalid, err)
	}
	if _, err := logger.ParseFormat(c.Log.Format); err != nil {
		return fmt.Errorf("%w: log.format: %v", ErrConfigInvalid, err)
	}

	for i, t := range c.Targets {
		if err := t.validate(fmt.Sprintf("targets[%d]", i)); err != nil {
			return err
		}
	}
	return nil
}

func (t TargetConfig) validate(field string) error {
	if t.Name == "" || t.Path == "" || t.Output == "" {
		return invalid("%s: name, path and output are required", field)
	}
	if err := validateFieldLength(field+".name", t.Name, MaxNameLength); err != nil {
		return err
	}
	if err := validateFieldLength(field+".output", t.Output, MaxPathLength); err != nil {
		return err
	}
	switch strings.ToLower(t.Mode) {
	case "", ModeCSS:
	case ModeExplicit:
		if t.WidthMM <= 0 || t.HeightMM <= 0 {
			return invalid("%s: explicit mode needs positive widthMM and heightMM", field)
		}
	default:
		return invalid("%s.mode: must be %s or %s, got %q", field, ModeCSS, ModeExplicit, t.Mode)
	}
	return nil
}

// Parse converts the duration strings. Interval must be positive; the other
// waits may be zero to skip them.
func (w WaitConfig) Parse() (Waits, error) {
	out := Waits{NetworkIdle: w.NetworkIdle}
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"wait.navigation", w.Navigation, &out.Navigation},
		{"wait.fonts", w.Fonts, &out.Fonts},
		{"wait.library", w.Library, &out.Library},
		{"wait.diagrams", w.Diagrams, &out.Diagrams},
		{"wait.interval", w.Interval, &out.Interval},
		{"wait.settle", w.Settle, &out.Settle},
	}
	for _, f := range fields {
		d, err := time.ParseDuration(strings.TrimSpace(f.raw))
		if err != nil {
			return Waits{}, invalid("%s: %v", f.name, err)
		}
		if d < 0 {
			return Waits{}, invalid("%s: must not be negative, got %s", f.name, f.raw)
		}
		*f.dst = d
	}
	if out.Interval <= 0 {
		return Waits{}, invalid("wait.interval: must be positive")
	}
	if out.Navigation <= 0 {
		return Waits{}, invalid("wait.navigation: must be positive")
	}
	return out, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfigInvalid, fmt.Sprintf(format, args...))
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// LoadConfig reads path, decodes it over DefaultConfig and validates the
// result. A missing file is ErrConfigNotFound.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- config path is user-provided
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over DefaultConfig and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if len(strings.TrimSpace(string(data))) == 0 {
		return cfg, nil
	}
	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal renders cfg as YAML, for --print-config.
func (c *Config) Marshal() ([]byte, error) {
	return yamlutil.Marshal(c)
}

// FindConfig looks for pdfexport.yaml or pdfexport.yml in dir, then in the
// user config directory. It returns "" with a nil error when none exists;
// the config file is optional.
func FindConfig(dir string) (string, error) {
	candidates := make([]string, 0, 4)
	for _, ext := range []string{".yaml", ".yml"} {
		candidates = append(candidates, filepath.Join(dir, FileName+ext))
	}
	if userDir, err := os.UserConfigDir(); err == nil {
		for _, ext := range []string{".yaml", ".yml"} {
			candidates = append(candidates, filepath.Join(userDir, FileName, "config"+ext))
		}
	}

	for _, p := range candidates {
		info, err := os.Stat(p)
		if err == nil && !info.IsDir() {
			return p, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("checking %s: %w", p, err)
		}
	}
	return "", nil
}
