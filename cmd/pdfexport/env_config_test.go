package main

// Notes:
// - Variables are injected through a getenv func, so every test runs in
//   parallel without t.Setenv.
// - Invalid values are ignored with a warning, never an error.

import (
	"bytes"
	"strings"
	"testing"

	"github.com/resumesite/pdfexport"
	"github.com/resumesite/pdfexport/internal/config"
)

func mapGetenv(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

// ---------------------------------------------------------------------------
// TestLoadEnvConfig - Environment variable loading
// ---------------------------------------------------------------------------

func TestLoadEnvConfig(t *testing.T) {
	t.Parallel()

	var warn bytes.Buffer
	env := loadEnvConfig(mapGetenv(map[string]string{
		"PDFEXPORT_CONFIG":      "/etc/pdfexport.yaml",
		"PDFEXPORT_OUT_DIR":     " out ",
		"PDFEXPORT_CONCURRENCY": "auto",
		"PDFEXPORT_ENGINE":      "ChromeDP",
		"PDFEXPORT_LOG_LEVEL":   "debug",
		"PDFEXPORT_LOG_FORMAT":  "json",
		"PDFEXPORT_NO_SANDBOX":  "1",
		"PDFEXPORT_BROWSER_BIN": "/usr/bin/chromium",
	}), &warn)

	if env.ConfigPath != "/etc/pdfexport.yaml" || env.OutDir != "out" || env.BrowserBin != "/usr/bin/chromium" {
		t.Errorf("paths = %q %q %q", env.ConfigPath, env.OutDir, env.BrowserBin)
	}
	if env.Concurrency == nil || *env.Concurrency != pdfexport.ConcurrencyAuto {
		t.Errorf("Concurrency = %v, want auto", env.Concurrency)
	}
	if env.Engine != config.EngineChromedp {
		t.Errorf("Engine = %q", env.Engine)
	}
	if env.LogLevel != "debug" || env.LogFormat != "json" {
		t.Errorf("log = %q %q", env.LogLevel, env.LogFormat)
	}
	if env.NoSandbox == nil || !*env.NoSandbox {
		t.Errorf("NoSandbox = %v, want true", env.NoSandbox)
	}
	if warn.Len() != 0 {
		t.Errorf("unexpected warnings: %s", warn.String())
	}
}

func TestLoadEnvConfig_InvalidValuesIgnored(t *testing.T) {
	t.Parallel()

	vars := map[string]string{
		"PDFEXPORT_CONCURRENCY": "lots",
		"PDFEXPORT_ENGINE":      "webkit",
		"PDFEXPORT_LOG_LEVEL":   "loud",
		"PDFEXPORT_LOG_FORMAT":  "xml",
		"PDFEXPORT_NO_SANDBOX":  "maybe",
	}
	var warn bytes.Buffer
	env := loadEnvConfig(mapGetenv(vars), &warn)

	if env.Concurrency != nil || env.Engine != "" || env.LogLevel != "" || env.LogFormat != "" || env.NoSandbox != nil {
		t.Errorf("invalid values were kept: %+v", env)
	}
	for name := range vars {
		if !strings.Contains(warn.String(), name) {
			t.Errorf("no warning for %s in %q", name, warn.String())
		}
	}
}

func TestLoadEnvConfig_Empty(t *testing.T) {
	t.Parallel()

	env := loadEnvConfig(mapGetenv(nil), &bytes.Buffer{})
	if *env != (envConfig{}) {
		t.Errorf("loadEnvConfig() = %+v, want zero value", env)
	}
}

// ---------------------------------------------------------------------------
// TestWarnUnknownEnvVars - Typo detection
// ---------------------------------------------------------------------------

func TestWarnUnknownEnvVars(t *testing.T) {
	t.Parallel()

	var w bytes.Buffer
	warnUnknownEnvVars(&w, []string{
		"PATH=/usr/bin",
		"PDFEXPORT_ENGINE=rod",
		"PDFEXPORT_OUTDIR=dist",
		"PDFEXPORT_NO_SANDBOX=1",
		"PDFEXPORT_CONTAINER=1",
	})

	out := w.String()
	if !strings.Contains(out, "PDFEXPORT_OUTDIR") {
		t.Errorf("missing warning for PDFEXPORT_OUTDIR: %q", out)
	}
	if strings.Contains(out, "PDFEXPORT_ENGINE") || strings.Contains(out, "PDFEXPORT_CONTAINER") || strings.Contains(out, "PATH") {
		t.Errorf("known or foreign variable warned: %q", out)
	}
}

func TestKnownEnvVars(t *testing.T) {
	t.Parallel()

	for name := range knownEnvVars {
		if !strings.HasPrefix(name, envPrefix) {
			t.Errorf("%s lacks the %s prefix", name, envPrefix)
		}
	}
}

func TestPrintUsage_ListsEnvVars(t *testing.T) {
	t.Parallel()

	var w bytes.Buffer
	printUsage(&w)
	for name := range knownEnvVars {
		if !strings.Contains(w.String(), name) {
			t.Errorf("help does not mention %s", name)
		}
	}
}

// ---------------------------------------------------------------------------
// TestApplyEnvConfig - Env overrides the config file
// ---------------------------------------------------------------------------

func TestApplyEnvConfig(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Output.Dir = "from-file"
	cfg.Concurrency = 2

	n, noSandbox := 1, false
	applyEnvConfig(&envConfig{
		OutDir:      "from-env",
		Concurrency: &n,
		Engine:      config.EngineChromedp,
		LogLevel:    "warn",
		NoSandbox:   &noSandbox,
		BrowserBin:  "/opt/chrome",
	}, cfg)

	if cfg.Output.Dir != "from-env" || cfg.Concurrency != 1 {
		t.Errorf("Output.Dir = %q, Concurrency = %d", cfg.Output.Dir, cfg.Concurrency)
	}
	if cfg.Browser.Engine != config.EngineChromedp || cfg.Browser.NoSandbox || cfg.Browser.Bin != "/opt/chrome" {
		t.Errorf("Browser = %+v", cfg.Browser)
	}
	if cfg.Log.Level != "warn" || cfg.Log.Format != "text" {
		t.Errorf("Log = %+v", cfg.Log)
	}
}

func TestApplyEnvConfig_EmptyKeepsConfig(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Browser.NoSandbox = false
	applyEnvConfig(&envConfig{}, cfg)

	want := config.DefaultConfig()
	if cfg.Output != want.Output || cfg.Browser.Engine != want.Browser.Engine || cfg.Browser.NoSandbox {
		t.Errorf("empty env changed config: %+v", cfg)
	}
}
