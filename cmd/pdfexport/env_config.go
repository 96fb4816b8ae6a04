package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/resumesite/pdfexport/internal/config"
	"github.com/resumesite/pdfexport/internal/logger"
)

// envPrefix is shared by every recognized variable.
const envPrefix = "PDFEXPORT_"

// envConfig holds configuration from environment variables.
// Provides CI-friendly overrides without a YAML file.
type envConfig struct {
	ConfigPath  string // PDFEXPORT_CONFIG
	OutDir      string // PDFEXPORT_OUT_DIR
	Concurrency *int   // PDFEXPORT_CONCURRENCY: integer or "auto"
	Engine      string // PDFEXPORT_ENGINE
	LogLevel    string // PDFEXPORT_LOG_LEVEL
	LogFormat   string // PDFEXPORT_LOG_FORMAT
	NoSandbox   *bool  // PDFEXPORT_NO_SANDBOX
	BrowserBin  string // PDFEXPORT_BROWSER_BIN
}

// knownEnvVars lists valid PDFEXPORT_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	"PDFEXPORT_CONFIG":      true,
	"PDFEXPORT_OUT_DIR":     true,
	"PDFEXPORT_CONCURRENCY": true,
	"PDFEXPORT_ENGINE":      true,
	"PDFEXPORT_LOG_LEVEL":   true,
	"PDFEXPORT_LOG_FORMAT":  true,
	"PDFEXPORT_NO_SANDBOX":  true,
	"PDFEXPORT_BROWSER_BIN": true,
	"PDFEXPORT_CONTAINER":   true, // doctor only
}

// loadEnvConfig reads PDFEXPORT_* variables. Values that do not parse are
// reported on w and ignored.
func loadEnvConfig(getenv func(string) string, w io.Writer) *envConfig {
	cfg := &envConfig{
		ConfigPath: strings.TrimSpace(getenv("PDFEXPORT_CONFIG")),
		OutDir:     strings.TrimSpace(getenv("PDFEXPORT_OUT_DIR")),
		BrowserBin: strings.TrimSpace(getenv("PDFEXPORT_BROWSER_BIN")),
	}

	if v := getenv("PDFEXPORT_CONCURRENCY"); v != "" {
		if n, err := parseConcurrency(v); err == nil {
			cfg.Concurrency = &n
		} else {
			ignoreEnv(w, "PDFEXPORT_CONCURRENCY", v)
		}
	}

	if v := strings.ToLower(strings.TrimSpace(getenv("PDFEXPORT_ENGINE"))); v != "" {
		switch v {
		case config.EngineRod, config.EngineChromedp:
			cfg.Engine = v
		default:
			ignoreEnv(w, "PDFEXPORT_ENGINE", v)
		}
	}

	if v := getenv("PDFEXPORT_LOG_LEVEL"); v != "" {
		if _, err := logger.ParseLevel(v); err == nil {
			cfg.LogLevel = v
		} else {
			ignoreEnv(w, "PDFEXPORT_LOG_LEVEL", v)
		}
	}
	if v := getenv("PDFEXPORT_LOG_FORMAT"); v != "" {
		if _, err := logger.ParseFormat(v); err == nil {
			cfg.LogFormat = v
		} else {
			ignoreEnv(w, "PDFEXPORT_LOG_FORMAT", v)
		}
	}

	if v := getenv("PDFEXPORT_NO_SANDBOX"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.NoSandbox = &b
		} else {
			ignoreEnv(w, "PDFEXPORT_NO_SANDBOX", v)
		}
	}

	return cfg
}

func ignoreEnv(w io.Writer, name, value string) {
	fmt.Fprintf(w, "warning: ignoring %s=%q (invalid value)\n", name, value)
}

// warnUnknownEnvVars reports PDFEXPORT_* variables that nothing reads.
func warnUnknownEnvVars(w io.Writer, environ []string) {
	for _, kv := range environ {
		if !strings.HasPrefix(kv, envPrefix) {
			continue
		}
		name, _, _ := strings.Cut(kv, "=")
		if !knownEnvVars[name] {
			fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
		}
	}
}

// applyEnvConfig overwrites config file values with the set variables.
// Flags are applied afterwards: flags > env > config file > defaults.
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	if env.OutDir != "" {
		cfg.Output.Dir = env.OutDir
	}
	if env.Concurrency != nil {
		cfg.Concurrency = *env.Concurrency
	}
	if env.Engine != "" {
		cfg.Browser.Engine = env.Engine
	}
	if env.LogLevel != "" {
		cfg.Log.Level = env.LogLevel
	}
	if env.LogFormat != "" {
		cfg.Log.Format = env.LogFormat
	}
	if env.NoSandbox != nil {
		cfg.Browser.NoSandbox = *env.NoSandbox
	}
	if env.BrowserBin != "" {
		cfg.Browser.Bin = env.BrowserBin
	}
}
