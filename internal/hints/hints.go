// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"strings"

	"github.com/resumesite/pdfexport/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// browserBinVars are checked in order when locating an external browser.
var browserBinVars = []string{"PDFEXPORT_BROWSER_BIN", "PUPPETEER_EXECUTABLE_PATH", "ROD_BROWSER_BIN"}

// ForBrowserLaunch returns hints for browser launch errors.
// Detects CI/Docker environment and suggests relevant environment variables.
func ForBrowserLaunch() string {
	var hints []string

	inCI := os.Getenv("CI") != "" ||
		os.Getenv("GITHUB_ACTIONS") != "" ||
		os.Getenv("GITLAB_CI") != "" ||
		os.Getenv("JENKINS_URL") != ""

	if (inCI || IsInContainer()) && os.Getenv("PDFEXPORT_NO_SANDBOX") != "1" {
		hints = append(hints, "set PDFEXPORT_NO_SANDBOX=1 for Docker/CI")
	}

	configured := false
	for _, name := range browserBinVars {
		if os.Getenv(name) != "" {
			configured = true
			break
		}
	}
	if !configured {
		hints = append(hints, "set PDFEXPORT_BROWSER_BIN to use an installed Chrome or Chromium")
	}

	return formatHints(hints)
}

// ForListen returns a hint for a static server bind failure.
func ForListen(port int) string {
	if port == 0 {
		return format("check that the loopback interface is available")
	}
	return format("another process holds the port; stop it or use --port 0 to pick a free one")
}

// ForNavigation returns a hint for a page that failed to load.
func ForNavigation(root, urlPath string) string {
	return format("check that " + strings.TrimPrefix(urlPath, "/") + " exists under " + root + " (build the site first)")
}

// ForTimeout returns a hint about raising a readiness wait.
func ForTimeout(setting string) string {
	return format("raise " + setting + " in pdfexport.yaml if the page is slow to settle")
}

// ForOutputDirectory returns hints for output directory creation errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

// ForConfigNotFound returns a hint for an explicit config path that is missing.
func ForConfigNotFound() string {
	return format("omit --config to use defaults, or pass the path to an existing pdfexport.yaml")
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
