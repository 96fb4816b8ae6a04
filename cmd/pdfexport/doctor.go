package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/launcher"

	"github.com/resumesite/pdfexport"
	"github.com/resumesite/pdfexport/internal/config"
)

// versionTimeout bounds "<browser> --version".
const versionTimeout = 10 * time.Second

// Doctor statuses.
const (
	statusReady    = "ready"
	statusWarnings = "warnings"
	statusErrors   = "errors"
)

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string      `json:"status"`
	Browser  browserInfo `json:"browser"`
	Env      envInfo     `json:"environment"`
	Site     siteInfo    `json:"site"`
	System   systemInfo  `json:"system"`
	Warnings []string    `json:"warnings,omitempty"`
	Errors   []string    `json:"errors,omitempty"`
}

type browserInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Sandbox bool   `json:"sandbox"`
}

type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
	NoSandbox     string `json:"no_sandbox"`
	BrowserBin    string `json:"browser_bin"`
}

// siteInfo lists which default target pages exist under the root.
type siteInfo struct {
	Root    string   `json:"root"`
	Pages   []string `json:"pages,omitempty"`
	Missing []string `json:"missing,omitempty"`
}

type systemInfo struct {
	TempWritable bool `json:"temp_writable"`
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = ready (including warnings), 1 = errors found.
func runDoctorCmd(args []string, env *Environment) int {
	jsonOutput := false
	root := ""
	for i := 0; i < len(args); i++ {
		switch arg := args[i]; {
		case arg == "--json":
			jsonOutput = true
		case arg == "--root" && i+1 < len(args):
			i++
			root = args[i]
		case strings.HasPrefix(arg, "--root="):
			root = strings.TrimPrefix(arg, "--root=")
		default:
			return fail(env.Stderr, fmt.Errorf("%w: doctor: unexpected argument %q", ErrUsage, arg))
		}
	}

	result := runDoctor(env, root)

	if jsonOutput {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == statusErrors {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks.
func runDoctor(env *Environment, root string) *doctorResult {
	getenv := env.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	stat := env.Stat
	if stat == nil {
		stat = os.Stat
	}

	result := &doctorResult{
		Status: statusReady,
		Env: envInfo{
			OS:         runtime.GOOS,
			Arch:       runtime.GOARCH,
			NoSandbox:  getenv("PDFEXPORT_NO_SANDBOX"),
			BrowserBin: getenv("PDFEXPORT_BROWSER_BIN"),
		},
	}

	checkBrowser(result, getenv)
	checkEnvironment(result, getenv, stat)
	checkSite(result, env, root)
	checkSystem(result)

	if len(result.Errors) > 0 {
		result.Status = statusErrors
	} else if len(result.Warnings) > 0 {
		result.Status = statusWarnings
	}
	return result
}

// checkBrowser locates Chrome the way the rod engine would.
func checkBrowser(result *doctorResult, getenv func(string) string) {
	result.Browser.Sandbox = !sandboxDisabled(getenv)

	path := pdfexport.BrowserBinFrom(getenv)
	if path == "" {
		var found bool
		if path, found = launcher.LookPath(); !found {
			result.Warnings = append(result.Warnings,
				"Chrome/Chromium not found; the rod engine will download one on first run (set PDFEXPORT_BROWSER_BIN to use an installed browser)")
			return
		}
	}

	if _, err := os.Stat(path); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("browser not found at %s", path))
		return
	}
	result.Browser.Found = true
	result.Browser.Path = path

	ctx, cancel := context.WithTimeout(context.Background(), versionTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, path, "--version").Output() // #nosec G204 -- browser path is user-provided
	if err == nil {
		result.Browser.Version = strings.TrimSpace(string(out))
	} else {
		result.Warnings = append(result.Warnings, fmt.Sprintf("could not get browser version: %v", err))
	}
}

// sandboxDisabled mirrors the export path: the config default, overridden by
// a parseable PDFEXPORT_NO_SANDBOX.
func sandboxDisabled(getenv func(string) string) bool {
	if b, err := strconv.ParseBool(strings.TrimSpace(getenv("PDFEXPORT_NO_SANDBOX"))); err == nil {
		return b
	}
	return config.DefaultConfig().Browser.NoSandbox
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(result *doctorResult, getenv func(string) string, stat func(string) (os.FileInfo, error)) {
	result.Env.Container, result.Env.ContainerHint = isContainer(getenv, stat)

	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"} {
		if getenv(v) != "" {
			result.Env.CI = true
			break
		}
	}

	if (result.Env.Container || result.Env.CI) && result.Browser.Sandbox {
		result.Warnings = append(result.Warnings,
			"container/CI detected but the Chrome sandbox is enabled; set PDFEXPORT_NO_SANDBOX=1")
	}
}

// isContainer returns whether a container was detected and which signal
// matched.
func isContainer(getenv func(string) string, stat func(string) (os.FileInfo, error)) (bool, string) {
	if getenv("PDFEXPORT_CONTAINER") == "1" {
		return true, "PDFEXPORT_CONTAINER=1"
	}
	if _, err := stat("/.dockerenv"); err == nil {
		return true, "/.dockerenv"
	}
	if v := getenv("container"); v != "" {
		return true, "container=" + v
	}
	if getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkSite looks for the built-in target pages under root (default: the
// working directory).
func checkSite(result *doctorResult, env *Environment, root string) {
	if root == "" {
		root = "."
		if env.Getwd != nil {
			if wd, err := env.Getwd(); err == nil {
				root = wd
			}
		}
	}
	result.Site.Root = root

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		result.Errors = append(result.Errors, fmt.Sprintf("site root %s is not a directory", root))
		return
	}

	for _, t := range pdfexport.DefaultTargets("") {
		page := strings.TrimPrefix(t.Path, "/")
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(page))); err == nil {
			result.Site.Pages = append(result.Site.Pages, page)
		} else {
			result.Site.Missing = append(result.Site.Missing, page)
		}
	}
	if len(result.Site.Pages) == 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("no default pages under %s; build the site or list targets in pdfexport.yaml", root))
	}
}

// checkSystem verifies the temp directory is writable.
func checkSystem(result *doctorResult) {
	f, err := os.CreateTemp("", "pdfexport-doctor-*")
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("temp directory not writable: %s", os.TempDir()))
		return
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	result.System.TempWritable = true
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "pdfexport doctor")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Browser")
	if r.Browser.Found {
		fmt.Fprintf(w, "  [OK] Found at %s\n", r.Browser.Path)
		if r.Browser.Version != "" {
			fmt.Fprintf(w, "  [OK] Version: %s\n", r.Browser.Version)
		}
		if r.Browser.Sandbox {
			fmt.Fprintln(w, "  [OK] Sandbox: enabled")
		} else {
			fmt.Fprintln(w, "  [OK] Sandbox: disabled (set PDFEXPORT_NO_SANDBOX=0 to enable)")
		}
	} else {
		fmt.Fprintln(w, "  [WARN] Not found")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintf(w, "  [OK] Container: detected (%s)\n", r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Site")
	fmt.Fprintf(w, "  Root: %s\n", r.Site.Root)
	for _, p := range r.Site.Pages {
		fmt.Fprintf(w, "  [OK] %s\n", p)
	}
	for _, p := range r.Site.Missing {
		fmt.Fprintf(w, "  [--] %s (missing)\n", p)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "System")
	if r.System.TempWritable {
		fmt.Fprintln(w, "  [OK] Temp directory: writable")
	} else {
		fmt.Fprintln(w, "  [ERROR] Temp directory: not writable")
	}
	fmt.Fprintln(w)

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}
	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case statusReady:
		fmt.Fprintln(w, "Status: Ready to export")
	case statusWarnings:
		fmt.Fprintln(w, "Status: Ready with warnings")
	case statusErrors:
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}
