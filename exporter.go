package pdfexport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/resumesite/pdfexport/internal/assets"
	"github.com/resumesite/pdfexport/internal/fileutil"
	"github.com/resumesite/pdfexport/internal/hints"
	"github.com/resumesite/pdfexport/internal/server"
)

// RunState is the lifecycle state of an export run.
type RunState string

// Run states. A run moves init → serving → processing → done, or to failed
// from init or serving.
const (
	StateInit       RunState = "init"
	StateServing    RunState = "serving"
	StateProcessing RunState = "processing"
	StateDone       RunState = "done"
	StateFailed     RunState = "failed"
)

// shutdownTimeout bounds the static server's graceful shutdown.
const shutdownTimeout = 5 * time.Second

// Report summarizes one run.
type Report struct {
	RunID    string
	State    RunState
	Started  time.Time
	Duration time.Duration
	Results  []Result // in target order
}

// Failed returns the results of targets that produced no PDF.
func (r *Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.OK() {
			out = append(out, res)
		}
	}
	return out
}

// Succeeded returns the results of targets whose PDF was written.
func (r *Report) Succeeded() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.OK() {
			out = append(out, res)
		}
	}
	return out
}

// Exporter serves a site directory and prints its pages to PDF.
// Runs may be repeated but not overlapped.
type Exporter struct {
	cfg      settings
	launcher Launcher
	logger   *slog.Logger
	client   *http.Client

	mu    sync.Mutex
	state RunState
}

// NewExporter creates an Exporter with default configuration.
// Use options to customize behavior (e.g., WithConcurrency, WithEngine).
func NewExporter(opts ...Option) *Exporter {
	e := &Exporter{
		cfg:    defaultSettings(),
		logger: slog.Default(),
		client: &http.Client{},
		state:  StateInit,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the state of the current or last run.
func (e *Exporter) State() RunState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// run is the shared, read-only context of every job in one Run.
type run struct {
	settings *settings
	baseURL  string
	browser  Browser
	bundle   *assets.Bundle
	client   *http.Client
	logger   *slog.Logger
}

// Run exports every target and returns a report with one Result per target.
// The returned error is non-nil only for run-level failures: invalid targets,
// unusable assets, server bind, browser launch or output directories.
// Per-target failures are reported in the Results.
func (e *Exporter) Run(ctx context.Context, targets []Target) (report *Report, err error) {
	report = &Report{RunID: uuid.NewString(), Started: time.Now()}
	logger := e.logger.With("run_id", report.RunID)
	e.setState(report, logger, StateInit)

	defer func() {
		report.Duration = time.Since(report.Started)
		if err != nil && report.State != StateDone {
			e.setState(report, logger, StateFailed)
		}
	}()

	targets = e.resolveOutputs(targets)
	if err := ValidateTargets(targets); err != nil {
		return report, err
	}
	if err := e.cfg.rules.Validate(); err != nil {
		return report, fmt.Errorf("%w: %v", ErrAssets, err)
	}
	bundle, err := e.loadBundle(logger)
	if err != nil {
		return report, err
	}

	launch := e.launcher
	if launch == nil {
		if launch, err = LauncherFor(e.cfg.engine); err != nil {
			return report, err
		}
	}

	srv, err := server.New(server.Config{Root: e.cfg.root, Host: e.cfg.host, Port: e.cfg.port}, logger)
	if err != nil {
		return report, err
	}
	// Shutdown also releases the root when Start never bound.
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("static server shutdown", "error", err)
		}
	}()
	if err := srv.Start(); err != nil {
		return report, fmt.Errorf("%w%s", err, hints.ForListen(e.cfg.port))
	}
	e.setState(report, logger, StateServing)
	logger.Info("serving", "root", e.cfg.root, "url", srv.BaseURL())

	browser, err := launch(ctx, LaunchOptions{Bin: e.cfg.browserBin, NoSandbox: e.cfg.noSandbox, Logger: logger})
	if err != nil {
		if !errors.Is(err, ErrBrowserLaunch) {
			err = fmt.Errorf("%w: %v", ErrBrowserLaunch, err)
		}
		return report, fmt.Errorf("%w%s", err, hints.ForBrowserLaunch())
	}
	// Registered after the server's defer: the browser closes first.
	defer func() {
		if err := browser.Close(); err != nil {
			logger.Warn("browser close", "error", err)
		}
	}()

	if err := ensureOutputDirs(targets); err != nil {
		return report, err
	}

	r := &run{
		settings: &e.cfg,
		baseURL:  srv.BaseURL(),
		browser:  browser,
		bundle:   bundle,
		client:   e.client,
		logger:   logger,
	}

	limit := ResolveConcurrency(e.cfg.concurrency, len(targets))
	e.setState(report, logger, StateProcessing)
	logger.Info("exporting", "targets", len(targets), "concurrency", limit, "engine", e.cfg.engine)

	report.Results = make([]Result, len(targets))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, t := range targets {
		g.Go(func() error {
			report.Results[i] = r.runJob(ctx, t)
			return nil
		})
	}
	_ = g.Wait()

	e.setState(report, logger, StateDone)
	logger.Info("run finished",
		"succeeded", len(report.Succeeded()),
		"failed", len(report.Failed()),
		"duration", time.Since(report.Started).Round(time.Millisecond),
	)
	return report, ctx.Err()
}

func (e *Exporter) setState(report *Report, logger *slog.Logger, s RunState) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
	report.State = s
	logger.Debug("run state", "state", s)
}

// resolveOutputs returns a copy of targets with outputs joined to the output
// directory.
func (e *Exporter) resolveOutputs(targets []Target) []Target {
	out := make([]Target, len(targets))
	for i, t := range targets {
		if t.Output != "" {
			t.Output = fileutil.ResolveOutput(e.cfg.outputDir, t.Output)
		}
		out[i] = t
	}
	return out
}

func (e *Exporter) loadBundle(logger *slog.Logger) (*assets.Bundle, error) {
	resolver, err := assets.NewResolver(e.cfg.assetsDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssets, err)
	}
	bundle, err := assets.LoadBundle(resolver)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssets, err)
	}
	if resolver.HasCustomLoader() {
		logger.Debug("asset overrides enabled", "dir", e.cfg.assetsDir)
	}
	return bundle, nil
}

// ensureOutputDirs creates the parent directory of every output once.
func ensureOutputDirs(targets []Target) error {
	seen := make(map[string]bool, len(targets))
	for _, t := range targets {
		dir := filepath.Dir(t.Output)
		if seen[dir] {
			continue
		}
		seen[dir] = true
		if err := fileutil.EnsureDir(dir); err != nil {
			return fmt.Errorf("%w: %s: %v%s", ErrOutputDir, dir, err, hints.ForOutputDirectory())
		}
	}
	return nil
}
