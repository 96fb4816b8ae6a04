package pdfexport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/resumesite/pdfexport/internal/hints"
	"github.com/resumesite/pdfexport/internal/poll"
)

// Phase is a checkpoint of an export job. Phases are reached in declaration
// order.
type Phase string

// Export job phases.
const (
	PhaseNavigating Phase = "navigating"
	PhaseFonts      Phase = "fonts"
	PhaseDiagrams   Phase = "diagrams"
	PhaseNormalized Phase = "normalized"
	PhasePaginated  Phase = "paginated"
	PhaseWritten    Phase = "written"
)

// Result is the outcome of one target.
type Result struct {
	Target   Target
	Output   string // resolved output path
	Phase    Phase  // last phase reached
	Pages    int
	Bytes    int
	Diagrams int // placeholders found on the page
	Duration time.Duration
	Warnings []string // degraded waits and skipped steps
	Err      error
}

// OK reports whether the PDF was written.
func (r Result) OK() bool {
	return r.Err == nil
}

// job is the per-target state threaded through the stages.
type job struct {
	target Target
	url    string
	logger *slog.Logger
	result *Result
}

func (j *job) enter(p Phase) {
	j.result.Phase = p
	j.logger.Debug("phase", "phase", p)
}

// warn records a non-fatal problem on the result.
func (j *job) warn(p Phase, msg string, err error) {
	text := fmt.Sprintf("%s: %s", p, msg)
	if err != nil {
		text += ": " + err.Error()
	}
	j.result.Warnings = append(j.result.Warnings, text)
	j.logger.Warn(msg, "phase", p, "error", err)
}

// degrade turns a wait timeout into a warning. Any other error, which can
// only be cancellation of the run, is returned.
func (j *job) degrade(p Phase, msg, setting string, timeout time.Duration, err error) error {
	if err == nil {
		return nil
	}
	if !errors.Is(err, poll.ErrTimeout) {
		return err
	}
	j.result.Warnings = append(j.result.Warnings, fmt.Sprintf("%s: %s after %s", p, msg, timeout))
	j.logger.Warn(msg+hints.ForTimeout(setting), "phase", p, "timeout", timeout)
	return nil
}

// runJob exports one target on its own tab. Errors end up in the Result.
func (r *run) runJob(ctx context.Context, t Target) Result {
	start := time.Now()
	res := Result{Target: t, Output: t.Output}
	j := &job{
		target: t,
		url:    r.baseURL + t.urlPath(),
		logger: r.logger.With("target", t.Name),
		result: &res,
	}

	if err := r.export(ctx, j); err != nil {
		res.Err = err
		j.logger.Error("export failed",
			"url", j.url,
			"output", res.Output,
			"phase", res.Phase,
			"error", err.Error()+r.hintFor(err, t),
		)
	} else {
		j.logger.Info("exported",
			"output", res.Output,
			"pages", res.Pages,
			"bytes", res.Bytes,
			"warnings", len(res.Warnings),
		)
	}
	res.Duration = time.Since(start)
	return res
}

// export runs Prep, Normalize and Emit strictly in order.
func (r *run) export(ctx context.Context, j *job) error {
	tab, err := r.browser.NewTab(ctx)
	if err != nil {
		if errors.Is(err, ErrPageCreate) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer func() {
		if err := tab.Close(); err != nil {
			j.logger.Debug("closing tab", "error", err)
		}
	}()

	if err := r.prepare(ctx, tab, j); err != nil {
		return err
	}
	if err := r.normalize(ctx, tab, j); err != nil {
		return err
	}
	return r.emit(ctx, tab, j)
}

func (r *run) hintFor(err error, t Target) string {
	switch {
	case errors.Is(err, ErrNavigation):
		return hints.ForNavigation(r.settings.root, t.urlPath())
	case errors.Is(err, ErrWritePDF):
		return hints.ForOutputDirectory()
	default:
		return ""
	}
}
