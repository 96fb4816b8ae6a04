package pdfexport

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/resumesite/pdfexport/internal/assets"
	"github.com/resumesite/pdfexport/internal/poll"
)

// mediaScreen keeps print-only CSS from fighting the normalization stage.
const mediaScreen = "screen"

// diagramStatus is returned by the diagrams-ready script.
type diagramStatus struct {
	Total int `json:"total"`
	Ready int `json:"ready"`
}

// prepare loads the page and waits until fonts and diagrams are ready.
// Only navigation failures and cancellation are fatal; everything else
// degrades to a warning.
func (r *run) prepare(ctx context.Context, tab Tab, j *job) error {
	s := r.settings

	if err := tab.BlockImages(ctx, s.allowImages); err != nil {
		j.warn(PhaseNavigating, "image filter not installed", err)
	}
	if err := tab.SetViewport(ctx, s.viewport); err != nil {
		j.warn(PhaseNavigating, "viewport not applied", err)
	}

	j.enter(PhaseNavigating)
	if err := r.navigate(ctx, tab, j); err != nil {
		return err
	}

	if s.emulateScreen {
		if err := tab.EmulateMedia(ctx, mediaScreen); err != nil {
			j.warn(PhaseNavigating, "screen media not emulated", err)
		}
	}
	if css := r.pageCSS(); css != "" {
		if err := tab.AddStyle(ctx, css); err != nil {
			j.warn(PhaseNavigating, "font stylesheet not injected", err)
		}
	}

	j.enter(PhaseFonts)
	if err := r.waitFonts(ctx, tab, j); err != nil {
		return err
	}

	j.enter(PhaseDiagrams)
	waited, err := r.waitDiagrams(ctx, tab, j)
	if err != nil {
		return err
	}
	if waited {
		if err := poll.Sleep(ctx, s.waits.Settle); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// navigate loads the target URL within the navigation timeout.
// The page is probed with HEAD first: browsers render error pages for 404s
// without failing navigation.
func (r *run) navigate(ctx context.Context, tab Tab, j *job) error {
	navCtx, cancel := context.WithTimeout(ctx, r.settings.waits.Navigation)
	defer cancel()

	if err := r.probe(navCtx, j.url); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNavigation, j.url, err)
	}
	if err := tab.Navigate(navCtx, j.url, r.settings.waits.NetworkIdle); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s: %v", ErrNavigation, j.url, err)
	}
	return nil
}

func (r *run) probe(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}

// pageCSS joins the embedded font stack with the user's extra CSS.
func (r *run) pageCSS() string {
	parts := make([]string, 0, 2)
	if css := strings.TrimSpace(r.bundle.FontCSS); css != "" {
		parts = append(parts, css)
	}
	if css := strings.TrimSpace(r.settings.extraCSS); css != "" {
		parts = append(parts, css)
	}
	return strings.Join(parts, "\n\n")
}

func (r *run) waitFonts(ctx context.Context, tab Tab, j *job) error {
	w := r.settings.waits
	if w.Fonts <= 0 {
		return nil
	}
	js := r.bundle.Script(assets.ScriptFontsReady)
	err := poll.Until(ctx, w.Interval, w.Fonts, func(ctx context.Context) (bool, error) {
		var loaded bool
		err := tab.Eval(ctx, js, &loaded)
		return loaded, err
	})
	return j.degrade(PhaseFonts, "fonts not loaded", "wait.fonts", w.Fonts, err)
}

// waitDiagrams waits for the renderer library and then for every placeholder
// to hold a rendered svg. It reports whether the page had placeholders.
func (r *run) waitDiagrams(ctx context.Context, tab Tab, j *job) (bool, error) {
	w, d := r.settings.waits, r.settings.diagrams

	var count int
	if err := tab.Eval(ctx, r.bundle.Script(assets.ScriptDiagramCount), &count, d.Selector); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		j.warn(PhaseDiagrams, "diagram count failed", err)
		return false, nil
	}
	j.result.Diagrams = count
	if count == 0 {
		j.logger.Debug("no diagrams on page", "selector", d.Selector)
		return false, nil
	}

	if d.Library != "" && w.Library > 0 {
		js := r.bundle.Script(assets.ScriptLibraryReady)
		err := poll.Until(ctx, w.Interval, w.Library, func(ctx context.Context) (bool, error) {
			var present bool
			err := tab.Eval(ctx, js, &present, d.Library)
			return present, err
		})
		msg := fmt.Sprintf("diagram library %q not loaded", d.Library)
		if err := j.degrade(PhaseDiagrams, msg, "wait.library", w.Library, err); err != nil {
			return true, err
		}
	}

	if w.Diagrams > 0 {
		js := r.bundle.Script(assets.ScriptDiagramsReady)
		var last diagramStatus
		err := poll.Until(ctx, w.Interval, w.Diagrams, func(ctx context.Context) (bool, error) {
			var st diagramStatus
			if err := tab.Eval(ctx, js, &st, d.Selector, d.MinElements); err != nil {
				return false, err
			}
			last = st
			return st.Ready >= st.Total, nil
		})
		msg := fmt.Sprintf("%d of %d diagrams rendered", last.Ready, count)
		if last.Total > 0 {
			msg = fmt.Sprintf("%d of %d diagrams rendered", last.Ready, last.Total)
		}
		if err := j.degrade(PhaseDiagrams, msg, "wait.diagrams", w.Diagrams, err); err != nil {
			return true, err
		}
	}
	return true, nil
}
