package pdfexport

import (
	"context"

	"github.com/resumesite/pdfexport/internal/assets"
)

// normalize applies the print ruleset inside the tab. Failures degrade to a
// warning; the page is printed as rendered.
func (r *run) normalize(ctx context.Context, tab Tab, j *job) error {
	var changed int
	err := tab.Eval(ctx, r.bundle.Script(assets.ScriptNormalize), &changed, r.settings.rules)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		j.warn(PhaseNormalized, "print normalization skipped", err)
	} else {
		j.logger.Debug("normalized", "changed", changed, "rules", len(r.settings.rules))
	}
	j.enter(PhaseNormalized)
	return nil
}
