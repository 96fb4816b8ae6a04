package pdfexport

import (
	"context"
	"fmt"

	"github.com/resumesite/pdfexport/internal/fileutil"
	"github.com/resumesite/pdfexport/internal/pdfcheck"
)

// explicitPageRange limits explicit-mode output to the first page.
const explicitPageRange = "1"

// printOptions maps a page spec to browser print settings.
func printOptions(p PageSpec) PrintOptions {
	marginIn := p.MarginMM / mmPerInch
	if p.Mode == ModeExplicit {
		return PrintOptions{
			PaperWidthIn:      p.WidthMM / mmPerInch,
			PaperHeightIn:     p.HeightMM / mmPerInch,
			MarginIn:          marginIn,
			PreferCSSPageSize: false,
			PrintBackground:   true,
			PageRanges:        explicitPageRange,
		}
	}
	// A4 unless the page declares @page { size }.
	return PrintOptions{
		PaperWidthIn:      a4WidthIn,
		PaperHeightIn:     a4HeightIn,
		MarginIn:          marginIn,
		PreferCSSPageSize: true,
		PrintBackground:   true,
	}
}

// expectFor returns what a correct PDF for p looks like. CSS mode can paginate
// to any size, so only validity is checked.
func expectFor(p PageSpec) pdfcheck.Expect {
	if p.Mode == ModeExplicit {
		return pdfcheck.Expect{Pages: 1, WidthMM: p.WidthMM, HeightMM: p.HeightMM}
	}
	return pdfcheck.Expect{}
}

// emit prints the tab, verifies the bytes and writes them atomically.
func (r *run) emit(ctx context.Context, tab Tab, j *job) error {
	page := j.target.Page

	data, err := tab.PrintPDF(ctx, printOptions(page))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}
	j.enter(PhasePaginated)

	info, err := pdfcheck.Check(data, expectFor(page))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}

	if err := fileutil.WriteFileAtomic(j.result.Output, data, fileutil.FilePerm); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWritePDF, j.result.Output, err)
	}
	j.result.Pages = info.Pages
	j.result.Bytes = len(data)
	j.enter(PhaseWritten)
	return nil
}
