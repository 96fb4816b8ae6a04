package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/resumesite/pdfexport"
	"github.com/resumesite/pdfexport/internal/config"
)

// ---------------------------------------------------------------------------
// TestExitCodeFor - Error to exit code mapping
// ---------------------------------------------------------------------------

func TestExitCodeFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"unknown", errors.New("boom"), ExitGeneral},
		{"canceled", context.Canceled, ExitGeneral},
		{"listen", fmt.Errorf("%w: 127.0.0.1:8080", pdfexport.ErrListen), ExitServer},
		{"browser", fmt.Errorf("%w: exec: not found", pdfexport.ErrBrowserLaunch), ExitBrowser},
		{"output dir", fmt.Errorf("%w: dist", pdfexport.ErrOutputDir), ExitIO},
		{"permission", fmt.Errorf("open: %w", os.ErrPermission), ExitIO},
		{"config missing", fmt.Errorf("%w: x.yaml", config.ErrConfigNotFound), ExitUsage},
		{"config parse", config.ErrConfigParse, ExitUsage},
		{"config invalid", config.ErrConfigInvalid, ExitUsage},
		{"field too long", config.ErrFieldTooLong, ExitUsage},
		{"usage", fmt.Errorf("%w: bad flag", ErrUsage), ExitUsage},
		{"unknown command", ErrUnknownCommand, ExitUsage},
		{"no targets", pdfexport.ErrNoTargets, ExitUsage},
		{"invalid target", pdfexport.ErrInvalidTarget, ExitUsage},
		{"duplicate output", pdfexport.ErrDuplicateOutput, ExitUsage},
		{"page size", pdfexport.ErrInvalidPageSize, ExitUsage},
		{"margin", pdfexport.ErrInvalidMargin, ExitUsage},
		{"assets", pdfexport.ErrAssets, ExitUsage},
		{"site root", pdfexport.ErrInvalidRoot, ExitUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestExitCodeConstants(t *testing.T) {
	t.Parallel()

	codes := []int{ExitSuccess, ExitGeneral, ExitUsage, ExitIO, ExitBrowser, ExitServer}
	seen := map[int]bool{}
	for _, c := range codes {
		if seen[c] {
			t.Errorf("duplicate exit code %d", c)
		}
		if c < 0 || c >= 126 {
			t.Errorf("exit code %d outside 0..125", c)
		}
		seen[c] = true
	}
}
