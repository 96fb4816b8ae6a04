package main

import (
	"errors"
	"os"

	"github.com/resumesite/pdfexport"
	"github.com/resumesite/pdfexport/internal/config"
)

// Exit codes for the pdfexport CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Every target exported
	ExitGeneral = 1 // A target failed (strict) or an unexpected error
	ExitUsage   = 2 // Invalid flags, config, or targets
	ExitIO      = 3 // Output directory not usable
	ExitBrowser = 4 // Browser could not be launched
	ExitServer  = 5 // Static server could not bind
)

// exitCodeFor returns the appropriate exit code for a run-level error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Server bind (exit 5)
	if errors.Is(err, pdfexport.ErrListen) {
		return ExitServer
	}

	// Browser errors (exit 4)
	if errors.Is(err, pdfexport.ErrBrowserLaunch) {
		return ExitBrowser
	}

	// I/O errors (exit 3)
	if errors.Is(err, pdfexport.ErrOutputDir) ||
		errors.Is(err, os.ErrPermission) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrConfigInvalid) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, ErrUsage) ||
		errors.Is(err, ErrUnknownCommand) ||
		errors.Is(err, pdfexport.ErrNoTargets) ||
		errors.Is(err, pdfexport.ErrInvalidTarget) ||
		errors.Is(err, pdfexport.ErrDuplicateOutput) ||
		errors.Is(err, pdfexport.ErrInvalidPageSize) ||
		errors.Is(err, pdfexport.ErrInvalidMargin) ||
		errors.Is(err, pdfexport.ErrAssets) ||
		errors.Is(err, pdfexport.ErrInvalidRoot) {
		return ExitUsage
	}

	return ExitGeneral
}
