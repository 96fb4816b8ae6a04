package pdfexport

import (
	"errors"

	"github.com/resumesite/pdfexport/internal/server"
)

// Sentinel errors for export operations.
var (
	// Run-level: the batch cannot start or cannot continue.
	ErrListen        = server.ErrListen
	ErrInvalidRoot   = server.ErrInvalidRoot
	ErrBrowserLaunch = errors.New("failed to launch browser")
	ErrOutputDir     = errors.New("failed to create output directory")
	ErrNoTargets     = errors.New("no export targets")
	ErrAssets        = errors.New("failed to load browser assets")

	// Target-level: one target fails, the others continue.
	ErrPageCreate    = errors.New("failed to create browser tab")
	ErrNavigation    = errors.New("failed to load page")
	ErrPDFGeneration = errors.New("PDF generation failed")
	ErrInvalidPDF    = errors.New("generated PDF failed verification")
	ErrWritePDF      = errors.New("failed to write PDF")

	// Target validation errors.
	ErrInvalidTarget   = errors.New("invalid export target")
	ErrDuplicateOutput = errors.New("duplicate output path")
	ErrInvalidPageSize = errors.New("invalid page size")
	ErrInvalidMargin   = errors.New("invalid margin")
)
