// Package pdfexport prints the pages of a static résumé/portfolio site to PDF
// with a headless browser.
//
// # Quick Start
//
// An Exporter serves a site directory on loopback, opens one browser and
// exports every target through it:
//
//	e := pdfexport.NewExporter(
//	    pdfexport.WithRoot("public"),
//	    pdfexport.WithOutputDir("dist"),
//	)
//	report, err := e.Run(ctx, pdfexport.DefaultTargets(""))
//	if err != nil {
//	    log.Fatal(err) // the run could not start: bind, launch, output dir
//	}
//	for _, r := range report.Failed() {
//	    log.Printf("%s: %v", r.Target.Name, r.Err)
//	}
//
// A failed target never stops the others; its error is in its Result.
//
// # Export Stages
//
// Each target runs in its own tab through these stages, strictly in order:
//
//  1. Preparation: block images outside the allow list, set the viewport,
//     load the page, inject the font stack, then wait for web fonts and for
//     diagram placeholders to render
//  2. Normalization: apply the print Ruleset (expand collapsed cards, unpin
//     the sidebar, fill skill bars, hide on-screen controls)
//  3. Emission: print with the target's PageSpec, verify the PDF and write it
//     atomically
//
// Readiness waits that time out degrade to warnings in the Result; the page
// is printed as it is.
//
// # Page Modes
//
// CSSPage prints on A4 and lets the page's @page rules choose the paper.
// ExplicitPage prints exactly one page of the given size, for long single-page
// layouts such as intro cards.
//
// # Configuration
//
// Functional options cover the server, browser, waits and concurrency:
//
//	e := pdfexport.NewExporter(
//	    pdfexport.WithEngine(pdfexport.EngineChromedp),
//	    pdfexport.WithConcurrency(pdfexport.ConcurrencyAuto),
//	    pdfexport.WithWaits(waits),
//	    pdfexport.WithAssetsDir("pdf-assets"),
//	)
//
// WithAssetsDir overrides the embedded browser scripts and font CSS per file:
//
//	pdf-assets/
//	├── scripts/
//	│   └── normalize.js
//	└── styles/
//	    └── korean-fonts.css
//
// # Browser Requirements
//
// The default rod engine downloads a managed Chromium on first run when no
// browser is configured. The chromedp engine needs an installed Chrome.
// PDFEXPORT_BROWSER_BIN selects a binary for either; in containers and CI,
// use WithNoSandbox(true).
package pdfexport
