package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: pdfexport [flags]")
	fmt.Fprintln(w, "       pdfexport doctor [--json]")
	fmt.Fprintln(w, "       pdfexport version")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Serve the built site and print its résumé and portfolio pages to PDF.")
	fmt.Fprintln(w, "Without flags, exports the default targets from the current directory into dist/.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Input/Output:")
	fmt.Fprintln(w, "  -c, --config <path>       Config file (default: ./pdfexport.yaml if present)")
	fmt.Fprintln(w, "  -r, --root <dir>          Site directory to serve")
	fmt.Fprintln(w, "  -o, --out-dir <dir>       Output directory for PDFs")
	fmt.Fprintln(w, "  -p, --port <n>            Static server port (0 = any free port)")
	fmt.Fprintln(w, "      --assets-dir <dir>    Override embedded scripts/ and styles/")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Browser:")
	fmt.Fprintln(w, "      --engine <name>       Engine: rod (default), chromedp")
	fmt.Fprintln(w, "  -j, --concurrency <n>     Targets at once: 0 = all, 1 = sequential, auto")
	fmt.Fprintln(w, "      --sequential          Same as -j 1")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Behavior:")
	fmt.Fprintln(w, "      --best-effort         Exit 0 even if some targets failed")
	fmt.Fprintln(w, "      --print-config        Print the effective configuration and exit")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output Control:")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show debug logs")
	fmt.Fprintln(w, "      --log-format <fmt>    Log format: text, json")
	fmt.Fprintln(w, "      --version             Show version")
	fmt.Fprintln(w, "  -h, --help                Show this help")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  PDFEXPORT_BROWSER_BIN     Installed Chrome/Chromium to use")
	fmt.Fprintln(w, "  PDFEXPORT_NO_SANDBOX      Chrome sandbox off (default 1; set 0 to enable it)")
	fmt.Fprintln(w, "  PDFEXPORT_CONTAINER=1     Tell doctor it runs in a container")
	fmt.Fprintln(w, "  PDFEXPORT_CONFIG, PDFEXPORT_OUT_DIR, PDFEXPORT_CONCURRENCY,")
	fmt.Fprintln(w, "  PDFEXPORT_ENGINE, PDFEXPORT_LOG_LEVEL, PDFEXPORT_LOG_FORMAT")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Exit codes: 0 ok, 1 target failed, 2 usage/config, 3 output dir,")
	fmt.Fprintln(w, "            4 browser launch, 5 server bind")
}
