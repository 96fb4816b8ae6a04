package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/resumesite/pdfexport"
)

// Sentinel errors for CLI operations.
var (
	ErrUsage          = errors.New("invalid usage")
	ErrTargetsFailed  = errors.New("one or more targets failed")
	ErrUnknownCommand = errors.New("unknown command")
)

// concurrencyAuto is the flag and env spelling of pdfexport.ConcurrencyAuto.
const concurrencyAuto = "auto"

// cliFlags holds every export flag.
type cliFlags struct {
	config      string
	outDir      string
	root        string
	port        int
	concurrency string
	sequential  bool
	engine      string
	assetsDir   string
	bestEffort  bool
	printConfig bool
	quiet       bool
	verbose     bool
	logFormat   string
	version     bool
	help        bool

	fs *flag.FlagSet
}

// changed reports whether the named flag was given on the command line.
func (f *cliFlags) changed(name string) bool {
	return f.fs != nil && f.fs.Changed(name)
}

// newFlagSet declares the export flags on a fresh FlagSet. Parse errors are
// returned, not printed; run reports them.
func newFlagSet(f *cliFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("pdfexport", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}

	fs.StringVarP(&f.config, "config", "c", "", "config file path (default: ./pdfexport.yaml if present)")
	fs.StringVarP(&f.outDir, "out-dir", "o", "", "output directory for PDFs")
	fs.StringVarP(&f.root, "root", "r", "", "site directory to serve")
	fs.IntVarP(&f.port, "port", "p", 0, "static server port (0 = any free port)")
	fs.StringVarP(&f.concurrency, "concurrency", "j", "", "targets exported at once (0 = all, auto = CPU based)")
	fs.BoolVar(&f.sequential, "sequential", false, "export one target at a time (same as -j 1)")
	fs.StringVar(&f.engine, "engine", "", "browser engine: rod, chromedp")
	fs.StringVar(&f.assetsDir, "assets-dir", "", "directory overriding embedded scripts/ and styles/")
	fs.BoolVar(&f.bestEffort, "best-effort", false, "exit 0 even if some targets failed")
	fs.BoolVar(&f.printConfig, "print-config", false, "print the effective configuration and exit")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show debug logs")
	fs.StringVar(&f.logFormat, "log-format", "", "log format: text, json")
	fs.BoolVar(&f.version, "version", false, "show version and exit")
	fs.BoolVarP(&f.help, "help", "h", false, "show help")

	return fs
}

// parseFlags parses export flags and returns positional args.
func parseFlags(args []string) (*cliFlags, []string, error) {
	f := &cliFlags{}
	f.fs = newFlagSet(f)

	if err := f.fs.Parse(args); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if f.quiet && f.verbose {
		return nil, nil, fmt.Errorf("%w: --quiet and --verbose are mutually exclusive", ErrUsage)
	}
	if f.sequential && f.changed("concurrency") {
		return nil, nil, fmt.Errorf("%w: --sequential and --concurrency are mutually exclusive", ErrUsage)
	}
	if f.concurrency != "" {
		if _, err := parseConcurrency(f.concurrency); err != nil {
			return nil, nil, err
		}
	}
	return f, f.fs.Args(), nil
}

// parseConcurrency accepts a non-negative integer or "auto".
func parseConcurrency(s string) (int, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, concurrencyAuto) {
		return pdfexport.ConcurrencyAuto, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: concurrency must be a non-negative integer or %q, got %q", ErrUsage, concurrencyAuto, s)
	}
	return n, nil
}
