package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/resumesite/pdfexport"
	"github.com/resumesite/pdfexport/internal/config"
	"github.com/resumesite/pdfexport/internal/hints"
	"github.com/resumesite/pdfexport/internal/logger"
)

// run dispatches subcommands and runs the export. It returns the exit code.
func run(args []string, env *Environment) int {
	var rest []string
	if len(args) > 1 {
		rest = args[1:]
	}

	if len(rest) > 0 {
		switch rest[0] {
		case "version":
			printVersion(env.Stdout)
			return ExitSuccess
		case "help":
			printUsage(env.Stdout)
			return ExitSuccess
		case "doctor":
			return runDoctorCmd(rest[1:], env)
		}
	}

	flags, positional, err := parseFlags(rest)
	if err != nil {
		return fail(env.Stderr, err)
	}
	if len(positional) > 0 {
		return fail(env.Stderr, fmt.Errorf("%w: %q (targets come from the config file)", ErrUnknownCommand, positional[0]))
	}
	if flags.help {
		printUsage(env.Stdout)
		return ExitSuccess
	}
	if flags.version {
		printVersion(env.Stdout)
		return ExitSuccess
	}

	if env.Environ != nil {
		warnUnknownEnvVars(env.Stderr, env.Environ())
	}
	envCfg := loadEnvConfig(env.Getenv, env.Stderr)

	cfg, err := loadConfig(flags, envCfg, env)
	if err != nil {
		return fail(env.Stderr, err)
	}
	applyEnvConfig(envCfg, cfg)
	if err := applyFlags(flags, cfg); err != nil {
		return fail(env.Stderr, err)
	}
	if err := cfg.Validate(); err != nil {
		return fail(env.Stderr, err)
	}

	if flags.printConfig {
		data, err := cfg.Marshal()
		if err != nil {
			return fail(env.Stderr, err)
		}
		_, _ = env.Stdout.Write(data)
		return ExitSuccess
	}

	log := newLogger(cfg, flags, env.Stderr)
	opts, err := exporterOptions(cfg, log, env)
	if err != nil {
		return fail(env.Stderr, err)
	}

	ctx, stop := notifyContext(context.Background())
	defer stop()

	report, err := pdfexport.NewExporter(opts...).Run(ctx, buildTargets(cfg))
	if report != nil {
		printSummary(env, report)
	}
	if err != nil {
		return fail(env.Stderr, err)
	}

	if n := len(report.Failed()); n > 0 && cfg.Strict && !flags.bestEffort {
		fmt.Fprintf(env.Stderr, "error: %v (%d)\n", ErrTargetsFailed, n)
		return ExitGeneral
	}
	return ExitSuccess
}

// fail prints err and maps it to an exit code.
func fail(w io.Writer, err error) int {
	fmt.Fprintf(w, "error: %v\n", err)
	code := exitCodeFor(err)
	if code == ExitUsage && (errors.Is(err, ErrUsage) || errors.Is(err, ErrUnknownCommand)) {
		fmt.Fprintln(w, "Run 'pdfexport --help' for usage.")
	}
	return code
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "pdfexport %s\n", Version)
}

// loadConfig resolves the config path (flag, then PDFEXPORT_CONFIG, then a
// pdfexport.yaml in the working directory) and loads it. Without any file the
// defaults are used. An explicitly named file must exist.
func loadConfig(flags *cliFlags, envCfg *envConfig, env *Environment) (*config.Config, error) {
	path := flags.config
	if path == "" {
		path = envCfg.ConfigPath
	}
	explicit := path != ""

	if !explicit {
		dir, err := env.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		if path, err = config.FindConfig(dir); err != nil {
			return nil, err
		}
		if path == "" {
			return config.DefaultConfig(), nil
		}
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		if explicit && errors.Is(err, config.ErrConfigNotFound) {
			return nil, fmt.Errorf("%w%s", err, hints.ForConfigNotFound())
		}
		return nil, err
	}
	return cfg, nil
}

// applyFlags overrides cfg with every flag given on the command line.
func applyFlags(flags *cliFlags, cfg *config.Config) error {
	if flags.changed("root") {
		cfg.Server.Root = flags.root
	}
	if flags.changed("port") {
		if flags.port < 0 || flags.port > 65535 {
			return fmt.Errorf("%w: --port must be between 0 and 65535, got %d", ErrUsage, flags.port)
		}
		cfg.Server.Port = flags.port
	}
	if flags.changed("out-dir") {
		cfg.Output.Dir = flags.outDir
	}
	if flags.changed("assets-dir") {
		cfg.Assets.Dir = flags.assetsDir
	}
	if flags.changed("engine") {
		cfg.Browser.Engine = strings.ToLower(flags.engine)
	}
	if flags.changed("concurrency") {
		n, err := parseConcurrency(flags.concurrency)
		if err != nil {
			return err
		}
		cfg.Concurrency = n
	}
	if flags.sequential {
		cfg.Concurrency = 1
	}
	if flags.changed("log-format") {
		cfg.Log.Format = flags.logFormat
	}
	switch {
	case flags.verbose:
		cfg.Log.Level = string(logger.LevelDebug)
	case flags.quiet:
		cfg.Log.Level = string(logger.LevelError)
	}
	return nil
}

// newLogger builds the stderr logger. cfg is validated, so parse errors
// cannot occur here.
func newLogger(cfg *config.Config, flags *cliFlags, w io.Writer) *logger.Logger {
	level, _ := logger.ParseLevel(cfg.Log.Level)
	format, _ := logger.ParseFormat(cfg.Log.Format)
	log := logger.New(&logger.Config{Level: level, Format: format, Output: w})
	if flags.verbose {
		log.Debug("effective settings",
			"root", cfg.Server.Root,
			"out_dir", cfg.Output.Dir,
			"engine", cfg.Browser.Engine,
			"concurrency", cfg.Concurrency,
		)
	}
	return log
}

// exporterOptions maps a validated config onto exporter options.
func exporterOptions(cfg *config.Config, log *logger.Logger, env *Environment) ([]pdfexport.Option, error) {
	waits, err := cfg.Wait.Parse()
	if err != nil {
		return nil, err
	}

	bin := cfg.Browser.Bin
	if bin == "" {
		bin = pdfexport.BrowserBinFrom(env.Getenv)
	}

	vp := cfg.Browser.Viewport
	opts := []pdfexport.Option{
		pdfexport.WithRoot(cfg.Server.Root),
		pdfexport.WithServer(cfg.Server.Host, cfg.Server.Port),
		pdfexport.WithOutputDir(cfg.Output.Dir),
		pdfexport.WithAssetsDir(cfg.Assets.Dir),
		pdfexport.WithEngine(pdfexport.Engine(strings.ToLower(cfg.Browser.Engine))),
		pdfexport.WithBrowserBin(bin),
		pdfexport.WithNoSandbox(cfg.Browser.NoSandbox),
		pdfexport.WithViewport(pdfexport.Viewport{Width: vp.Width, Height: vp.Height, Scale: vp.Scale}),
		pdfexport.WithImageAllowList(cfg.Images.Allow),
		pdfexport.WithWaits(pdfexport.Waits{
			Navigation:  waits.Navigation,
			Fonts:       waits.Fonts,
			Library:     waits.Library,
			Diagrams:    waits.Diagrams,
			Interval:    waits.Interval,
			Settle:      waits.Settle,
			NetworkIdle: waits.NetworkIdle,
		}),
		pdfexport.WithDiagrams(pdfexport.Diagrams{
			Selector:    cfg.Diagrams.Selector,
			Library:     cfg.Diagrams.Library,
			MinElements: cfg.Diagrams.MinElements,
		}),
		pdfexport.WithConcurrency(cfg.Concurrency),
		pdfexport.WithEmulateScreen(cfg.EmulateScreen),
		pdfexport.WithExtraCSS(cfg.ExtraCSS),
		pdfexport.WithLogger(log.Logger),
	}
	if env.Launcher != nil {
		opts = append(opts, pdfexport.WithLauncher(env.Launcher))
	}
	return opts, nil
}

// buildTargets converts configured targets, or returns the built-in set.
// Relative outputs resolve against the output directory.
func buildTargets(cfg *config.Config) []pdfexport.Target {
	if len(cfg.Targets) == 0 {
		return pdfexport.DefaultTargets("")
	}
	targets := make([]pdfexport.Target, 0, len(cfg.Targets))
	for _, tc := range cfg.Targets {
		page := pdfexport.CSSPage()
		if strings.EqualFold(tc.Mode, config.ModeExplicit) {
			page = pdfexport.ExplicitPage(tc.WidthMM, tc.HeightMM)
		}
		if tc.MarginMM != nil {
			page.MarginMM = *tc.MarginMM
		}
		targets = append(targets, pdfexport.Target{
			Name:   tc.Name,
			Path:   tc.Path,
			Output: tc.Output,
			Page:   page,
		})
	}
	return targets
}

// printSummary reports every target: failures on stderr, PDFs on stdout.
func printSummary(env *Environment, report *pdfexport.Report) {
	if len(report.Results) == 0 {
		return
	}
	for _, r := range report.Results {
		if !r.OK() {
			fmt.Fprintf(env.Stderr, "FAILED %s: %v\n", r.Target.Name, r.Err)
			continue
		}
		fmt.Fprintf(env.Stdout, "%s -> %s (%v, %d pages)\n", r.Target.Name, r.Output, r.Duration.Round(time.Millisecond), r.Pages)
		for _, w := range r.Warnings {
			fmt.Fprintf(env.Stderr, "warning: %s: %s\n", r.Target.Name, w)
		}
	}
	fmt.Fprintf(env.Stdout, "\n%d succeeded, %d failed\n", len(report.Succeeded()), len(report.Failed()))
}
