package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/htmlcs/internal/config"
	"github.com/nao1215/htmlcs/internal/database"
	"github.com/nao1215/htmlcs/internal/files"
	hlog "github.com/nao1215/htmlcs/internal/log"
	"github.com/nao1215/htmlcs/internal/model"
	"github.com/nao1215/htmlcs/internal/pipeline"
	"github.com/nao1215/htmlcs/internal/report"
	"github.com/nao1215/htmlcs/internal/sniffer"
	"github.com/nao1215/htmlcs/internal/term"
)

// ErrSniffErrors is returned by scan --fail-on-error when at least one
// ERROR message was reported.
var ErrSniffErrors = errors.New("accessibility errors found")

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [files|directories|globs...]",
		Short: "Sniff HTML files for accessibility problems",
		Long: `Scan runs HTML_CodeSniffer on every HTML file given as an argument.

Directories are searched for *.html and *.htm files; other arguments are
glob patterns where "**" crosses directories. Each file is opened in a
headless browser, sniffed against the selected standard, and its messages
are printed as soon as it finishes.

Output that is not valid JSON is written to htmlcs-debug.log and the file
is skipped; the scan goes on with the next file.

Examples:
  # Sniff a single file
  htmlcs scan index.html

  # Sniff a site against WCAG 2.0 AAA, printing errors only
  htmlcs scan -s WCAG2AAA -f ERROR public/

  # Sniff with Chromium instead of PhantomJS
  htmlcs scan --engine playwright --htmlcs HTMLCS.js 'site/**.html'

  # Write a SARIF report for code scanning and fail the build on errors
  htmlcs scan --sarif -o htmlcs.sarif --fail-on-error public/

Configuration file (.htmlcs) example:
  defaults:
    standard: WCAG2AA
    timeout: 60s
  paths:
    "legacy/**":
      standard: WCAG2A
      filter: [ERROR]`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	defaults := model.DefaultOptions()

	// Sniff options
	cmd.Flags().Bool("ignore-ssl-errors", defaults.IgnoreSSL,
		"Ignore TLS certificate errors of loaded resources")
	cmd.Flags().Bool("web-security", defaults.WebSecurity,
		"Enforce same-origin checks in the browser")
	cmd.Flags().StringP("standard", "s", string(defaults.Standard),
		"Accessibility standard: WCAG2A, WCAG2AA, WCAG2AAA or Section508")
	cmd.Flags().DurationP("timeout", "t", defaults.Timeout,
		"Time allowed to sniff one file before the browser is killed")

	// Reporter options
	cmd.Flags().StringSliceP("filter", "f", nil,
		"Message types to print (ERROR, WARNING, NOTICE); default all")
	cmd.Flags().Bool("show-trace", false,
		"Print stack traces of JavaScript errors")

	// Engine flags
	cmd.Flags().String("engine", config.DefaultEngine,
		"Headless browser: phantomjs or playwright")
	cmd.Flags().String("phantomjs", sniffer.DefaultPhantomBinary,
		"PhantomJS executable")
	cmd.Flags().String("runner", "",
		"PhantomJS runner script (default: embedded run.js)")
	cmd.Flags().String("htmlcs", "",
		"HTMLCS.js sniffer script (required by playwright)")
	cmd.Flags().Bool("install-browser", false,
		"Let playwright download its driver and Chromium when missing")

	// Batch scanning flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of files sniffed concurrently")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .htmlcs in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Write a JSON report of the run")
	cmd.Flags().BoolP("markdown", "m", false,
		"Write a Markdown report of the run")
	cmd.Flags().Bool("sarif", false,
		"Write a SARIF 2.1.0 report of the run")
	cmd.Flags().StringP("output", "o", "",
		"Write the run report to specified file path (creates directories if needed)")

	// Console flags
	cmd.Flags().Bool("no-color", false, "Disable coloured output")
	cmd.Flags().Bool("highlight", false, "Syntax-highlight element snippets")
	cmd.Flags().Bool("log-json", false, "Write log records as JSON")

	// Storage flags
	cmd.Flags().String("debug-dir", "",
		"Directory of htmlcs-debug.log (default: current directory)")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the report database")
	cmd.Flags().Bool("no-save", false, "Do not store reports in the database")

	cmd.Flags().Bool("fail-on-error", false,
		"Exit with an error when any accessibility error was reported")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logJSON, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		return err
	}
	logger := setupLogger(cmd.ErrOrStderr(), cfg.Options.Verbose, logJSON)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runScan(ctx, cmd.OutOrStdout(), cfg, logger)
}

// buildConfig creates a Config from the configuration file and flags.
// Values of the file's defaults section apply unless the matching flag
// was set explicitly.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	// An explicit config path must exist; otherwise a missing file is fine.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.PathConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.Options = cfg.PathConfigs.Defaults.ApplyTo(cfg.Options)
		cfg.Filter = cfg.PathConfigs.Defaults.FilterTypes()
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if flags.Changed("ignore-ssl-errors") {
		if cfg.Options.IgnoreSSL, err = flags.GetBool("ignore-ssl-errors"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("web-security") {
		if cfg.Options.WebSecurity, err = flags.GetBool("web-security"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("standard") {
		name, err := flags.GetString("standard")
		if err != nil {
			return nil, err
		}
		std, ok := model.ParseStandard(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", config.ErrInvalidStandard, name)
		}
		cfg.Options.Standard = std
	}
	if flags.Changed("timeout") {
		if cfg.Options.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("filter") {
		values, err := flags.GetStringSlice("filter")
		if err != nil {
			return nil, err
		}
		if cfg.Filter, err = model.ParseMessageTypes(values); err != nil {
			return nil, err
		}
	}
	cfg.Options.Verbose = getVerboseFlag(cmd)

	if cfg.ShowTrace, err = flags.GetBool("show-trace"); err != nil {
		return nil, err
	}
	if cfg.Engine, err = flags.GetString("engine"); err != nil {
		return nil, err
	}
	if cfg.PhantomJSPath, err = flags.GetString("phantomjs"); err != nil {
		return nil, err
	}
	if cfg.RunnerPath, err = flags.GetString("runner"); err != nil {
		return nil, err
	}
	if cfg.HTMLCSPath, err = flags.GetString("htmlcs"); err != nil {
		return nil, err
	}
	if cfg.InstallBrowser, err = flags.GetBool("install-browser"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.SARIFReport, err = flags.GetBool("sarif"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.NoColor, err = flags.GetBool("no-color"); err != nil {
		return nil, err
	}
	if cfg.Highlight, err = flags.GetBool("highlight"); err != nil {
		return nil, err
	}
	if cfg.DebugDir, err = flags.GetString("debug-dir"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	noSave, err := flags.GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave
	if cfg.FailOnError, err = flags.GetBool("fail-on-error"); err != nil {
		return nil, err
	}

	cfg.Targets = args

	return cfg, nil
}

// setupLogger creates a structured logger based on verbosity setting.
func setupLogger(w io.Writer, verbose, jsonFormat bool) *slog.Logger {
	if jsonFormat {
		return hlog.NewJSONLogger(w, verbose)
	}
	return hlog.NewLogger(w, verbose)
}

// runScan sniffs every target and writes the run report.
func runScan(ctx context.Context, out io.Writer, cfg *config.Config, logger *slog.Logger) error {
	paths, err := files.Expand(cfg.Targets)
	if err != nil {
		return err
	}

	printer := term.NewPrinter(out, term.WithColor(!cfg.NoColor))

	engine, err := sniffer.NewEngine(sniffer.EngineConfig{
		Name:     cfg.Engine,
		Binary:   cfg.PhantomJSPath,
		Runner:   cfg.RunnerPath,
		CacheDir: config.XDGCacheDir(),
		HTMLCS:   cfg.HTMLCSPath,
		Install:  cfg.InstallBrowser,
		Logger:   logger,
		Console:  printer,
	})
	if err != nil {
		return fmt.Errorf("failed to create %s engine: %w", cfg.Engine, err)
	}
	if closer, ok := engine.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				logger.Error("failed to stop engine", "engine", engine.Name(), "error", err)
			}
		}()
	}

	var db *database.ReportDB
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Debug("database opened", "path", db.Path())
	}

	components := pipeline.Components{
		Sniffer: sniffer.New(engine, cfg.Options,
			sniffer.WithLogger(logger),
			sniffer.WithConsole(printer),
			sniffer.WithDebugDir(cfg.DebugDir)),
		Reporter: report.NewConsoleReporter(printer,
			report.WithFilter(cfg.Filter...),
			report.WithShowTrace(cfg.ShowTrace),
			report.WithHighlight(cfg.Highlight)),
		DB:         db,
		RunID:      database.NewRunID(),
		OptionsFor: cfg.OptionsFor,
		FilterFor:  cfg.FilterFor,
		Logger:     logger,
	}

	logger.Debug("starting scan",
		"files", len(paths),
		"engine", engine.Name(),
		"standard", cfg.Options.Standard,
		"batchSize", cfg.BatchSize,
		"run", components.RunID,
	)

	bp := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline {
			return pipeline.DefaultPipeline(components,
				pipeline.WithLogger(logger),
				pipeline.WithContinueOnError(true))
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	startTime := time.Now()
	results, batchErr := bp.ProcessBatch(ctx, paths)

	sniffed := make([]*model.File, 0, len(results))
	for _, f := range results {
		if f != nil {
			sniffed = append(sniffed, f)
		}
	}

	summary := report.Summarize(sniffed)
	printer.Logln(fmt.Sprintf("Sniffed %d file%s in %s:", summary.Files, model.Plural(summary.Files),
		time.Since(startTime).Round(time.Millisecond)),
		formatCounts(summary.Messages))

	if err := outputReport(out, cfg, sniffed); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if batchErr != nil {
		return batchErr
	}
	if cfg.FailOnError && summary.Messages.Errors() > 0 {
		return fmt.Errorf("%w: %d", ErrSniffErrors, summary.Messages.Errors())
	}
	return nil
}

// formatCounts renders "2 errors, 1 warning, 0 notices".
func formatCounts(s model.Summary) string {
	return fmt.Sprintf("%d error%s, %d warning%s, %d notice%s",
		s.Errors(), model.Plural(s.Errors()),
		s.Warnings(), model.Plural(s.Warnings()),
		s.Notices(), model.Plural(s.Notices()))
}

// outputReport writes the run report when a format or an output file was
// requested. Without a format the plain text report is used.
func outputReport(stdout io.Writer, cfg *config.Config, sniffed []*model.File) error {
	if cfg.ReportFormats() == 0 && cfg.ReportFile == "" {
		return nil
	}

	output := stdout
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	_, err := newReportWriter(output, cfg).Write(sniffed)
	return err
}

// newReportWriter selects the writer for the configured format.
func newReportWriter(output io.Writer, cfg *config.Config) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output, report.WithMarkdownTypes(cfg.Filter...))
	case cfg.SARIFReport:
		return report.NewSARIFWriter(output, getVersion())
	default:
		return report.NewSimpleWriter(output,
			report.WithTypes(cfg.Filter...),
			report.WithVerbose(cfg.Options.Verbose))
	}
}
