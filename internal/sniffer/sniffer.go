package sniffer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/nao1215/htmlcs/internal/model"
	"github.com/nao1215/htmlcs/internal/term"
)

// DebugLogName is the file raw output is dumped to when it cannot be parsed.
const DebugLogName = "htmlcs-debug.log"

// Sniffer runs an Engine for each file and annotates the file with the
// parsed report.
type Sniffer struct {
	engine   Engine
	opts     model.Options
	registry *Registry
	logger   *slog.Logger
	console  *term.Printer
	debugDir string
	debugMu  sync.Mutex
}

// Option configures a Sniffer.
type Option func(*Sniffer)

// WithRegistry shares a Registry between sniffers.
func WithRegistry(registry *Registry) Option {
	return func(s *Sniffer) {
		s.registry = registry
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sniffer) {
		s.logger = logger
	}
}

// WithConsole sets where parse failures are printed.
func WithConsole(console *term.Printer) Option {
	return func(s *Sniffer) {
		s.console = console
	}
}

// WithDebugDir sets the directory of the debug log. Default is the
// working directory.
func WithDebugDir(dir string) Option {
	return func(s *Sniffer) {
		s.debugDir = dir
	}
}

// New creates a Sniffer running engine with opts.
func New(engine Engine, opts model.Options, options ...Option) *Sniffer {
	s := &Sniffer{
		engine:  engine,
		opts:    opts,
		logger:  slog.New(slog.DiscardHandler),
		console: term.Discard(),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.registry == nil {
		s.registry = NewRegistry()
	}
	return s
}

// Options returns the default options of the sniffer.
func (s *Sniffer) Options() model.Options {
	return s.opts
}

// Engine returns the engine the sniffer runs.
func (s *Sniffer) Engine() Engine {
	return s.engine
}

// Registry returns the report registry.
func (s *Sniffer) Registry() *Registry {
	return s.registry
}

// LastReport is shorthand for Registry().LastReport(filter...).
func (s *Sniffer) LastReport(filter ...model.MessageType) *model.Report {
	return s.registry.LastReport(filter...)
}

// DebugLogPath returns where unparsable output is written.
func (s *Sniffer) DebugLogPath() string {
	dir := s.debugDir
	if dir == "" {
		if wd, err := os.Getwd(); err == nil {
			dir = wd
		}
	}
	return filepath.Join(dir, DebugLogName)
}

// Process sniffs file with the default options.
func (s *Sniffer) Process(ctx context.Context, file *model.File) error {
	return s.ProcessWith(ctx, file, s.opts)
}

// ProcessWith sniffs file with opts.
//
// Unparsable output is not an error: it is written to the debug log and
// the file is left unannotated so the pipeline carries on. An error is
// returned only when the engine could not start or ctx was cancelled.
func (s *Sniffer) ProcessWith(ctx context.Context, file *model.File, opts model.Options) error {
	res, err := s.engine.Sniff(ctx, file.Path, opts)
	if err != nil {
		return fmt.Errorf("failed to sniff %s: %w", file.Path, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.logger.Debug("sniffer finished",
		"path", file.Path,
		"engine", s.engine.Name(),
		"bytes", len(res.Output),
		"exitCode", res.ExitCode,
		"timedOut", res.TimedOut,
		"elapsed", res.Elapsed)

	report, err := model.ParseReport(res.Output)
	if err != nil {
		s.console.Println(s.console.Red(err.Error()), file.Path)
		s.console.Println(s.console.Red("Writing temporary output to " + DebugLogName))
		if werr := s.writeDebugLog(res.Output); werr != nil {
			s.logger.Error("failed to write debug log", "path", s.DebugLogPath(), "error", werr)
		}
		return nil
	}

	s.registry.Store(file.Path, report)
	file.HTMLCS = &model.Annotation{
		Options: opts,
		Report:  report,
	}
	return nil
}

// writeDebugLog overwrites the debug log with output.
func (s *Sniffer) writeDebugLog(output []byte) error {
	s.debugMu.Lock()
	defer s.debugMu.Unlock()

	path := s.DebugLogPath()
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return err
		}
	}
	return os.WriteFile(path, output, 0o600)
}
