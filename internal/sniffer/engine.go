// Package sniffer runs HTML_CodeSniffer in a headless browser and attaches
// the parsed report to pipeline files.
package sniffer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/htmlcs/internal/model"
	"github.com/nao1215/htmlcs/internal/term"
)

// ErrEngineStart is returned when the browser process could not be started.
var ErrEngineStart = errors.New("failed to start sniffer engine")

// Engine runs the sniffer against one file and returns its raw output.
//
// Sniff returns an error only when the browser could not be started.
// A crash, a non-zero exit or a timeout still yields a Result carrying
// whatever the browser wrote before it ended.
type Engine interface {
	// Name returns the engine identifier used in logs and flags.
	Name() string

	// Sniff runs the sniffer for path with the given options.
	Sniff(ctx context.Context, path string, opts model.Options) (*Result, error)
}

// Result is the outcome of one engine run.
type Result struct {
	// Output is everything the runner printed on stdout.
	Output []byte

	// TimedOut is true when the run was killed by the timeout.
	TimedOut bool

	// ExitCode is the process exit code, -1 when it was killed.
	ExitCode int

	// Elapsed is the wall-clock time of the run.
	Elapsed time.Duration
}

// Engine names accepted by NewEngine.
const (
	EnginePhantomJS  = "phantomjs"
	EnginePlaywright = "playwright"
)

// ErrUnknownEngine is returned by NewEngine for an unsupported engine name.
var ErrUnknownEngine = errors.New("unknown sniffer engine")

// EngineConfig selects and configures an Engine.
type EngineConfig struct {
	// Name is EnginePhantomJS or EnginePlaywright.
	Name string

	// Binary is the PhantomJS executable.
	Binary string

	// Runner is a PhantomJS runner script. Empty installs the embedded
	// one into CacheDir.
	Runner string

	// CacheDir receives the embedded runner.
	CacheDir string

	// HTMLCS is the path of HTMLCS.js.
	HTMLCS string

	// Install lets Playwright download its driver and browser.
	Install bool

	Logger  *slog.Logger
	Console *term.Printer
}

// NewEngine builds the engine described by cfg.
func NewEngine(cfg EngineConfig) (Engine, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Console == nil {
		cfg.Console = term.Discard()
	}

	switch cfg.Name {
	case "", EnginePhantomJS:
		runner := cfg.Runner
		if runner == "" {
			var err error
			if runner, err = InstallRunner(cfg.CacheDir); err != nil {
				return nil, err
			}
		}
		return NewPhantomEngine(cfg.Binary, runner,
			WithHTMLCSScript(cfg.HTMLCS),
			WithPhantomLogger(cfg.Logger),
			WithPhantomConsole(cfg.Console)), nil
	case EnginePlaywright:
		return NewPlaywrightEngine(cfg.HTMLCS,
			WithInstall(cfg.Install),
			WithPlaywrightLogger(cfg.Logger),
			WithPlaywrightConsole(cfg.Console)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, cfg.Name)
	}
}
