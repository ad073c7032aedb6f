package sniffer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/htmlcs/internal/model"
	"github.com/nao1215/htmlcs/internal/term"
)

// DefaultPhantomBinary is looked up in PATH when no binary is configured.
const DefaultPhantomBinary = "phantomjs"

// defaultWaitDelay bounds how long Wait blocks on pipes held open by
// grandchildren after the browser itself has exited.
const defaultWaitDelay = 2 * time.Second

// PhantomEngine spawns one PhantomJS process per file.
type PhantomEngine struct {
	binary    string
	runner    string
	htmlcs    string
	logger    *slog.Logger
	console   *term.Printer
	waitDelay time.Duration
}

// PhantomOption configures a PhantomEngine.
type PhantomOption func(*PhantomEngine)

// WithHTMLCSScript sets the HTMLCS.js path passed to the runner.
func WithHTMLCSScript(path string) PhantomOption {
	return func(e *PhantomEngine) {
		e.htmlcs = path
	}
}

// WithPhantomLogger sets the logger used for verbose output.
func WithPhantomLogger(logger *slog.Logger) PhantomOption {
	return func(e *PhantomEngine) {
		e.logger = logger
	}
}

// WithPhantomConsole sets where stderr and timeout lines are printed.
func WithPhantomConsole(console *term.Printer) PhantomOption {
	return func(e *PhantomEngine) {
		e.console = console
	}
}

// NewPhantomEngine creates an engine running binary with the runner script.
func NewPhantomEngine(binary, runner string, opts ...PhantomOption) *PhantomEngine {
	if binary == "" {
		binary = DefaultPhantomBinary
	}
	e := &PhantomEngine{
		binary:    binary,
		runner:    runner,
		logger:    slog.New(slog.DiscardHandler),
		console:   term.Discard(),
		waitDelay: defaultWaitDelay,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns "phantomjs".
func (e *PhantomEngine) Name() string {
	return EnginePhantomJS
}

// Args builds the PhantomJS argument list for path.
func (e *PhantomEngine) Args(path string, opts model.Options) []string {
	args := []string{
		"--ignore-ssl-errors=" + strconv.FormatBool(opts.IgnoreSSL),
		"--web-security=" + strconv.FormatBool(opts.WebSecurity),
		e.runner,
		path,
		string(opts.Standard),
	}
	if e.htmlcs != "" {
		args = append(args, e.htmlcs)
	}
	return args
}

// Sniff runs PhantomJS for path and collects its stdout.
func (e *PhantomEngine) Sniff(ctx context.Context, path string, opts model.Options) (*Result, error) {
	args := e.Args(path, opts)
	if opts.Verbose {
		e.logger.Info("running phantomjs", "binary", e.binary, "args", strings.Join(args, " "))
	}

	cmd := exec.CommandContext(ctx, e.binary, args...)
	if e.htmlcs != "" {
		cmd.Env = append(os.Environ(), "HTMLCS_PATH="+e.htmlcs)
	}
	stdout := &chunkBuffer{logger: e.logger, verbose: opts.Verbose}
	cmd.Stdout = stdout
	cmd.Stderr = &consoleWriter{console: e.console}
	cmd.WaitDelay = e.waitDelay

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrEngineStart, e.binary, err)
	}

	// A run only times out when the timer's kill ended the process.
	var (
		mu          sync.Mutex
		fired, done bool
	)
	if opts.Timeout > 0 {
		timer := time.AfterFunc(opts.Timeout, func() {
			mu.Lock()
			defer mu.Unlock()
			if done {
				return
			}
			fired = cmd.Process.Kill() == nil
		})
		defer timer.Stop()
	}

	waitErr := cmd.Wait()
	mu.Lock()
	done = true
	timedOut := fired && cmd.ProcessState != nil && cmd.ProcessState.ExitCode() == -1
	mu.Unlock()
	if timedOut {
		e.console.Logln(e.console.Red(fmt.Sprintf("HTMLCS timeout (%s)", opts.Timeout)), path)
	}

	result := &Result{
		Output:   stdout.Bytes(),
		TimedOut: timedOut,
		ExitCode: exitCode(cmd, waitErr),
		Elapsed:  time.Since(start),
	}
	if waitErr != nil && opts.Verbose {
		e.logger.Info("phantomjs exited", "path", path, "exitCode", result.ExitCode, "error", waitErr)
	}
	return result, nil
}

// exitCode returns the exit code of a finished command, -1 when it was
// killed by a signal.
func exitCode(cmd *exec.Cmd, waitErr error) int {
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return exitErr.ExitCode()
	}
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	return -1
}

// chunkBuffer accumulates stdout and logs the size of every chunk.
// exec.Cmd copies stdout from a single goroutine, so no lock is needed.
type chunkBuffer struct {
	buf     bytes.Buffer
	logger  *slog.Logger
	verbose bool
}

func (c *chunkBuffer) Write(p []byte) (int, error) {
	if c.verbose {
		c.logger.Info("received data", "bytes", len(p))
	}
	return c.buf.Write(p)
}

func (c *chunkBuffer) Bytes() []byte {
	return bytes.Clone(c.buf.Bytes())
}

// consoleWriter echoes every chunk to the console in red.
type consoleWriter struct {
	console *term.Printer
}

func (w *consoleWriter) Write(p []byte) (int, error) {
	w.console.Println(w.console.Red(strings.TrimRight(string(p), "\n")))
	return len(p), nil
}
