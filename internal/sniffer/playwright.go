package sniffer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path/filepath"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/nao1215/htmlcs/internal/model"
	"github.com/nao1215/htmlcs/internal/term"
)

// errorHookScript records uncaught page errors before any page script runs.
const errorHookScript = `window.__htmlcsErrors = [];
window.addEventListener('error', (e) => {
  window.__htmlcsErrors.push({msg: String(e.message), trace: (e.filename || '') + ':' + (e.lineno || 0)});
});`

// PlaywrightEngine drives headless Chromium through playwright-go.
// The driver is started lazily on the first Sniff and shared by all runs;
// every run gets its own browser so a timeout can close it.
type PlaywrightEngine struct {
	htmlcs  string
	install bool
	logger  *slog.Logger
	console *term.Printer

	mu sync.Mutex
	pw *playwright.Playwright
}

// PlaywrightOption configures a PlaywrightEngine.
type PlaywrightOption func(*PlaywrightEngine)

// WithInstall downloads the driver and Chromium on first use.
func WithInstall(install bool) PlaywrightOption {
	return func(e *PlaywrightEngine) {
		e.install = install
	}
}

// WithPlaywrightLogger sets the logger used for verbose output.
func WithPlaywrightLogger(logger *slog.Logger) PlaywrightOption {
	return func(e *PlaywrightEngine) {
		e.logger = logger
	}
}

// WithPlaywrightConsole sets where timeout lines are printed.
func WithPlaywrightConsole(console *term.Printer) PlaywrightOption {
	return func(e *PlaywrightEngine) {
		e.console = console
	}
}

// NewPlaywrightEngine creates an engine injecting the HTMLCS.js script at
// htmlcsPath into every page.
func NewPlaywrightEngine(htmlcsPath string, opts ...PlaywrightOption) *PlaywrightEngine {
	e := &PlaywrightEngine{
		htmlcs:  htmlcsPath,
		logger:  slog.New(slog.DiscardHandler),
		console: term.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns "playwright".
func (e *PlaywrightEngine) Name() string {
	return EnginePlaywright
}

// LaunchArgs returns the Chromium flags for opts.
func LaunchArgs(opts model.Options) []string {
	var args []string
	if !opts.WebSecurity {
		args = append(args, "--disable-web-security", "--allow-file-access-from-files")
	}
	if opts.IgnoreSSL {
		args = append(args, "--ignore-certificate-errors")
	}
	return args
}

// FileURL returns the file:// URL of path.
func FileURL(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}

func (e *PlaywrightEngine) start() (*playwright.Playwright, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pw != nil {
		return e.pw, nil
	}
	opts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	if e.install {
		if err := playwright.Install(opts); err != nil {
			return nil, err
		}
	}
	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, err
	}
	e.pw = pw
	return pw, nil
}

// Sniff opens path in a fresh headless Chromium and evaluates HTMLCS.
func (e *PlaywrightEngine) Sniff(ctx context.Context, path string, opts model.Options) (*Result, error) {
	pw, err := e.start()
	if err != nil {
		return nil, fmt.Errorf("%w: playwright: %w", ErrEngineStart, err)
	}

	args := LaunchArgs(opts)
	if opts.Verbose {
		e.logger.Info("launching chromium", "path", path, "args", args)
	}

	start := time.Now()
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
		Args:     args,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: chromium: %w", ErrEngineStart, err)
	}
	defer func() {
		_ = browser.Close() //nolint:errcheck // closing twice after a timeout is harmless
	}()

	done := make(chan []byte, 1)
	go func() {
		done <- e.sniffPage(browser, path, opts)
	}()

	var timeout <-chan time.Time
	if opts.Timeout > 0 {
		timer := time.NewTimer(opts.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	result := &Result{}
	select {
	case out := <-done:
		result.Output = out
	case <-timeout:
		result.TimedOut = true
		result.ExitCode = -1
		e.console.Logln(e.console.Red(fmt.Sprintf("HTMLCS timeout (%s)", opts.Timeout)), path)
		_ = browser.Close() //nolint:errcheck // unblocks the page goroutine
		<-done
	case <-ctx.Done():
		result.ExitCode = -1
		_ = browser.Close() //nolint:errcheck // unblocks the page goroutine
		<-done
	}
	result.Elapsed = time.Since(start)

	if opts.Verbose {
		e.logger.Info("received data", "bytes", len(result.Output))
	}
	return result, nil
}

// sniffPage returns the sniffer JSON, or a runtime failure document when
// the page could not be opened or evaluated.
func (e *PlaywrightEngine) sniffPage(browser playwright.Browser, path string, opts model.Options) []byte {
	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		IgnoreHttpsErrors: playwright.Bool(opts.IgnoreSSL),
		BypassCSP:         playwright.Bool(!opts.WebSecurity),
	})
	if err != nil {
		return runtimeFailure(err)
	}
	page, err := bctx.NewPage()
	if err != nil {
		return runtimeFailure(err)
	}
	if err := page.AddInitScript(playwright.Script{Content: playwright.String(errorHookScript)}); err != nil {
		return runtimeFailure(err)
	}

	target, err := FileURL(path)
	if err != nil {
		return runtimeFailure(err)
	}
	if _, err := page.Goto(target); err != nil {
		return runtimeFailure(err)
	}
	if _, err := page.AddScriptTag(playwright.PageAddScriptTagOptions{Path: playwright.String(e.htmlcs)}); err != nil {
		return runtimeFailure(err)
	}

	out, err := page.Evaluate(sniffScript, string(opts.Standard))
	if err != nil {
		return runtimeFailure(err)
	}
	s, ok := out.(string)
	if !ok {
		return runtimeFailure(fmt.Errorf("unexpected sniffer result of type %T", out))
	}
	return []byte(s)
}

// runtimeFailure renders err as the {"error": ...} document the runner
// prints when the browser fails.
func runtimeFailure(err error) []byte {
	data, mErr := json.Marshal(map[string]model.RuntimeError{
		"error": {Msg: err.Error()},
	})
	if mErr != nil {
		return nil
	}
	return data
}

// Close stops the Playwright driver.
func (e *PlaywrightEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pw == nil {
		return nil
	}
	err := e.pw.Stop()
	e.pw = nil
	return err
}
