package config

import (
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/nao1215/htmlcs/internal/model"
)

// Default configuration values.
const (
	// DefaultBatchSize of 1 sniffs files one after another, keeping console
	// output in input order. Each file costs a browser process, so larger
	// values trade memory for throughput.
	DefaultBatchSize = 1

	// DefaultEngine is the PhantomJS engine.
	DefaultEngine = "phantomjs"

	// AppName is the application name used for XDG directory paths.
	AppName = "htmlcs"
)

// Config holds all configuration options for an htmlcs run.
// It is populated from CLI flags and the .htmlcs file and passed through
// the application rather than kept in global state.
type Config struct {
	// Options are the sniff options applied to every file unless a path
	// override in PathConfigs changes them.
	Options model.Options

	// Filter restricts the message types printed by the reporter.
	// Empty prints every type.
	Filter []model.MessageType

	// ShowTrace prints stack traces of runtime errors.
	ShowTrace bool

	// Engine is "phantomjs" or "playwright".
	Engine string

	// PhantomJSPath is the PhantomJS executable. Empty looks it up in PATH.
	PhantomJSPath string

	// RunnerPath is a PhantomJS runner script. Empty uses the embedded one,
	// installed into the XDG cache directory.
	RunnerPath string

	// HTMLCSPath is the HTMLCS.js sniffer script.
	HTMLCSPath string

	// InstallBrowser lets the playwright engine download Chromium.
	InstallBrowser bool

	// BatchSize is the number of files sniffed concurrently.
	BatchSize int

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .htmlcs in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// PathConfigs holds the loaded configuration file, if any.
	PathConfigs *File

	// JSONReport selects the JSON end-of-run report.
	JSONReport bool

	// MarkdownReport selects the Markdown end-of-run report.
	MarkdownReport bool

	// SARIFReport selects the SARIF end-of-run report.
	SARIFReport bool

	// ReportFile is the output file path for the end-of-run report.
	// Directories are created automatically if they don't exist.
	ReportFile string

	// NoColor disables coloured console output.
	NoColor bool

	// Highlight syntax-highlights element snippets on the console.
	Highlight bool

	// DebugDir is where htmlcs-debug.log is written. Empty means the
	// working directory.
	DebugDir string

	// DBDir is the directory of the SQLite report database.
	// Defaults to XDG data directory (~/.local/share/htmlcs on Linux).
	DBDir string

	// SaveToDB stores every report in the database.
	SaveToDB bool

	// FailOnError makes the scan command exit non-zero when any sniff
	// error was reported.
	FailOnError bool

	// Targets are the files, directories and glob patterns to sniff.
	Targets []string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Options:   model.DefaultOptions(),
		Engine:    DefaultEngine,
		BatchSize: DefaultBatchSize,
		DBDir:     XDGDataDir(),
		SaveToDB:  true,
	}
}

// XDGDataDir returns the XDG data directory for htmlcs.
// On Linux: ~/.local/share/htmlcs
// On macOS: ~/Library/Application Support/htmlcs
// On Windows: %LOCALAPPDATA%\htmlcs
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for htmlcs.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for htmlcs, where the
// embedded runner script is installed.
// On Linux: ~/.cache/htmlcs
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// ReportFormats returns how many end-of-run formats are selected.
func (c *Config) ReportFormats() int {
	n := 0
	for _, on := range []bool{c.JSONReport, c.MarkdownReport, c.SARIFReport} {
		if on {
			n++
		}
	}
	return n
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}

	if c.Options.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if !c.Options.Standard.Valid() {
		return ErrInvalidStandard
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.ReportFormats() > 1 {
		return ErrConflictingReportFormats
	}

	switch c.Engine {
	case "phantomjs":
	case "playwright":
		if c.HTMLCSPath == "" {
			return ErrMissingHTMLCS
		}
	default:
		return ErrInvalidEngine
	}

	return nil
}

// OptionsFor returns the sniff options for path, applying matching path
// overrides of the configuration file.
func (c *Config) OptionsFor(path string) model.Options {
	if c.PathConfigs == nil {
		return c.Options
	}
	return c.PathConfigs.OptionsFor(path, c.Options)
}

// FilterFor returns the reporter filter for path.
func (c *Config) FilterFor(path string) []model.MessageType {
	if c.PathConfigs == nil {
		return c.Filter
	}
	return c.PathConfigs.FilterFor(path, c.Filter)
}
