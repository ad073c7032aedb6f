package sniffer

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
)

// RunnerFileName is the file name of the installed PhantomJS runner.
const RunnerFileName = "run.js"

//go:embed scripts/run.js
var runnerScript []byte

//go:embed scripts/sniff.js
var sniffScript string

// RunnerScript returns the embedded PhantomJS runner.
func RunnerScript() []byte {
	return bytes.Clone(runnerScript)
}

// InstallRunner writes the embedded runner into dir and returns its path.
// An up to date copy is left untouched.
func InstallRunner(dir string) (string, error) {
	path := filepath.Join(dir, RunnerFileName)

	existing, err := os.ReadFile(path) //nolint:gosec // path is built from the cache dir
	if err == nil && bytes.Equal(existing, runnerScript) {
		return path, nil
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create runner directory: %w", err)
	}
	if err := os.WriteFile(path, runnerScript, 0o600); err != nil {
		return "", fmt.Errorf("failed to install runner: %w", err)
	}
	return path, nil
}
