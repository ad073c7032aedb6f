package sniffer

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/htmlcs/internal/model"
)

// TestInstallRunner tests materialising the embedded runner.
func TestInstallRunner(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "htmlcs")

	path, err := InstallRunner(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(path) != RunnerFileName {
		t.Errorf("unexpected runner path %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, RunnerScript()) {
		t.Error("installed runner differs from the embedded one")
	}

	// A stale copy is replaced.
	if err := os.WriteFile(path, []byte("stale"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := InstallRunner(dir); err != nil {
		t.Fatal(err)
	}
	data, err = os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, RunnerScript()) {
		t.Error("stale runner was not replaced")
	}
}

// TestEmbeddedScripts tests the runner contract of the embedded scripts.
func TestEmbeddedScripts(t *testing.T) {
	t.Parallel()

	if !strings.Contains(string(RunnerScript()), "HTMLCS_PATH") {
		t.Error("runner must read HTMLCS_PATH")
	}
	if !strings.Contains(sniffScript, "HTMLCS.process") {
		t.Error("sniff script must call HTMLCS.process")
	}

	// phantom.exit does not stop the script, so a missing target must not
	// reach page.open.
	runner := string(RunnerScript())
	usage := strings.Index(runner, "if (!target) {")
	open := strings.Index(runner, "page.open(")
	if usage < 0 || open < usage {
		t.Fatal("runner must check the target before page.open")
	}
	if !strings.Contains(runner[usage:open], "} else {") {
		t.Error("page.open must not run after the usage failure")
	}
}

// TestNewEngine tests engine selection.
func TestNewEngine(t *testing.T) {
	t.Parallel()

	t.Run("phantomjs installs the runner", func(t *testing.T) {
		t.Parallel()

		cache := t.TempDir()
		engine, err := NewEngine(EngineConfig{Name: EnginePhantomJS, CacheDir: cache})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if engine.Name() != EnginePhantomJS {
			t.Errorf("unexpected engine %q", engine.Name())
		}
		if _, err := os.Stat(filepath.Join(cache, RunnerFileName)); err != nil {
			t.Errorf("expected installed runner: %v", err)
		}
	})

	t.Run("explicit runner is used as is", func(t *testing.T) {
		t.Parallel()

		engine, err := NewEngine(EngineConfig{Runner: "/custom/run.js", Binary: "/usr/bin/phantomjs"})
		if err != nil {
			t.Fatal(err)
		}
		phantom, ok := engine.(*PhantomEngine)
		if !ok {
			t.Fatalf("expected *PhantomEngine, got %T", engine)
		}
		if phantom.Args("a.html", model.DefaultOptions())[2] != "/custom/run.js" {
			t.Error("expected custom runner in arguments")
		}
	})

	t.Run("playwright", func(t *testing.T) {
		t.Parallel()

		engine, err := NewEngine(EngineConfig{Name: EnginePlaywright, HTMLCS: "HTMLCS.js"})
		if err != nil {
			t.Fatal(err)
		}
		if engine.Name() != EnginePlaywright {
			t.Errorf("unexpected engine %q", engine.Name())
		}
		if err := engine.(*PlaywrightEngine).Close(); err != nil {
			t.Errorf("closing an unstarted engine must succeed: %v", err)
		}
	})

	t.Run("unknown engine", func(t *testing.T) {
		t.Parallel()

		_, err := NewEngine(EngineConfig{Name: "slimerjs"})
		if !errors.Is(err, ErrUnknownEngine) {
			t.Errorf("expected ErrUnknownEngine, got %v", err)
		}
	})
}

// TestLaunchArgs tests the Chromium flags.
func TestLaunchArgs(t *testing.T) {
	t.Parallel()

	args := strings.Join(LaunchArgs(model.DefaultOptions()), " ")
	if !strings.Contains(args, "--disable-web-security") || !strings.Contains(args, "--ignore-certificate-errors") {
		t.Errorf("unexpected default args %q", args)
	}
	if got := LaunchArgs(model.Options{WebSecurity: true}); len(got) != 0 {
		t.Errorf("expected no args, got %v", got)
	}
}

// TestFileURL tests file URL construction.
func TestFileURL(t *testing.T) {
	t.Parallel()

	u, err := FileURL("site/my page.html")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(u, "file:///") || !strings.HasSuffix(u, "/site/my%20page.html") {
		t.Errorf("unexpected URL %q", u)
	}
}
