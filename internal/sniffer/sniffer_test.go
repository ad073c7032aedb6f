package sniffer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/htmlcs/internal/model"
	"github.com/nao1215/htmlcs/internal/term"
)

// fakeEngine returns a canned result.
type fakeEngine struct {
	result *Result
	err    error
	opts   model.Options
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Sniff(_ context.Context, _ string, opts model.Options) (*Result, error) {
	f.opts = opts
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

const wellFormed = `{
	"messages": [
		{"type": "ERROR", "code": "WCAG2AA.Principle1.Guideline1_1.1_1_1.H37", "msg": "Img element missing an alt attribute.", "outerHTML": "<img src=\"a.png\">"},
		{"type": "NOTICE", "code": "WCAG2AA.Principle2.Guideline2_4.2_4_2.H25.2", "msg": "Check that the title element describes the document.", "outerHTML": "<title>x</title>"}
	],
	"errors": []
}`

// TestSniffer_Process tests annotation and the debug log fallback.
func TestSniffer_Process(t *testing.T) {
	t.Parallel()

	t.Run("well-formed output annotates the file", func(t *testing.T) {
		t.Parallel()

		engine := &fakeEngine{result: &Result{Output: []byte(wellFormed)}}
		opts := model.DefaultOptions()
		opts.Standard = model.StandardWCAG2AAA
		s := New(engine, opts)
		file := model.NewFile("index.html")

		if err := s.Process(context.Background(), file); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !file.Annotated() {
			t.Fatal("expected file to be annotated")
		}
		if file.HTMLCS.Options.Standard != model.StandardWCAG2AAA {
			t.Errorf("expected options to be attached, got %+v", file.HTMLCS.Options)
		}
		if engine.opts.Standard != model.StandardWCAG2AAA {
			t.Errorf("expected engine to receive options, got %+v", engine.opts)
		}
		if len(file.Report().Messages) != 2 {
			t.Errorf("expected 2 messages, got %d", len(file.Report().Messages))
		}
		if _, ok := s.Registry().Report("index.html"); !ok {
			t.Error("expected registry entry")
		}
		if s.LastReport().Messages[0].Code != "WCAG2AA.Principle1.Guideline1_1.1_1_1.H37" {
			t.Error("expected last report to be the stored one")
		}
	})

	t.Run("malformed output is written to the debug log", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		var console bytes.Buffer
		raw := "TypeError: undefined is not a function\n{\"messages\":"
		s := New(&fakeEngine{result: &Result{Output: []byte(raw)}}, model.DefaultOptions(),
			WithDebugDir(dir),
			WithConsole(term.NewPrinter(&console)))
		file := model.NewFile("broken.html")

		if err := s.Process(context.Background(), file); err != nil {
			t.Fatalf("malformed output must not fail the step: %v", err)
		}
		if file.Annotated() {
			t.Error("expected file to stay unannotated")
		}

		data, err := os.ReadFile(filepath.Join(dir, DebugLogName))
		if err != nil {
			t.Fatalf("expected debug log: %v", err)
		}
		if string(data) != raw {
			t.Errorf("debug log = %q, want %q", data, raw)
		}
		if !strings.Contains(console.String(), "Writing temporary output to htmlcs-debug.log") {
			t.Errorf("expected notice on console, got %q", console.String())
		}
		if len(s.Registry().Paths()) != 0 {
			t.Error("expected nothing in the registry")
		}
	})

	t.Run("debug log is overwritten", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		engine := &fakeEngine{result: &Result{Output: []byte("first")}}
		s := New(engine, model.DefaultOptions(), WithDebugDir(dir))

		if err := s.Process(context.Background(), model.NewFile("a.html")); err != nil {
			t.Fatal(err)
		}
		engine.result = &Result{Output: []byte("second")}
		if err := s.Process(context.Background(), model.NewFile("b.html")); err != nil {
			t.Fatal(err)
		}

		data, err := os.ReadFile(s.DebugLogPath())
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "second" {
			t.Errorf("expected latest output, got %q", data)
		}
	})

	t.Run("partial output after a timeout falls back to the debug log", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		s := New(&fakeEngine{result: &Result{Output: []byte(`{"messages":[`), TimedOut: true, ExitCode: -1}},
			model.DefaultOptions(), WithDebugDir(dir))
		file := model.NewFile("slow.html")

		if err := s.Process(context.Background(), file); err != nil {
			t.Fatal(err)
		}
		if file.Annotated() {
			t.Error("expected file to stay unannotated")
		}
		if _, err := os.Stat(filepath.Join(dir, DebugLogName)); err != nil {
			t.Errorf("expected debug log: %v", err)
		}
	})

	t.Run("browser runtime failure is still annotated", func(t *testing.T) {
		t.Parallel()

		s := New(&fakeEngine{result: &Result{Output: []byte(`{"error":{"msg":"unable to open","trace":"run.js:12"}}`)}},
			model.DefaultOptions())
		file := model.NewFile("missing.html")

		if err := s.Process(context.Background(), file); err != nil {
			t.Fatal(err)
		}
		if !file.Annotated() || !file.Report().HasRuntimeFailure() {
			t.Error("expected annotated runtime failure")
		}
	})

	t.Run("engine start failure is returned", func(t *testing.T) {
		t.Parallel()

		s := New(&fakeEngine{err: ErrEngineStart}, model.DefaultOptions())
		err := s.Process(context.Background(), model.NewFile("a.html"))
		if !errors.Is(err, ErrEngineStart) {
			t.Errorf("expected ErrEngineStart, got %v", err)
		}
	})

	t.Run("cancelled context is returned without writing a debug log", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		s := New(&fakeEngine{result: &Result{Output: []byte("partial")}}, model.DefaultOptions(), WithDebugDir(dir))

		err := s.Process(ctx, model.NewFile("a.html"))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if _, statErr := os.Stat(filepath.Join(dir, DebugLogName)); !os.IsNotExist(statErr) {
			t.Error("expected no debug log")
		}
	})

	t.Run("ProcessWith overrides options", func(t *testing.T) {
		t.Parallel()

		s := New(&fakeEngine{result: &Result{Output: []byte(wellFormed)}}, model.DefaultOptions())
		file := model.NewFile("a.html")
		opts := model.DefaultOptions()
		opts.Standard = model.StandardWCAG2A

		if err := s.ProcessWith(context.Background(), file, opts); err != nil {
			t.Fatal(err)
		}
		if file.HTMLCS.Options.Standard != model.StandardWCAG2A {
			t.Errorf("expected override, got %s", file.HTMLCS.Options.Standard)
		}
	})
}

// TestRegistry tests the debugging accessor.
func TestRegistry(t *testing.T) {
	t.Parallel()

	t.Run("empty registry returns an empty report", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()
		last := r.LastReport(model.MessageError)
		if last == nil || len(last.Messages) != 0 {
			t.Errorf("expected empty report, got %+v", last)
		}
	})

	t.Run("LastReport filters without mutating", func(t *testing.T) {
		t.Parallel()

		report, err := model.ParseReport([]byte(wellFormed))
		if err != nil {
			t.Fatal(err)
		}
		r := NewRegistry()
		r.Store("index.html", report)

		errorsOnly := r.LastReport(model.MessageError)
		if len(errorsOnly.Messages) != 1 || errorsOnly.Messages[0].Type != model.MessageError {
			t.Errorf("unexpected filtered report %+v", errorsOnly.Messages)
		}

		all := r.LastReport()
		if len(all.Messages) != 2 {
			t.Errorf("expected the stored report to keep 2 messages, got %d", len(all.Messages))
		}
		if len(report.Messages) != 2 {
			t.Error("stored report was mutated")
		}
	})

	t.Run("tracks last path and sorted paths", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()
		r.Store("b.html", &model.Report{})
		r.Store("a.html", &model.Report{})

		if r.LastPath() != "a.html" {
			t.Errorf("expected a.html, got %q", r.LastPath())
		}
		paths := r.Paths()
		if len(paths) != 2 || paths[0] != "a.html" || paths[1] != "b.html" {
			t.Errorf("unexpected paths %v", paths)
		}
		if _, ok := r.Report("c.html"); ok {
			t.Error("expected no report for c.html")
		}
	})
}
