package report

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/htmlcs/internal/model"
	"github.com/nao1215/htmlcs/internal/term"
)

func testPrinter(buf *bytes.Buffer) *term.Printer {
	return term.NewPrinter(buf, term.WithClock(func() time.Time {
		return time.Date(2025, 5, 6, 10, 11, 12, 0, time.UTC)
	}))
}

// TestConsoleReporter tests the per-file console output.
func TestConsoleReporter(t *testing.T) {
	t.Parallel()

	t.Run("prints summary messages and runtime errors", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		r := NewConsoleReporter(testPrinter(&buf))
		if err := r.Report(createTestFiles()[0]); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := strings.Join([]string{
			"[10:11:12] 1 sniff error found in: site/index.html",
			"NOTICE: WCAG2AA Principle2 Guideline2_4",
			"  Check the title.",
			"  <title>Home</title>",
			"ERROR: WCAG2AA Principle1 Guideline1_1",
			"  Img element missing an alt attribute.",
			`  <img src="logo.png">`,
			"WARNING: WCAG2AA Principle1 Guideline1_3",
			"  Heading markup should be used.",
			"  <p><b>Title</b></p>",
			"[10:11:12] 1 runtime error found in: site/index.html",
			"ReferenceError: jQuery is not defined",
			"",
		}, "\n")
		if buf.String() != want {
			t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
		}
	})

	t.Run("pluralises counts", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		f := annotated("a.html", &model.Report{
			Messages: []model.Message{
				{Type: model.MessageError, Code: "A.B.C.D"},
				{Type: model.MessageError, Code: "A.B.C.E"},
			},
			Errors: []model.RuntimeError{{Msg: "x"}, {Msg: "y"}},
		})
		if err := NewConsoleReporter(testPrinter(&buf)).Report(f); err != nil {
			t.Fatal(err)
		}

		if !strings.Contains(buf.String(), "2 sniff errors found in: a.html") {
			t.Errorf("expected plural sniff errors, got %q", buf.String())
		}
		if !strings.Contains(buf.String(), "2 runtime errors found in: a.html") {
			t.Errorf("expected plural runtime errors, got %q", buf.String())
		}
	})

	t.Run("no summary line without errors", func(t *testing.T) {
		t.Parallel()

		f := annotated("a.html", &model.Report{
			Messages: []model.Message{{Type: model.MessageWarning, Code: "A.B.C", Msg: "w"}},
		})
		out := NewConsoleReporter(testPrinter(&bytes.Buffer{})).Render(f)
		if strings.Contains(out, "found in") {
			t.Errorf("expected no summary line, got %q", out)
		}
		if !strings.Contains(out, "WARNING: A B C") {
			t.Errorf("expected message, got %q", out)
		}
	})

	t.Run("filter restricts printed messages but not the summary", func(t *testing.T) {
		t.Parallel()

		r := NewConsoleReporter(testPrinter(&bytes.Buffer{}), WithFilter(model.MessageWarning))
		out := r.Render(createTestFiles()[0])

		if !strings.Contains(out, "1 sniff error found in") {
			t.Error("expected summary to count all errors")
		}
		if strings.Contains(out, "ERROR: ") || strings.Contains(out, "NOTICE: ") {
			t.Errorf("expected only warnings, got %q", out)
		}
		if !strings.Contains(out, "WARNING: WCAG2AA Principle1 Guideline1_3") {
			t.Error("expected warning to be printed")
		}
	})

	t.Run("show trace prints runtime error traces", func(t *testing.T) {
		t.Parallel()

		files := createTestFiles()
		without := NewConsoleReporter(testPrinter(&bytes.Buffer{})).Render(files[0])
		with := NewConsoleReporter(testPrinter(&bytes.Buffer{}), WithShowTrace(true)).Render(files[0])

		if strings.Contains(without, "app.js:3") {
			t.Error("expected no trace by default")
		}
		if !strings.Contains(with, "ReferenceError: jQuery is not defined\napp.js:3\n") {
			t.Errorf("expected trace after message, got %q", with)
		}
	})

	t.Run("browser failure prints only the failure", func(t *testing.T) {
		t.Parallel()

		f := annotated("missing.html", &model.Report{
			Messages: []model.Message{{Type: model.MessageError, Code: "A.B.C"}},
			Error:    &model.RuntimeError{Msg: "unable to open", Trace: "run.js:40"},
		})

		out := NewConsoleReporter(testPrinter(&bytes.Buffer{})).Render(f)
		if out != "ERROR [PhantomJS runtime]: unable to open missing.html\n" {
			t.Errorf("unexpected output %q", out)
		}

		out = NewConsoleReporter(testPrinter(&bytes.Buffer{}), WithShowTrace(true)).Render(f)
		if out != "ERROR [PhantomJS runtime]: unable to open missing.html\nrun.js:40\n" {
			t.Errorf("unexpected output with trace %q", out)
		}
	})

	t.Run("unannotated file prints nothing", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := NewConsoleReporter(testPrinter(&buf)).Report(model.NewFile("broken.html")); err != nil {
			t.Fatal(err)
		}
		if buf.Len() != 0 {
			t.Errorf("expected no output, got %q", buf.String())
		}
	})

	t.Run("highlight is ignored without colour", func(t *testing.T) {
		t.Parallel()

		r := NewConsoleReporter(testPrinter(&bytes.Buffer{}), WithHighlight(true))
		out := r.Render(createTestFiles()[0])
		if !strings.Contains(out, `  <img src="logo.png">`) {
			t.Errorf("expected plain outerHTML, got %q", out)
		}
	})
	t.Run("highlight writes no escape codes to a non-terminal", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		r := NewConsoleReporter(term.NewPrinter(&buf, term.WithColor(true)), WithHighlight(true))
		if err := r.Report(createTestFiles()[0]); err != nil {
			t.Fatal(err)
		}
		if strings.Contains(buf.String(), "\x1b[") {
			t.Errorf("unexpected escape codes in %q", buf.String())
		}
		if !strings.Contains(buf.String(), `  <img src="logo.png">`) {
			t.Errorf("expected plain outerHTML, got %q", buf.String())
		}
	})

	t.Run("concurrent reports keep each file's block together", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		r := NewConsoleReporter(testPrinter(&buf))

		files := make([]*model.File, 20)
		for i := range files {
			files[i] = annotated(fmt.Sprintf("page%02d.html", i), &model.Report{
				Messages: []model.Message{
					{Type: model.MessageError, Code: "A.B.C.D", Msg: "first", OuterHTML: "<img>"},
					{Type: model.MessageWarning, Code: "A.B.C.E", Msg: "second", OuterHTML: "<p>"},
					{Type: model.MessageNotice, Code: "A.B.C.F", Msg: "third", OuterHTML: "<a>"},
				},
				Errors: []model.RuntimeError{{Msg: "ReferenceError: x is not defined"}},
			})
		}

		var wg sync.WaitGroup
		for _, f := range files {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := r.Report(f); err != nil {
					t.Error(err)
				}
			}()
		}
		wg.Wait()

		out := buf.String()
		total := 0
		for _, f := range files {
			block := r.Render(f)
			if !strings.Contains(out, block) {
				t.Errorf("block for %s is not contiguous in output", f.Path)
			}
			total += len(block)
		}
		if len(out) != total {
			t.Errorf("output has %d bytes, want %d", len(out), total)
		}
	})
}
