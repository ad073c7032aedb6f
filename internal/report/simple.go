package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/htmlcs/internal/model"
)

// SimpleWriter outputs a plain text report of a run, readable in a
// terminal and in CI logs alike.
type SimpleWriter struct {
	baseWriter

	// showEmpty lists files without any message.
	showEmpty bool

	// verbose adds the offending element of each message.
	verbose bool

	// filter restricts listed messages to these types.
	filter []model.MessageType
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to list files without messages.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithTypes restricts listed messages to the given types.
func WithTypes(types ...model.MessageType) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.filter = types
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the run in human-readable format.
func (w *SimpleWriter) Write(files []*model.File) (int, error) {
	var sb strings.Builder
	summary := Summarize(files)

	w.writeHeader(&sb, summary)
	w.writeSummary(&sb, summary)
	w.writeFiles(&sb, files)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

// rule writes a section title between two lines of c.
func rule(sb *strings.Builder, c, title string) {
	line := strings.Repeat(c, 70)
	sb.WriteString(line + "\n")
	sb.WriteString(title + "\n")
	sb.WriteString(line + "\n\n")
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, summary RunSummary) {
	sb.WriteString("\n")
	rule(sb, "=", "                       HTML_CODESNIFFER REPORT")

	fmt.Fprintf(sb, "Files:          %d\n", summary.Files)
	fmt.Fprintf(sb, "Sniffed:        %d\n", summary.Sniffed)
	if summary.Unannotated > 0 {
		fmt.Fprintf(sb, "Unannotated:    %d (see %s)\n", summary.Unannotated, "htmlcs-debug.log")
	}
	if summary.RuntimeFailures > 0 {
		fmt.Fprintf(sb, "Browser errors: %d\n", summary.RuntimeFailures)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, summary RunSummary) {
	rule(sb, "-", "MESSAGE SUMMARY")

	fmt.Fprintf(sb, "  ERRORS:         %d\n", summary.Messages.Errors())
	fmt.Fprintf(sb, "  WARNINGS:       %d\n", summary.Messages.Warnings())
	fmt.Fprintf(sb, "  NOTICES:        %d\n", summary.Messages.Notices())
	fmt.Fprintf(sb, "  RUNTIME ERRORS: %d\n", summary.Messages.RuntimeErrors)
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  TOTAL:          %d messages\n", summary.Messages.Total())
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFiles(sb *strings.Builder, files []*model.File) {
	rule(sb, "-", "FILES")

	for _, f := range files {
		report := f.Report()
		switch {
		case f.Error != nil:
			fmt.Fprintf(sb, "[x] %s\n  failed: %v\n\n", f.Path, f.Error)
			continue
		case report == nil:
			fmt.Fprintf(sb, "[?] %s\n  not sniffed: output could not be parsed\n\n", f.Path)
			continue
		case report.Error != nil:
			fmt.Fprintf(sb, "[x] %s\n  browser error: %s\n\n", f.Path, report.Error.Msg)
			continue
		}

		messages := sortedMessages(report, w.filter)
		if len(messages) == 0 && len(report.Errors) == 0 && !w.showEmpty {
			continue
		}

		s := report.Summary()
		fmt.Fprintf(sb, "[%s] %s (%d error%s, %d warning%s, %d notice%s)\n",
			indicator(s), f.Path,
			s.Errors(), model.Plural(s.Errors()),
			s.Warnings(), model.Plural(s.Warnings()),
			s.Notices(), model.Plural(s.Notices()))

		for _, m := range messages {
			fmt.Fprintf(sb, "  * %s %s\n", m.Type, m.ShortCode())
			fmt.Fprintf(sb, "    %s\n", m.Msg)
			if w.verbose && m.OuterHTML != "" {
				fmt.Fprintf(sb, "    Element: %s\n", m.OuterHTML)
			}
		}
		for _, e := range report.Errors {
			fmt.Fprintf(sb, "  ! runtime error: %s\n", e.Msg)
		}
		sb.WriteString("\n")
	}
}

// indicator returns a marker for the worst message type in s.
func indicator(s model.Summary) string {
	switch {
	case s.Errors() > 0:
		return "!!"
	case s.Warnings() > 0:
		return "!"
	case s.Notices() > 0:
		return "i"
	default:
		return "-"
	}
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by htmlcs\n")
	sb.WriteString("https://github.com/nao1215/htmlcs\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
