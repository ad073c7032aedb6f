package report

import (
	"bytes"
	"slices"
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"

	"github.com/nao1215/htmlcs/internal/model"
	"github.com/nao1215/htmlcs/internal/term"
)

// ConsoleReporter prints the findings of each sniffed file.
//
// For every annotated file it prints, in order: a summary line when the
// report has errors, each message passing the filter, and the runtime
// errors raised on the page. A report whose browser failed prints only
// the failure. Unannotated files print nothing.
type ConsoleReporter struct {
	printer   *term.Printer
	filter    []model.MessageType
	showTrace bool
	highlight bool
}

// ConsoleOption configures a ConsoleReporter.
type ConsoleOption func(*ConsoleReporter)

// WithFilter restricts printed messages to the given types.
// No types prints every message.
func WithFilter(types ...model.MessageType) ConsoleOption {
	return func(r *ConsoleReporter) {
		r.filter = types
	}
}

// WithShowTrace prints stack traces of runtime errors.
func WithShowTrace(show bool) ConsoleOption {
	return func(r *ConsoleReporter) {
		r.showTrace = show
	}
}

// WithHighlight syntax-highlights outerHTML snippets on colour terminals.
func WithHighlight(highlight bool) ConsoleOption {
	return func(r *ConsoleReporter) {
		r.highlight = highlight
	}
}

// NewConsoleReporter creates a reporter printing to printer.
func NewConsoleReporter(printer *term.Printer, opts ...ConsoleOption) *ConsoleReporter {
	r := &ConsoleReporter{printer: printer}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Report prints file's findings in a single write.
func (r *ConsoleReporter) Report(file *model.File) error {
	if out := r.Render(file); out != "" {
		r.printer.WriteString(out)
	}
	return nil
}

// ReportFiltered is Report with filter replacing the reporter's filter.
func (r *ConsoleReporter) ReportFiltered(file *model.File, filter []model.MessageType) error {
	c := *r
	c.filter = filter
	return c.Report(file)
}

// Render returns what Report prints for file.
func (r *ConsoleReporter) Render(file *model.File) string {
	report := file.Report()
	if report == nil {
		return ""
	}

	p := r.printer
	var sb strings.Builder

	if report.Error != nil {
		sb.WriteString(term.Line(p.Red("ERROR [PhantomJS runtime]: "+report.Error.Msg), file.Path))
		if r.showTrace {
			sb.WriteString(term.Line(report.Error.Trace))
		}
		return sb.String()
	}

	if n := report.Summary().Errors(); n > 0 {
		sb.WriteString(p.Stamped(
			p.Red(strconv.Itoa(n))+" sniff error"+model.Plural(n)+" found in:",
			p.Magenta(file.Path)))
	}

	for _, m := range report.Messages {
		if len(r.filter) > 0 && !slices.Contains(r.filter, m.Type) {
			continue
		}
		sb.WriteString(term.Line(string(m.Type) + ": " + p.Cyan(m.ShortCode())))
		sb.WriteString(term.Line("  " + m.Msg))
		sb.WriteString(term.Line("  " + r.outerHTML(m.OuterHTML)))
	}

	if n := len(report.Errors); n > 0 {
		sb.WriteString(p.Stamped(
			p.Red(strconv.Itoa(n))+" runtime error"+model.Plural(n)+" found in:",
			p.Magenta(file.Path)))
		for _, e := range report.Errors {
			sb.WriteString(term.Line(p.Red(e.Msg)))
			if r.showTrace {
				sb.WriteString(term.Line(e.Trace))
			}
		}
	}

	return sb.String()
}

// outerHTML highlights the snippet when enabled and colour is on.
func (r *ConsoleReporter) outerHTML(src string) string {
	if !r.highlight || !r.printer.Colored() || src == "" {
		return src
	}
	var buf bytes.Buffer
	if err := quick.Highlight(&buf, src, "html", "terminal256", "monokai"); err != nil {
		return src
	}
	return strings.TrimRight(buf.String(), "\n")
}
