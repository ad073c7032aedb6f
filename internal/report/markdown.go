package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/htmlcs/internal/model"
)

// MarkdownWriter outputs a run in Markdown, suitable for pull request
// comments and CI job summaries.
type MarkdownWriter struct {
	baseWriter

	// filter restricts the message tables to these types.
	filter []model.MessageType
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithMarkdownTypes restricts the message tables to the given types.
func WithMarkdownTypes(types ...model.MessageType) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.filter = types
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the run in Markdown format.
func (w *MarkdownWriter) Write(files []*model.File) (int, error) {
	md := markdown.NewMarkdown(w.output)
	summary := Summarize(files)

	w.writeHeader(md, summary)
	w.writeSummary(md, summary)
	w.writeFiles(md, files)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary RunSummary) {
	md.H1("HTML_CodeSniffer Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Files", strconv.Itoa(summary.Files)},
			{"Sniffed", strconv.Itoa(summary.Sniffed)},
			{"Unannotated", strconv.Itoa(summary.Unannotated)},
			{"Browser errors", strconv.Itoa(summary.RuntimeFailures)},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, summary RunSummary) {
	md.H2("Message Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Type", "Count"},
		Rows: [][]string{
			{"🔴 Errors", strconv.Itoa(summary.Messages.Errors())},
			{"🟡 Warnings", strconv.Itoa(summary.Messages.Warnings())},
			{"🔵 Notices", strconv.Itoa(summary.Messages.Notices())},
			{"⚪ Runtime errors", strconv.Itoa(summary.Messages.RuntimeErrors)},
			{"**Total**", "**" + strconv.Itoa(summary.Messages.Total()) + "**"},
		},
	})
	md.PlainText("")

	if summary.Messages.Total() > 0 {
		w.writePieChart(md, summary)
	}
	w.writeAlert(md, summary)
}

// writePieChart writes a mermaid pie chart of the message types.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary RunSummary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Messages by Type"),
		piechart.WithShowData(true),
	)

	for _, t := range model.AllMessageTypes {
		if n := summary.Messages.Count(t); n > 0 {
			chart.LabelAndIntValue(string(t), uint64(n)) //nolint:gosec // n is positive
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, summary RunSummary) {
	switch {
	case summary.Messages.Errors() > 0:
		md.Cautionf("%d accessibility error%s must be fixed.",
			summary.Messages.Errors(), model.Plural(summary.Messages.Errors()))
	case summary.RuntimeFailures > 0 || summary.Unannotated > 0:
		md.Importantf("%d file%s could not be sniffed.",
			summary.RuntimeFailures+summary.Unannotated,
			model.Plural(summary.RuntimeFailures+summary.Unannotated))
	case summary.Messages.Warnings() > 0:
		md.Warningf("%d warning%s should be reviewed.",
			summary.Messages.Warnings(), model.Plural(summary.Messages.Warnings()))
	case summary.Messages.Total() > 0:
		md.Note("Only notices were reported.")
	default:
		md.Tip("No accessibility issues detected.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeFiles(md *markdown.Markdown, files []*model.File) {
	md.H2("Files")
	md.PlainText("")

	if len(files) == 0 {
		md.PlainText("No files were processed.")
		md.PlainText("")
		return
	}

	var unsniffed []string
	for _, f := range files {
		report := f.Report()
		if report == nil {
			unsniffed = append(unsniffed, "`"+f.Path+"`")
			continue
		}

		md.PlainText("### `" + f.Path + "`")
		md.PlainText("")

		if report.Error != nil {
			md.Cautionf("Browser error: %s", report.Error.Msg)
			md.PlainText("")
			if report.Error.Trace != "" {
				md.Details("Trace", report.Error.Trace)
			}
			continue
		}

		messages := sortedMessages(report, w.filter)
		if len(messages) == 0 {
			md.PlainText("No messages.")
			md.PlainText("")
		} else {
			rows := make([][]string, len(messages))
			for i, m := range messages {
				rows[i] = []string{
					string(m.Type),
					"`" + m.ShortCode() + "`",
					escapeCell(truncateString(m.Msg, 120)),
					codeCell(m.OuterHTML),
				}
			}
			md.Table(markdown.TableSet{
				Header: []string{"Type", "Code", "Message", "Element"},
				Rows:   rows,
			})
			md.PlainText("")
		}

		for _, e := range report.Errors {
			md.Details("Runtime error: "+e.Msg, e.Trace)
		}
	}

	if len(unsniffed) > 0 {
		md.PlainText("### Not sniffed")
		md.PlainText("")
		md.BulletList(unsniffed...)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [htmlcs](https://github.com/nao1215/htmlcs)*")
}

// codeCell renders an element snippet, "-" when there is none.
func codeCell(s string) string {
	if s == "" {
		return "-"
	}
	return "`" + escapeCell(truncateString(s, 60)) + "`"
}

// escapeCell keeps table cells on one line.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
