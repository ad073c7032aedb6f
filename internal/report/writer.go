package report

import (
	"io"
	"slices"

	"github.com/nao1215/htmlcs/internal/model"
)

// Writer renders the files of a finished run.
type Writer interface {
	// Write outputs the report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(files []*model.File) (int, error)
}

// MultiWriter writes to multiple Writers in order.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(files []*model.File) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(files)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// RunSummary aggregates the files of one run.
type RunSummary struct {
	// Files is the number of files processed.
	Files int `json:"files"`

	// Sniffed is the number of files carrying a parsed report.
	Sniffed int `json:"sniffed"`

	// Unannotated is the number of files whose output could not be parsed
	// or whose sniff step failed.
	Unannotated int `json:"unannotated"`

	// RuntimeFailures is the number of reports where the browser itself
	// failed.
	RuntimeFailures int `json:"runtime_failures"`

	// Messages counts messages by type over all files.
	Messages model.Summary `json:"messages"`
}

// Summarize aggregates files.
func Summarize(files []*model.File) RunSummary {
	s := RunSummary{
		Files:    len(files),
		Messages: model.Summary{Counts: map[string]int{}},
	}
	for _, f := range files {
		report := f.Report()
		if report == nil {
			s.Unannotated++
			continue
		}
		s.Sniffed++
		if report.HasRuntimeFailure() {
			s.RuntimeFailures++
		}
		s.Messages.Add(report.Summary())
	}
	return s
}

// sortedMessages returns the messages of report ordered by type, keeping
// the sniffer order within a type. Unknown types come last.
func sortedMessages(report *model.Report, filter []model.MessageType) []model.Message {
	var out []model.Message
	for _, t := range model.AllMessageTypes {
		if len(filter) > 0 && !slices.Contains(filter, t) {
			continue
		}
		for _, m := range report.Messages {
			if m.Type == t {
				out = append(out, m)
			}
		}
	}
	if len(filter) == 0 {
		for _, m := range report.Messages {
			if !slices.Contains(model.AllMessageTypes, m.Type) {
				out = append(out, m)
			}
		}
	}
	return out
}
