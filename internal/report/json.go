package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/htmlcs/internal/model"
)

// JSONWriter outputs a run as one JSON document for tool integration.
type JSONWriter struct {
	baseWriter

	// version is the htmlcs version recorded in the document.
	version string

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
		version:    version,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// JSONReport is the document written by JSONWriter.
type JSONReport struct {
	// Version is the htmlcs version that generated this report.
	Version string `json:"version"`

	// Summary aggregates all files.
	Summary RunSummary `json:"summary"`

	// Files are the processed files with their annotations.
	Files []*model.File `json:"files"`
}

// Write outputs the run in JSON format.
func (w *JSONWriter) Write(files []*model.File) (int, error) {
	for _, f := range files {
		if f.Error != nil {
			f.ErrorMessage = f.Error.Error()
		}
	}
	if files == nil {
		files = []*model.File{}
	}
	return w.writeJSON(&JSONReport{
		Version: w.version,
		Summary: Summarize(files),
		Files:   files,
	})
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}
