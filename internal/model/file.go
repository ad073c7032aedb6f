package model

import "time"

// File is the item flowing through the pipeline: one HTML document.
type File struct {
	// Path is the file system path handed to the browser.
	Path string `json:"path"`

	// Title is the document's <title>, if any.
	Title string `json:"title,omitempty"`

	// Lang is the raw lang attribute of the <html> element.
	Lang string `json:"lang,omitempty"`

	// Language is Lang in canonical BCP 47 form, empty when Lang is
	// missing or not a valid tag.
	Language string `json:"language,omitempty"`

	// HTMLCS is attached by the sniff step when the report parsed.
	// A nil value means the file passed through unannotated.
	HTMLCS *Annotation `json:"htmlcs,omitempty"`

	// DateSniffed is when the file entered the pipeline.
	DateSniffed time.Time `json:"date_sniffed"`

	// PerformedSteps lists the pipeline steps that ran on this file.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Error is the last step error, if any.
	Error error `json:"-"`

	// ErrorMessage is Error as a string for serialization.
	ErrorMessage string `json:"error,omitempty"`
}

// Annotation is the sniff result attached to a file.
type Annotation struct {
	// Options are the options the sniffer ran with.
	Options Options `json:"opts"`

	// Report is the parsed sniffer output.
	Report *Report `json:"report"`
}

// NewFile creates a pipeline item for path.
func NewFile(path string) *File {
	return &File{
		Path:        path,
		DateSniffed: time.Now(),
	}
}

// Report returns the attached report or nil.
func (f *File) Report() *Report {
	if f.HTMLCS == nil {
		return nil
	}
	return f.HTMLCS.Report
}

// Annotated reports whether a parsed report is attached.
func (f *File) Annotated() bool {
	return f.Report() != nil
}
