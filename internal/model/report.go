package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// ErrMalformedReport is returned when the sniffer output is not a JSON object.
var ErrMalformedReport = errors.New("malformed sniffer output")

// Report is the JSON document printed by the runner script.
// This layer only checks its shape; the content belongs to the sniffer.
type Report struct {
	// Messages are the sniffer results for the page.
	Messages []Message `json:"messages"`

	// Errors are JavaScript errors raised on the page while sniffing.
	Errors []RuntimeError `json:"errors"`

	// Error is set when the headless browser could not run the sniffer at
	// all (page failed to open, script exception in the runner).
	Error *RuntimeError `json:"error,omitempty"`
}

// ParseReport decodes runner output into a Report.
// The output must be a single JSON object. Missing arrays are normalised
// to empty slices so callers never have to nil-check them.
func ParseReport(data []byte) (*Report, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty output", ErrMalformedReport)
	}
	if trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: expected a JSON object, got %q", ErrMalformedReport, preview(trimmed))
	}

	var r Report
	if err := json.Unmarshal(trimmed, &r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedReport, err)
	}

	if r.Messages == nil {
		r.Messages = []Message{}
	}
	if r.Errors == nil {
		r.Errors = []RuntimeError{}
	}
	return &r, nil
}

// preview returns at most the first 32 bytes of data for error messages.
func preview(data []byte) string {
	const limit = 32
	if len(data) <= limit {
		return string(data)
	}
	return string(data[:limit]) + "..."
}

// HasRuntimeFailure reports whether the browser failed before sniffing.
func (r *Report) HasRuntimeFailure() bool {
	return r.Error != nil
}

// Filter returns a copy of the report whose messages are restricted to the
// given types. With no types the copy contains every message.
// The receiver is never modified.
func (r *Report) Filter(types ...MessageType) *Report {
	out := &Report{
		Errors: slices.Clone(r.Errors),
	}
	if r.Error != nil {
		e := *r.Error
		out.Error = &e
	}

	out.Messages = make([]Message, 0, len(r.Messages))
	for _, m := range r.Messages {
		if len(types) == 0 || slices.Contains(types, m.Type) {
			out.Messages = append(out.Messages, m)
		}
	}
	return out
}

// Summary counts messages by type and runtime errors.
type Summary struct {
	// Counts is keyed by MessageType.SummaryKey ("ERRORS", "WARNINGS", ...).
	Counts map[string]int `json:"counts"`

	// RuntimeErrors is the number of JavaScript errors raised on the page.
	RuntimeErrors int `json:"runtime_errors"`
}

// Summary counts the report's messages.
func (r *Report) Summary() Summary {
	s := Summary{
		Counts:        make(map[string]int),
		RuntimeErrors: len(r.Errors),
	}
	for _, m := range r.Messages {
		s.Counts[m.Type.SummaryKey()]++
	}
	return s
}

// Count returns the number of messages of type t.
func (s Summary) Count(t MessageType) int {
	return s.Counts[t.SummaryKey()]
}

// Errors returns the number of ERROR messages.
func (s Summary) Errors() int { return s.Count(MessageError) }

// Warnings returns the number of WARNING messages.
func (s Summary) Warnings() int { return s.Count(MessageWarning) }

// Notices returns the number of NOTICE messages.
func (s Summary) Notices() int { return s.Count(MessageNotice) }

// Total returns the number of messages of any type.
func (s Summary) Total() int {
	total := 0
	for _, n := range s.Counts {
		total += n
	}
	return total
}

// Add accumulates other into s.
func (s *Summary) Add(other Summary) {
	if s.Counts == nil {
		s.Counts = make(map[string]int)
	}
	for k, v := range other.Counts {
		s.Counts[k] += v
	}
	s.RuntimeErrors += other.RuntimeErrors
}
