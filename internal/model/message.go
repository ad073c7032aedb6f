package model

import (
	"strings"
)

// MessageType is the kind of a sniffer message.
// The runner script emits these as upper-case strings.
type MessageType string

const (
	// MessageError is a failure of a success criterion that can be
	// determined automatically.
	MessageError MessageType = "ERROR"

	// MessageWarning is a likely failure that needs human review.
	MessageWarning MessageType = "WARNING"

	// MessageNotice is a criterion that can only be checked by a human.
	MessageNotice MessageType = "NOTICE"
)

// AllMessageTypes lists the message types in descending order of importance.
var AllMessageTypes = []MessageType{MessageError, MessageWarning, MessageNotice}

// ParseMessageType converts a string into a MessageType.
// The comparison is case-insensitive. The second return value is false
// for unknown types.
func ParseMessageType(s string) (MessageType, bool) {
	t := MessageType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case MessageError, MessageWarning, MessageNotice:
		return t, true
	default:
		return t, false
	}
}

// ParseMessageTypes parses a list of type names, splitting comma separated
// values. It returns the first unknown name as an error.
func ParseMessageTypes(values []string) ([]MessageType, error) {
	var types []MessageType
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			t, ok := ParseMessageType(part)
			if !ok {
				return nil, &UnknownMessageTypeError{Name: part}
			}
			types = append(types, t)
		}
	}
	return types, nil
}

// UnknownMessageTypeError is returned for type names the sniffer never emits.
type UnknownMessageTypeError struct {
	Name string
}

// Error implements the error interface.
func (e *UnknownMessageTypeError) Error() string {
	return "unknown message type: " + e.Name + " (use ERROR, WARNING or NOTICE)"
}

// Rank orders message types: ERROR is 0, WARNING 1, NOTICE 2, unknown 3.
func (t MessageType) Rank() int {
	switch t {
	case MessageError:
		return 0
	case MessageWarning:
		return 1
	case MessageNotice:
		return 2
	default:
		return 3
	}
}

// SummaryKey returns the key used in summaries, e.g. "ERRORS".
func (t MessageType) SummaryKey() string {
	return string(t) + "S"
}

// Message is a single sniffer result for one element.
type Message struct {
	// Type is ERROR, WARNING or NOTICE.
	Type MessageType `json:"type"`

	// Code is the dotted rule code, e.g.
	// "WCAG2AA.Principle1.Guideline1_1.1_1_1.H37".
	Code string `json:"code"`

	// Msg is the human-readable description.
	Msg string `json:"msg"`

	// OuterHTML is the offending element's markup, possibly truncated by
	// the runner.
	OuterHTML string `json:"outerHTML"` //nolint:tagliatelle // wire format of the runner
}

// ShortCode returns the first three segments of the code joined by spaces.
// "WCAG2AA.Principle1.Guideline1_1.1_1_1.H37" becomes
// "WCAG2AA Principle1 Guideline1_1".
func (m Message) ShortCode() string {
	parts := strings.Split(m.Code, ".")
	if len(parts) > 3 {
		parts = parts[:3]
	}
	return strings.Join(parts, " ")
}

// Technique returns the last segment of the code (e.g. "H37"), or an
// empty string when the code has a single segment.
func (m Message) Technique() string {
	idx := strings.LastIndex(m.Code, ".")
	if idx < 0 {
		return ""
	}
	return m.Code[idx+1:]
}

// RuntimeError is a JavaScript error raised while the sniffer ran.
type RuntimeError struct {
	Msg   string `json:"msg"`
	Trace string `json:"trace,omitempty"`
}

// Plural returns "s" unless n is exactly one.
func Plural(n int) string {
	if n > 1 || n < 1 {
		return "s"
	}
	return ""
}
