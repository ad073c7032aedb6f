package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// TimeFormat is the clock format of the line prefix.
const TimeFormat = "15:04:05"

// Timestamp returns the bracketed line prefix for t, e.g. "[15:04:05]".
func Timestamp(t time.Time) string {
	return "[" + t.Format(TimeFormat) + "]"
}

// ConsoleHandler is a slog.Handler writing one gulp-style line per record.
// Attributes added with WithAttrs are rendered before record attributes;
// groups prefix keys with "group.".
type ConsoleHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	level  slog.Leveler
	attrs  []slog.Attr
	groups []string
	now    func() time.Time
}

// ConsoleHandlerOption configures a ConsoleHandler.
type ConsoleHandlerOption func(*ConsoleHandler)

// WithLevel sets the minimum level. Default is slog.LevelWarn.
func WithLevel(level slog.Leveler) ConsoleHandlerOption {
	return func(h *ConsoleHandler) {
		h.level = level
	}
}

// WithClock overrides the record time with now(), mainly for tests.
func WithClock(now func() time.Time) ConsoleHandlerOption {
	return func(h *ConsoleHandler) {
		h.now = now
	}
}

// NewConsoleHandler creates a ConsoleHandler writing to w.
func NewConsoleHandler(w io.Writer, opts ...ConsoleHandlerOption) *ConsoleHandler {
	h := &ConsoleHandler{
		mu:    &sync.Mutex{},
		w:     w,
		level: slog.LevelWarn,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Enabled reports whether the handler handles records at the given level.
func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle writes the record as a single line.
func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	var sb strings.Builder

	ts := r.Time
	if h.now != nil || ts.IsZero() {
		ts = h.clock()
	}
	sb.WriteString(Timestamp(ts))
	sb.WriteByte(' ')
	if r.Level >= slog.LevelWarn {
		sb.WriteString(r.Level.String())
		sb.WriteByte(' ')
	}
	sb.WriteString(r.Message)

	prefix := ""
	if len(h.groups) > 0 {
		prefix = strings.Join(h.groups, ".") + "."
	}
	for _, a := range h.attrs {
		writeAttr(&sb, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&sb, prefix, a)
		return true
	})
	sb.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, sb.String())
	return err
}

// clock returns the current time of the handler.
func (h *ConsoleHandler) clock() time.Time {
	if h.now != nil {
		return h.now()
	}
	return time.Now()
}

// WithAttrs returns a handler that renders attrs on every line.
func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	prefix := ""
	if len(h.groups) > 0 {
		prefix = strings.Join(h.groups, ".") + "."
	}
	clone.attrs = append([]slog.Attr{}, h.attrs...)
	for _, a := range attrs {
		clone.attrs = append(clone.attrs, slog.Attr{Key: prefix + a.Key, Value: a.Value})
	}
	return &clone
}

// WithGroup returns a handler that prefixes subsequent keys with name.
func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string{}, h.groups...), name)
	return &clone
}

// writeAttr renders a single attribute, flattening groups.
func writeAttr(sb *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		groupPrefix := prefix
		if a.Key != "" {
			groupPrefix = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			writeAttr(sb, groupPrefix, ga)
		}
		return
	}

	val := a.Value.String()
	if strings.ContainsAny(val, " \t\n\"=") {
		val = fmt.Sprintf("%q", val)
	}
	sb.WriteByte(' ')
	sb.WriteString(prefix)
	sb.WriteString(a.Key)
	sb.WriteByte('=')
	sb.WriteString(val)
}

// NewLogger creates a console logger.
//
// Parameters:
//   - w: where log lines go (typically os.Stderr)
//   - verbose: if true, sets the level to Debug; otherwise Warn
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(NewConsoleHandler(w, WithLevel(level)))
}

// NewJSONLogger creates a logger emitting JSON records, for CI log
// collectors that parse structured output.
func NewJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
