// Package term writes coloured console lines shared by the sniffer and the
// reporters.
package term

import (
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/nao1215/htmlcs/internal/log"
)

// ANSI colour numbers used for console output.
const (
	colorRed     = "9"
	colorCyan    = "14"
	colorMagenta = "13"
	colorYellow  = "11"
	colorGray    = "8"
)

// Printer writes whole lines to an io.Writer under a mutex so output of
// concurrently processed files never interleaves within a line or block.
type Printer struct {
	mu       sync.Mutex
	w        io.Writer
	color    bool
	renderer *lipgloss.Renderer
	now      func() time.Time
}

// PrinterOption configures a Printer.
type PrinterOption func(*Printer)

// WithColor enables or disables colour. When enabled, lipgloss still
// downgrades to plain text if w is not a terminal.
func WithColor(enabled bool) PrinterOption {
	return func(p *Printer) {
		p.color = enabled
	}
}

// WithClock replaces time.Now for timestamped lines.
func WithClock(now func() time.Time) PrinterOption {
	return func(p *Printer) {
		p.now = now
	}
}

// NewPrinter creates a Printer writing to w. Colour is off by default.
func NewPrinter(w io.Writer, opts ...PrinterOption) *Printer {
	p := &Printer{
		w:   w,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.color {
		p.renderer = lipgloss.NewRenderer(w)
	}
	return p
}

// Discard returns a Printer that drops everything.
func Discard() *Printer {
	return NewPrinter(io.Discard)
}

// paint renders s in the given colour when colour is enabled.
func (p *Printer) paint(color, s string) string {
	if !p.color || p.renderer == nil {
		return s
	}
	return p.renderer.NewStyle().Foreground(lipgloss.Color(color)).Render(s)
}

// Red paints s red.
func (p *Printer) Red(s string) string { return p.paint(colorRed, s) }

// Cyan paints s cyan.
func (p *Printer) Cyan(s string) string { return p.paint(colorCyan, s) }

// Magenta paints s magenta.
func (p *Printer) Magenta(s string) string { return p.paint(colorMagenta, s) }

// Yellow paints s yellow.
func (p *Printer) Yellow(s string) string { return p.paint(colorYellow, s) }

// Gray paints s gray.
func (p *Printer) Gray(s string) string { return p.paint(colorGray, s) }

// Colored reports whether output actually carries colour: it is enabled
// and the writer's colour profile is not plain ASCII.
func (p *Printer) Colored() bool {
	return p.color && p.renderer != nil && p.renderer.ColorProfile() != termenv.Ascii
}

// Line joins parts with single spaces, the way console.log does.
func Line(parts ...string) string {
	return strings.Join(parts, " ") + "\n"
}

// Stamped returns Line(parts...) prefixed with the current timestamp.
func (p *Printer) Stamped(parts ...string) string {
	return Line(append([]string{p.Gray(log.Timestamp(p.now()))}, parts...)...)
}

// Println writes a console.log style line.
func (p *Printer) Println(parts ...string) {
	p.WriteString(Line(parts...))
}

// Logln writes a timestamped line.
func (p *Printer) Logln(parts ...string) {
	p.WriteString(p.Stamped(parts...))
}

// WriteString writes s in a single locked write.
func (p *Printer) WriteString(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = io.WriteString(p.w, s) //nolint:errcheck // console output is best effort
}
