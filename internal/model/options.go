package model

import (
	"slices"
	"strings"
	"time"
)

// Standard names an accessibility standard understood by HTML_CodeSniffer.
type Standard string

const (
	// StandardWCAG2A is WCAG 2 level A.
	StandardWCAG2A Standard = "WCAG2A"

	// StandardWCAG2AA is WCAG 2 level AA.
	StandardWCAG2AA Standard = "WCAG2AA"

	// StandardWCAG2AAA is WCAG 2 level AAA.
	StandardWCAG2AAA Standard = "WCAG2AAA"

	// StandardSection508 is US Section 508.
	StandardSection508 Standard = "Section508"
)

// Standards lists the supported standards.
var Standards = []Standard{
	StandardWCAG2A,
	StandardWCAG2AA,
	StandardWCAG2AAA,
	StandardSection508,
}

// ParseStandard matches s case-insensitively against the supported standards.
func ParseStandard(s string) (Standard, bool) {
	for _, std := range Standards {
		if strings.EqualFold(string(std), strings.TrimSpace(s)) {
			return std, true
		}
	}
	return Standard(s), false
}

// Valid reports whether s is a supported standard.
func (s Standard) Valid() bool {
	return slices.Contains(Standards, s)
}

// Default sniff options.
const (
	DefaultIgnoreSSL   = true
	DefaultWebSecurity = false
	DefaultStandard    = StandardWCAG2AA
	DefaultTimeout     = 60 * time.Second
)

// Options controls one sniffer run.
// They are attached to every annotated file so reporters know how the
// report was produced.
type Options struct {
	// IgnoreSSL makes the browser accept invalid certificates of
	// resources referenced by the page.
	IgnoreSSL bool `json:"ignore_ssl" yaml:"ignoreSSL"`

	// WebSecurity enables same-origin checks in the browser. Off by
	// default so local files can load their assets.
	WebSecurity bool `json:"web_security" yaml:"webSecurity"`

	// Standard is the accessibility standard to sniff against.
	Standard Standard `json:"standard" yaml:"standard"`

	// Verbose logs the spawned command and received output sizes.
	Verbose bool `json:"verbose" yaml:"verbose"`

	// Timeout is the wall-clock budget of one browser process.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// DefaultOptions returns the default sniff options.
func DefaultOptions() Options {
	return Options{
		IgnoreSSL:   DefaultIgnoreSSL,
		WebSecurity: DefaultWebSecurity,
		Standard:    DefaultStandard,
		Verbose:     false,
		Timeout:     DefaultTimeout,
	}
}
