package config

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/nao1215/htmlcs/internal/files"
	"github.com/nao1215/htmlcs/internal/model"
)

// PathConfig overrides sniff options. Zero fields leave the option alone.
type PathConfig struct {
	// Standard overrides the accessibility standard.
	Standard string `yaml:"standard,omitempty"`

	// Timeout overrides the browser timeout, e.g. "90s".
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// IgnoreSSL overrides certificate checking.
	IgnoreSSL *bool `yaml:"ignoreSSL,omitempty"`

	// WebSecurity overrides same-origin checks.
	WebSecurity *bool `yaml:"webSecurity,omitempty"`

	// Filter overrides the message types printed by the reporter.
	Filter []string `yaml:"filter,omitempty"`
}

// File represents the structure of the .htmlcs configuration file.
type File struct {
	// Defaults apply to every file. Command line flags take precedence.
	Defaults PathConfig `yaml:"defaults,omitempty"`

	// Paths maps glob patterns to overrides for matching files.
	// When several patterns match, longer patterns are applied last.
	Paths map[string]PathConfig `yaml:"paths,omitempty"`

	matchers []*files.Matcher
}

// compile validates the file and prepares the path matchers.
func (cf *File) compile() error {
	if err := cf.Defaults.validate(); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}

	cf.matchers = cf.matchers[:0]
	for pattern, pc := range cf.Paths {
		if err := pc.validate(); err != nil {
			return fmt.Errorf("paths %q: %w", pattern, err)
		}
		m, err := files.NewMatcher(pattern)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidPattern, err)
		}
		cf.matchers = append(cf.matchers, m)
	}
	slices.SortFunc(cf.matchers, func(a, b *files.Matcher) int {
		if c := cmp.Compare(len(a.Pattern()), len(b.Pattern())); c != 0 {
			return c
		}
		return cmp.Compare(a.Pattern(), b.Pattern())
	})
	return nil
}

func (pc PathConfig) validate() error {
	if pc.Standard != "" {
		if _, ok := model.ParseStandard(pc.Standard); !ok {
			return ErrInvalidStandard
		}
	}
	if pc.Timeout < 0 {
		return ErrInvalidTimeout
	}
	if _, err := model.ParseMessageTypes(pc.Filter); err != nil {
		return err
	}
	return nil
}

// ApplyTo returns opts with the overrides of pc.
func (pc PathConfig) ApplyTo(opts model.Options) model.Options {
	if std, ok := model.ParseStandard(pc.Standard); ok {
		opts.Standard = std
	}
	if pc.Timeout > 0 {
		opts.Timeout = pc.Timeout
	}
	if pc.IgnoreSSL != nil {
		opts.IgnoreSSL = *pc.IgnoreSSL
	}
	if pc.WebSecurity != nil {
		opts.WebSecurity = *pc.WebSecurity
	}
	return opts
}

// FilterTypes returns the parsed filter, nil when unset or invalid.
func (pc PathConfig) FilterTypes() []model.MessageType {
	types, err := model.ParseMessageTypes(pc.Filter)
	if err != nil || len(types) == 0 {
		return nil
	}
	return types
}

// matching returns the overrides matching path, least specific first.
func (cf *File) matching(path string) []PathConfig {
	var out []PathConfig
	for _, m := range cf.matchers {
		if m.Match(path) {
			out = append(out, cf.Paths[m.Pattern()])
		}
	}
	return out
}

// OptionsFor returns base with every override matching path applied.
func (cf *File) OptionsFor(path string, base model.Options) model.Options {
	opts := base
	for _, pc := range cf.matching(path) {
		opts = pc.ApplyTo(opts)
	}
	return opts
}

// FilterFor returns the reporter filter for path: the most specific
// matching override with a filter, else base.
func (cf *File) FilterFor(path string, base []model.MessageType) []model.MessageType {
	filter := base
	for _, pc := range cf.matching(path) {
		if types := pc.FilterTypes(); types != nil {
			filter = types
		}
	}
	return filter
}
