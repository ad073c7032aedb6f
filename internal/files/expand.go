// Package files turns command line arguments into the list of HTML files
// to sniff.
package files

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gobwas/glob"
)

// ErrNoFiles is returned when the patterns match no HTML file.
var ErrNoFiles = errors.New("no HTML files matched")

// Extensions are the file extensions collected from directories.
var Extensions = []string{".html", ".htm"}

// Expand resolves patterns to a sorted, deduplicated list of files.
//
// An existing file is taken as is. A directory is walked for files with
// one of Extensions. Anything else is a glob pattern ("**" crosses
// directories) matched against files with one of Extensions while walking
// from its static prefix.
func Expand(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, pattern := range patterns {
		info, err := os.Stat(pattern)
		switch {
		case err == nil && !info.IsDir():
			add(pattern)
		case err == nil && info.IsDir():
			if err := walkHTML(pattern, add); err != nil {
				return nil, err
			}
		default:
			if err := walkGlob(pattern, add); err != nil {
				return nil, err
			}
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFiles, strings.Join(patterns, " "))
	}
	slices.Sort(out)
	return out, nil
}

// IsHTML reports whether path has one of Extensions.
func IsHTML(path string) bool {
	return slices.Contains(Extensions, strings.ToLower(filepath.Ext(path)))
}

func walkHTML(root string, add func(string)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsHTML(path) {
			add(path)
		}
		return nil
	})
}

func walkGlob(pattern string, add func(string)) error {
	pattern = filepath.ToSlash(filepath.Clean(pattern))
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	root := staticPrefix(pattern)
	if _, err := os.Stat(root); err != nil {
		// Nothing to walk; the pattern simply matches nothing.
		return nil //nolint:nilerr // a missing prefix means no match
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if IsHTML(path) && g.Match(filepath.ToSlash(path)) {
			add(path)
		}
		return nil
	})
}

// staticPrefix returns the directory part of pattern before the first
// segment with a meta character, "." when the first segment has one.
func staticPrefix(pattern string) string {
	segments := strings.Split(pattern, "/")
	var static []string
	for _, s := range segments[:len(segments)-1] {
		if strings.ContainsAny(s, "*?[{\\") {
			break
		}
		static = append(static, s)
	}
	if len(static) == 0 {
		return "."
	}
	prefix := strings.Join(static, "/")
	if prefix == "" {
		return "/"
	}
	return filepath.FromSlash(prefix)
}

// Matcher matches file paths against glob patterns.
type Matcher struct {
	pattern string
	glob    glob.Glob
}

// NewMatcher compiles pattern with '/' as separator.
func NewMatcher(pattern string) (*Matcher, error) {
	g, err := glob.Compile(filepath.ToSlash(pattern), '/')
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return &Matcher{pattern: pattern, glob: g}, nil
}

// Pattern returns the source pattern.
func (m *Matcher) Pattern() string {
	return m.pattern
}

// Match reports whether path matches. Paths are compared in slash form
// after cleaning.
func (m *Matcher) Match(path string) bool {
	return m.glob.Match(filepath.ToSlash(filepath.Clean(path)))
}
