package files

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// makeTree creates files below a temp dir and returns the dir.
func makeTree(t *testing.T, names ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, name := range names {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("<html></html>"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// TestExpand tests argument expansion.
func TestExpand(t *testing.T) {
	t.Parallel()

	root := makeTree(t,
		"index.html",
		"about.HTM",
		"style.css",
		"docs/guide.html",
		"docs/deep/faq.html",
	)
	p := func(name string) string { return filepath.Join(root, filepath.FromSlash(name)) }

	t.Run("plain file is kept whatever its extension", func(t *testing.T) {
		t.Parallel()

		got, err := Expand([]string{p("style.css")})
		if err != nil {
			t.Fatal(err)
		}
		if !equal(got, []string{p("style.css")}) {
			t.Errorf("got %v", got)
		}
	})

	t.Run("directory is walked for HTML files", func(t *testing.T) {
		t.Parallel()

		got, err := Expand([]string{root})
		if err != nil {
			t.Fatal(err)
		}
		want := []string{p("about.HTM"), p("docs/deep/faq.html"), p("docs/guide.html"), p("index.html")}
		if !equal(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("single star stays in one directory", func(t *testing.T) {
		t.Parallel()

		got, err := Expand([]string{filepath.ToSlash(root) + "/docs/*.html"})
		if err != nil {
			t.Fatal(err)
		}
		if !equal(got, []string{p("docs/guide.html")}) {
			t.Errorf("got %v", got)
		}
	})

	t.Run("glob selects HTML files only", func(t *testing.T) {
		t.Parallel()

		got, err := Expand([]string{filepath.ToSlash(root) + "/*"})
		if err != nil {
			t.Fatal(err)
		}
		want := []string{p("about.HTM"), p("index.html")}
		if !equal(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("double star crosses directories", func(t *testing.T) {
		t.Parallel()

		got, err := Expand([]string{filepath.ToSlash(root) + "/docs/**.html"})
		if err != nil {
			t.Fatal(err)
		}
		want := []string{p("docs/deep/faq.html"), p("docs/guide.html")}
		if !equal(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("duplicates are removed", func(t *testing.T) {
		t.Parallel()

		got, err := Expand([]string{p("index.html"), root + "/./index.html", filepath.ToSlash(root) + "/*.html"})
		if err != nil {
			t.Fatal(err)
		}
		if !equal(got, []string{p("index.html")}) {
			t.Errorf("got %v", got)
		}
	})

	t.Run("no match", func(t *testing.T) {
		t.Parallel()

		_, err := Expand([]string{filepath.ToSlash(root) + "/*.php", p("missing/*.html")})
		if !errors.Is(err, ErrNoFiles) {
			t.Errorf("expected ErrNoFiles, got %v", err)
		}
	})
}

// TestStaticPrefix tests the walk root of patterns.
func TestStaticPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pattern string
		want    string
	}{
		{"*.html", "."},
		{"site/*.html", "site"},
		{"site/docs/**.html", filepath.FromSlash("site/docs")},
		{"site/{a,b}/x.html", "site"},
		{"/abs/*.html", filepath.FromSlash("/abs")},
	}
	for _, tt := range tests {
		if got := staticPrefix(tt.pattern); got != tt.want {
			t.Errorf("staticPrefix(%q) = %q, want %q", tt.pattern, got, tt.want)
		}
	}
}

// TestMatcher tests path overrides matching.
func TestMatcher(t *testing.T) {
	t.Parallel()

	m, err := NewMatcher("legacy/**")
	if err != nil {
		t.Fatal(err)
	}
	if !m.Match("legacy/old/page.html") || !m.Match("./legacy/a.html") {
		t.Error("expected legacy paths to match")
	}
	if m.Match("site/legacy.html") {
		t.Error("expected other paths not to match")
	}
	if m.Pattern() != "legacy/**" {
		t.Errorf("unexpected pattern %q", m.Pattern())
	}

	if _, err := NewMatcher("[unclosed"); err == nil {
		t.Error("expected invalid pattern error")
	}
}

// TestIsHTML tests extension matching.
func TestIsHTML(t *testing.T) {
	t.Parallel()

	for path, want := range map[string]bool{
		"a.html": true,
		"b.HTM":  true,
		"c.xml":  false,
		"html":   false,
	} {
		if got := IsHTML(path); got != want {
			t.Errorf("IsHTML(%q) = %v, want %v", path, got, want)
		}
	}
}
