// Package document extracts page metadata from HTML files before they are
// sniffed.
package document

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/language"
)

// Info is the metadata of one HTML document.
type Info struct {
	// Title is the text of the first <title> element.
	Title string

	// Lang is the raw lang attribute of the <html> element.
	Lang string

	// Language is Lang in canonical BCP 47 form, empty when Lang is
	// missing or invalid.
	Language string
}

// Inspect parses the HTML file at path.
func Inspect(path string) (*Info, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the expanded file list
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return info, nil
}

// Parse reads an HTML document from r.
func Parse(r io.Reader) (*Info, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	info := &Info{}
	walk(doc, info)

	if info.Lang != "" {
		if tag, err := language.Parse(info.Lang); err == nil {
			info.Language = tag.String()
		}
	}
	return info, nil
}

// walk fills info from the first <html lang> and <title> found.
func walk(n *html.Node, info *Info) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Html:
			if info.Lang == "" {
				info.Lang = strings.TrimSpace(attr(n, "lang"))
			}
		case atom.Title:
			if info.Title == "" {
				info.Title = strings.Join(strings.Fields(text(n)), " ")
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, info)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func text(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}
