// Package doctree holds the section structure of an imported document.
package doctree

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// DocTree is the root of a parsed document.
type DocTree struct {
	Title    string     // Document title (from metadata or filename)
	Children []*DocNode // Top-level sections
}

// DocNode is a recursive section in the document tree.
type DocNode struct {
	Title    string     // Section heading (empty for leaf text)
	Text     string     // Paragraphs separated by blank lines
	Page     int        // Source page (0 if N/A)
	Children []*DocNode // Subsections
}

// Chunk is a sized piece of a document with its heading path.
type Chunk struct {
	Text       string
	Index      int
	Breadcrumb []string // e.g. ["Methods", "Sampling"]
	Page       int
}

// FromText wraps plain text as a single untitled section.
func FromText(title, text string) *DocTree {
	t := &DocTree{Title: title}
	if strings.TrimSpace(text) != "" {
		t.Children = []*DocNode{{Text: text}}
	}
	return t
}

// HTML renders the tree as a seed document for the editor: the title as
// <h1>, sections as <h2> and deeper (capped at <h6>), and each paragraph of
// text as <p>. All text is escaped.
func (t *DocTree) HTML() string {
	var b strings.Builder
	if t.Title != "" {
		fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(t.Title))
	}
	for _, n := range t.Children {
		writeNode(&b, n, 2)
	}
	return b.String()
}

func writeNode(b *strings.Builder, n *DocNode, level int) {
	if level > 6 {
		level = 6
	}
	if n.Title != "" {
		fmt.Fprintf(b, "<h%d>%s</h%d>\n", level, html.EscapeString(n.Title), level)
	}
	for _, p := range strings.Split(n.Text, "\n\n") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		lines := strings.Split(p, "\n")
		for i, l := range lines {
			lines[i] = html.EscapeString(strings.TrimSpace(l))
		}
		fmt.Fprintf(b, "<p>%s</p>\n", strings.Join(lines, "<br>"))
	}
	for _, c := range n.Children {
		writeNode(b, c, level+1)
	}
}
