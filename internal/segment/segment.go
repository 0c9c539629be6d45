// Package segment splits an HTML draft into an ordered list of
// paragraph-like text units without consulting a model.
package segment

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// Structure is the deterministic outline of a document.
type Structure struct {
	Title      string // empty when the first unit does not look like a title
	Paragraphs []string
}

// Units returns the title (when present) followed by the paragraphs.
func (s Structure) Units() []string {
	if s.Title == "" {
		return s.Paragraphs
	}
	return append([]string{s.Title}, s.Paragraphs...)
}

const (
	minUnitLen       = 3
	maxTitleLen      = 250
	sentenceTitleLen = 100
)

// Segment extracts text units from block-level elements. Nested blocks
// inside a block become separate lines of that block. When the document has
// no block elements at all, its whole text is split on newlines instead.
func Segment(doc string) Structure {
	if strings.TrimSpace(doc) == "" {
		return Structure{}
	}
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return Structure{}
	}

	var units []string
	sawBlock := false

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skipped(n.Data) {
				return
			}
			if isBlock(n.Data) {
				sawBlock = true
				var buf strings.Builder
				text(n, &buf)
				units = append(units, split(buf.String())...)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	if !sawBlock {
		var buf strings.Builder
		text(root, &buf)
		units = split(buf.String())
	}
	return classify(units)
}

func classify(units []string) Structure {
	if len(units) == 0 {
		return Structure{}
	}
	if LooksLikeTitle(units[0]) {
		return Structure{Title: units[0], Paragraphs: units[1:]}
	}
	return Structure{Paragraphs: units}
}

// LooksLikeTitle reports whether a leading unit reads as a heading: shorter
// than 250 characters and not a long line ending in terminal punctuation.
// A title longer than that is treated as an ordinary paragraph.
func LooksLikeTitle(s string) bool {
	n := utf8.RuneCountInString(s)
	if n >= maxTitleLen {
		return false
	}
	return !(n > sentenceTitleLen && strings.IndexByte(".?!:;", s[len(s)-1]) >= 0)
}

// text writes the character data under n, with a newline for every line
// break and around every nested block.
func text(n *html.Node, buf *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		buf.WriteString(n.Data)
		return
	case html.ElementNode:
		if skipped(n.Data) {
			return
		}
		if n.Data == "br" {
			buf.WriteByte('\n')
			return
		}
	}
	block := n.Type == html.ElementNode && isBlock(n.Data)
	if block {
		buf.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		text(c, buf)
	}
	if block {
		buf.WriteByte('\n')
	}
}

func split(s string) []string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if utf8.RuneCountInString(line) >= minUnitLen {
			out = append(out, line)
		}
	}
	return out
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "li", "blockquote", "h1", "h2", "h3", "h4", "h5", "h6":
		return true
	}
	return false
}

func skipped(tag string) bool {
	return tag == "style" || tag == "script"
}

// Mark renders paragraphs as "[Pn] text" blocks separated by blank lines,
// numbering from 1. Blank paragraphs keep their number but are omitted.
func Mark(paragraphs []string) string {
	var out []string
	for i, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, fmt.Sprintf("[P%d] %s", i+1, p))
	}
	return strings.Join(out, "\n\n")
}

// MarkText numbers the non-empty lines of plain text when no structure is
// available.
func MarkText(s string) string {
	var paras []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			paras = append(paras, line)
		}
	}
	return Mark(paras)
}

// Paragraph returns the n-th paragraph, counting from 1.
func Paragraph(paragraphs []string, n int) (string, bool) {
	if n < 1 || n > len(paragraphs) {
		return "", false
	}
	return paragraphs[n-1], true
}
