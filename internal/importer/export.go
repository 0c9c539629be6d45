package importer

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fumiama/go-docx"
	"golang.org/x/net/html"
)

// ExportDOCX writes an editor document as a Word file. Headings keep their
// level as "HeadingN" paragraph styles; paragraphs, list items and quotes
// become plain paragraphs with <br> as line breaks.
func ExportDOCX(w io.Writer, doc string) error {
	d, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}
	out := docx.New().WithDefaultTheme()

	d.Find("h1, h2, h3, h4, h5, h6, p, li, blockquote, pre").Each(func(_ int, s *goquery.Selection) {
		// Blocks nested in an exported block were written with their parent.
		if s.ParentsFiltered("p, li, blockquote, pre").Length() > 0 {
			return
		}
		text := strings.TrimSpace(exportText(s.Nodes[0]))
		if text == "" {
			return
		}
		para := out.AddParagraph()
		if level := headingLevel(goquery.NodeName(s)); level > 0 {
			para.Style(fmt.Sprintf("Heading%d", level))
		}
		para.AddText(text)
	})

	if _, err := out.WriteTo(w); err != nil {
		return fmt.Errorf("write docx: %w", err)
	}
	return nil
}

func exportText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(strings.ReplaceAll(n.Data, "\n", " "))
		case n.Type == html.ElementNode && n.Data == "br":
			b.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	lines := strings.Split(b.String(), "\n")
	for i, l := range lines {
		lines[i] = strings.Join(strings.Fields(l), " ")
	}
	return strings.Join(lines, "\n")
}
