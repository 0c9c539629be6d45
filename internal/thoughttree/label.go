package thoughttree

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultLabelLen bounds labels derived from a summary line.
const DefaultLabelLen = 50

// ShortLabel names a node for lists and maps. In order of preference: the
// stored label, a "Title:" line in the summary, the first heading of the
// stored HTML, the first summary line cut to maxLen runes, and finally a
// placeholder. A maxLen of 3 or less leaves no room for the "..." suffix and
// selects DefaultLabelLen.
func ShortLabel(n *Node, maxLen int) string {
	if n == nil {
		return "[Unknown]"
	}
	if maxLen <= 3 {
		maxLen = DefaultLabelLen
	}
	if n.Metadata.Label != "" {
		return n.Metadata.Label
	}
	if _, after, ok := strings.Cut(n.Summary, "Title:"); ok {
		line, _, _ := strings.Cut(after, "\n")
		if t := strings.Trim(line, " *"); t != "" {
			return t
		}
	}
	if h := firstHeading(n.Metadata.HTML); h != "" {
		return h
	}

	if n.Summary == "" {
		if n.Kind == KindRoot {
			return "[Main Topic]"
		}
		return "[Empty Idea]"
	}
	first, _, _ := strings.Cut(n.Summary, "\n")
	first = strings.TrimSpace(first)
	if first == "" {
		return "[Untitled Idea]"
	}
	if r := []rune(first); len(r) > maxLen {
		return string(r[:maxLen-3]) + "..."
	}
	return first
}

func firstHeading(doc string) string {
	if !strings.Contains(doc, "<h") && !strings.Contains(doc, "<H") {
		return ""
	}
	d, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(d.Find("h1, h2, h3, h4, h5, h6").First().Text())
}

// plainText returns the visible text of an HTML snapshot.
func plainText(doc string) string {
	if doc == "" {
		return ""
	}
	d, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return doc
	}
	d.Find("style, script").Remove()
	return d.Text()
}
