package thoughttree

import (
	"strings"
	"sync"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/html"
)

var (
	minifier     *minify.M
	minifierOnce sync.Once
)

func getMinifier() *minify.M {
	minifierOnce.Do(func() {
		minifier = minify.New()
		minifier.AddFunc("text/html", html.Minify)
	})
	return minifier
}

// canonicalDraft reduces an HTML draft to a form where whitespace-only
// editor churn compares equal.
func canonicalDraft(doc string) string {
	if !strings.Contains(doc, "<") {
		return strings.Join(strings.Fields(doc), " ")
	}
	out, err := getMinifier().String("text/html", doc)
	if err != nil {
		return strings.TrimSpace(doc)
	}
	return out
}

// SameDraft reports whether two drafts differ only in insignificant
// whitespace or markup formatting.
func SameDraft(a, b string) bool {
	return canonicalDraft(a) == canonicalDraft(b)
}
