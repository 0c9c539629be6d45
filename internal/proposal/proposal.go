// Package proposal parses free-text model responses into edit proposals,
// ideas, critiques and paragraph lists.
//
// Responses follow a loose "Field: value" convention in English or Hebrew.
// Each parser is driven by a synonym table; field headers are matched
// case-insensitively and the first occurrence of a field wins.
package proposal

import (
	"fmt"
	"regexp"
	"strings"
)

// WholeDocument is the scope of a response about the entire draft.
const WholeDocument = "Whole Document"

// ParagraphScope names the scope of paragraph n (1-based).
func ParagraphScope(n int) string {
	return fmt.Sprintf("Paragraph %d", n)
}

// EditStatus tracks a pending edit through review.
type EditStatus string

const (
	EditPending   EditStatus = "pending"
	EditAccepted  EditStatus = "accepted"
	EditDismissed EditStatus = "dismissed"
)

// Edit is a localized replacement proposed by the model.
type Edit struct {
	ID       string     `json:"id"`
	Original string     `json:"original"`
	Proposed string     `json:"proposed"`
	Type     string     `json:"type"`
	Reason   string     `json:"reason"`
	Status   EditStatus `json:"status"`
	Scope    string     `json:"scope"`
}

// Idea is one alternative direction suggested by the model.
type Idea struct {
	Title       string `json:"title"`
	Module      string `json:"module"`
	Explanation string `json:"explanation"`
	Scope       string `json:"scope"`
}

// Critique is one critical point raised by the model.
type Critique struct {
	Title  string `json:"title"`
	Module string `json:"module"`
	Text   string `json:"text"`
	Scope  string `json:"scope"`
}

var markerRe = regexp.MustCompile(`(?i)\[P\s*(\d+)\]`)

// stripMarkers removes every "[Pn]" marker.
func stripMarkers(s string) string {
	return strings.TrimSpace(markerRe.ReplaceAllString(s, ""))
}

// findMarker returns the first "[Pn]" marker in s in canonical "[Pn]" form
// along with n.
func findMarker(s string) (marker, num string, ok bool) {
	m := markerRe.FindStringSubmatch(s)
	if m == nil {
		return "", "", false
	}
	return "[P" + m[1] + "]", m[1], true
}

// hoistMarker moves a paragraph marker in title to the front and reports
// the scope it implies.
func hoistMarker(title, scope string) (string, string) {
	marker, num, ok := findMarker(title)
	if !ok {
		return title, scope
	}
	return marker + " " + stripMarkers(title), "Paragraph " + num
}

func alt(keys []string) string {
	quoted := make([]string, len(keys))
	for i, k := range keys {
		quoted[i] = regexp.QuoteMeta(k)
	}
	return strings.Join(quoted, "|")
}
