package proposal

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// editFields maps each edit field to its accepted headers.
var editFields = []struct {
	name    string
	aliases []string
}{
	{"Original", []string{"Original", "מקור"}},
	{"Proposed", []string{"Proposed", "מוצע"}},
	{"Type", []string{"Type", "סוג"}},
	{"Reason", []string{"Reason", "הסבר", "נימוק"}},
}

var (
	editStartRe = regexp.MustCompile(`(?i)^\s*(?:\[P\s*\d+\]\s*)?(?:\*\*)?(?:Original|מקור)(?:\*\*)?\s*:`)
	ellipsisRe  = regexp.MustCompile(`^\s*(?:\.\.\.|…)\s*|\s*(?:\.\.\.|…)\s*$`)

	// editHeaderRe matches a field header at the start of a line and
	// captures the header word.
	editHeaderRe = func() *regexp.Regexp {
		var all []string
		for _, f := range editFields {
			all = append(all, f.aliases...)
		}
		return regexp.MustCompile(`(?i)^\s*(?:\[P\s*\d+\]\s*)?(?:[*•\-]\s+|\d+[.)]\s*)?(?:\*\*)?(` + alt(all) + `)(?:\*\*)?\s*:(?:\*\*)?\s*`)
	}()
)

// ParseEdits extracts Original/Proposed blocks from a refinement response.
// scope is the focus the request was made with; in whole-document scope a
// "[Pn]" marker anywhere in a block narrows that edit to paragraph n.
func ParseEdits(text, scope string) []Edit {
	var edits []Edit
	for i, block := range splitEditBlocks(text) {
		fields := editFieldValues(block)
		orig, okO := fields["Original"]
		prop, okP := fields["Proposed"]
		if !okO || !okP {
			continue
		}
		orig = trimEllipsis(stripMarkers(orig))
		prop = trimEllipsis(stripMarkers(prop))
		if orig == "" {
			continue
		}

		typ := stripMarkers(fields["Type"])
		if typ == "" {
			typ = "Improvement"
		}
		reason := fields["Reason"]
		if reason == "" {
			reason = "General improvement"
		}

		editScope := scope
		if scope == WholeDocument {
			if marker, num, ok := findMarker(block); ok {
				typ = marker + " " + typ
				editScope = "Paragraph " + num
			}
		}

		edits = append(edits, Edit{
			ID:       fmt.Sprintf("refine_%d_%s", i, uuid.NewString()[:4]),
			Original: orig,
			Proposed: prop,
			Type:     typ,
			Reason:   reason,
			Status:   EditPending,
			Scope:    editScope,
		})
	}
	return edits
}

// splitEditBlocks cuts text before every line that opens an Original field.
func splitEditBlocks(text string) []string {
	var blocks []string
	var cur []string
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		if editStartRe.MatchString(line) && len(cur) > 0 {
			blocks = append(blocks, strings.Join(cur, "\n"))
			cur = nil
		}
		cur = append(cur, line)
	}
	if len(cur) > 0 {
		blocks = append(blocks, strings.Join(cur, "\n"))
	}
	return blocks
}

// editFieldValues reads "Field: value" runs. A value continues over
// following lines until the next field header.
func editFieldValues(block string) map[string]string {
	vals := make(map[string]string)
	var name string
	var buf []string
	flush := func() {
		if name == "" {
			return
		}
		if _, seen := vals[name]; !seen {
			vals[name] = strings.TrimSpace(strings.Join(buf, "\n"))
		}
	}
	for _, line := range strings.Split(block, "\n") {
		if m := editHeaderRe.FindStringSubmatchIndex(line); m != nil {
			flush()
			name = canonicalEditField(line[m[2]:m[3]])
			buf = []string{line[m[1]:]}
			continue
		}
		if name != "" {
			buf = append(buf, line)
		}
	}
	flush()
	return vals
}

func canonicalEditField(header string) string {
	for _, f := range editFields {
		for _, a := range f.aliases {
			if strings.EqualFold(a, header) {
				return f.name
			}
		}
	}
	return header
}

func trimEllipsis(s string) string {
	return strings.TrimSpace(ellipsisRe.ReplaceAllString(s, ""))
}
