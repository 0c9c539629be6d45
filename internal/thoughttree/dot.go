package thoughttree

import (
	"fmt"
	"regexp"
	"strings"
)

type nodeStyle struct {
	fill, font, border, width string
}

var (
	styleCurrent = nodeStyle{"#7c3aed", "white", "#5b21b6", "4"}
	styleRoot    = nodeStyle{"#dcfce7", "#14532d", "#22c55e", "3"}
	stylePath    = nodeStyle{"#fff7ed", "#9a3412", "#f97316", "2"}
	styleDefault = nodeStyle{"#ffffff", "#0f172a", "#94a3b8", "1"}

	digitsRe  = regexp.MustCompile(`\d+`)
	leadingPn = regexp.MustCompile(`(?i)^\[P\s*\d+\]\s*`)
)

const (
	dotWrapWidth  = 18
	dotTooltipLen = 450
)

// UniqueLabels maps each visible node to a display label, numbering
// repeated labels "Label (2)", "Label (3)" in visiting order.
func (t *Tree) UniqueLabels(maxLen int) map[string]string {
	out := make(map[string]string)
	counts := make(map[string]int)
	for _, n := range t.Visible() {
		base := ShortLabel(&n, maxLen)
		if base == "Idea" {
			base = "New Path"
		}
		counts[base]++
		if c := counts[base]; c > 1 {
			out[n.ID] = fmt.Sprintf("%s (%d)", base, c)
		} else {
			out[n.ID] = base
		}
	}
	return out
}

// ScopeCode abbreviates a scope for map labels: "[P3] " for a paragraph,
// "[WD] " for the whole document, "" otherwise.
func ScopeCode(scope string) string {
	switch {
	case strings.Contains(scope, "Paragraph"):
		if d := digitsRe.FindString(scope); d != "" {
			return "[P" + d + "] "
		}
		return "[P] "
	case strings.Contains(scope, "Whole"):
		return "[WD] "
	}
	return ""
}

// DOT renders the non-banned part of the tree as a Graphviz digraph. The
// current node, the root and the ancestors of the current node are styled
// distinctly.
func (t *Tree) DOT(maxLen int) string {
	visible := t.Visible()
	labels := t.UniqueLabels(maxLen)

	onPath := make(map[string]bool)
	if path, err := t.Path(t.current); err == nil {
		for _, id := range path[:len(path)-1] {
			onPath[id] = true
		}
	}
	shown := make(map[string]bool, len(visible))
	for _, n := range visible {
		shown[n.ID] = true
	}

	var b strings.Builder
	b.WriteString("digraph thoughts {\n")
	b.WriteString("  rankdir=\"TB\"; nodesep=\"0.4\"; ranksep=\"0.6\";\n")
	b.WriteString("  node [shape=\"box\", style=\"rounded,filled\", fontname=\"Helvetica\", fontsize=\"14\", margin=\"0.25\", height=\"0.6\"];\n")
	b.WriteString("  edge [color=\"#64748b\", arrowsize=\"1.2\"];\n")

	for _, n := range visible {
		st := styleDefault
		switch {
		case n.ID == t.current:
			st = styleCurrent
		case n.Kind == KindRoot:
			st = styleRoot
		case onPath[n.ID]:
			st = stylePath
		}

		code := ScopeCode(n.Metadata.Scope)
		base := labels[n.ID]
		if code != "" {
			base = strings.TrimSpace(leadingPn.ReplaceAllString(base, ""))
		}
		label := strings.Join(wrap(code+base, dotWrapWidth), "\n")
		if n.Kind == KindCritique {
			label = "⚖️\n" + label
		}

		tip := n.Metadata.Explanation
		if tip == "" {
			tip = n.Summary
		}
		if r := []rune(tip); len(r) > dotTooltipLen {
			tip = string(r[:dotTooltipLen])
		}
		tip = "Focus: " + n.Metadata.Scope + "\n\n" + tip

		fmt.Fprintf(&b, "  %s [label=%s, fillcolor=%s, fontcolor=%s, color=%s, penwidth=%s, tooltip=%s];\n",
			quote(n.ID), quote(label), quote(st.fill), quote(st.font), quote(st.border), quote(st.width),
			quote(strings.ReplaceAll(tip, `"`, "'")))
	}
	for _, n := range visible {
		if n.Parent != "" && shown[n.Parent] {
			fmt.Fprintf(&b, "  %s -> %s;\n", quote(n.Parent), quote(n.ID))
		}
	}
	b.WriteString("}\n")
	return b.String()
}

// quote renders s as a DOT double-quoted string.
func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\r", "", "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}

// wrap breaks s into lines of at most width runes on word boundaries.
// Words longer than width are split.
func wrap(s string, width int) []string {
	var lines []string
	var cur []rune
	for _, w := range strings.Fields(s) {
		word := []rune(w)
		for len(word) > width {
			if len(cur) > 0 {
				lines = append(lines, string(cur))
				cur = nil
			}
			lines = append(lines, string(word[:width]))
			word = word[width:]
		}
		switch {
		case len(cur) == 0:
			cur = append(cur, word...)
		case len(cur)+1+len(word) <= width:
			cur = append(append(cur, ' '), word...)
		default:
			lines = append(lines, string(cur))
			cur = append([]rune(nil), word...)
		}
	}
	if len(cur) > 0 {
		lines = append(lines, string(cur))
	}
	return lines
}
