// Package diffview renders a word-level visual diff between two texts as
// inline HTML for review before a suggestion is applied.
package diffview

import (
	"html"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// lineBreak stands in for "\n" during word alignment so paragraph breaks
// survive strings.Fields.
const lineBreak = "__BR_TOKEN__"

const (
	delOpen = `<span style="color:#ef4444; text-decoration:line-through;">`
	insOpen = `<span style="color:#10b981; font-weight:bold;">`
	closing = `</span>`
)

// Render returns HTML marking words removed from oldText as struck-through
// and words added in newText as bold. Text is HTML-escaped.
func Render(oldText, newText string) string {
	a := words(oldText)
	b := words(newText)

	m := difflib.NewMatcher(a, b)
	var parts []string
	for _, op := range m.GetOpCodes() {
		switch op.Tag {
		case 'e':
			parts = append(parts, join(a[op.I1:op.I2]))
		case 'r':
			parts = append(parts,
				delOpen+join(a[op.I1:op.I2])+closing,
				insOpen+join(b[op.J1:op.J2])+closing)
		case 'd':
			parts = append(parts, delOpen+join(a[op.I1:op.I2])+closing)
		case 'i':
			parts = append(parts, insOpen+join(b[op.J1:op.J2])+closing)
		}
	}

	out := strings.Join(parts, " ")
	out = strings.ReplaceAll(out, " <br> ", "<br>")
	out = strings.ReplaceAll(out, "<br> ", "<br>")
	out = strings.ReplaceAll(out, " <br>", "<br>")
	return out
}

func words(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Fields(strings.ReplaceAll(s, "\n", " "+lineBreak+" "))
}

// join escapes and space-joins ws, restoring line breaks.
func join(ws []string) string {
	esc := make([]string, len(ws))
	for i, w := range ws {
		if w == lineBreak {
			esc[i] = "<br>"
			continue
		}
		esc[i] = html.EscapeString(w)
	}
	return strings.Join(esc, " ")
}
