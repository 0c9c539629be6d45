// Package fuzzy aligns LLM-quoted plain text with a document projection.
//
// Both sides are first reduced to a canonical character stream (Normalize)
// that tolerates re-wrapped whitespace, smart quotes, dash variants, accents
// and case. The longest common substring of the two streams is then mapped
// back to projection coordinates (Locate).
package fuzzy

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Span is a canonical character stream. IndexMap[i] is the index in the
// source rune slice that produced Text[i]; it is non-decreasing and has the
// same length as Text.
type Span struct {
	Text     []rune
	IndexMap []int
}

func (s Span) String() string {
	return string(s.Text)
}

// safePunct survives canonicalization alongside letters, digits and space.
const safePunct = "@#$%^&*()_+=[]{}|\\/"

// Normalize canonicalizes src: compatibility-decomposed, lowercased,
// combining marks dropped, and every run of whitespace or insignificant
// punctuation collapsed to a single space.
func Normalize(src []rune) Span {
	out := Span{
		Text:     make([]rune, 0, len(src)),
		IndexMap: make([]int, 0, len(src)),
	}
	var scratch [8]rune
	for i, r := range src {
		for _, c := range fold(r, scratch[:0]) {
			switch {
			case significant(c):
				out.Text = append(out.Text, c)
				out.IndexMap = append(out.IndexMap, i)
			case unicode.Is(unicode.Mn, c):
				// accents and vowel points vanish without splitting the word
			default:
				if n := len(out.Text); n == 0 || out.Text[n-1] != ' ' {
					out.Text = append(out.Text, ' ')
					out.IndexMap = append(out.IndexMap, i)
				}
			}
		}
	}
	return out
}

// fold expands r to its compatibility decomposition and lowercases it.
func fold(r rune, buf []rune) []rune {
	if r < utf8.RuneSelf {
		return append(buf, unify(unicode.ToLower(r)))
	}
	for _, c := range norm.NFKD.String(string(r)) {
		buf = append(buf, unify(unicode.ToLower(c)))
	}
	return buf
}

// unify maps dash, quote and whitespace variants to one representative.
func unify(r rune) rune {
	switch r {
	case '‐', '‑', '‒', '–', '—', '―', '−':
		return '-'
	case '“', '”', '„', '‟', '«', '»':
		return '"'
	case '‘', '’', '‚', '‛', '׳':
		return '\''
	}
	if unicode.IsSpace(r) {
		return ' '
	}
	return r
}

func significant(r rune) bool {
	if r == ' ' {
		return false
	}
	return unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(safePunct, r)
}

// foldLiteral lowercases and unifies dashes rune by rune, keeping length,
// for the literal-substring fallback.
func foldLiteral(src []rune) string {
	var sb strings.Builder
	sb.Grow(len(src))
	for _, r := range src {
		sb.WriteRune(unify(unicode.ToLower(r)))
	}
	return sb.String()
}
