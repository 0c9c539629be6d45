package fuzzy

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/pmezard/go-difflib/difflib"
)

// MinCoverage is the smallest accepted ratio of matched canonical characters
// to canonical target length.
const MinCoverage = 0.4

// Match is a located span of the projection.
type Match struct {
	Start    int     // first projection rune
	Length   int     // projection runes covered
	Coverage float64 // matched length / canonical target length
	Literal  bool    // found by the literal fallback
}

// End returns the inclusive index of the last projection rune.
func (m Match) End() int {
	return m.Start + m.Length - 1
}

var markerRe = regexp.MustCompile(`(?i)\[P\s*\d+\]`)

// StripMarkers removes paragraph markers such as "[P3]" and trims the result.
func StripMarkers(s string) string {
	return strings.TrimSpace(markerRe.ReplaceAllString(s, ""))
}

// Locate finds the span of plain that best matches target. It reports false
// when the canonical overlap is below MinCoverage and a literal,
// case-insensitive search also fails.
func Locate(plain []rune, target string) (Match, bool) {
	clean := StripMarkers(target)
	if clean == "" || len(plain) == 0 {
		return Match{}, false
	}

	hay := Normalize(plain)
	needle := trimSpace(Normalize([]rune(clean)).Text)
	if len(needle) == 0 {
		return Match{}, false
	}

	if m, ok := longestCommon(hay, needle); ok {
		return extendPunct(plain, m, clean), true
	}
	return literal(plain, clean)
}

// sentencePunct is dropped by canonicalization, so a fuzzy span never ends
// on it.
const sentencePunct = ".!?,;:…"

// extendPunct grows m over the sentence punctuation that closes target when
// the projection carries the same characters right after the span.
func extendPunct(plain []rune, m Match, target string) Match {
	tail := []rune(target)
	i := len(tail)
	for i > 0 && strings.ContainsRune(sentencePunct, tail[i-1]) {
		i--
	}
	end := m.Start + m.Length
	for _, r := range tail[i:] {
		if end >= len(plain) || plain[end] != r {
			break
		}
		end++
	}
	m.Length = end - m.Start
	return m
}

func longestCommon(hay Span, needle []rune) (Match, bool) {
	matcher := difflib.NewMatcherWithJunk(runeStrings(hay.Text), runeStrings(needle), false, nil)
	var best difflib.Match
	for _, blk := range matcher.GetMatchingBlocks() {
		if blk.Size > best.Size {
			best = blk
		}
	}
	if best.Size == 0 || best.Size*10 < len(needle)*4 {
		return Match{}, false
	}

	// A partial match may begin or end on a separator that stands in for a
	// block boundary; never let it pull neighbouring markup into the span.
	start, end := best.A, best.A+best.Size-1
	for start <= end && hay.Text[start] == ' ' {
		start++
	}
	for end >= start && hay.Text[end] == ' ' {
		end--
	}
	if start > end {
		return Match{}, false
	}

	ps, pe := hay.IndexMap[start], hay.IndexMap[end]
	return Match{
		Start:    ps,
		Length:   pe - ps + 1,
		Coverage: float64(best.Size) / float64(len(needle)),
	}, true
}

func literal(plain []rune, target string) (Match, bool) {
	hay := foldLiteral(plain)
	needle := foldLiteral([]rune(target))
	pos := strings.Index(hay, needle)
	if pos < 0 {
		return Match{}, false
	}
	return Match{
		Start:    utf8.RuneCountInString(hay[:pos]),
		Length:   utf8.RuneCountInString(needle),
		Coverage: 1,
		Literal:  true,
	}, true
}

func runeStrings(rs []rune) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = string(r)
	}
	return out
}

func trimSpace(rs []rune) []rune {
	for len(rs) > 0 && rs[0] == ' ' {
		rs = rs[1:]
	}
	for len(rs) > 0 && rs[len(rs)-1] == ' ' {
		rs = rs[:len(rs)-1]
	}
	return rs
}
