package proposal

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	titleKeys       = []string{"Title", "שם", "נושא", "כותרת"}
	moduleKeys      = []string{"Module", "מחלקה", "עקרון"}
	explanationKeys = []string{"Explanation", "Critique", "הסבר", "ביקורת"}

	// optionKeys open a new option when they start a line.
	optionKeys = []string{"Title", "שם", "כותרת"}
	// primaryKeys mark a block as structured.
	primaryKeys = []string{"Title", "שם", "כותרת", "Critique", "ביקורת"}
)

// noCritique is the sentinel a model emits when it has nothing to object to.
const noCritique = "NO_CRITIQUE_NEEDED"

// lead is the boundary before a field word: start of text or a non-letter.
const lead = `(?:^|[^\p{L}\p{N}])`

var (
	boldKeyRe = regexp.MustCompile(`(?i)\*\*(` + alt(append(append(append([]string{}, titleKeys...), moduleKeys...), explanationKeys...)) + `)(?:\*\*:|:\*\*)`)

	optionStartRe = regexp.MustCompile(`(?i)^\s*(?:(?:\[P\d+\]|\d+[.)]|[*•\-])[ \t]*)*(?:` + alt(optionKeys) + `):`)

	titleRe = regexp.MustCompile(`(?i)` + lead + `(?:` + alt(titleKeys) + `):\s*(.*?)(?:\n|(?:` +
		alt(append(append([]string{}, moduleKeys...), explanationKeys...)) + `):|$)`)
	moduleRe      = regexp.MustCompile(`(?i)` + lead + `(?:` + alt(moduleKeys) + `):\s*(.*?)(?:\n|(?:` + alt(explanationKeys) + `):|$)`)
	explanationRe = regexp.MustCompile(`(?is)` + lead + `(?:` + alt(explanationKeys) + `):\s*(.*)`)
	headerLineRe  = regexp.MustCompile(`(?i)^\s*(?:\[P\d+\]\s*)?(?:[*•\-]\s*|\d+[.)]\s*)?(?:` + alt(append(append([]string{}, titleKeys...), moduleKeys...)) + `)\s*:`)
)

// SplitOptions cuts a response into one block per option. A block starts at
// a line whose first field is a title, optionally behind bullets, numbering
// or a paragraph marker. Unstructured responses fall back to paragraphs.
func SplitOptions(text string) []string {
	clean := strings.TrimSpace(boldKeyRe.ReplaceAllString(text, "$1:"))
	if clean == "" {
		return nil
	}

	var blocks []string
	var cur []string
	for _, line := range strings.Split(clean, "\n") {
		if optionStartRe.MatchString(line) && len(cur) > 0 {
			blocks = append(blocks, strings.Join(cur, "\n"))
			cur = nil
		}
		cur = append(cur, line)
	}
	blocks = append(blocks, strings.Join(cur, "\n"))

	var out []string
	for _, b := range blocks {
		b = strings.TrimSpace(b)
		if utf8.RuneCountInString(b) > 10 && hasPrimaryKey(b) {
			out = append(out, b)
		}
	}
	if len(out) > 0 {
		return out
	}

	for _, b := range strings.Split(clean, "\n\n") {
		if b = strings.TrimSpace(b); utf8.RuneCountInString(b) > 20 {
			out = append(out, b)
		}
	}
	return out
}

func hasPrimaryKey(b string) bool {
	lower := strings.ToLower(b)
	for _, k := range primaryKeys {
		if strings.Contains(lower, strings.ToLower(k)+":") {
			return true
		}
	}
	return false
}

// ParseIdea reads the Title, Module and Explanation fields of one option.
// Without an explanation header, the block minus its title and module lines
// is the explanation. ok is false when the explanation is too short to use.
func ParseIdea(block, scope string) (Idea, bool) {
	idea := Idea{Title: "Alternative Perspective", Module: "Analysis", Scope: scope}
	block = boldKeyRe.ReplaceAllString(block, "$1:")

	if m := titleRe.FindStringSubmatch(block); m != nil {
		if t := strings.Trim(m[1], " *"); t != "" {
			idea.Title = t
		}
	}
	if m := moduleRe.FindStringSubmatch(block); m != nil {
		if mod := strings.TrimSpace(m[1]); mod != "" {
			idea.Module = mod
		}
	}
	if m := explanationRe.FindStringSubmatch(block); m != nil {
		idea.Explanation = strings.TrimSpace(m[1])
	} else {
		idea.Explanation = dropHeaderLines(block)
	}

	idea.Title, idea.Scope = hoistMarker(idea.Title, idea.Scope)
	if utf8.RuneCountInString(idea.Explanation) < 5 {
		return Idea{}, false
	}
	return idea, true
}

// ParseIdeas splits text into options and parses at most limit of them.
// limit <= 0 means no limit.
func ParseIdeas(text, scope string, limit int) []Idea {
	var ideas []Idea
	for _, opt := range capOptions(SplitOptions(text), limit) {
		if idea, ok := ParseIdea(opt, scope); ok {
			ideas = append(ideas, idea)
		}
	}
	return ideas
}

// ParseCritiques parses at most limit critique options, skipping any that
// carry the no-critique sentinel.
func ParseCritiques(text, scope string, limit int) []Critique {
	var out []Critique
	for _, opt := range capOptions(SplitOptions(text), limit) {
		if strings.Contains(opt, noCritique) {
			continue
		}
		c := Critique{Title: "Critique", Module: "Review", Text: opt, Scope: scope}
		if m := titleRe.FindStringSubmatch(opt); m != nil {
			if t := strings.Trim(m[1], " *"); t != "" {
				c.Title = t
			}
		}
		if m := moduleRe.FindStringSubmatch(opt); m != nil {
			if mod := strings.TrimSpace(m[1]); mod != "" {
				c.Module = mod
			}
		}
		if m := explanationRe.FindStringSubmatch(opt); m != nil {
			c.Text = strings.TrimSpace(m[1])
		}
		c.Title, c.Scope = hoistMarker(c.Title, c.Scope)
		out = append(out, c)
	}
	return out
}

func capOptions(opts []string, limit int) []string {
	if limit > 0 && len(opts) > limit {
		return opts[:limit]
	}
	return opts
}

func dropHeaderLines(block string) string {
	var keep []string
	for _, line := range strings.Split(block, "\n") {
		if !headerLineRe.MatchString(line) {
			keep = append(keep, line)
		}
	}
	return strings.TrimSpace(strings.Join(keep, "\n"))
}
