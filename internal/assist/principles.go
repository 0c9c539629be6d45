package assist

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// sectionKeywords selects the guideline sections relevant to each action.
var sectionKeywords = map[Action][]string{
	ActionDiverge:  {"Module 4", "Module 5", "Synthesis", "Partner Behaviors", "VII"},
	ActionCritique: {"Module 1", "Module 5", "Devil's Advocate", "Ethics", "VII"},
	ActionRefine:   {"Module 2", "Module 3", "Old-to-New", "Nominalization", "VI"},
	ActionSegment:  {"Module 2.1", "Module 2.2", "Section-Level", "Architecture"},
}

// Principles is a Markdown writing guide sent as the system instruction.
// The text before the first "##" heading is always sent; later sections
// only when they mention a keyword of the action.
type Principles struct {
	intro    string
	sections []string
}

// LoadPrinciples reads a guide from path. An empty path yields an empty
// guide.
func LoadPrinciples(path string) (*Principles, error) {
	if path == "" {
		return &Principles{}, nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read principles: %w", err)
	}
	return ParsePrinciples(src), nil
}

// ParsePrinciples splits a Markdown guide at its level-2 and deeper
// headings.
func ParsePrinciples(src []byte) *Principles {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var starts []int
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok || h.Level < 2 || h.Lines().Len() == 0 {
			continue
		}
		off := h.Lines().At(0).Start
		starts = append(starts, bytes.LastIndexByte(src[:off], '\n')+1)
	}

	p := &Principles{}
	if len(starts) == 0 {
		p.intro = strings.TrimSpace(string(src))
		return p
	}
	p.intro = strings.TrimSpace(string(src[:starts[0]]))
	for i, s := range starts {
		end := len(src)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		if sec := strings.TrimSpace(string(src[s:end])); sec != "" {
			p.sections = append(p.sections, sec)
		}
	}
	return p
}

// For returns the guide text relevant to action.
func (p *Principles) For(action Action) string {
	if p == nil {
		return ""
	}
	keys := sectionKeywords[action]
	parts := []string{}
	if p.intro != "" {
		parts = append(parts, p.intro)
	}
	for _, sec := range p.sections {
		if len(keys) == 0 || mentionsAny(sec, keys) {
			parts = append(parts, sec)
		}
	}
	return strings.Join(parts, "\n\n")
}

func mentionsAny(s string, keys []string) bool {
	low := strings.ToLower(s)
	for _, k := range keys {
		if strings.Contains(low, strings.ToLower(k)) {
			return true
		}
	}
	return false
}
