package proposal

import (
	"regexp"
	"strings"
)

var (
	blockSplitRe  = regexp.MustCompile(`(?i)\n?\s*Block\s*\d+:\s*`)
	segmentLeadRe = regexp.MustCompile(`(?i)^(?:\[P\s*\d+\]|Block\s*\d+:?|\d+[.)]|[*•\-])\s*`)
)

// ParseSegments reads a segmentation response of "Block n:" sections into
// paragraphs, removing any numbering the model added to each. Without block
// headers the response is split on blank lines.
func ParseSegments(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var paras []string
	for _, b := range blockSplitRe.Split(text, -1) {
		b = strings.TrimSpace(b)
		if b == "" {
			continue
		}
		for range 2 {
			b = strings.TrimSpace(segmentLeadRe.ReplaceAllString(b, ""))
		}
		if b != "" {
			paras = append(paras, b)
		}
	}
	if len(paras) > 0 {
		return paras
	}
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			paras = append(paras, p)
		}
	}
	return paras
}
