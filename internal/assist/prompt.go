package assist

import (
	"fmt"
	"strings"
)

// Action is a kind of assistance the author can ask for.
type Action string

const (
	ActionDiverge  Action = "diverge"
	ActionRefine   Action = "refine"
	ActionCritique Action = "critique"
	ActionSegment  Action = "segment"
)

// ParseAction validates an action name.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionDiverge, ActionRefine, ActionCritique, ActionSegment:
		return a, nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// Mode selects what part of the draft a request is about.
type Mode string

const (
	ModeWholeDocument Mode = "whole"
	ModeParagraph     Mode = "paragraph"
)

const languageRule = "CRITICAL: Respond in the same language as the input text (if the input is Hebrew, the response MUST be Hebrew)."

func citationRule() string {
	return "MANDATORY CITATION RULE:\n" +
		"The author is working on the WHOLE DOCUMENT. Every Title or Type MUST start with the " +
		"paragraph marker it refers to, e.g. '[P1] Title' or '[P4] Clarity'. " +
		"Use the [PX] markers given in the input."
}

func focusRule(n int) string {
	return fmt.Sprintf("FOCUS RULE:\nYou are working on Paragraph %d only. "+
		"Use the marker [P%d] in every Title or Type.", n, n)
}

// buildPrompt wraps focus in the instructions and output grammar for
// action. constraints is the request-specific context block.
func buildPrompt(action Action, focus, constraints string) string {
	var b strings.Builder
	switch action {
	case ActionDiverge:
		b.WriteString("You are an academic writing mentor. Suggest new directions in which the author could develop the argument.\n")
		b.WriteString("MODE: EXPLORE\n\n")
		b.WriteString("--- CONTEXT & CONSTRAINTS ---\n" + constraints + "\n\n")
		b.WriteString("Brainstorm several distinct perspectives (theoretical, empirical, interdisciplinary, counter-argument), ")
		b.WriteString("judge them for rigor and novelty, and present only the best three.\n\n")
		b.WriteString("Output format, for each perspective:\n")
		b.WriteString("Title: <[PX] a specific, unique name>\n")
		b.WriteString("Module: <the principle applied>\n")
		b.WriteString("Explanation: <how it applies, at most 100 words>\n\n")
		b.WriteString("Rules:\n- Start every Title with the [PX] marker of the paragraph it concerns.\n")
		b.WriteString("- Do not rewrite the author's text.\n- At most 3 perspectives.\n")
		b.WriteString("- Keep the key 'Title:' in English even when the content is not.\n\n")
		b.WriteString("Input:\n" + focus)

	case ActionRefine:
		b.WriteString("You are an academic editor. Find specific passages whose clarity, flow or structure can be improved.\n")
		b.WriteString("MODE: REFINE\n\n")
		b.WriteString("--- CONSTRAINTS ---\n" + constraints + "\n\n")
		b.WriteString("Respond ONLY with improvement blocks separated by a blank line:\n\n")
		b.WriteString("Original: <the exact passage from the input>\n")
		b.WriteString("Proposed: <the improved passage>\n")
		b.WriteString("Type: <[PX] category, e.g. [P1] Clarity>\n")
		b.WriteString("Reason: <why the change helps>\n\n")
		b.WriteString("Rules:\n- No introduction or conclusion.\n")
		b.WriteString("- 'Original' must match the input exactly.\n")
		b.WriteString("- Every Type carries the [PX] marker of its paragraph.\n\n")
		b.WriteString("--- INPUT TEXT ---\n" + focus)

	case ActionCritique:
		b.WriteString("You are a rigorous peer reviewer. Find the weaknesses that keep the argument from being bulletproof.\n")
		b.WriteString("MODE: CHALLENGE\n\n")
		b.WriteString("--- CONTEXT & CONSTRAINTS ---\n" + constraints + "\n\n")
		b.WriteString("Identify up to 3 distinct logical gaps, unsupported claims or hidden assumptions. ")
		b.WriteString("If the text needs no improvement, answer only NO_CRITIQUE_NEEDED.\n\n")
		b.WriteString("Output format, per block:\n")
		b.WriteString("Title: <[PX] short unique title>\n")
		b.WriteString("Module: <the principle applied>\n")
		b.WriteString("Critique: <the critique>\n\n")
		b.WriteString("Rules:\n- Separate blocks with a blank line.\n- Each block names a different kind of issue.\n")
		b.WriteString("- Start directly with 'Title:' or 'NO_CRITIQUE_NEEDED'.\n\n")
		b.WriteString("Input text:\n" + focus)

	case ActionSegment:
		b.WriteString("You are a linguistic analyst. Regroup the text into its logical paragraphs: ")
		b.WriteString("one central claim with its supporting reasons and examples per unit.\n")
		b.WriteString("MODE: SEGMENT\n\n")
		b.WriteString(constraints + "\n\n")
		b.WriteString("Rules:\n1. Skip titles and headings.\n2. Keep the wording exactly as given.\n\n")
		b.WriteString("Respond ONLY in this format:\n\nBlock 1:\n<text of the first unit>\n\nBlock 2:\n<text of the second unit>\n\n")
		b.WriteString("Do NOT put [P1] or any other marker inside a block.\n\n")
		b.WriteString("--- INPUT TEXT ---\n" + focus)
	}
	return b.String()
}
