// Package assist runs the assistant actions (explore, refine, critique and
// segment) against a language model and records the results in a session.
package assist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/dgallion1/lantern/internal/chunker"
	"github.com/dgallion1/lantern/internal/diffview"
	"github.com/dgallion1/lantern/internal/doctree"
	"github.com/dgallion1/lantern/internal/proposal"
	"github.com/dgallion1/lantern/internal/segment"
	"github.com/dgallion1/lantern/internal/thoughttree"
)

// ErrEmptyInput is returned when there is no text to work on.
var ErrEmptyInput = errors.New("nothing to analyze")

// Reference is a knowledge-base file attached to a request.
type Reference struct {
	Name string `json:"name" validate:"required"`
	Text string `json:"text"`
}

// Request describes one assistant action.
type Request struct {
	Action Action
	// Text is the draft text to analyze. Empty means the visible text of
	// the current node's content.
	Text string
	Mode Mode
	// Paragraph is the 1-based paragraph in ModeParagraph.
	Paragraph int
	// Paragraphs are logical paragraphs from an earlier segmentation. When
	// set they are marked instead of the lines of Text.
	Paragraphs []string
	Knowledge  []Reference
}

// Outcome is what an action produced. Mode names the shape for the editor
// shell.
type Outcome struct {
	Mode       string              `json:"mode"`
	Ideas      []proposal.Idea     `json:"ideas,omitempty"`
	NodeIDs    []string            `json:"node_ids,omitempty"`
	Critiques  []proposal.Critique `json:"critiques,omitempty"`
	Edits      []proposal.Edit     `json:"edits,omitempty"`
	Refined    string              `json:"refined_text,omitempty"`
	DiffHTML   string              `json:"diff_html,omitempty"`
	Paragraphs []string            `json:"paragraphs,omitempty"`
}

// Options tunes an Assistant.
type Options struct {
	Cooldown        time.Duration // minimum spacing between model calls
	MaxOptions      int           // cap on ideas and critiques per call
	KnowledgeBudget int           // tokens of reference text per call
	Principles      *Principles
}

// Assistant turns requests into prompts, calls the model and records the
// parsed results.
type Assistant struct {
	llm        Completer
	limiter    *rate.Limiter
	stats      *LLMStats
	principles *Principles
	maxOptions int
	budget     int
	log        *slog.Logger
}

func New(llm Completer, stats *LLMStats, opts Options, log *slog.Logger) *Assistant {
	limit := rate.Inf
	if opts.Cooldown > 0 {
		limit = rate.Every(opts.Cooldown)
	}
	if opts.MaxOptions <= 0 {
		opts.MaxOptions = 3
	}
	if stats == nil {
		stats = NewLLMStats(time.Hour)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Assistant{
		llm:        llm,
		limiter:    rate.NewLimiter(limit, 1),
		stats:      stats,
		principles: opts.Principles,
		maxOptions: opts.MaxOptions,
		budget:     opts.KnowledgeBudget,
		log:        log,
	}
}

// Stats returns the latency tracker.
func (a *Assistant) Stats() *LLMStats { return a.stats }

// Run performs req on the current node of s.
func (a *Assistant) Run(ctx context.Context, s *thoughttree.Session, req Request) (Outcome, error) {
	log := a.log.With("session_id", s.ID(), "action", req.Action)
	focus := s.Focus()

	text := strings.TrimSpace(req.Text)
	if text == "" {
		text, req = draftText(focus.HTML, req)
	}
	// Without a draft only an explored idea has something to work on.
	if text == "" && (focus.IsRoot || req.Action == ActionSegment) {
		return Outcome{}, ErrEmptyInput
	}

	scope := proposal.WholeDocument
	if req.Mode == ModeParagraph {
		if req.Paragraph < 1 {
			req.Paragraph = 1
		}
		scope = proposal.ParagraphScope(req.Paragraph)
	}

	prompt := buildPrompt(req.Action, a.focusText(focus, text, req), a.constraints(focus, text, req))
	log.Info("calling model", "mode", req.Mode, "prompt_len", len(prompt))

	reply, err := a.complete(ctx, log, req.Action, prompt)
	if err != nil {
		return Outcome{}, err
	}
	log.Info("model replied", "reply_len", len(reply))

	switch req.Action {
	case ActionDiverge:
		ideas := proposal.ParseIdeas(reply, scope, a.maxOptions)
		ids, err := s.AddIdeas(focus.NodeID, ideas)
		if err != nil {
			return Outcome{}, fmt.Errorf("record ideas: %w", err)
		}
		return Outcome{Mode: "options", Ideas: ideas, NodeIDs: ids}, nil

	case ActionCritique:
		cs := proposal.ParseCritiques(reply, scope, a.maxOptions)
		s.SetCritiques(cs)
		return Outcome{Mode: "critique", Critiques: cs}, nil

	case ActionRefine:
		edits := proposal.ParseEdits(reply, scope)
		if len(edits) == 0 {
			base := text
			if base == "" {
				base = focus.Summary
			}
			return Outcome{Mode: "refine_legacy", Refined: reply, DiffHTML: diffview.Render(base, reply)}, nil
		}
		s.SetEdits(edits)
		return Outcome{Mode: "refine_suggestions", Edits: edits}, nil

	case ActionSegment:
		return Outcome{Mode: "segmentation", Paragraphs: proposal.ParseSegments(reply)}, nil
	}
	return Outcome{}, fmt.Errorf("unknown action %q", req.Action)
}

// draftText derives the target text from the node's draft. Paragraph mode
// addresses one segmenter paragraph, with the index clamped to the ones that
// exist; a draft without paragraphs is sent whole.
func draftText(doc string, req Request) (string, Request) {
	st := segment.Segment(doc)
	if req.Mode == ModeParagraph {
		paras := req.Paragraphs
		if len(paras) == 0 {
			paras = st.Paragraphs
		}
		if len(paras) > 0 {
			req.Paragraph = min(max(req.Paragraph, 1), len(paras))
			p, _ := segment.Paragraph(paras, req.Paragraph)
			return p, req
		}
		req.Mode = ModeWholeDocument
	}
	return strings.Join(st.Units(), "\n"), req
}

// focusText is the input section of the prompt: the marked draft, preceded
// by the idea being developed when the current node is not the root.
func (a *Assistant) focusText(f thoughttree.Focus, text string, req Request) string {
	var marked string
	switch {
	case text == "":
		marked = f.Summary
	case req.Mode == ModeParagraph:
		marked = fmt.Sprintf("[P%d] %s", req.Paragraph, text)
	case len(req.Paragraphs) > 0:
		marked = segment.Mark(req.Paragraphs)
	default:
		marked = segment.MarkText(text)
	}
	if f.IsRoot || text == "" {
		return marked
	}
	label := f.Label
	if label == "" {
		label = "Current Perspective"
	}
	return fmt.Sprintf("FOCUS PARAGRAPH:\n%s\n\nCURRENT PERSPECTIVE/IDEA:\n%s: %s\n\nANALYSIS TARGET (DRAFT):\n%s",
		text, label, f.Summary, marked)
}

// constraints assembles the context block. Pins, explored children and
// reference files are only sent when exploring.
func (a *Assistant) constraints(f thoughttree.Focus, text string, req Request) string {
	var parts []string
	if req.Action == ActionDiverge {
		if len(f.Pins) > 0 {
			lines := make([]string, len(f.Pins))
			for i, p := range f.Pins {
				lines[i] = p.Text
				if p.Title != "" {
					lines[i] = p.Title + ": " + p.Text
				}
			}
			parts = append(parts, "Pinned context (reference only):\n- "+strings.Join(lines, "\n- "))
		}
		if len(f.Explored) > 0 {
			parts = append(parts, "ALREADY EXPLORED (do not repeat):\n- "+strings.Join(f.Explored, "\n- "))
		}
		if kb := a.knowledge(req.Knowledge); kb != "" {
			parts = append(parts, "### REFERENCE KNOWLEDGE BASE ###\n"+kb)
		}
	}
	if text != "" {
		if req.Mode == ModeParagraph {
			parts = append(parts, focusRule(req.Paragraph))
		} else {
			parts = append(parts, citationRule())
		}
	}
	parts = append(parts, languageRule)
	return strings.Join(parts, "\n")
}

// knowledge renders reference files in order until the token budget is
// spent.
func (a *Assistant) knowledge(refs []Reference) string {
	if len(refs) == 0 || a.budget <= 0 {
		return ""
	}
	left := a.budget
	var files []string
	for _, ref := range refs {
		if left <= 0 {
			break
		}
		chunks := chunker.Fit(chunker.ChunkTree(doctree.FromText(ref.Name, ref.Text), chunker.DefaultConfig()), left)
		if len(chunks) == 0 {
			continue
		}
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
			left -= chunker.EstimateTokens(c.Text)
		}
		files = append(files, fmt.Sprintf("--- FILE: %s ---\n%s", ref.Name, strings.Join(texts, "\n\n")))
	}
	return strings.Join(files, "\n\n")
}

// complete waits for the rate limiter and calls the model, retrying
// transient failures with backoff.
func (a *Assistant) complete(ctx context.Context, log *slog.Logger, action Action, prompt string) (string, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}
	system := a.principles.For(action)

	var reply string
	var lastErr error
	for attempt := range MaxRetries {
		start := time.Now()
		reply, lastErr = a.llm.Complete(ctx, system, prompt)
		a.stats.Record(action, time.Since(start), lastErr != nil)
		if lastErr == nil || !IsRetryable(lastErr) {
			break
		}
		log.Warn("retryable model error", "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(Backoff(attempt)):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if lastErr != nil {
		return "", fmt.Errorf("%s: %w", action, lastErr)
	}
	return reply, nil
}
