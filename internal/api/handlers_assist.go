package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/dgallion1/lantern/internal/assist"
)

type actionRequest struct {
	Action     string             `json:"action" validate:"required,oneof=diverge refine critique segment"`
	Text       string             `json:"text"`
	HTML       string             `json:"html"`
	Mode       string             `json:"mode" validate:"omitempty,oneof=whole paragraph"`
	Paragraph  int                `json:"paragraph" validate:"min=0"`
	Paragraphs []string           `json:"paragraphs"`
	Knowledge  []assist.Reference `json:"knowledge" validate:"dive"`
}

// handleAction runs an assistant action on the session's current node. A
// posted html draft is saved first so the action sees what the author sees.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	if s.assistant == nil {
		jsonError(w, "assistant disabled: ANTHROPIC_API_KEY is not set", http.StatusServiceUnavailable)
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req actionRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.HTML != "" {
		if _, err := sess.SaveDraft(req.HTML); err != nil {
			s.fail(w, err)
			return
		}
	}

	mode := assist.ModeWholeDocument
	if req.Mode == string(assist.ModeParagraph) {
		mode = assist.ModeParagraph
	}
	out, err := s.assistant.Run(r.Context(), sess, assist.Request{
		Action:     assist.Action(req.Action),
		Text:       req.Text,
		Mode:       mode,
		Paragraph:  req.Paragraph,
		Paragraphs: req.Paragraphs,
		Knowledge:  req.Knowledge,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, out)
	case errors.Is(err, assist.ErrEmptyInput):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case assist.IsRetryable(err):
		jsonError(w, "model unavailable, try again: "+err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		jsonError(w, err.Error(), http.StatusGatewayTimeout)
	default:
		s.log.Error("assistant action failed", "session_id", sess.ID(), "action", req.Action, "error", err)
		jsonError(w, err.Error(), http.StatusBadGateway)
	}
}

func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	if s.assistant == nil {
		jsonError(w, "llm stats unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"model": s.cfg.AnthropicModel,
		"stats": s.assistant.Stats().Snapshot(),
	})
}
