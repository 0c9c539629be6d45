package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/lantern/internal/diffview"
	"github.com/dgallion1/lantern/internal/patch"
	"github.com/dgallion1/lantern/internal/proposal"
	"github.com/dgallion1/lantern/internal/segment"
)

// Stateless helpers the editor shell can call without a session.

type patchRequest struct {
	HTML     string `json:"html" validate:"required"`
	Original string `json:"original" validate:"required"`
	Proposed string `json:"proposed"`
}

func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request) {
	var req patchRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := patch.Apply(req.HTML, req.Original, req.Proposed)
	if errors.Is(err, patch.ErrNotApplied) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error":    err.Error(),
			"original": req.Original,
			"proposed": req.Proposed,
		})
		return
	}
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"html":     res.HTML,
		"start":    res.Start,
		"end":      res.End,
		"coverage": res.Match.Coverage,
		"literal":  res.Match.Literal,
	})
}

type diffRequest struct {
	Old string `json:"old"`
	New string `json:"new"`
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	var req diffRequest
	if !s.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"html": diffview.Render(req.Old, req.New)})
}

func (s *Server) handleSegment(w http.ResponseWriter, r *http.Request) {
	var req htmlRequest
	if !s.decode(w, r, &req) {
		return
	}
	st := segment.Segment(req.HTML)
	paras := st.Paragraphs
	if paras == nil {
		paras = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"title":      st.Title,
		"paragraphs": paras,
		"marked":     segment.Mark(st.Units()),
	})
}

type parseRequest struct {
	Text  string `json:"text" validate:"required"`
	Scope string `json:"scope"`
}

// handleParse runs one of the model-response parsers on posted text.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	var req parseRequest
	if !s.decode(w, r, &req) {
		return
	}
	scope := req.Scope
	if scope == "" {
		scope = proposal.WholeDocument
	}
	limit := s.cfg.LLMMaxOptions

	var out any
	switch kind {
	case "edits":
		out = nonNil(proposal.ParseEdits(req.Text, scope))
	case "ideas":
		out = nonNil(proposal.ParseIdeas(req.Text, scope, limit))
	case "critiques":
		out = nonNil(proposal.ParseCritiques(req.Text, scope, limit))
	case "segments":
		out = nonNil(proposal.ParseSegments(req.Text))
	default:
		jsonError(w, "kind must be one of: edits, ideas, critiques, segments", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{kind: out})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
