package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/lantern/internal/patch"
	"github.com/dgallion1/lantern/internal/proposal"
	"github.com/dgallion1/lantern/internal/thoughttree"
)

type pinRequest struct {
	Title        string `json:"title"`
	Text         string `json:"text" validate:"required"`
	Kind         string `json:"kind"`
	Scope        string `json:"scope"`
	SourceNodeID string `json:"source_node_id"`
}

func (s *Server) handleAddPin(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req pinRequest
	if !s.decode(w, r, &req) {
		return
	}
	kind := req.Kind
	if kind == "" {
		kind = "note"
	}
	sess.Pin(thoughttree.Pin{
		SourceID: req.SourceNodeID,
		Title:    req.Title,
		Text:     req.Text,
		Kind:     kind,
		Scope:    req.Scope,
	})
	s.writePins(w, sess)
}

func (s *Server) handleDeletePin(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	i, ok := indexParam(w, r)
	if !ok {
		return
	}
	if err := sess.Unpin(i); err != nil {
		s.fail(w, err)
		return
	}
	s.writePins(w, sess)
}

func (s *Server) handleClearPins(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.ClearPins()
	s.writePins(w, sess)
}

func (s *Server) writePins(w http.ResponseWriter, sess *thoughttree.Session) {
	pins := sess.View().Pins
	if pins == nil {
		pins = []thoughttree.Pin{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"pinned_items": pins})
}

// handleAcknowledgeCritique accepts a critique: it is pinned and counts
// towards the session's strength.
func (s *Server) handleAcknowledgeCritique(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	i, ok := indexParam(w, r)
	if !ok {
		return
	}
	c, err := sess.AcknowledgeCritique(i)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"critique": c, "stats": sess.Stats()})
}

func (s *Server) handlePinCritique(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	i, ok := indexParam(w, r)
	if !ok {
		return
	}
	if err := sess.PinCritique(i); err != nil {
		s.fail(w, err)
		return
	}
	s.writePins(w, sess)
}

func (s *Server) handleDropCritique(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	i, ok := indexParam(w, r)
	if !ok {
		return
	}
	if err := sess.DropCritique(i); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"critiques": sess.View().Critiques})
}

type applyEditRequest struct {
	HTML string `json:"html" validate:"required"`
}

// handleApplyEdit places one pending edit into the posted document. A miss
// answers 422 with the edit text so the author can apply it by hand.
func (s *Server) handleApplyEdit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req applyEditRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, edit, err := sess.ApplyEdit(chi.URLParam(r, "editID"), req.HTML)
	if errors.Is(err, patch.ErrNotApplied) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error":    "could not locate the original text; apply it manually",
			"original": edit.Original,
			"proposed": edit.Proposed,
		})
		return
	}
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"html":  res.HTML,
		"edit":  edit,
		"start": res.Start,
		"end":   res.End,
	})
}

type applyEditsRequest struct {
	HTML    string   `json:"html" validate:"required"`
	EditIDs []string `json:"edit_ids"`
}

type editOutcome struct {
	ID      string `json:"id"`
	Applied bool   `json:"applied"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleApplyEdits(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req applyEditsRequest
	if !s.decode(w, r, &req) {
		return
	}
	html, outcomes, err := sess.ApplyEdits(req.EditIDs, req.HTML)
	if err != nil {
		s.fail(w, err)
		return
	}
	out := make([]editOutcome, len(outcomes))
	for i, o := range outcomes {
		out[i] = editOutcome{ID: o.ID, Applied: o.Applied}
		if o.Err != nil {
			out[i].Error = o.Err.Error()
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"html": html, "outcomes": out})
}

func (s *Server) handleDismissEdit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	edit, err := sess.ResolveEdit(chi.URLParam(r, "editID"), proposal.EditDismissed)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"edit": edit})
}
