package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/lantern/internal/importer"
	"github.com/dgallion1/lantern/internal/thoughttree"
)

type createSessionRequest struct {
	Label string `json:"label"`
	HTML  string `json:"html"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !s.decode(w, r, &req) {
		return
	}
	sess, err := s.sessions.Create(req.Label)
	if err != nil {
		s.fail(w, err)
		return
	}
	root := sess.View().Root
	if req.HTML != "" {
		if err := sess.SetContent(root, req.HTML); err != nil {
			s.fail(w, err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"session_id": sess.ID(),
		"root_id":    root,
	})
}

// handleGetSession returns the session view. When the requested session
// was recovered from another snapshot, session_id names the adopted one.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

type htmlRequest struct {
	HTML string `json:"html"`
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req htmlRequest
	if !s.decode(w, r, &req) {
		return
	}
	sess.Reset(req.HTML)
	writeJSON(w, http.StatusOK, sess.View())
}

type draftRequest struct {
	HTML string `json:"html" validate:"required"`
}

func (s *Server) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req draftRequest
	if !s.decode(w, r, &req) {
		return
	}
	saved, err := sess.SaveDraft(req.HTML)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"saved": saved})
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sugg := sess.Suggestions()
	if sugg == nil {
		sugg = []thoughttree.NodeView{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": sugg})
}

func (s *Server) handleDismissSuggestions(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"dismissed": sess.DismissSuggestions()})
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
	w.Write([]byte(sess.DOT()))
}

// handleExportDOCX downloads the current draft, or node_id's content, as a
// Word document.
func (s *Server) handleExportDOCX(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	id := r.URL.Query().Get("node_id")
	if id == "" {
		id = sess.View().Current
	}
	doc, err := sess.Content(id)
	if err != nil {
		s.fail(w, err)
		return
	}
	var buf bytes.Buffer
	if err := importer.ExportDOCX(&buf, doc); err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "lantern-"+sess.ID()+".docx"))
	w.Write(buf.Bytes())
}

type addNodeRequest struct {
	ParentID    string `json:"parent_id" validate:"required"`
	Summary     string `json:"summary" validate:"required"`
	Kind        string `json:"kind" validate:"omitempty,oneof=standard idea ai_critique"`
	Label       string `json:"label"`
	Explanation string `json:"explanation"`
	Module      string `json:"module"`
	Scope       string `json:"scope"`
	HTML        string `json:"html"`
}

func (s *Server) handleAddNode(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req addNodeRequest
	if !s.decode(w, r, &req) {
		return
	}
	id, err := sess.AddChild(req.ParentID, req.Summary, thoughttree.Kind(req.Kind), thoughttree.Metadata{
		HTML:        req.HTML,
		Label:       req.Label,
		Explanation: req.Explanation,
		Module:      req.Module,
		Scope:       req.Scope,
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"node_id": id})
}

type navigateRequest struct {
	NodeID    string `json:"node_id" validate:"required"`
	DraftHTML string `json:"draft_html"`
}

// handleNavigate saves the draft on the node being left and moves to the
// target, returning the content the editor should load.
func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req navigateRequest
	if !s.decode(w, r, &req) {
		return
	}
	html, err := sess.Select(req.NodeID, req.DraftHTML)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"current": req.NodeID, "html": html})
}

type adoptRequest struct {
	DraftHTML string `json:"draft_html"`
}

func (s *Server) handleAdopt(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req adoptRequest
	if !s.decode(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "nodeID")
	html, err := sess.Adopt(id, req.DraftHTML)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"current": id, "html": html})
}

func (s *Server) handleGetContent(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	html, err := sess.Content(chi.URLParam(r, "nodeID"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"html": html})
}

func (s *Server) handlePutContent(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req draftRequest
	if !s.decode(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "nodeID")
	if err := sess.SetContent(id, req.HTML); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"node_id": id})
}

func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	ch, err := sess.Changes(chi.URLParam(r, "nodeID"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	s.setStatus(w, r, thoughttree.StatusDismissed, (*thoughttree.Session).Dismiss)
}

func (s *Server) handleBan(w http.ResponseWriter, r *http.Request) {
	s.setStatus(w, r, thoughttree.StatusBanned, (*thoughttree.Session).Ban)
}

func (s *Server) setStatus(w http.ResponseWriter, r *http.Request, status thoughttree.Status, apply func(*thoughttree.Session, string) error) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "nodeID")
	if err := apply(sess, id); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"node_id": id, "status": status})
}
