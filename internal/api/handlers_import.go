package api

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/lantern/internal/importer"
)

// handleImport turns an uploaded file into a seed document. With a
// session_id form value the document also becomes that session's root
// content.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !importer.Supported(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	tree, err := importer.Import(r.Context(), file, filename, importer.Options{
		MaxBytes:    s.cfg.MaxUploadBytes,
		PDFFallback: s.cfg.PDFFallbackPdftotext,
	})
	switch {
	case errors.Is(err, importer.ErrTooLarge):
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	case err != nil:
		s.log.Warn("import failed", "filename", filename, "error", err)
		jsonError(w, "could not read file: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}
	html := tree.HTML()

	resp := map[string]any{
		"filename": filename,
		"title":    tree.Title,
		"html":     html,
	}
	if id := r.FormValue("session_id"); id != "" {
		sess, err := s.sessions.Get(id)
		if err != nil {
			s.fail(w, err)
			return
		}
		root := sess.View().Root
		if err := sess.SetContent(root, html); err != nil {
			s.fail(w, err)
			return
		}
		resp["session_id"] = sess.ID()
		resp["node_id"] = root
	}
	s.log.Info("document imported", "filename", filename, "sections", len(tree.Children))
	writeJSON(w, http.StatusOK, resp)
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
