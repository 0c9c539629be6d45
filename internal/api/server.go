package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/dgallion1/lantern/internal/assist"
	"github.com/dgallion1/lantern/internal/config"
	"github.com/dgallion1/lantern/internal/workspace"
)

// Server is the HTTP API the editor shell talks to.
type Server struct {
	router    chi.Router
	sessions  *workspace.Registry
	assistant *assist.Assistant
	validate  *validator.Validate
	log       *slog.Logger
	cfg       config.Config
}

// NewServer creates and configures the HTTP server. assistant may be nil,
// in which case the action endpoints answer 503.
func NewServer(sessions *workspace.Registry, assistant *assist.Assistant, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		sessions:  sessions,
		assistant: assistant,
		validate:  validator.New(),
		log:       log,
		cfg:       cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.LanternAPIKey, s.log))

		r.Post("/api/sessions", s.handleCreateSession)
		r.Route("/api/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Post("/reset", s.handleResetSession)
			r.Post("/draft", s.handleSaveDraft)
			r.Get("/suggestions", s.handleSuggestions)
			r.Post("/suggestions/dismiss", s.handleDismissSuggestions)
			r.Get("/map.dot", s.handleMap)
			r.Get("/export.docx", s.handleExportDOCX)

			r.Post("/nodes", s.handleAddNode)
			r.Post("/navigate", s.handleNavigate)
			r.Route("/nodes/{nodeID}", func(r chi.Router) {
				r.Get("/content", s.handleGetContent)
				r.Put("/content", s.handlePutContent)
				r.Get("/changes", s.handleChanges)
				r.Post("/adopt", s.handleAdopt)
				r.Post("/dismiss", s.handleDismiss)
				r.Post("/ban", s.handleBan)
			})

			r.Post("/pins", s.handleAddPin)
			r.Delete("/pins", s.handleClearPins)
			r.Delete("/pins/{index}", s.handleDeletePin)

			r.Post("/critiques/{index}/acknowledge", s.handleAcknowledgeCritique)
			r.Post("/critiques/{index}/pin", s.handlePinCritique)
			r.Delete("/critiques/{index}", s.handleDropCritique)

			r.Post("/edits/apply", s.handleApplyEdits)
			r.Post("/edits/{editID}/apply", s.handleApplyEdit)
			r.Post("/edits/{editID}/dismiss", s.handleDismissEdit)

			r.Post("/actions", s.handleAction)
		})

		r.Post("/api/patch", s.handlePatch)
		r.Post("/api/diff", s.handleDiff)
		r.Post("/api/segment", s.handleSegment)
		r.Post("/api/parse/{kind}", s.handleParse)
		r.Post("/api/import", s.handleImport)
		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"open_sessions": s.sessions.Len(),
		"assistant":     s.assistant != nil,
	})
}
