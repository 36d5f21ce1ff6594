package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/scriptorium/internal/assets"
	"github.com/starford/scriptorium/internal/workspace"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// files, if non-nil, backs GET and POST /files.
func NewRouter(svc *workspace.Service, authEnabled bool, token string, sseHandler http.Handler, files *assets.Dir) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(Metrics)
	r.Use(AuthMiddleware(authEnabled, token))

	// Subjects.
	r.Get("/subjects", h.ListSubjects)
	r.Post("/subjects", h.CreateSubject)
	r.Get("/subjects/{subjectID}", h.GetSubject)
	r.Patch("/subjects/{subjectID}", h.UpdateSubject)

	// Subject-scoped listings.
	r.Get("/subjects/{subjectID}/documents", h.ListDocuments)
	r.Get("/subjects/{subjectID}/reports", h.ListReports)
	r.Get("/subjects/{subjectID}/timeline", h.Timeline)

	// Documents.
	r.Post("/documents", h.CreateDocument)

	// Reports.
	r.Post("/reports", h.CreateReport)
	r.Get("/reports/{reportID}", h.GetReport)
	r.Patch("/reports/{reportID}", h.UpdateReport)

	if files != nil {
		fh := NewFileHandler(files)
		r.Get("/files", fh.List)
		r.Post("/files", fh.Upload)
	}

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
