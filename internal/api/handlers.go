package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/scriptorium/internal/apperr"
	"github.com/starford/scriptorium/internal/schema"
	"github.com/starford/scriptorium/internal/workspace"
)

const maxBodyBytes = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *workspace.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *workspace.Service) *Handler {
	return &Handler{svc: svc}
}

// pathID reads a numeric route parameter. Anything that is not an integer
// maps to 0, which no record ever has.
func pathID(r *http.Request, name string) int64 {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return nil, false
	}
	return body, true
}

// ifMatch returns the If-Match tag without its weak prefix and quotes. "*" is
// passed through and matches any existing record.
func ifMatch(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("If-Match"))
	if v == "*" {
		return v
	}
	v = strings.TrimPrefix(v, "W/")
	return strings.Trim(v, `"`)
}

func writeEntity(w http.ResponseWriter, status int, v any) {
	if tag, err := workspace.ETag(v); err == nil {
		w.Header().Set("ETag", `"`+tag+`"`)
	}
	writeJSON(w, status, v)
}

// fail maps service errors to responses. kind names the record in 404s.
func fail(w http.ResponseWriter, op, kind string, err error) {
	var ve *schema.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errResponse{Message: ve.Message, Field: ve.Field})
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(kind+" not found"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody(kind+" was modified; reload and retry"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListSubjects handles GET /api/subjects.
func (h *Handler) ListSubjects(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListSubjects(r.Context())
	if err != nil {
		fail(w, "list subjects", "Subject", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// GetSubject handles GET /api/subjects/{subjectID}.
func (h *Handler) GetSubject(w http.ResponseWriter, r *http.Request) {
	subj, err := h.svc.GetSubject(r.Context(), pathID(r, "subjectID"))
	if err != nil {
		fail(w, "get subject", "Subject", err)
		return
	}
	writeEntity(w, http.StatusOK, subj)
}

// CreateSubject handles POST /api/subjects.
func (h *Handler) CreateSubject(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	subj, err := h.svc.CreateSubject(r.Context(), body)
	if err != nil {
		fail(w, "create subject", "Subject", err)
		return
	}
	writeEntity(w, http.StatusCreated, subj)
}

// UpdateSubject handles PATCH /api/subjects/{subjectID}.
// An If-Match header enables optimistic concurrency.
func (h *Handler) UpdateSubject(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	subj, err := h.svc.UpdateSubject(r.Context(), pathID(r, "subjectID"), body, ifMatch(r))
	if err != nil {
		fail(w, "update subject", "Subject", err)
		return
	}
	writeEntity(w, http.StatusOK, subj)
}

// ListDocuments handles GET /api/subjects/{subjectID}/documents.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListDocuments(r.Context(), pathID(r, "subjectID"))
	if err != nil {
		fail(w, "list documents", "Document", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// CreateDocument handles POST /api/documents.
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	doc, err := h.svc.CreateDocument(r.Context(), body)
	if err != nil {
		fail(w, "create document", "Document", err)
		return
	}
	writeEntity(w, http.StatusCreated, doc)
}

// ListReports handles GET /api/subjects/{subjectID}/reports.
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListReports(r.Context(), pathID(r, "subjectID"))
	if err != nil {
		fail(w, "list reports", "Report", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// GetReport handles GET /api/reports/{reportID}.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.GetReport(r.Context(), pathID(r, "reportID"))
	if err != nil {
		fail(w, "get report", "Report", err)
		return
	}
	writeEntity(w, http.StatusOK, rep)
}

// CreateReport handles POST /api/reports.
func (h *Handler) CreateReport(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	rep, err := h.svc.CreateReport(r.Context(), body)
	if err != nil {
		fail(w, "create report", "Report", err)
		return
	}
	writeEntity(w, http.StatusCreated, rep)
}

// UpdateReport handles PATCH /api/reports/{reportID}.
func (h *Handler) UpdateReport(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	rep, err := h.svc.UpdateReport(r.Context(), pathID(r, "reportID"), body, ifMatch(r))
	if err != nil {
		fail(w, "update report", "Report", err)
		return
	}
	writeEntity(w, http.StatusOK, rep)
}

// Timeline handles GET /api/subjects/{subjectID}/timeline.
func (h *Handler) Timeline(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.Timeline(r.Context(), pathID(r, "subjectID"))
	if err != nil {
		fail(w, "timeline", "Subject", err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}
