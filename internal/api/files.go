package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/scriptorium/internal/assets"
	"github.com/starford/scriptorium/internal/models"
)

const maxUploadBytes = 50 << 20 // 50 MB

// FileHandler serves and accepts the files documents refer to.
type FileHandler struct {
	dir *assets.Dir
}

// NewFileHandler creates a handler over an asset directory.
func NewFileHandler(dir *assets.Dir) *FileHandler {
	return &FileHandler{dir: dir}
}

type uploadResponse struct {
	FileName string `json:"fileName"`
	Size     int64  `json:"size"`
	URL      string `json:"url"`
}

type fileEntry struct {
	FileName string    `json:"fileName"`
	Size     int64     `json:"size"`
	URL      string    `json:"url"`
	ModTime  string    `json:"modTime"`
}

// List handles GET /api/files.
func (h *FileHandler) List(w http.ResponseWriter, _ *http.Request) {
	files, err := h.dir.List()
	if err != nil {
		slog.Error("list files failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	out := make([]fileEntry, 0, len(files))
	for _, f := range files {
		out = append(out, fileEntry{FileName: f.Name, Size: f.Size, URL: "/files/" + f.Name, ModTime: models.FormatTime(f.ModTime)})
	}
	writeJSON(w, http.StatusOK, out)
}

// ServeFile handles GET /files/{filename}.
func (h *FileHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	abs, err := h.dir.Path(name)
	if err != nil {
		http.Error(w, "invalid file name", http.StatusBadRequest)
		return
	}
	if !h.dir.Exists(name) {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}

// Upload handles POST /api/files (multipart/form-data, field "file").
// A name that is already taken is replaced by a generated one; the stored
// name is returned for use as a document's fileName.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errResponse{Message: "missing 'file' field in multipart form", Field: "file"})
		return
	}
	defer file.Close()

	name, written, err := h.dir.SaveUnique(header.Filename, file)
	if err != nil {
		if errors.Is(err, assets.ErrInvalidName) {
			writeJSON(w, http.StatusBadRequest, errResponse{Message: err.Error(), Field: "file"})
			return
		}
		slog.Error("upload failed", slog.String("name", header.Filename), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{
		FileName: name,
		Size:     written,
		URL:      "/files/" + name,
	})
}
