package catalog

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Handler exposes category and folder HTTP endpoints using go-chi.
// Folder creation materializes a directory under baseDir/<category-name>,
// mirroring the filesystem-as-source-of-truth layout used by the media store.
type Handler struct {
	repo    Repository
	baseDir string
	log     *slog.Logger
}

// NewHandler returns a Handler backed by the given Repository. baseDir is the
// root of the media tree (e.g. "public/images").
func NewHandler(repo Repository, baseDir string, log *slog.Logger) *Handler {
	return &Handler{repo: repo, baseDir: baseDir, log: log}
}

// List handles GET /categories.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.repo.List())
}

// Get handles GET /categories/{category_id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.repo.Get(chi.URLParam(r, "category_id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Create handles POST /categories. Body: { "name": "travel" }.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var body Category
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Name) == "" {
		writeError(w, http.StatusBadRequest, errors.New("category name is required"))
		return
	}

	c, err := h.repo.Create(body.Name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	h.log.Info("category created", slog.String("id", c.ID), slog.String("name", c.Name))
	writeJSON(w, http.StatusCreated, c)
}

// Update handles PUT /categories/{category_id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var body Category
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Name) == "" {
		writeError(w, http.StatusBadRequest, errors.New("category name is required"))
		return
	}

	c, err := h.repo.Rename(chi.URLParam(r, "category_id"), body.Name)
	if err != nil {
		switch {
		case errors.Is(err, ErrCategoryNotFound):
			writeError(w, http.StatusNotFound, err)
		default:
			writeError(w, http.StatusBadRequest, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Delete handles DELETE /categories/{category_id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Delete(chi.URLParam(r, "category_id")); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// CreateFolder handles POST /categories/{category_id}/folders.
// Body: { "name": "rome-trip" }. The folder becomes a directory under the
// category's subtree; existing names are rejected.
func (h *Handler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	c, err := h.repo.Get(chi.URLParam(r, "category_id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	var body FolderRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Name) == "" {
		writeError(w, http.StatusBadRequest, errors.New("folder name is required"))
		return
	}

	categoryDir := filepath.Join(h.baseDir, c.Name)
	folderDir := filepath.Join(categoryDir, body.Name)

	if err := os.MkdirAll(categoryDir, 0o755); err != nil {
		h.log.Error("create category dir failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if _, err := os.Stat(folderDir); err == nil {
		writeError(w, http.StatusBadRequest, ErrFolderExists)
		return
	}
	if err := os.Mkdir(folderDir, 0o755); err != nil {
		h.log.Error("create folder failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	h.log.Info("folder created",
		slog.String("category", c.Name),
		slog.String("folder", body.Name))
	writeJSON(w, http.StatusCreated, map[string]string{
		"category": c.Name,
		"folder":   body.Name,
		"path":     folderDir,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
