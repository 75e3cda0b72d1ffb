package media

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"slidecast/internal/platform/metrics"
)

const maxUploadMemory = 32 << 20 // 32 MiB before multipart parts spill to disk

// Handler exposes media upload and listing endpoints using go-chi.
type Handler struct {
	store   *Store
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler that uses the given Store, Logger, and
// optional Metrics. Metrics may be nil to disable metric recording (e.g. in
// tests).
func NewHandler(store *Store, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{store: store, log: log, metrics: m}
}

// UploadImages handles POST /media/{category}/{folder}/images with a
// multipart form carrying one or more "files" parts.
func (h *Handler) UploadImages(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	folder := chi.URLParam(r, "folder")

	uploads, closeAll, err := openMultipartFiles(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	defer closeAll()

	stored, err := h.store.SaveImages(r.Context(), category, folder, uploads)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoFiles), errors.Is(err, ErrUnsupportedImage):
			writeError(w, http.StatusBadRequest, err)
		default:
			h.log.Error("image upload failed", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	if h.metrics != nil {
		h.metrics.AddImagesUploaded(len(stored))
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":       "images uploaded",
		"uploadedCount": len(stored),
		"files":         stored,
		"category":      category,
		"folder":        folder,
	})
}

// UploadVideos handles POST /media/{category}/{folder}/videos.
func (h *Handler) UploadVideos(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	folder := chi.URLParam(r, "folder")

	uploads, closeAll, err := openMultipartFiles(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	defer closeAll()

	stored, err := h.store.SaveVideos(r.Context(), category, folder, uploads)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoFiles), errors.Is(err, ErrUnsupportedVideo):
			writeError(w, http.StatusBadRequest, err)
		default:
			h.log.Error("video upload failed", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":       "videos uploaded",
		"uploadedCount": len(stored),
		"files":         stored,
		"category":      category,
		"folder":        folder,
	})
}

// UploadMixed handles POST /media/{category}/{folder}/mixed with a multipart
// form carrying "images" and/or "videos" parts. Images get sequence numbers,
// videos get unique names; at least one part must be present.
func (h *Handler) UploadMixed(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	folder := chi.URLParam(r, "folder")

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid multipart form"))
		return
	}
	images, closeImages, err := openFormFiles(r.MultipartForm, "images")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	defer closeImages()
	videos, closeVideos, err := openFormFiles(r.MultipartForm, "videos")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	defer closeVideos()

	if len(images) == 0 && len(videos) == 0 {
		writeError(w, http.StatusBadRequest, ErrNoFiles)
		return
	}

	resp := map[string]any{
		"message":  "mixed media uploaded",
		"category": category,
		"folder":   folder,
	}
	total := 0

	if len(images) > 0 {
		stored, err := h.store.SaveImages(r.Context(), category, folder, images)
		if err != nil {
			h.writeSaveError(w, err, "mixed image upload failed")
			return
		}
		if h.metrics != nil {
			h.metrics.AddImagesUploaded(len(stored))
		}
		resp["uploadedImages"] = stored
		resp["imageCount"] = len(stored)
		total += len(stored)
	}

	if len(videos) > 0 {
		stored, err := h.store.SaveVideos(r.Context(), category, folder, videos)
		if err != nil {
			h.writeSaveError(w, err, "mixed video upload failed")
			return
		}
		resp["uploadedVideos"] = stored
		resp["videoCount"] = len(stored)
		total += len(stored)
	}

	resp["totalUploaded"] = total
	writeJSON(w, http.StatusCreated, resp)
}

// writeSaveError maps store save errors onto HTTP statuses.
func (h *Handler) writeSaveError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, ErrNoFiles), errors.Is(err, ErrUnsupportedImage), errors.Is(err, ErrUnsupportedVideo):
		writeError(w, http.StatusBadRequest, err)
	default:
		h.log.Error(logMsg, slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, err)
	}
}

// ListImages handles GET /media/{category}/{folder}/images.
func (h *Handler) ListImages(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	folder := chi.URLParam(r, "folder")

	images, err := h.store.ListImages(category, folder)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"category":   category,
		"folder":     folder,
		"imageCount": len(images),
		"images":     images,
	})
}

// ListVideos handles GET /media/{category}/{folder}/videos.
func (h *Handler) ListVideos(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	folder := chi.URLParam(r, "folder")

	videos, err := h.store.ListVideos(category, folder)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"category":   category,
		"folder":     folder,
		"videoCount": len(videos),
		"videos":     videos,
	})
}

// Statistics handles GET /media/{category}/{folder}/statistics.
func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Statistics(chi.URLParam(r, "category"), chi.URLParam(r, "folder"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// FilePath handles GET /media/{category}/{folder}/path/{file}: the absolute
// path a file resolves to, with an existence flag.
func (h *Handler) FilePath(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	folder := chi.URLParam(r, "folder")
	file := chi.URLParam(r, "file")

	path, err := h.store.FilePath(category, folder, file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"category": category,
		"folder":   folder,
		"fileName": file,
		"filePath": path,
		"exists":   h.store.Exists(category, folder, file),
	})
}

// Exists handles GET /media/{category}/{folder}/exists/{file}.
func (h *Handler) Exists(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	folder := chi.URLParam(r, "folder")
	file := chi.URLParam(r, "file")

	writeJSON(w, http.StatusOK, map[string]any{
		"category": category,
		"folder":   folder,
		"fileName": file,
		"exists":   h.store.Exists(category, folder, file),
	})
}

// DeleteFile handles DELETE /media/{category}/{folder}/{file}.
func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	folder := chi.URLParam(r, "folder")
	file := chi.URLParam(r, "file")

	existed, err := h.store.Delete(category, folder, file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !existed {
		writeError(w, http.StatusNotFound, errors.New("file not found"))
		return
	}
	w.WriteHeader(http.StatusOK)
}

// openMultipartFiles parses the request's multipart form and opens every
// "files" part. The returned closeAll must be called once the uploads have
// been consumed.
func openMultipartFiles(r *http.Request) ([]Upload, func(), error) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return nil, nil, errors.New("invalid multipart form")
	}
	return openFormFiles(r.MultipartForm, "files")
}

// openFormFiles opens every part of the named form field. The returned
// closeAll must be called once the uploads have been consumed.
func openFormFiles(form *multipart.Form, field string) (uploads []Upload, closeAll func(), err error) {
	headers := form.File[field]
	opened := make([]multipart.File, 0, len(headers))
	closeAll = func() {
		for _, f := range opened {
			f.Close()
		}
	}

	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		opened = append(opened, f)
		uploads = append(uploads, Upload{Name: fh.Filename, Body: f})
	}
	return uploads, closeAll, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
