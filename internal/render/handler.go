package render

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"slidecast/internal/media"
	"slidecast/internal/narration"
	"slidecast/internal/platform/metrics"
)

// Handler exposes the render trigger and status endpoints using go-chi.
type Handler struct {
	pipeline *Pipeline
	assets   *media.Store
	defaults Options
	log      *slog.Logger
	metrics  *metrics.Metrics
}

// NewHandler returns a Handler. The defaults apply to render requests whose
// body omits an option; they normally come from the environment-derived
// configuration. Metrics may be nil to disable metric recording (e.g. in
// tests).
func NewHandler(pipeline *Pipeline, assets *media.Store, defaults Options, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{pipeline: pipeline, assets: assets, defaults: defaults, log: log, metrics: m}
}

// Generate handles POST /render/{category}/{folder}. The optional JSON body
// overrides the configured defaults:
//
//	{ "secondsPerImage": 5, "height": 720, "outputDir": "uploads",
//	  "cleanupImages": false, "cleanupAudio": false }
//
// The call blocks until the render finishes or times out.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	folder := chi.URLParam(r, "folder")

	opts := h.defaults
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, errors.New("invalid options body"))
		return
	}

	outcome, err := h.pipeline.Generate(r.Context(), category, folder, opts)
	if err != nil {
		h.writeGenerateError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.IncRendersSucceeded()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":         "video generated",
		"outputPath":      outcome.OutputPath,
		"category":        category,
		"folder":          folder,
		"imageCount":      outcome.ImageCount,
		"secondsPerImage": opts.SecondsPerImage,
		"height":          opts.Height,
		"cleanupImages":   outcome.CleanedImages,
		"cleanupAudio":    outcome.CleanedAudio,
	})
}

// Status handles GET /render/{category}/{folder}/status: the folder's
// ordered assets and whether a render can start. Only sequence-numbered
// assets count, matching what Generate would actually consume.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	folder := chi.URLParam(r, "folder")

	assets, err := h.assets.OrderedAssets(category, folder)
	if err != nil {
		if errors.Is(err, media.ErrFolderNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	images := make([]string, 0, len(assets))
	for _, p := range assets {
		images = append(images, filepath.Base(p))
	}
	narrationReady := h.assets.Exists(category, folder, narration.TrackFileName)

	writeJSON(w, http.StatusOK, map[string]any{
		"category":           category,
		"folder":             folder,
		"imageCount":         len(images),
		"images":             images,
		"narrationReady":     narrationReady,
		"readyForGeneration": len(images) > 0 && narrationReady,
	})
}

func (h *Handler) writeGenerateError(w http.ResponseWriter, err error) {
	if h.metrics != nil {
		h.metrics.IncRendersFailed()
	}

	var failure *Failure
	switch {
	case errors.Is(err, ErrBadSecondsPerImage), errors.Is(err, ErrBadHeight),
		errors.Is(err, ErrNoAssets), errors.Is(err, ErrEmptyTimeline):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, media.ErrFolderNotFound), errors.Is(err, ErrNoNarration):
		writeError(w, http.StatusNotFound, err)
	case errors.As(err, &failure):
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":       failure.Error(),
			"exitCode":    failure.ExitCode,
			"timeout":     failure.Timeout,
			"diagnostics": failure.Diagnostics,
		})
	default:
		h.log.Error("render error", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
