package narration

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"slidecast/internal/media"
)

// Handler exposes the narration generation endpoint using go-chi.
type Handler struct {
	client *Client
	assets *media.Store
	log    *slog.Logger
}

// NewHandler returns a Handler that synthesizes via client and resolves
// folders via assets.
func NewHandler(client *Client, assets *media.Store, log *slog.Logger) *Handler {
	return &Handler{client: client, assets: assets, log: log}
}

// Generate handles POST /narration/{category}/{folder}.
// Body: { "text": "..." }. The synthesized track is written to the folder's
// canonical audio.mp3, replacing any previous track.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	folder := chi.URLParam(r, "folder")

	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	dir, err := h.assets.ResolveFolder(category, folder)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	audio, err := h.client.Synthesize(r.Context(), body.Text)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyText):
			writeError(w, http.StatusBadRequest, err)
		case errors.Is(err, ErrUpstream):
			h.log.Error("narration synthesis failed", slog.String("error", err.Error()))
			writeError(w, http.StatusBadGateway, err)
		default:
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	path := TrackPath(dir)
	if err := h.client.Persist(audio, path); err != nil {
		h.log.Error("narration persist failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	h.log.Info("narration track written",
		slog.String("category", category),
		slog.String("folder", folder),
		slog.Int("bytes", len(audio)))
	writeJSON(w, http.StatusOK, map[string]string{
		"message":  "narration track saved",
		"fileName": TrackFileName,
		"filePath": path,
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
