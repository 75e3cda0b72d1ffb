// Package narration is the boundary to the external text-to-speech service.
// Each folder owns at most one narration track with a fixed canonical
// filename; regeneration overwrites the previous track in place.
package narration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TrackFileName is the canonical narration track filename inside a folder.
const TrackFileName = "audio.mp3"

var (
	// ErrEmptyText is returned when synthesis is requested with no text.
	ErrEmptyText = errors.New("text is required")

	// ErrUpstream is returned when the speech service is unreachable,
	// responds with a non-success status, or returns an empty body. It is
	// surfaced as-is; this client never retries.
	ErrUpstream = errors.New("narration service error")
)

// TrackPath returns the canonical narration track path inside folderDir.
func TrackPath(folderDir string) string {
	return filepath.Join(folderDir, TrackFileName)
}

// Client calls the speech-synthesis HTTP service and persists its output.
type Client struct {
	baseURL string
	httpc   *http.Client
	log     *slog.Logger
}

// NewClient returns a Client for the service at baseURL
// (e.g. "http://127.0.0.1:8001").
func NewClient(baseURL string, log *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 120 * time.Second},
		log:     log,
	}
}

// Synthesize converts text to speech and returns the raw audio bytes.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate-tts", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %s: %s", ErrUpstream, resp.Status, strings.TrimSpace(string(body)))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: empty audio response", ErrUpstream)
	}

	c.log.Debug("narration synthesized", slog.Int("bytes", len(audio)))
	return audio, nil
}

// Persist writes the audio bytes to path, creating the parent directory if
// absent and overwriting any existing track.
func (c *Client) Persist(audio []byte, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create narration dir: %w", err)
	}
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return fmt.Errorf("write narration track: %w", err)
	}
	return nil
}
