package narration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestClient_Synthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generate-tts" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body["text"] != "hello world" {
			t.Errorf("unexpected text %q", body["text"])
		}
		w.Write([]byte("mp3-bytes"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, newTestLogger())
	audio, err := c.Synthesize(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if !bytes.Equal(audio, []byte("mp3-bytes")) {
		t.Errorf("unexpected audio %q", audio)
	}
}

func TestClient_Synthesize_empty_text(t *testing.T) {
	c := NewClient("http://127.0.0.1:0", newTestLogger())
	if _, err := c.Synthesize(context.Background(), "   "); !errors.Is(err, ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
}

func TestClient_Synthesize_upstream_status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, newTestLogger())
	if _, err := c.Synthesize(context.Background(), "hi"); !errors.Is(err, ErrUpstream) {
		t.Errorf("expected ErrUpstream, got %v", err)
	}
}

func TestClient_Synthesize_empty_body(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, newTestLogger())
	if _, err := c.Synthesize(context.Background(), "hi"); !errors.Is(err, ErrUpstream) {
		t.Errorf("expected ErrUpstream for empty body, got %v", err)
	}
}

func TestClient_Synthesize_unreachable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", newTestLogger())
	if _, err := c.Synthesize(context.Background(), "hi"); !errors.Is(err, ErrUpstream) {
		t.Errorf("expected ErrUpstream, got %v", err)
	}
}

func TestClient_Persist_overwrites(t *testing.T) {
	c := NewClient("http://127.0.0.1:0", newTestLogger())
	path := filepath.Join(t.TempDir(), "nested", TrackFileName)

	if err := c.Persist([]byte("first"), path); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if err := c.Persist([]byte("second take"), path); err != nil {
		t.Fatalf("persist overwrite: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(got) != "second take" {
		t.Errorf("expected overwritten track, got %q", got)
	}
}
