package render

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"slidecast/internal/media"
)

type pipelineFixture struct {
	assets    *media.Store
	outputDir string
}

// newPipelineFixture builds a media tree with numbered assets and a narration
// track, and a pipeline whose transcoder is the given stub script.
func newPipelineFixture(t *testing.T, stub string, imageCount int, withNarration bool) (*Pipeline, *pipelineFixture) {
	t.Helper()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	assets := media.NewStore(t.TempDir(), log)

	uploads := make([]media.Upload, 0, imageCount)
	for i := 0; i < imageCount; i++ {
		uploads = append(uploads, media.Upload{Name: "img.jpg", Body: strings.NewReader("x")})
	}
	if imageCount > 0 {
		if _, err := assets.SaveImages(context.Background(), "travel", "rome", uploads); err != nil {
			t.Fatalf("seed images: %v", err)
		}
	} else {
		if err := os.MkdirAll(assets.FolderDir("travel", "rome"), 0o755); err != nil {
			t.Fatalf("seed folder: %v", err)
		}
	}
	if withNarration {
		track := filepath.Join(assets.FolderDir("travel", "rome"), "audio.mp3")
		if err := os.WriteFile(track, []byte("mp3"), 0o644); err != nil {
			t.Fatalf("seed narration: %v", err)
		}
	}

	invoker := NewInvoker(writeStubTranscoder(t, stub), log)
	p := NewPipeline(assets, invoker, 10*time.Second, log)
	return p, &pipelineFixture{assets: assets, outputDir: t.TempDir()}
}

func (f *pipelineFixture) options() Options {
	opts := DefaultOptions()
	opts.OutputDir = f.outputDir
	return opts
}

func (f *pipelineFixture) leftoverPlaylists(t *testing.T) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(f.assets.FolderDir("travel", "rome"), "playlist-*.txt"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	return matches
}

func TestPipeline_success(t *testing.T) {
	p, f := newPipelineFixture(t, stubSuccess, 3, true)

	outcome, err := p.Generate(context.Background(), "travel", "rome", f.options())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if outcome.ImageCount != 3 {
		t.Errorf("expected 3 images, got %d", outcome.ImageCount)
	}
	info, statErr := os.Stat(outcome.OutputPath)
	if statErr != nil || info.Size() == 0 {
		t.Errorf("expected non-empty output at %s, err=%v", outcome.OutputPath, statErr)
	}
	if !strings.HasPrefix(filepath.Base(outcome.OutputPath), "video_travel_rome_") {
		t.Errorf("unexpected output name %s", outcome.OutputPath)
	}

	// No cleanup requested: all sources stay put.
	images, _ := f.assets.ListImages("travel", "rome")
	if len(images) != 3 {
		t.Errorf("expected sources untouched, got %v", images)
	}
	if got := f.leftoverPlaylists(t); len(got) != 0 {
		t.Errorf("expected no leftover playlists, got %v", got)
	}
}

func TestPipeline_failure_preserves_inputs_and_retry_succeeds(t *testing.T) {
	p, f := newPipelineFixture(t, stubFailure, 2, true)

	_, err := p.Generate(context.Background(), "travel", "rome", f.options())
	var failure *Failure
	if !errors.As(err, &failure) {
		t.Fatalf("expected *Failure, got %v", err)
	}
	if failure.Diagnostics == "" {
		t.Error("expected non-empty diagnostics")
	}

	// Failure leaves assets and narration intact and no playlist behind.
	images, _ := f.assets.ListImages("travel", "rome")
	if len(images) != 2 {
		t.Errorf("expected assets preserved after failure, got %v", images)
	}
	if !f.assets.Exists("travel", "rome", "audio.mp3") {
		t.Error("expected narration preserved after failure")
	}
	if got := f.leftoverPlaylists(t); len(got) != 0 {
		t.Errorf("expected no leftover playlists, got %v", got)
	}

	// Re-running with unchanged inputs and a healthy transcoder succeeds.
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	retry := NewPipeline(f.assets, NewInvoker(writeStubTranscoder(t, stubSuccess), log), 10*time.Second, log)
	if _, err := retry.Generate(context.Background(), "travel", "rome", f.options()); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
}

func TestPipeline_no_assets(t *testing.T) {
	p, f := newPipelineFixture(t, stubSuccess, 0, true)

	_, err := p.Generate(context.Background(), "travel", "rome", f.options())
	if !errors.Is(err, ErrNoAssets) {
		t.Errorf("expected ErrNoAssets, got %v", err)
	}
}

func TestPipeline_no_narration(t *testing.T) {
	p, f := newPipelineFixture(t, stubSuccess, 2, false)

	_, err := p.Generate(context.Background(), "travel", "rome", f.options())
	if !errors.Is(err, ErrNoNarration) {
		t.Errorf("expected ErrNoNarration, got %v", err)
	}
}

func TestPipeline_folder_not_found(t *testing.T) {
	p, f := newPipelineFixture(t, stubSuccess, 1, true)

	_, err := p.Generate(context.Background(), "travel", "venice", f.options())
	if !errors.Is(err, media.ErrFolderNotFound) {
		t.Errorf("expected ErrFolderNotFound, got %v", err)
	}
}

func TestPipeline_invalid_options(t *testing.T) {
	p, f := newPipelineFixture(t, stubSuccess, 1, true)

	opts := f.options()
	opts.SecondsPerImage = 0
	if _, err := p.Generate(context.Background(), "travel", "rome", opts); !errors.Is(err, ErrBadSecondsPerImage) {
		t.Errorf("expected ErrBadSecondsPerImage, got %v", err)
	}

	opts = f.options()
	opts.Height = -1
	if _, err := p.Generate(context.Background(), "travel", "rome", opts); !errors.Is(err, ErrBadHeight) {
		t.Errorf("expected ErrBadHeight, got %v", err)
	}
}

func TestPipeline_cleanup_images(t *testing.T) {
	p, f := newPipelineFixture(t, stubSuccess, 2, true)

	opts := f.options()
	opts.CleanupImages = true
	outcome, err := p.Generate(context.Background(), "travel", "rome", opts)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !outcome.CleanedImages {
		t.Error("expected CleanedImages set")
	}

	images, _ := f.assets.ListImages("travel", "rome")
	if len(images) != 0 {
		t.Errorf("expected all assets removed, got %v", images)
	}
	if _, err := os.Stat(f.assets.FolderDir("travel", "rome")); err != nil {
		t.Errorf("folder directory must remain: %v", err)
	}
	// Narration stays unless cleanupAudio was requested.
	if !f.assets.Exists("travel", "rome", "audio.mp3") {
		t.Error("expected narration to remain")
	}
}

func TestPipeline_cleanup_audio(t *testing.T) {
	p, f := newPipelineFixture(t, stubSuccess, 2, true)

	opts := f.options()
	opts.CleanupAudio = true
	outcome, err := p.Generate(context.Background(), "travel", "rome", opts)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !outcome.CleanedAudio {
		t.Error("expected CleanedAudio set")
	}
	if f.assets.Exists("travel", "rome", "audio.mp3") {
		t.Error("expected narration track removed")
	}

	images, _ := f.assets.ListImages("travel", "rome")
	if len(images) != 2 {
		t.Errorf("expected image assets untouched, got %v", images)
	}
}

func TestPipeline_timeout(t *testing.T) {
	p, f := newPipelineFixture(t, stubHang, 1, true)

	fast := NewPipeline(f.assets, NewInvoker(writeStubTranscoder(t, stubHang), p.log), 200*time.Millisecond, p.log)
	_, err := fast.Generate(context.Background(), "travel", "rome", f.options())

	var failure *Failure
	if !errors.As(err, &failure) {
		t.Fatalf("expected *Failure, got %v", err)
	}
	if !failure.Timeout {
		t.Error("expected timeout failure")
	}
}
