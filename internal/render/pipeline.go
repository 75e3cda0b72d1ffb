package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"slidecast/internal/media"
	"slidecast/internal/narration"
	"slidecast/internal/platform/lockfile"
)

var (
	// ErrNoAssets is returned when the folder has no sequence-numbered image
	// assets at render time.
	ErrNoAssets = errors.New("folder has no image assets")

	// ErrNoNarration is returned when the folder's narration track is missing.
	// Narration generation is a separate call, not part of the render path, so
	// retrying a failed render never re-pays the synthesis cost.
	ErrNoNarration = errors.New("narration track not found")

	// ErrBadHeight is returned for a non-positive output height.
	ErrBadHeight = errors.New("height must be positive")
)

// Options are the recognized render settings with their defaults.
type Options struct {
	SecondsPerImage int    `json:"secondsPerImage"`
	Height          int    `json:"height"`
	OutputDir       string `json:"outputDir"`
	CleanupImages   bool   `json:"cleanupImages"`
	CleanupAudio    bool   `json:"cleanupAudio"`
}

// DefaultOptions returns the default render settings.
func DefaultOptions() Options {
	return Options{
		SecondsPerImage: 5,
		Height:          720,
		OutputDir:       "uploads",
	}
}

// Outcome describes a successful render.
type Outcome struct {
	OutputPath    string `json:"outputPath"`
	ImageCount    int    `json:"imageCount"`
	CleanedImages bool   `json:"cleanedImages"`
	CleanedAudio  bool   `json:"cleanedAudio"`
}

// Pipeline drives one render end to end: validate inputs, build the edit
// list, invoke the transcoder, and apply the cleanup policy. Each invocation
// holds the folder lock for its full duration, so at most one render runs per
// folder and no upload can interleave with it. There is no automatic retry;
// on failure the source assets and narration track are left intact so the
// caller can re-run with unchanged inputs.
type Pipeline struct {
	assets   *media.Store
	invoker  *Invoker
	timeout  time.Duration
	log      *slog.Logger
	inFlight atomic.Int64
}

// NewPipeline returns a Pipeline. timeout bounds each transcoder run; when it
// expires the process is killed and the render fails as a timeout.
func NewPipeline(assets *media.Store, invoker *Invoker, timeout time.Duration, log *slog.Logger) *Pipeline {
	return &Pipeline{assets: assets, invoker: invoker, timeout: timeout, log: log}
}

// ActiveRenders returns the number of renders currently in flight.
// Used for metrics.
func (p *Pipeline) ActiveRenders() int {
	return int(p.inFlight.Load())
}

// Generate renders the folder's image sequence with its narration track into
// one video file and returns where it was written.
func (p *Pipeline) Generate(ctx context.Context, category, folder string, opts Options) (Outcome, error) {
	if opts.SecondsPerImage <= 0 {
		return Outcome{}, ErrBadSecondsPerImage
	}
	if opts.Height <= 0 {
		return Outcome{}, ErrBadHeight
	}
	if opts.OutputDir == "" {
		opts.OutputDir = DefaultOptions().OutputDir
	}

	p.inFlight.Add(1)
	defer p.inFlight.Add(-1)

	log := p.log.With(slog.String("category", category), slog.String("folder", folder))

	dir, err := p.assets.ResolveFolder(category, folder)
	if err != nil {
		return Outcome{}, err
	}

	release, err := lockfile.Acquire(ctx, dir)
	if err != nil {
		return Outcome{}, err
	}
	defer release()

	assets, err := p.assets.OrderedAssets(category, folder)
	if err != nil {
		return Outcome{}, err
	}
	if len(assets) == 0 {
		return Outcome{}, fmt.Errorf("%w: %s/%s", ErrNoAssets, category, folder)
	}

	audioPath := narration.TrackPath(dir)
	if _, err := os.Stat(audioPath); err != nil {
		return Outcome{}, fmt.Errorf("%w: %s", ErrNoNarration, audioPath)
	}
	log.Debug("inputs resolved", slog.Int("assets", len(assets)))

	entries, err := BuildEditList(assets, opts.SecondsPerImage)
	if err != nil {
		return Outcome{}, err
	}
	playlistPath, err := WritePlaylist(entries, dir)
	if err != nil {
		return Outcome{}, err
	}
	// From here the invoker owns the playlist and removes it on every exit path.

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		os.Remove(playlistPath)
		return Outcome{}, fmt.Errorf("create output dir: %w", err)
	}
	outputPath := filepath.Join(opts.OutputDir,
		fmt.Sprintf("video_%s_%s_%s.mp4", category, folder, uuid.NewString()[:8]))

	rctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	log.Info("rendering", slog.Int("assets", len(assets)), slog.String("output", outputPath))
	if err := p.invoker.Invoke(rctx, InvokeRequest{
		PlaylistPath: playlistPath,
		AudioPath:    audioPath,
		OutputPath:   outputPath,
		Height:       opts.Height,
	}); err != nil {
		log.Error("render failed", slog.String("error", err.Error()))
		return Outcome{}, err
	}

	outcome := Outcome{OutputPath: outputPath, ImageCount: len(assets)}

	// Cleanup runs only after success and never invalidates the output:
	// deletion failures are logged inside the store and swallowed here.
	if opts.CleanupImages {
		removed := p.assets.DeleteImageAssets(category, folder)
		log.Info("source images cleaned", slog.Int("removed", removed))
		outcome.CleanedImages = true
	}
	if opts.CleanupAudio {
		if err := os.Remove(audioPath); err != nil {
			log.Warn("narration cleanup failed", slog.String("error", err.Error()))
		} else {
			log.Info("narration track cleaned")
			outcome.CleanedAudio = true
		}
	}

	log.Info("render succeeded", slog.String("output", outputPath))
	return outcome, nil
}
