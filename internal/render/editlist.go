// Package render turns a folder's ordered image assets and narration track
// into one video artifact: it builds the transcoder's edit list, supervises
// the external transcoder process, and drives the validate → build → render →
// cleanup pipeline.
package render

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrEmptyTimeline is returned when the asset list is empty at build time.
	ErrEmptyTimeline = errors.New("no image assets to render")

	// ErrBadSecondsPerImage is returned for a non-positive per-image duration.
	ErrBadSecondsPerImage = errors.New("seconds per image must be positive")
)

// EditListEntry is one timeline entry: an asset and its display duration.
// Seconds is 0 only on the trailing entry, which repeats the last asset with
// no duration; the transcoder's playlist semantics need that repeat for the
// final image's duration to take effect.
type EditListEntry struct {
	AssetPath string
	Seconds   int
}

// BuildEditList converts the ordered asset paths into the N+1-entry timeline:
// one entry per asset with secondsPerImage, plus the trailing duration-less
// repeat of the last asset.
func BuildEditList(assets []string, secondsPerImage int) ([]EditListEntry, error) {
	if secondsPerImage <= 0 {
		return nil, ErrBadSecondsPerImage
	}
	if len(assets) == 0 {
		return nil, ErrEmptyTimeline
	}

	entries := make([]EditListEntry, 0, len(assets)+1)
	for _, a := range assets {
		entries = append(entries, EditListEntry{AssetPath: a, Seconds: secondsPerImage})
	}
	entries = append(entries, EditListEntry{AssetPath: assets[len(assets)-1]})
	return entries, nil
}

// WritePlaylist renders the edit list in the transcoder's concat playlist
// format and writes it to a temporary file in dir. The caller owns deletion
// of the returned path on every exit path, not just success.
func WritePlaylist(entries []EditListEntry, dir string) (string, error) {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "file '%s'\n", filepath.ToSlash(e.AssetPath))
		if e.Seconds > 0 {
			fmt.Fprintf(&b, "duration %d\n", e.Seconds)
		}
	}

	f, err := os.CreateTemp(dir, "playlist-*.txt")
	if err != nil {
		return "", fmt.Errorf("create playlist: %w", err)
	}
	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write playlist: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("write playlist: %w", err)
	}
	return f.Name(), nil
}
