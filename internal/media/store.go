// Package media manages a folder's ordered image assets on disk. The
// directory tree under baseDir/<category>/<folder> is the single source of
// truth: sequence numbers are derived from a fresh scan on every upload, so
// the scan and the subsequent writes run under a per-folder lock.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"slidecast/internal/platform/lockfile"
)

var (
	// ErrNoFiles is returned when an upload contains no files.
	ErrNoFiles = errors.New("no files provided")

	// ErrUnsupportedImage is returned when an uploaded file's extension is
	// not in the image allow-list.
	ErrUnsupportedImage = errors.New("unsupported image format")

	// ErrUnsupportedVideo is returned when an uploaded file's extension is
	// not in the video allow-list.
	ErrUnsupportedVideo = errors.New("unsupported video format")

	// ErrFolderNotFound is returned when the category/folder directory does
	// not exist.
	ErrFolderNotFound = errors.New("folder not found")
)

var imageExtensions = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true, "webp": true, "bmp": true,
}

var videoExtensions = map[string]bool{
	"mp4": true, "avi": true, "mov": true, "wmv": true, "mkv": true, "flv": true, "webm": true,
}

// numberedImagePattern matches sequence-numbered assets (001.jpg, 002.png, ...).
var numberedImagePattern = regexp.MustCompile(`^(\d{3})\.(?i:jpg|jpeg|png|gif|webp|bmp)$`)

// Upload is one incoming file: its original name (used only for the
// extension) and its content.
type Upload struct {
	Name string
	Body io.Reader
}

// Statistics summarizes a folder's media contents.
type Statistics struct {
	ImageCount int      `json:"imageCount"`
	VideoCount int      `json:"videoCount"`
	TotalMedia int      `json:"totalMedia"`
	Images     []string `json:"images"`
	Videos     []string `json:"videos"`
}

// Store manages image and video assets for category/folder directories.
type Store struct {
	baseDir string
	log     *slog.Logger
}

// NewStore returns a Store rooted at baseDir (e.g. "public/images").
func NewStore(baseDir string, log *slog.Logger) *Store {
	return &Store{baseDir: baseDir, log: log}
}

// FolderDir returns the directory path for a category/folder pair without
// checking that it exists.
func (s *Store) FolderDir(category, folder string) string {
	return filepath.Join(s.baseDir, category, folder)
}

// ResolveFolder returns the folder's directory path, or ErrFolderNotFound if
// the directory does not exist.
func (s *Store) ResolveFolder(category, folder string) (string, error) {
	dir := s.FolderDir(category, folder)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s/%s", ErrFolderNotFound, category, folder)
	}
	return dir, nil
}

// SaveImages stores the uploads as sequence-numbered assets (001.jpg,
// 002.png, ...). The whole batch is validated before anything is written, and
// the folder lock is held across the sequence scan and all writes so
// concurrent batches cannot claim the same numbers. Returns the stored
// filenames in upload order.
func (s *Store) SaveImages(ctx context.Context, category, folder string, uploads []Upload) ([]string, error) {
	if len(uploads) == 0 {
		return nil, ErrNoFiles
	}

	exts := make([]string, len(uploads))
	for i, u := range uploads {
		ext := fileExtension(u.Name)
		if !imageExtensions[ext] {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedImage, ext)
		}
		exts[i] = ext
	}

	dir := s.FolderDir(category, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create folder %s: %w", dir, err)
	}

	release, err := lockfile.Acquire(ctx, dir)
	if err != nil {
		return nil, err
	}
	defer release()

	next, err := s.nextSequenceLocked(dir)
	if err != nil {
		return nil, err
	}

	stored := make([]string, 0, len(uploads))
	for i, u := range uploads {
		name := fmt.Sprintf("%03d.%s", next, exts[i])
		if err := writeFile(filepath.Join(dir, name), u.Body); err != nil {
			return stored, fmt.Errorf("store %s: %w", name, err)
		}
		stored = append(stored, name)
		next++
	}

	s.log.Info("images stored",
		slog.String("category", category),
		slog.String("folder", folder),
		slog.Int("count", len(stored)))
	return stored, nil
}

// SaveVideos stores the uploads under unique, non-colliding names. Video
// names carry no ordering semantics, so no folder lock is needed.
func (s *Store) SaveVideos(ctx context.Context, category, folder string, uploads []Upload) ([]string, error) {
	if len(uploads) == 0 {
		return nil, ErrNoFiles
	}

	dir := s.FolderDir(category, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create folder %s: %w", dir, err)
	}

	stored := make([]string, 0, len(uploads))
	for _, u := range uploads {
		ext := fileExtension(u.Name)
		if !videoExtensions[ext] {
			return stored, fmt.Errorf("%w: %q", ErrUnsupportedVideo, ext)
		}
		name := fmt.Sprintf("video_%d_%s.%s", time.Now().UnixMilli(), uuid.NewString()[:8], ext)
		if err := writeFile(filepath.Join(dir, name), u.Body); err != nil {
			return stored, fmt.Errorf("store %s: %w", name, err)
		}
		stored = append(stored, name)
	}
	return stored, nil
}

// ListImages returns all supported image files in the folder in ascending
// lexicographic order (numeric order for sequence-numbered assets). A missing
// folder yields an empty list.
func (s *Store) ListImages(category, folder string) ([]string, error) {
	return s.listByExtension(category, folder, imageExtensions)
}

// ListVideos returns all supported video files in the folder sorted by name.
func (s *Store) ListVideos(category, folder string) ([]string, error) {
	return s.listByExtension(category, folder, videoExtensions)
}

// OrderedAssets returns absolute paths of the folder's sequence-numbered
// image assets in ascending sequence order. This is the asset list consumed
// by the render pipeline.
func (s *Store) OrderedAssets(category, folder string) ([]string, error) {
	dir, err := s.ResolveFolder(category, folder)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && numberedImagePattern.MatchString(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	paths := make([]string, 0, len(names))
	for _, n := range names {
		abs, err := filepath.Abs(filepath.Join(dir, n))
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", n, err)
		}
		paths = append(paths, abs)
	}
	return paths, nil
}

// FilePath returns the absolute path where the named file lives (or would
// live) in the folder. It does not require the file to exist.
func (s *Store) FilePath(category, folder, file string) (string, error) {
	return filepath.Abs(filepath.Join(s.FolderDir(category, folder), file))
}

// Exists reports whether the named file exists in the folder.
func (s *Store) Exists(category, folder, file string) bool {
	_, err := os.Stat(filepath.Join(s.FolderDir(category, folder), file))
	return err == nil
}

// Delete removes the named file from the folder. It reports whether the file
// existed.
func (s *Store) Delete(category, folder, file string) (bool, error) {
	path := filepath.Join(s.FolderDir(category, folder), file)
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", file, err)
	}
	return true, nil
}

// Statistics returns image/video counts and listings for the folder.
func (s *Store) Statistics(category, folder string) (Statistics, error) {
	images, err := s.ListImages(category, folder)
	if err != nil {
		return Statistics{}, err
	}
	videos, err := s.ListVideos(category, folder)
	if err != nil {
		return Statistics{}, err
	}
	return Statistics{
		ImageCount: len(images),
		VideoCount: len(videos),
		TotalMedia: len(images) + len(videos),
		Images:     images,
		Videos:     videos,
	}, nil
}

// DeleteImageAssets removes every sequence-numbered image asset in the
// folder, leaving the folder directory itself in place. Per-file failures are
// logged and skipped; the number of files removed is returned.
func (s *Store) DeleteImageAssets(category, folder string) int {
	dir := s.FolderDir(category, folder)
	entries, err := os.ReadDir(dir)
	if err != nil {
		s.log.Warn("cleanup scan failed", slog.String("error", err.Error()))
		return 0
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() || !numberedImagePattern.MatchString(e.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			s.log.Warn("cleanup delete failed",
				slog.String("file", e.Name()),
				slog.String("error", err.Error()))
			continue
		}
		removed++
	}
	return removed
}

// nextSequenceLocked scans dir for the highest existing 3-digit sequence
// prefix among supported assets and returns max+1 (1 for an empty folder).
// Caller must hold the folder lock.
func (s *Store) nextSequenceLocked(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("scan %s: %w", dir, err)
	}

	max := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := numberedImagePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > max {
			max = n
		}
	}
	return max + 1, nil
}

func (s *Store) listByExtension(category, folder string, allowed map[string]bool) ([]string, error) {
	dir := s.FolderDir(category, folder)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && allowed[fileExtension(e.Name())] {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func writeFile(path string, body io.Reader) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// fileExtension returns the lowercase extension of name without the dot, or
// "" if name has none.
func fileExtension(name string) string {
	ext := filepath.Ext(name)
	if ext == "" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
