package render

import (
	"errors"
	"os"
	"strings"
	"testing"
)

func TestBuildEditList(t *testing.T) {
	assets := []string{"/img/001.jpg", "/img/002.jpg", "/img/003.jpg"}

	entries, err := BuildEditList(assets, 5)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected N+1 = 4 entries, got %d", len(entries))
	}

	for i := 0; i < 3; i++ {
		if entries[i].AssetPath != assets[i] || entries[i].Seconds != 5 {
			t.Errorf("entry %d: got %+v", i, entries[i])
		}
	}

	last := entries[3]
	if last.AssetPath != "/img/003.jpg" || last.Seconds != 0 {
		t.Errorf("trailing entry must repeat the last asset with no duration, got %+v", last)
	}
}

func TestBuildEditList_single_asset(t *testing.T) {
	entries, err := BuildEditList([]string{"/img/001.jpg"}, 3)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[1].AssetPath != "/img/001.jpg" || entries[1].Seconds != 0 {
		t.Errorf("unexpected trailing entry %+v", entries[1])
	}
}

func TestBuildEditList_empty_assets(t *testing.T) {
	if _, err := BuildEditList(nil, 5); !errors.Is(err, ErrEmptyTimeline) {
		t.Errorf("expected ErrEmptyTimeline, got %v", err)
	}
}

func TestBuildEditList_bad_duration(t *testing.T) {
	for _, secs := range []int{0, -1} {
		if _, err := BuildEditList([]string{"/img/001.jpg"}, secs); !errors.Is(err, ErrBadSecondsPerImage) {
			t.Errorf("secondsPerImage=%d: expected ErrBadSecondsPerImage, got %v", secs, err)
		}
	}
}

func TestWritePlaylist(t *testing.T) {
	entries, err := BuildEditList([]string{"/img/001.jpg", "/img/002.jpg"}, 5)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	path, err := WritePlaylist(entries, t.TempDir())
	if err != nil {
		t.Fatalf("write playlist: %v", err)
	}
	defer os.Remove(path)

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read playlist: %v", err)
	}

	want := strings.Join([]string{
		"file '/img/001.jpg'",
		"duration 5",
		"file '/img/002.jpg'",
		"duration 5",
		"file '/img/002.jpg'",
		"",
	}, "\n")
	if string(content) != want {
		t.Errorf("playlist mismatch:\ngot:\n%s\nwant:\n%s", content, want)
	}
}
