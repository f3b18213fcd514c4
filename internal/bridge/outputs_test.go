package bridge_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gantry/internal/bridge"
	"gantry/internal/testsupport"
)

func TestNewestVideoPicksLatestAcrossDirs(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()

	old := filepath.Join(dirA, "batch1", "old.mp4")
	newer := filepath.Join(dirB, "batch2", "newer.webm")
	testsupport.WriteFile(t, old, 1)
	testsupport.WriteFile(t, newer, 1)

	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	path, found := bridge.NewestVideo([]string{dirA, dirB})
	if !found {
		t.Fatal("expected a video to be found")
	}
	if path != newer {
		t.Fatalf("expected newest video %q, got %q", newer, path)
	}
}

func TestNewestVideoIgnoresNonVideoFiles(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "frame_0001.png"), 1)
	testsupport.WriteFile(t, filepath.Join(dir, "settings.txt"), 1)

	if _, found := bridge.NewestVideo([]string{dir}); found {
		t.Fatal("expected no video among frames and settings")
	}
}

func TestNewestVideoSkipsMissingDirs(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "render.mov")
	testsupport.WriteFile(t, video, 1)

	path, found := bridge.NewestVideo([]string{filepath.Join(dir, "absent"), dir})
	if !found || path != video {
		t.Fatalf("expected %q despite missing sibling dir, got %q found=%v", video, path, found)
	}
}
