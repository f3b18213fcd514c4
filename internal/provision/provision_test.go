package provision_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"gantry/internal/fileutil"
	"gantry/internal/logging"
	"gantry/internal/provision"
)

func newProvisioner(t *testing.T) *provision.Provisioner {
	t.Helper()
	return provision.New(logging.NewNop(), 30*time.Second, 0)
}

func TestEnsureShortCircuitsWhenPresent(t *testing.T) {
	dir := t.TempDir()
	primary := filepath.Join(dir, "sd-v1-5.safetensors")
	if err := os.WriteFile(primary, []byte("weights"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	result := newProvisioner(t).Ensure(context.Background(), provision.Artifact{
		Name:         "sd-v1-5",
		Dir:          dir,
		PrimaryExt:   ".safetensors",
		AlternateExt: ".ckpt",
		SourceURL:    server.URL,
	})

	if result.Outcome != provision.OutcomePresent {
		t.Fatalf("expected present outcome, got %q", result.Outcome)
	}
	if result.Path != primary {
		t.Fatalf("unexpected path: %q", result.Path)
	}
	if hits.Load() != 0 {
		t.Fatal("expected no network traffic when artifact is present")
	}
	if !fileutil.Exists(filepath.Join(dir, "sd-v1-5.ckpt")) {
		t.Fatal("expected alternate-name alias to be created")
	}
}

func TestEnsureDownloadsWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("downloaded-weights"))
	}))
	defer server.Close()

	result := newProvisioner(t).Ensure(context.Background(), provision.Artifact{
		Name:         "sd-v1-5",
		Dir:          dir,
		PrimaryExt:   ".safetensors",
		AlternateExt: ".ckpt",
		SourceURL:    server.URL,
	})

	if result.Outcome != provision.OutcomeDownloaded {
		t.Fatalf("expected downloaded outcome, got %q (%s)", result.Outcome, result.Reason)
	}
	data, err := os.ReadFile(result.Path)
	if err != nil {
		t.Fatalf("read downloaded artifact: %v", err)
	}
	if string(data) != "downloaded-weights" {
		t.Fatalf("artifact content mismatch: %q", string(data))
	}
	if fileutil.Exists(result.Path + ".partial") {
		t.Fatal("partial file left behind after successful download")
	}
}

func TestEnsureSecondRunUsesDownloadedArtifact(t *testing.T) {
	dir := t.TempDir()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("weights"))
	}))
	defer server.Close()

	artifact := provision.Artifact{
		Name:         "sd-v1-5",
		Dir:          dir,
		PrimaryExt:   ".safetensors",
		AlternateExt: ".ckpt",
		SourceURL:    server.URL,
	}
	p := newProvisioner(t)

	first := p.Ensure(context.Background(), artifact)
	if first.Outcome != provision.OutcomeDownloaded {
		t.Fatalf("first run: expected download, got %q", first.Outcome)
	}
	second := p.Ensure(context.Background(), artifact)
	if second.Outcome != provision.OutcomePresent {
		t.Fatalf("second run: expected present, got %q", second.Outcome)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected exactly one download, got %d", hits.Load())
	}
}

func TestEnsureSkipsWithoutSourceURL(t *testing.T) {
	result := newProvisioner(t).Ensure(context.Background(), provision.Artifact{
		Name:         "sd-v1-5",
		Dir:          t.TempDir(),
		PrimaryExt:   ".safetensors",
		AlternateExt: ".ckpt",
	})
	if result.Outcome != provision.OutcomeSkipped {
		t.Fatalf("expected skipped outcome, got %q", result.Outcome)
	}
	if result.Reason == "" {
		t.Fatal("expected a skip reason")
	}
}

func TestEnsureSkipsOnHTTPError(t *testing.T) {
	dir := t.TempDir()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not here", http.StatusNotFound)
	}))
	defer server.Close()

	result := newProvisioner(t).Ensure(context.Background(), provision.Artifact{
		Name:         "sd-v1-5",
		Dir:          dir,
		PrimaryExt:   ".safetensors",
		AlternateExt: ".ckpt",
		SourceURL:    server.URL,
	})
	if result.Outcome != provision.OutcomeSkipped {
		t.Fatalf("expected skipped outcome, got %q", result.Outcome)
	}
	if fileutil.Exists(filepath.Join(dir, "sd-v1-5.safetensors")) {
		t.Fatal("no artifact should exist after failed download")
	}
}

func TestEnsureAcceptsAlternateName(t *testing.T) {
	dir := t.TempDir()
	alternate := filepath.Join(dir, "sd-v1-5.ckpt")
	if err := os.WriteFile(alternate, []byte("legacy-weights"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	result := newProvisioner(t).Ensure(context.Background(), provision.Artifact{
		Name:         "sd-v1-5",
		Dir:          dir,
		PrimaryExt:   ".safetensors",
		AlternateExt: ".ckpt",
	})
	if result.Outcome != provision.OutcomePresent {
		t.Fatalf("expected present outcome, got %q", result.Outcome)
	}
	if result.Path != alternate {
		t.Fatalf("expected alternate path, got %q", result.Path)
	}
	if !fileutil.Exists(filepath.Join(dir, "sd-v1-5.safetensors")) {
		t.Fatal("expected primary-name alias to be created")
	}
}
