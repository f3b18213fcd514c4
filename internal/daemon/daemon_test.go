package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gantry/internal/daemon"
	"gantry/internal/jobs"
	"gantry/internal/logging"
	"gantry/internal/testsupport"
)

// startDaemon boots a daemon whose supervised "service" is a short shell
// script and whose single readiness probe fails fast. The readiness timeout
// is advisory by default, so Start succeeds with a degraded service.
func startDaemon(t *testing.T) (*daemon.Daemon, string) {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	script := cfg.WebUI.LaunchScript
	if err := os.MkdirAll(filepath.Dir(script), 0o755); err != nil {
		t.Fatalf("mkdir webui dir: %v", err)
	}
	if err := os.WriteFile(script, []byte("exit 0\n"), 0o644); err != nil {
		t.Fatalf("write launch script: %v", err)
	}

	store := testsupport.MustOpenStore(t, cfg)
	d, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Stop()
	})

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	addr := d.APIAddr()
	if addr == "" {
		t.Fatal("expected api listener address after Start")
	}
	return d, "http://" + addr
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestStartServesStatusAndHealth(t *testing.T) {
	d, base := startDaemon(t)

	var status struct {
		Running bool           `json:"running"`
		Ready   bool           `json:"ready"`
		Counts  map[string]int `json:"job_counts"`
	}
	if code := getJSON(t, base+"/api/status", &status); code != http.StatusOK {
		t.Fatalf("status endpoint returned %d", code)
	}
	if !status.Running {
		t.Fatal("expected running daemon")
	}
	if status.Ready {
		t.Fatal("expected degraded service with one failed probe")
	}
	if d.Ready() {
		t.Fatal("Ready() should mirror the probe outcome")
	}

	if code := getJSON(t, base+"/api/health", nil); code != http.StatusServiceUnavailable {
		t.Fatalf("health endpoint should report 503 while degraded, got %d", code)
	}
}

func TestSecondInstanceRefused(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	script := cfg.WebUI.LaunchScript
	if err := os.MkdirAll(filepath.Dir(script), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(script, []byte("exit 0\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)

	first, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	defer first.Stop()
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}

	second, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected second instance to be refused by the lock")
	}
}

func TestSubmitAndFetchJobOverAPI(t *testing.T) {
	_, base := startDaemon(t)

	settings := `{"prompts":{"0":"a castle"},"max_frames":10}`
	resp, err := http.Post(base+"/api/jobs", "application/json", bytes.NewBufferString(settings))
	if err != nil {
		t.Fatalf("POST /api/jobs: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	var accepted struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if accepted.ID == "" {
		t.Fatal("expected job id in response")
	}

	var fetched struct {
		ID string `json:"id"`
	}
	if code := getJSON(t, base+"/api/jobs/"+accepted.ID, &fetched); code != http.StatusOK {
		t.Fatalf("job fetch returned %d", code)
	}
	if fetched.ID != accepted.ID {
		t.Fatalf("fetched wrong job: %q", fetched.ID)
	}

	// The bridge worker claims the job and fails it against the absent
	// service; either way it stays visible in the listing.
	deadline := time.Now().Add(20 * time.Second)
	for {
		var listing struct {
			Jobs []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"jobs"`
		}
		if code := getJSON(t, base+"/api/jobs", &listing); code != http.StatusOK {
			t.Fatalf("job listing returned %d", code)
		}
		if len(listing.Jobs) == 1 && listing.Jobs[0].ID == accepted.ID {
			if listing.Jobs[0].Status == string(jobs.StatusFailed) {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("job never failed against the absent service: %+v", listing)
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func TestSubmitRejectsInvalidPayloads(t *testing.T) {
	_, base := startDaemon(t)

	for name, body := range map[string]string{
		"empty":       "",
		"not json":    "prompts: castle",
		"broken json": `{"prompts":`,
	} {
		resp, err := http.Post(base+"/api/jobs", "application/json", bytes.NewBufferString(body))
		if err != nil {
			t.Fatalf("POST: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", name, resp.StatusCode)
		}
	}
}

func TestUnknownJobReturns404(t *testing.T) {
	_, base := startDaemon(t)
	if code := getJSON(t, base+"/api/jobs/no-such-job", nil); code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
}

func TestUnknownStatusFilterRejected(t *testing.T) {
	_, base := startDaemon(t)
	if code := getJSON(t, base+"/api/jobs?status=bogus", nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status filter, got %d", code)
	}
}

func TestStartContinuesWithoutInterpreter(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.WebUI.Python = filepath.Join(testsupport.BaseDir(cfg), "no-such-python")
	store := testsupport.MustOpenStore(t, cfg)

	d, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Stop()
	})

	// A missing interpreter means the spawn fails; startup still reaches
	// the readiness probe and continues degraded.
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start should survive a missing interpreter: %v", err)
	}
	if d.Ready() {
		t.Fatal("expected degraded service without an interpreter")
	}

	status := d.Status(context.Background())
	for _, dep := range status.Dependencies {
		if dep.Name == "python" && dep.Available {
			t.Fatalf("expected python to be reported unavailable: %+v", dep)
		}
	}
}

func TestBootstrapDisablesControlNetBeforeSpawn(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Patch.DisableControlNet = true

	script := cfg.WebUI.LaunchScript
	if err := os.MkdirAll(filepath.Dir(script), 0o755); err != nil {
		t.Fatalf("mkdir webui dir: %v", err)
	}
	if err := os.WriteFile(script, []byte("exit 0\n"), 0o644); err != nil {
		t.Fatalf("write launch script: %v", err)
	}

	controlnet := filepath.Join(cfg.DeforumDir(), "scripts", "deforum_helpers", "deforum_controlnet.py")
	if err := os.MkdirAll(filepath.Dir(controlnet), 0o755); err != nil {
		t.Fatalf("mkdir extension dir: %v", err)
	}
	source := "def find_controlnet():\n    return external_code\n"
	if err := os.WriteFile(controlnet, []byte(source), 0o644); err != nil {
		t.Fatalf("write extension source: %v", err)
	}

	store := testsupport.MustOpenStore(t, cfg)
	d, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Stop()
	})
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}

	patched, err := os.ReadFile(controlnet)
	if err != nil {
		t.Fatalf("read patched source: %v", err)
	}
	content := string(patched)
	if !strings.Contains(content, "controlnet disabled") {
		t.Fatalf("expected disable marker in patched source:\n%s", content)
	}
	guard := strings.Index(content, "return None")
	anchor := strings.Index(content, "def find_controlnet():")
	if guard == -1 || guard < anchor {
		t.Fatalf("expected guard injected after the anchor:\n%s", content)
	}
}

func TestStatusReportsDependencies(t *testing.T) {
	_, base := startDaemon(t)

	var status struct {
		Dependencies []struct {
			Name      string `json:"name"`
			Available bool   `json:"available"`
		} `json:"dependencies"`
	}
	if code := getJSON(t, base+"/api/status", &status); code != http.StatusOK {
		t.Fatalf("status endpoint returned %d", code)
	}
	found := false
	for _, dep := range status.Dependencies {
		if dep.Name == "python" {
			found = true
			if !dep.Available {
				t.Fatalf("expected /bin/sh stand-in interpreter to be available: %+v", dep)
			}
		}
	}
	if !found {
		t.Fatalf("expected python dependency in report: %+v", status.Dependencies)
	}
}
