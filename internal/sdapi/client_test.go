package sdapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gantry/internal/sdapi"
	"gantry/internal/services"
)

func TestSubmitBatchWrapsSettings(t *testing.T) {
	var received struct {
		DeforumSettings []json.RawMessage `json:"deforum_settings"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/deforum_api/batches" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(sdapi.BatchResponse{
			Message: "Job(s) accepted",
			BatchID: "batch-1",
			JobIDs:  []string{"batch-1-0"},
		})
	}))
	defer server.Close()

	client := sdapi.New(server.URL)
	settings := json.RawMessage(`{"prompts":{"0":"a castle"},"max_frames":10}`)
	resp, err := client.SubmitBatch(context.Background(), settings)
	if err != nil {
		t.Fatalf("SubmitBatch: %v", err)
	}
	if resp.BatchID != "batch-1" || len(resp.JobIDs) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(received.DeforumSettings) != 1 {
		t.Fatalf("expected settings wrapped in a single-entry batch, got %d", len(received.DeforumSettings))
	}
	if string(received.DeforumSettings[0]) != string(settings) {
		t.Fatalf("settings not relayed verbatim: %s", received.DeforumSettings[0])
	}
}

func TestSubmitBatchRejectsEmptyJobIDs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sdapi.BatchResponse{BatchID: "batch-1"})
	}))
	defer server.Close()

	_, err := sdapi.New(server.URL).SubmitBatch(context.Background(), json.RawMessage(`{}`))
	if err == nil {
		t.Fatal("expected error for batch without job ids")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
}

func TestJobStatusAndTerminal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/deforum_api/jobs/batch-1-0" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(sdapi.JobState{
			ID:     "batch-1-0",
			Status: sdapi.StatusSucceeded,
			Phase:  "DONE",
		})
	}))
	defer server.Close()

	state, err := sdapi.New(server.URL).JobStatus(context.Background(), "batch-1-0")
	if err != nil {
		t.Fatalf("JobStatus: %v", err)
	}
	if !state.Terminal() {
		t.Fatal("SUCCEEDED must be terminal")
	}

	for status, terminal := range map[string]bool{
		sdapi.StatusSucceeded: true,
		sdapi.StatusFailed:    true,
		sdapi.StatusCancelled: true,
		"ACCEPTED":            false,
		"RUNNING":             false,
		"":                    false,
	} {
		got := sdapi.JobState{Status: status}.Terminal()
		if got != terminal {
			t.Fatalf("Terminal(%q) = %v, want %v", status, got, terminal)
		}
	}
}

func TestErrorStatusIncludesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "extension not loaded", http.StatusNotFound)
	}))
	defer server.Close()

	err := sdapi.New(server.URL).Ping(context.Background())
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "404") || !strings.Contains(err.Error(), "extension not loaded") {
		t.Fatalf("expected status and body in message: %q", err.Error())
	}
}

func TestModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sdapi/v1/sd-models" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode([]sdapi.Model{
			{Title: "sd-v1-5.safetensors [abc]", ModelName: "sd-v1-5"},
		})
	}))
	defer server.Close()

	models, err := sdapi.New(server.URL).Models(context.Background())
	if err != nil {
		t.Fatalf("Models: %v", err)
	}
	if len(models) != 1 || models[0].ModelName != "sd-v1-5" {
		t.Fatalf("unexpected models: %+v", models)
	}
}

func TestConnectionRefused(t *testing.T) {
	err := sdapi.New("http://127.0.0.1:1").Ping(context.Background())
	if err == nil {
		t.Fatal("expected connection error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
}

func TestHealthURL(t *testing.T) {
	client := sdapi.New("http://127.0.0.1:3001/")
	if client.HealthURL() != "http://127.0.0.1:3001/sdapi/v1/sd-models" {
		t.Fatalf("unexpected health url: %q", client.HealthURL())
	}
}
