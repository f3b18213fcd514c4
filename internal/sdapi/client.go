package sdapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gantry/internal/services"
)

const defaultCallTimeout = 30 * time.Second

// Model describes one checkpoint known to the WebUI.
type Model struct {
	Title     string `json:"title"`
	ModelName string `json:"model_name"`
	Filename  string `json:"filename"`
}

// BatchResponse is the Deforum batch submission acknowledgement.
type BatchResponse struct {
	Message string   `json:"message"`
	BatchID string   `json:"batch_id"`
	JobIDs  []string `json:"job_ids"`
}

// JobState reports one Deforum render job's lifecycle on the service side.
type JobState struct {
	ID       string  `json:"id"`
	Status   string  `json:"status"`
	Phase    string  `json:"phase"`
	Progress float64 `json:"progress"`
	Message  string  `json:"message"`
	Outdir   string  `json:"outdir"`
}

// Terminal Deforum job statuses.
const (
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
	StatusCancelled = "CANCELLED"
)

// Terminal reports whether the service considers the job finished.
func (s JobState) Terminal() bool {
	switch s.Status {
	case StatusSucceeded, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Option configures the client.
type Option func(*Client)

// WithTimeout overrides the per-call timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.client.Timeout = timeout
		}
	}
}

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.client = httpClient
		}
	}
}

// Client talks to one WebUI instance.
type Client struct {
	baseURL string
	client  *http.Client
}

// New constructs a client against baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  &http.Client{Timeout: defaultCallTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured service base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HealthURL returns the endpoint the readiness prober polls. The model
// listing doubles as the health check: it answers 200 only once the WebUI
// has loaded far enough to serve traffic.
func (c *Client) HealthURL() string {
	return c.baseURL + "/sdapi/v1/sd-models"
}

// Ping issues a single health check.
func (c *Client) Ping(ctx context.Context) error {
	var ignored json.RawMessage
	return c.get(ctx, "/sdapi/v1/sd-models", &ignored)
}

// Models lists checkpoints loaded by the WebUI, used for sanity diagnostics.
func (c *Client) Models(ctx context.Context) ([]Model, error) {
	var models []Model
	if err := c.get(ctx, "/sdapi/v1/sd-models", &models); err != nil {
		return nil, err
	}
	return models, nil
}

// SubmitBatch relays one opaque settings document as a single-entry Deforum
// batch and returns the service's acknowledgement.
func (c *Client) SubmitBatch(ctx context.Context, settings json.RawMessage) (*BatchResponse, error) {
	payload := struct {
		DeforumSettings []json.RawMessage `json:"deforum_settings"`
	}{DeforumSettings: []json.RawMessage{settings}}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "sdapi", "submit batch", "encode settings", err)
	}

	var resp BatchResponse
	if err := c.post(ctx, "/deforum_api/batches", body, &resp); err != nil {
		return nil, err
	}
	if len(resp.JobIDs) == 0 {
		return nil, services.Wrap(services.ErrExternalTool, "sdapi", "submit batch", "service accepted batch without job ids", nil)
	}
	return &resp, nil
}

// JobStatus fetches the service-side state of one render job.
func (c *Client) JobStatus(ctx context.Context, jobID string) (*JobState, error) {
	var state JobState
	if err := c.get(ctx, "/deforum_api/jobs/"+jobID, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return services.Wrap(services.ErrValidation, "sdapi", "get "+path, "build request", err)
	}
	return c.do(req, path, out)
}

func (c *Client) post(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return services.Wrap(services.ErrValidation, "sdapi", "post "+path, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, path, out)
}

func (c *Client) do(req *http.Request, path string, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		marker := services.ErrExternalTool
		if errors.Is(err, context.DeadlineExceeded) {
			marker = services.ErrTimeout
		}
		return services.Wrap(marker, "sdapi", req.Method+" "+path, "request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "sdapi", req.Method+" "+path, "read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, truncate(string(data), 400))
		return services.Wrap(services.ErrExternalTool, "sdapi", req.Method+" "+path, detail, nil)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return services.Wrap(services.ErrExternalTool, "sdapi", req.Method+" "+path, "decode response", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
