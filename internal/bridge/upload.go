package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

func init() {
	// The builtin mime table has no video entries; system tables vary.
	_ = mime.AddExtensionType(".mp4", "video/mp4")
	_ = mime.AddExtensionType(".webm", "video/webm")
	_ = mime.AddExtensionType(".mov", "video/quicktime")
}

// UploadResult reports the outcome of one blob upload.
type UploadResult struct {
	OK     bool   `json:"ok"`
	URL    string `json:"url,omitempty"`
	Key    string `json:"key,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Uploader pushes rendered videos to a Vercel-Blob-shaped store.
type Uploader struct {
	base   string
	token  string
	client *http.Client
}

// NewUploader returns nil when blob storage is not configured.
func NewUploader(base, token string, timeout time.Duration) *Uploader {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	token = strings.TrimSpace(token)
	if base == "" || token == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	return &Uploader{
		base:   base,
		token:  token,
		client: &http.Client{Timeout: timeout},
	}
}

// Upload PUTs the file under runs/<jobID>/<name>. Failures are reported in
// the result, never as an error: the render already succeeded.
func (u *Uploader) Upload(ctx context.Context, filePath, jobID string) UploadResult {
	file, err := os.Open(filePath)
	if err != nil {
		return UploadResult{Reason: "file_missing"}
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return UploadResult{Reason: "file_missing"}
	}

	key := fmt.Sprintf("runs/%s/%s", jobID, filepath.Base(filePath))
	target := u.base + "/?pathname=" + url.QueryEscape(key)

	contentType := mime.TypeByExtension(filepath.Ext(filePath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, file)
	if err != nil {
		return UploadResult{Reason: err.Error()}
	}
	req.ContentLength = info.Size()
	req.Header.Set("Authorization", "Bearer "+u.token)
	req.Header.Set("Content-Type", contentType)

	resp, err := u.client.Do(req)
	if err != nil {
		return UploadResult{Reason: err.Error()}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return UploadResult{Reason: fmt.Sprintf("upload_http_%d", resp.StatusCode)}
	}

	result := UploadResult{OK: true, Key: key, URL: target}
	var parsed struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.URL != "" {
		result.URL = parsed.URL
	}
	return result
}
