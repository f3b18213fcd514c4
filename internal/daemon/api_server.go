package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"gantry/internal/config"
	"gantry/internal/jobs"
	"gantry/internal/logging"
)

const maxSettingsBytes = 2 << 20

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

// JobPayload is the wire representation of one job.
type JobPayload struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	BatchID      string `json:"batch_id,omitempty"`
	RemoteJobID  string `json:"remote_job_id,omitempty"`
	VideoPath    string `json:"video_path,omitempty"`
	UploadURL    string `json:"upload_url,omitempty"`
	ErrorMessage string `json:"error,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
	StartedAt    string `json:"started_at,omitempty"`
	FinishedAt   string `json:"finished_at,omitempty"`
}

// JobDetailPayload adds the stored result document to a job.
type JobDetailPayload struct {
	JobPayload
	Result json.RawMessage `json:"result,omitempty"`
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	mux := http.NewServeMux()
	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
	}

	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/health", srv.handleHealth)
	mux.HandleFunc("/api/jobs", srv.handleJobs)
	mux.HandleFunc("/api/jobs/", srv.handleJob)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())
	stats := make(map[string]int, len(status.Stats))
	for st, count := range status.Stats {
		stats[string(st)] = count
	}
	payload := map[string]any{
		"running":        status.Running,
		"ready":          status.Ready,
		"service_pid":    status.ServicePID,
		"service_url":    status.ServiceURL,
		"service_log":    status.ServiceLogPath,
		"jobs_db_path":   status.JobsDBPath,
		"lock_file_path": status.LockFilePath,
		"job_counts":     stats,
		"dependencies":   status.Dependencies,
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	health, err := s.daemon.JobsHealth(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	code := http.StatusOK
	if !s.daemon.Ready() {
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, map[string]any{
		"ready": s.daemon.Ready(),
		"jobs":  health,
	})
}

func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listJobs(w, r)
	case http.MethodPost:
		s.submitJob(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) listJobs(w http.ResponseWriter, r *http.Request) {
	var statuses []jobs.Status
	for _, value := range r.URL.Query()["status"] {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		status := jobs.Status(trimmed)
		if !status.Valid() {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", trimmed))
			return
		}
		statuses = append(statuses, status)
	}

	items, err := s.daemon.ListJobs(r.Context(), statuses)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	payloads := make([]JobPayload, 0, len(items))
	for _, job := range items {
		payloads = append(payloads, jobPayload(job))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"jobs": payloads})
}

// submitJob accepts any JSON document as job settings. The payload is stored
// verbatim and relayed untouched; only well-formedness is checked here.
func (s *apiServer) submitJob(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxSettingsBytes+1))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "read request body")
		return
	}
	if len(body) > maxSettingsBytes {
		s.writeError(w, http.StatusRequestEntityTooLarge, "settings document too large")
		return
	}
	if len(body) == 0 || !json.Valid(body) {
		s.writeError(w, http.StatusBadRequest, "settings must be a valid JSON document")
		return
	}

	job, err := s.daemon.SubmitJob(r.Context(), string(body))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.log().Info("job accepted", logging.String("job", job.ID))
	s.writeJSON(w, http.StatusAccepted, jobPayload(job))
}

func (s *apiServer) handleJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	job, err := s.daemon.JobByID(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}

	payload := JobDetailPayload{JobPayload: jobPayload(job)}
	if job.ResultJSON != "" && json.Valid([]byte(job.ResultJSON)) {
		payload.Result = json.RawMessage(job.ResultJSON)
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func jobPayload(job *jobs.Job) JobPayload {
	payload := JobPayload{
		ID:           job.ID,
		Status:       string(job.Status),
		BatchID:      job.BatchID,
		RemoteJobID:  job.RemoteJobID,
		VideoPath:    job.VideoPath,
		UploadURL:    job.UploadURL,
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    job.UpdatedAt.Format(time.RFC3339),
	}
	if job.StartedAt != nil {
		payload.StartedAt = job.StartedAt.Format(time.RFC3339)
	}
	if job.FinishedAt != nil {
		payload.FinishedAt = job.FinishedAt.Format(time.RFC3339)
	}
	return payload
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
