package bridge

import (
	"encoding/json"
	"time"

	"gantry/internal/jobs"
)

// StepTiming records how long one relay step took.
type StepTiming struct {
	Step string `json:"step"`
	MS   int64  `json:"ms"`
}

type stepTimer struct {
	timings []StepTiming
}

func newStepTimer() *stepTimer {
	return &stepTimer{}
}

// step starts a timer for the named step; the returned func stops it.
func (t *stepTimer) step(name string) func() {
	start := time.Now()
	return func() {
		t.timings = append(t.timings, StepTiming{
			Step: name,
			MS:   time.Since(start).Milliseconds(),
		})
	}
}

// Result is the document stored on the job row and returned to callers.
type Result struct {
	OK          bool         `json:"ok"`
	JobID       string       `json:"job_id"`
	BatchID     string       `json:"batch_id,omitempty"`
	RemoteJobID string       `json:"remote_job_id,omitempty"`
	VideoPath   string       `json:"video_path,omitempty"`
	UploadURL   string       `json:"upload_url,omitempty"`
	Error       string       `json:"error,omitempty"`
	Timings     []StepTiming `json:"timings,omitempty"`
}

func encodeResult(job *jobs.Job, timer *stepTimer, relayErr error) string {
	result := Result{
		OK:          relayErr == nil,
		JobID:       job.ID,
		BatchID:     job.BatchID,
		RemoteJobID: job.RemoteJobID,
		VideoPath:   job.VideoPath,
		UploadURL:   job.UploadURL,
		Timings:     timer.timings,
	}
	if relayErr != nil {
		result.Error = relayErr.Error()
	}
	data, err := json.Marshal(result)
	if err != nil {
		return `{"ok":false,"error":"encode result"}`
	}
	return string(data)
}
