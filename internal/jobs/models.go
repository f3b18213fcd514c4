package jobs

import "time"

// Status represents the lifecycle of a bridge job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusRunning,
	StatusCompleted,
	StatusFailed,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, status := range allStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Job represents one relayed render job persisted in SQLite.
type Job struct {
	ID           string
	Status       Status
	SettingsJSON string
	ResultJSON   string
	ErrorMessage string
	BatchID      string
	RemoteJobID  string
	VideoPath    string
	UploadURL    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	StartedAt    *time.Time
	FinishedAt   *time.Time
}

// HealthSummary describes aggregated job counts per lifecycle state.
type HealthSummary struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}
