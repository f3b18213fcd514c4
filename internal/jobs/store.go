package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"gantry/internal/config"
)

// Store manages job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the job database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "jobs.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Submit inserts a new pending job carrying an opaque settings document.
func (s *Store) Submit(ctx context.Context, settingsJSON string) (*Job, error) {
	if settingsJSON == "" {
		return nil, errors.New("settings required")
	}
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	id := uuid.NewString()

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (id, status, settings_json, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?)`,
		id,
		StatusPending,
		settingsJSON,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a job by identifier. A missing job returns (nil, nil).
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// NextPending returns the oldest pending job, or nil when the queue is idle.
func (s *Store) NextPending(ctx context.Context) (*Job, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE status = ? ORDER BY created_at LIMIT 1`,
		StatusPending,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next pending job: %w", err)
	}
	return job, nil
}

// Update persists changes to an existing job.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	job.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs
         SET status = ?, settings_json = ?, result_json = ?, error_message = ?,
             batch_id = ?, remote_job_id = ?, video_path = ?, upload_url = ?,
             updated_at = ?, started_at = ?, finished_at = ?
         WHERE id = ?`,
		job.Status,
		job.SettingsJSON,
		nullableString(job.ResultJSON),
		nullableString(job.ErrorMessage),
		nullableString(job.BatchID),
		nullableString(job.RemoteJobID),
		nullableString(job.VideoPath),
		nullableString(job.UploadURL),
		job.UpdatedAt.Format(time.RFC3339Nano),
		nullableTime(job.StartedAt),
		nullableTime(job.FinishedAt),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// List returns jobs filtered by status set (or all jobs when no status is
// provided), oldest first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + jobColumns + ` FROM jobs`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE status IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var result []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, job)
	}
	return result, rows.Err()
}

// ResetStuckRunning fails jobs left running by a previous process, so a
// restart never resumes a relay whose service-side state is unknown.
func (s *Store) ResetStuckRunning(ctx context.Context) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs
         SET status = ?, error_message = 'Interrupted by worker restart', updated_at = ?, finished_at = ?
         WHERE status = ?`,
		StatusFailed,
		now,
		now,
		StatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck jobs: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates job state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusPending:
			health.Pending += count
		case StatusRunning:
			health.Running += count
		case StatusCompleted:
			health.Completed += count
		case StatusFailed:
			health.Failed += count
		}
	}
	return health, nil
}

const jobColumns = "id, status, settings_json, result_json, error_message, batch_id, remote_job_id, video_path, upload_url, created_at, updated_at, started_at, finished_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id          string
		statusStr   string
		settings    string
		result      sql.NullString
		errMessage  sql.NullString
		batchID     sql.NullString
		remoteJobID sql.NullString
		videoPath   sql.NullString
		uploadURL   sql.NullString
		createdRaw  string
		updatedRaw  string
		startedRaw  sql.NullString
		finishedRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&statusStr,
		&settings,
		&result,
		&errMessage,
		&batchID,
		&remoteJobID,
		&videoPath,
		&uploadURL,
		&createdRaw,
		&updatedRaw,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:           id,
		Status:       Status(statusStr),
		SettingsJSON: settings,
		ResultJSON:   result.String,
		ErrorMessage: errMessage.String,
		BatchID:      batchID.String,
		RemoteJobID:  remoteJobID.String,
		VideoPath:    videoPath.String,
		UploadURL:    uploadURL.String,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	if startedRaw.Valid {
		if started, err := parseTimeString(startedRaw.String); err == nil {
			job.StartedAt = &started
		}
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			job.FinishedAt = &finished
		}
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
