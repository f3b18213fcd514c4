package testsupport

import (
	"context"
	"testing"

	"gantry/internal/config"
	"gantry/internal/jobs"
)

// MustOpenStore opens a jobs.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()

	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SubmitJob queues a settings document for tests using the provided store.
func SubmitJob(t testing.TB, store *jobs.Store, settingsJSON string) *jobs.Job {
	t.Helper()

	job, err := store.Submit(context.Background(), settingsJSON)
	if err != nil {
		t.Fatalf("store.Submit: %v", err)
	}
	return job
}
