package services_test

import (
	"context"
	"testing"

	"gantry/internal/services"
)

func TestJobIDRoundTrip(t *testing.T) {
	ctx := services.WithJobID(context.Background(), "job-1")
	id, ok := services.JobIDFromContext(ctx)
	if !ok || id != "job-1" {
		t.Fatalf("expected job-1, got %q ok=%v", id, ok)
	}
}

func TestJobIDAbsent(t *testing.T) {
	if _, ok := services.JobIDFromContext(context.Background()); ok {
		t.Fatal("expected no job id on empty context")
	}
	ctx := services.WithJobID(context.Background(), "")
	if _, ok := services.JobIDFromContext(ctx); ok {
		t.Fatal("expected empty id to be ignored")
	}
}
