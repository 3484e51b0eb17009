package repositories

import (
	"context"
	"errors"
	"testing"
)

func TestDependencyHealthRepositoryAllHealthy(t *testing.T) {
	repo := NewDependencyHealthRepository(
		DependencyCheck{Name: "firestore", Check: func(context.Context) error { return nil }},
		DependencyCheck{Name: "storage", Check: func(context.Context) error { return nil }},
	)

	status := repo.Check(context.Background())
	if !status.Healthy {
		t.Fatal("expected healthy status")
	}
	if status.Details["firestore"] != "ok" || status.Details["storage"] != "ok" {
		t.Fatalf("unexpected details: %v", status.Details)
	}
}

func TestDependencyHealthRepositoryReportsFailure(t *testing.T) {
	repo := NewDependencyHealthRepository(
		DependencyCheck{Name: "firestore", Check: func(context.Context) error { return nil }},
		DependencyCheck{Name: "redis", Check: func(context.Context) error { return errors.New("connection refused") }},
	)

	status := repo.Check(context.Background())
	if status.Healthy {
		t.Fatal("expected unhealthy status")
	}
	if status.Details["redis"] != "connection refused" {
		t.Fatalf("unexpected redis detail %q", status.Details["redis"])
	}
	if status.Details["firestore"] != "ok" {
		t.Fatalf("unexpected firestore detail %q", status.Details["firestore"])
	}
}

func TestDependencyHealthRepositorySkipsInvalidChecks(t *testing.T) {
	repo := NewDependencyHealthRepository(
		DependencyCheck{Name: "", Check: func(context.Context) error { return errors.New("ignored") }},
		DependencyCheck{Name: "nil-check"},
	)

	status := repo.Check(context.Background())
	if !status.Healthy {
		t.Fatal("invalid checks must not affect health")
	}
	if len(status.Details) != 0 {
		t.Fatalf("expected no details, got %v", status.Details)
	}
}
