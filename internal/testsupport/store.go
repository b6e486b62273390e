package testsupport

import (
	"context"
	"testing"

	"stemsep/internal/config"
	"stemsep/internal/progress"
)

// MustOpenStore opens the configured progress store and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) progress.Store {
	t.Helper()

	store, err := progress.Open(cfg)
	if err != nil {
		t.Fatalf("progress.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// ProcessedNames loads the persisted processed set in sorted order.
func ProcessedNames(t testing.TB, cfg *config.Config) []string {
	t.Helper()

	set, err := MustOpenStore(t, cfg).Load(context.Background())
	if err != nil {
		t.Fatalf("load progress: %v", err)
	}
	return set.Names()
}
