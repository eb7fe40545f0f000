package testsupport

import (
	"testing"

	"lofi/internal/config"
	"lofi/internal/history"
)

// MustOpenHistory opens the job history for cfg and closes it when the test ends.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()
	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("history.Open failed: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
