// Package helpers provides shared test fixtures.
package helpers

import (
	"path/filepath"
	"testing"

	store "github.com/xiaot623/loancourt/internal/repository"
)

// NewTestSQLiteStore creates a file-backed store in a per-test temp dir. A
// file (not :memory:) so every pooled connection sees the same database even
// when a background goroutine writes concurrently.
func NewTestSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db")
	s, err := store.NewSQLiteStore(dsn)
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}
