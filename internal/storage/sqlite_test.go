//go:build sqlite

package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStoreBehaviour(t *testing.T) {
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "tsevolve.db"))
	t.Cleanup(func() {
		_ = store.Close()
	})
	exerciseStore(t, store)
}

func TestNewStoreSQLite(t *testing.T) {
	store, err := NewStore("sqlite", filepath.Join(t.TempDir(), "tsevolve.db"))
	require.NoError(t, err)
	_, ok := store.(*SQLiteStore)
	assert.True(t, ok, "expected sqlite store, got %T", store)
}
