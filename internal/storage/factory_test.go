package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoreMemory(t *testing.T) {
	store, err := NewStore("memory", "")
	require.NoError(t, err)
	assert.NotNil(t, store)
}

func TestNewStoreBadgerDefaultsPath(t *testing.T) {
	store, err := NewStore("badger", "")
	require.NoError(t, err)
	badgerStore, ok := store.(*BadgerStore)
	require.True(t, ok, "expected badger store, got %T", store)
	assert.Equal(t, "tsevolve.badger", badgerStore.path)
}

func TestNewStoreUnsupported(t *testing.T) {
	_, err := NewStore("unknown", "")
	assert.Error(t, err)
}

func TestCloseIfSupported(t *testing.T) {
	assert.NoError(t, CloseIfSupported(NewMemoryStore()))
	assert.NoError(t, CloseIfSupported(NewBadgerStore(InMemoryPath)), "uninitialized badger store")
}
