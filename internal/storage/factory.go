package storage

import (
	"errors"
	"fmt"
)

var errNotInitialized = errors.New("store is not initialized")

// NewStore builds a backend by name. An empty path selects DefaultPath(kind).
func NewStore(kind, path string) (Store, error) {
	if path == "" {
		path = DefaultPath(kind)
	}
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "badger":
		return NewBadgerStore(path), nil
	case "sqlite":
		return newSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

func DefaultPath(kind string) string {
	switch kind {
	case "sqlite":
		return "tsevolve.db"
	case "badger":
		return "tsevolve.badger"
	default:
		return ""
	}
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
