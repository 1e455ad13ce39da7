//go:build sqlite

package storage

// DefaultStoreKind is the durable backend available in this build.
func DefaultStoreKind() string {
	return "sqlite"
}

func newSQLiteStore(path string) (Store, error) {
	return NewSQLiteStore(path), nil
}
