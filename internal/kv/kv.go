// Package kv stores opaque text blobs by key.
package kv

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned by Get for a key that was never written.
var ErrNotFound = errors.New("key not found")

// Store is a minimal key-value store. Put replaces the whole value or
// leaves the previous one in place.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Backends lists the supported backend names.
func Backends() []string {
	return []string{BackendFile, BackendSQLite}
}

// Open returns the store for backend rooted at path. For the file backend
// path is a directory, for sqlite a database file.
func Open(backend, path string) (Store, error) {
	switch backend {
	case BackendFile:
		return NewFileStore(path)
	case BackendSQLite:
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q, want one of %s", backend, strings.Join(Backends(), ", "))
	}
}

func checkKey(key string) error {
	if key == "" {
		return errors.New("empty key")
	}
	if strings.ContainsAny(key, `/\`) || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return fmt.Errorf("invalid key %q", key)
	}
	return nil
}
