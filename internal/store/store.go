// Package store provides the blob storage the ledger is written through.
// Keys are slash separated and relative to the store root.
package store

import (
	"context"
	"path"
	"strings"

	"github.com/covid19datasets/sitrep/pkg/errors"
)

// Store is a flat key/value blob store.
type Store interface {
	// Get returns the object at key, or a NotFoundError.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put replaces the object at key. Readers never see a partial object.
	Put(ctx context.Context, key string, data []byte) error
	// List returns the keys under prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Exists reports whether key is present.
func Exists(ctx context.Context, s Store, key string) (bool, error) {
	_, err := s.Get(ctx, key)
	if err == nil {
		return true, nil
	}
	if errors.IsNotFound(err) {
		return false, nil
	}
	return false, err
}

// CleanKey validates and normalizes a key.
func CleanKey(key string) (string, error) {
	if key == "" {
		return "", errors.NewConfigError("store", "object key is required", nil)
	}
	clean := path.Clean(strings.TrimPrefix(key, "/"))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", errors.NewConfigError("store", "invalid object key "+key, nil)
	}
	return clean, nil
}
