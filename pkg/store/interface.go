// Package store provides the small persistent key/value store the dashboard
// keeps on the client: the bearer token and similar per-context state.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("key not found")

// Well-known keys.
const (
	// KeyToken holds the raw bearer token of the signed-in user.
	KeyToken = "token"
)

// Store is a namespaced string key/value store. Namespaces keep the state of
// different CLI contexts (servers) apart.
type Store interface {
	// Open initializes and opens the store.
	Open(path string) error

	// Close closes the store and releases resources.
	Close() error

	// Get returns the value under key or ErrNotFound.
	Get(ctx context.Context, namespace, key string) (string, error)

	// Set stores value under key.
	Set(ctx context.Context, namespace, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, namespace, key string) error

	// Clear removes every key in namespace.
	Clear(ctx context.Context, namespace string) error

	// Keys lists the keys of namespace in lexical order.
	Keys(ctx context.Context, namespace string) ([]string, error)
}

// IsNotFound reports whether err is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
