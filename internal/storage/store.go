package storage

import (
	"context"
	"errors"
)

var ErrKeyNotFound = errors.New("key not found")

// Store is the durable key-value store behind the persistence adapter.
// Values are opaque strings; the adapter owns encoding.
type Store interface {
	// Get returns ErrKeyNotFound when the key was never written or was deleted
	Get(ctx context.Context, key string) (string, error)

	Set(ctx context.Context, key, value string) error

	// Delete is a no-op for absent keys
	Delete(ctx context.Context, key string) error

	Ping(ctx context.Context) error

	Close() error
}
