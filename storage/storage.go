// Package storage defines the key/value persistence contract used by the
// engine. Values are opaque byte slices; callers own serialization.
//
// Two implementations ship with the engine: memstore (in-memory, for tests
// and local runs) and natskv (NATS JetStream KV, for durable deployments).
package storage

import "context"

// KV is the persistence collaborator injected into components that need
// durable state. Implementations must be safe for concurrent use.
//
// Get returns errors.ErrKeyNotFound (possibly wrapped) when the key is
// absent; callers distinguish "no state yet" from real failures with
// errors.Is.
type KV interface {
	// Get retrieves the value stored under key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put creates or replaces the value stored under key.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns all keys with the given prefix. An empty prefix lists
	// every key.
	List(ctx context.Context, prefix string) ([]string, error)
}
