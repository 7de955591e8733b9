// Package provider defines the storage abstraction used by swrcache.
//
// A Provider persists Records verbatim: Get must return the same Value,
// CreatedAt and TTL that were previously handed to Set for a namespace/id.
// Implementations must not transcode Value. Compression and serialization are
// owned by swrcache and are self-describing on read.
//
// TTL is an absolute expiry instant in unix seconds. Providers may use it for
// native expiry or ignore it; swrcache never acts on it.
package provider

import (
	"context"
	"errors"
)

// ErrClosed is returned by providers that own resources after Close.
var ErrClosed = errors.New("provider: closed")

// Record is the persisted unit.
type Record struct {
	Namespace string
	ID        string
	Value     []byte
	CreatedAt int64 // unix ms, set on every write
	TTL       int64 // unix seconds, storage hint
}

// Provider is a minimal record store keyed by namespace and id.
// Must be safe for concurrent use; background refreshes call Set from
// their own goroutines.
type Provider interface {
	// Get returns (rec, true, nil) on hit; (Record{}, false, nil) on miss.
	// If an IO/remote error happens, return (Record{}, false, err).
	Get(ctx context.Context, namespace, id string) (Record, bool, error)

	// Set stores rec. Must be idempotent under retries.
	// Returns ok=false when the store rejected the write under pressure.
	Set(ctx context.Context, rec Record) (ok bool, err error)

	// Del removes a single record (best-effort; missing is not an error).
	Del(ctx context.Context, namespace, id string) error

	// Clear removes every record in namespace. A non-empty idPrefix limits
	// the removal to ids starting with idPrefix.
	Clear(ctx context.Context, namespace, idPrefix string) error

	// Close releases resources.
	Close(ctx context.Context) error
}
