package swrcache

import (
	"context"
	"time"

	c "github.com/unkn0wn-root/swrcache/codec"
	"github.com/unkn0wn-root/swrcache/compress"
	pr "github.com/unkn0wn-root/swrcache/provider"
)

// Record is the persisted unit; see provider.Record.
type Record = pr.Record

// Args addresses a record. Namespace is always required; ID is required by
// every operation except Clear, where it scopes the clear to an id prefix.
type Args struct {
	Namespace string
	ID        string
}

// Source produces a fresh value for args. It is called on a miss, on
// Refresh, and from background refreshes (with a context detached from the
// caller's cancellation).
type Source[V any] func(ctx context.Context, args Args) (V, error)

// Cache is the stale-while-revalidate orchestration API.
type Cache[V any] interface {
	Enabled() bool
	Close(context.Context) error

	// Get returns the cached value for args, falling back to source on a miss.
	// Stale values are returned immediately while a refresh runs in background.
	Get(ctx context.Context, args Args, source Source[V]) (V, error)
	// GetWith is Get with per-call overrides merged over the instance defaults.
	GetWith(ctx context.Context, args Args, source Source[V], opts CallOptions[V]) (V, error)

	// Set writes v through (SetFilter applies). Empty values are a no-op.
	Set(ctx context.Context, args Args, v V) error
	// Del removes a single record.
	Del(ctx context.Context, args Args) error
	// MarkToRefresh keeps the record but resets its CreatedAt to 0, so the
	// next Get treats it as stale. A missing record is a no-op.
	MarkToRefresh(ctx context.Context, args Args) error
	// Clear removes the namespace, or the ids starting with args.ID.
	Clear(ctx context.Context, args Args) error
}

// Options configure a Cache. Only Provider is required.
type Options[V any] struct {
	// Required
	Provider pr.Provider

	Codec     c.Codec[V]      // nil => codec.JSON[V]
	TTR       time.Duration   // time-to-refresh; 0 => 2h, AlwaysStale (< 0) => every read refreshes
	TTL       time.Duration   // retention hint for providers; 0 => 60d
	Gzip      compress.Policy // zero => compress.Never()
	SetFilter func(V) bool    // nil => persist everything
	OnError   func(error)     // nil => errors are returned; see GetWith

	Logger    Logger           // nil => NopLogger
	Hooks     Hooks            // nil => NopHooks
	Scheduler Scheduler        // nil => GoScheduler
	Now       func() time.Time // nil => time.Now
	Disabled  bool             // pass-through: always call source, never touch storage
}

// CallOptions override Options for a single Get. Zero fields inherit.
type CallOptions[V any] struct {
	TTR       time.Duration // 0 inherits; AlwaysStale forces a refresh per read
	TTL       time.Duration
	Gzip      compress.Policy
	SetFilter func(V) bool
	OnError   func(error)

	// Refresh skips the cache read: the source is always called and its
	// value written through.
	Refresh bool
}

func New[V any](opts Options[V]) (Cache[V], error) {
	return newCache[V](opts)
}
