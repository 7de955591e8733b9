package swrcache

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/unkn0wn-root/swrcache/codec"
	"github.com/unkn0wn-root/swrcache/compress"
	pr "github.com/unkn0wn-root/swrcache/provider"
)

type cache[V any] struct {
	provider pr.Provider
	codec    codec.Codec[V]
	log      Logger
	hooks    Hooks
	sched    Scheduler
	now      func() time.Time

	enabled bool

	// instance defaults; never mutated after newCache
	defaults settings[V]
}

// settings is the merged, per-call view of Options and CallOptions.
// It is built fresh for every call and passed by value.
type settings[V any] struct {
	ttr       time.Duration
	ttl       time.Duration
	gzip      compress.Policy
	setFilter func(V) bool
	onError   func(error)
	refresh   bool
}

func newCache[V any](opts Options[V]) (*cache[V], error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("swrcache: provider is required")
	}

	c := &cache[V]{
		provider: opts.Provider,
		enabled:  !opts.Disabled,
	}

	// defaults
	c.codec = opts.Codec
	if c.codec == nil {
		c.codec = defaultCodec[V]()
	}
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	c.sched = coalesce[Scheduler](opts.Scheduler, GoScheduler{})
	c.now = opts.Now
	if c.now == nil {
		c.now = time.Now
	}

	c.defaults = settings[V]{
		ttr:       coalesce[time.Duration](opts.TTR, defaultTTR),
		ttl:       coalesce[time.Duration](opts.TTL, defaultTTL),
		gzip:      coalesce[compress.Policy](opts.Gzip, compress.Never()),
		setFilter: opts.SetFilter,
		onError:   opts.OnError,
	}
	if c.defaults.setFilter == nil {
		c.defaults.setFilter = func(V) bool { return true }
	}
	return c, nil
}

func defaultCodec[V any]() codec.Codec[V] { return codec.JSON[V]{} }

// merge layers o over the instance defaults. The result is a copy; the
// defaults are shared by concurrent calls and stay untouched.
func (c *cache[V]) merge(o CallOptions[V]) settings[V] {
	s := c.defaults
	s.ttr = coalesce[time.Duration](o.TTR, s.ttr)
	s.ttl = coalesce[time.Duration](o.TTL, s.ttl)
	s.gzip = coalesce[compress.Policy](o.Gzip, s.gzip)
	if o.SetFilter != nil {
		s.setFilter = o.SetFilter
	}
	if o.OnError != nil {
		s.onError = o.OnError
	}
	s.refresh = o.Refresh
	return s
}

func (c *cache[V]) Enabled() bool { return c.enabled }

func (c *cache[V]) Close(ctx context.Context) error {
	return c.provider.Close(ctx)
}

func (c *cache[V]) Get(ctx context.Context, args Args, src Source[V]) (V, error) {
	return c.GetWith(ctx, args, src, CallOptions[V]{})
}

func (c *cache[V]) GetWith(ctx context.Context, args Args, src Source[V], opts CallOptions[V]) (V, error) {
	var zero V
	if err := validate(args, true); err != nil {
		return zero, err
	}
	if src == nil {
		return zero, &ValidationError{Field: "source", Reason: "required"}
	}
	s := c.merge(opts)

	if !c.enabled {
		return c.callSource(ctx, args, src, s)
	}
	if s.refresh {
		return c.sourceAndSet(ctx, args, src, s)
	}

	rec, v, ok, err := c.read(ctx, args, s)
	if err != nil {
		// undecodable payload: not a miss unless the caller opted into OnError
		if s.onError == nil {
			return zero, err
		}
		s.onError(err)
		return c.sourceAndSet(ctx, args, src, s)
	}
	if !ok {
		return c.sourceAndSet(ctx, args, src, s)
	}

	if Stale(rec.CreatedAt, s.ttr, c.now()) {
		c.hooks.StaleServed(args.Namespace, args.ID)
		c.log.Debug("serving stale record; refresh scheduled", Fields{"ns": args.Namespace, "id": args.ID, "createdAt": rec.CreatedAt})
		c.refreshInBackground(ctx, args, src, s)
	}
	return v, nil
}

// sourceAndSet runs the source and writes its value through. The source's
// value is returned even when the write fails or is filtered out.
func (c *cache[V]) sourceAndSet(ctx context.Context, args Args, src Source[V], s settings[V]) (V, error) {
	v, err := src(ctx, args)
	if err != nil {
		return c.sourceFailed(err, s)
	}
	if err := c.writeThrough(ctx, args, v, s); err != nil {
		c.log.Warn("write-through failed", Fields{"ns": args.Namespace, "id": args.ID, "err": err})
		if s.onError == nil {
			return v, err
		}
		s.onError(err)
	}
	return v, nil
}

func (c *cache[V]) callSource(ctx context.Context, args Args, src Source[V], s settings[V]) (V, error) {
	v, err := src(ctx, args)
	if err != nil {
		return c.sourceFailed(err, s)
	}
	return v, nil
}

// sourceFailed converts a source error into an empty result when OnError is
// configured.
func (c *cache[V]) sourceFailed(err error, s settings[V]) (V, error) {
	var zero V
	if s.onError == nil {
		return zero, err
	}
	s.onError(err)
	return zero, nil
}

// read loads and decodes one record. Provider failures and empty payloads
// come back as a miss; only decompression or codec failures are errors.
func (c *cache[V]) read(ctx context.Context, args Args, s settings[V]) (Record, V, bool, error) {
	var zero V
	rec, ok, err := c.provider.Get(ctx, args.Namespace, args.ID)
	if err != nil {
		serr := &StorageError{Op: "get", Namespace: args.Namespace, ID: args.ID, Err: err}
		c.hooks.ReadDegraded(args.Namespace, args.ID, serr)
		c.log.Warn("provider read failed; treating as miss", Fields{"ns": args.Namespace, "id": args.ID, "err": err})
		if s.onError != nil {
			s.onError(serr)
		}
		return Record{}, zero, false, nil
	}
	if !ok || len(rec.Value) == 0 {
		return Record{}, zero, false, nil
	}

	payload, err := compress.Decode(rec.Value)
	if err != nil {
		return Record{}, zero, false, fmt.Errorf("swrcache: read %q/%q: %w", args.Namespace, args.ID, err)
	}
	v, err := c.codec.Decode(payload)
	if err != nil {
		return Record{}, zero, false, fmt.Errorf("swrcache: decode %q/%q: %w", args.Namespace, args.ID, err)
	}
	return rec, v, true, nil
}

// writeThrough persists v unless the SetFilter rejects it.
func (c *cache[V]) writeThrough(ctx context.Context, args Args, v V, s settings[V]) error {
	if !s.setFilter(v) {
		c.hooks.WriteFiltered(args.Namespace, args.ID)
		c.log.Debug("value rejected by set filter", Fields{"ns": args.Namespace, "id": args.ID})
		return nil
	}
	return c.write(ctx, args, v, s)
}

// write serializes, compresses and stores v stamped with the current time.
// Empty values are never persisted.
func (c *cache[V]) write(ctx context.Context, args Args, v V, s settings[V]) error {
	if err := validate(args, true); err != nil {
		return err
	}
	if isEmpty(v) {
		return nil
	}
	payload, err := c.codec.Encode(v)
	if err != nil {
		return fmt.Errorf("swrcache: encode %q/%q: %w", args.Namespace, args.ID, err)
	}
	if len(payload) == 0 {
		return nil
	}
	body, err := compress.Encode(payload, s.gzip)
	if err != nil {
		return fmt.Errorf("swrcache: compress %q/%q: %w", args.Namespace, args.ID, err)
	}

	nowMs := c.now().UnixMilli()
	ok, err := c.provider.Set(ctx, Record{
		Namespace: args.Namespace,
		ID:        args.ID,
		Value:     body,
		CreatedAt: nowMs,
		TTL:       expiresAt(nowMs, s.ttl),
	})
	if err != nil {
		serr := &StorageError{Op: "set", Namespace: args.Namespace, ID: args.ID, Err: err}
		c.hooks.WriteFailed(args.Namespace, args.ID, serr)
		return serr
	}
	if !ok {
		c.hooks.SetRejected(args.Namespace, args.ID)
		c.log.Debug("set rejected by provider (pressure)", Fields{"ns": args.Namespace, "id": args.ID})
	}
	return nil
}

func (c *cache[V]) Set(ctx context.Context, args Args, v V) error {
	if err := validate(args, true); err != nil {
		return err
	}
	if !c.enabled {
		return nil
	}
	return c.writeThrough(ctx, args, v, c.defaults)
}

func (c *cache[V]) Del(ctx context.Context, args Args) error {
	if err := validate(args, true); err != nil {
		return err
	}
	if !c.enabled {
		return nil
	}
	if err := c.provider.Del(ctx, args.Namespace, args.ID); err != nil {
		return &StorageError{Op: "del", Namespace: args.Namespace, ID: args.ID, Err: err}
	}
	return nil
}

func (c *cache[V]) MarkToRefresh(ctx context.Context, args Args) error {
	if err := validate(args, true); err != nil {
		return err
	}
	if !c.enabled {
		return nil
	}
	rec, ok, err := c.provider.Get(ctx, args.Namespace, args.ID)
	if err != nil {
		return &StorageError{Op: "get", Namespace: args.Namespace, ID: args.ID, Err: err}
	}
	if !ok {
		c.log.Debug("mark to refresh: no record", Fields{"ns": args.Namespace, "id": args.ID})
		return nil
	}

	// payload and TTL stay as stored
	rec.Namespace, rec.ID = args.Namespace, args.ID
	rec.CreatedAt = 0
	ok, err = c.provider.Set(ctx, rec)
	if err != nil {
		return &StorageError{Op: "set", Namespace: args.Namespace, ID: args.ID, Err: err}
	}
	if !ok {
		// record keeps its old CreatedAt
		c.hooks.SetRejected(args.Namespace, args.ID)
		c.log.Debug("mark to refresh rejected by provider (pressure)", Fields{"ns": args.Namespace, "id": args.ID})
	}
	return nil
}

func (c *cache[V]) Clear(ctx context.Context, args Args) error {
	if err := validate(args, false); err != nil {
		return err
	}
	if !c.enabled {
		return nil
	}
	if err := c.provider.Clear(ctx, args.Namespace, args.ID); err != nil {
		return &StorageError{Op: "clear", Namespace: args.Namespace, ID: args.ID, Err: err}
	}
	return nil
}

// isEmpty reports whether v must not be persisted: the zero value of V, or a
// string, slice or map with no elements.
func isEmpty[V any](v V) bool {
	rv := reflect.ValueOf(any(v))
	if !rv.IsValid() {
		return true
	}
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map:
		return rv.Len() == 0
	}
	return rv.IsZero()
}
