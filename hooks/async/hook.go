// Package asynchook moves Hooks calls off the Get path onto a small worker
// pool. Events are dropped when the queue is full.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    StaleEvery: 100, // sample logs: ~every 100th stale read
//	})
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	cache, _ := swrcache.New[User](swrcache.Options[User]{
//	    Provider: provider,
//	    Codec:    codec.JSON[User]{},
//	    Hooks:    hooks, // or `raw` if you don’t want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/swrcache"
)

type Hooks struct {
	inner   swrcache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

var _ swrcache.Hooks = (*Hooks)(nil)

func New(inner swrcache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close stops accepting events and waits for queued ones to run.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped reports how many events were discarded on a full queue or after Close.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) StaleServed(ns, id string) { h.try(func() { h.inner.StaleServed(ns, id) }) }
func (h *Hooks) WriteFiltered(ns, id string) {
	h.try(func() { h.inner.WriteFiltered(ns, id) })
}
func (h *Hooks) SetRejected(ns, id string) { h.try(func() { h.inner.SetRejected(ns, id) }) }
func (h *Hooks) ReadDegraded(ns, id string, err error) {
	h.try(func() { h.inner.ReadDegraded(ns, id, err) })
}
func (h *Hooks) WriteFailed(ns, id string, err error) {
	h.try(func() { h.inner.WriteFailed(ns, id, err) })
}
func (h *Hooks) RefreshFailed(ns, id string, err error) {
	h.try(func() { h.inner.RefreshFailed(ns, id, err) })
}
