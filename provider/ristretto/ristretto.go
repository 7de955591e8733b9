package ristretto

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/swrcache/internal/util"
	"github.com/unkn0wn-root/swrcache/internal/wire"
	pr "github.com/unkn0wn-root/swrcache/provider"
)

const keyPrefix = "swr"

// Provider keeps wire-encoded records in a ristretto cache. Ristretto hashes
// its keys, so a namespace -> ids index is kept alongside to support Clear.
// The index is a superset of what the cache holds: a miss does not prune it
// because ristretto applies writes asynchronously and the id may still land.
// Entries for evicted or expired ids are dropped by Clear and Del.
type Provider struct {
	c    *rc.Cache
	sync bool
	now  func() time.Time

	mu  sync.Mutex
	idx map[string]map[string]struct{}
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64 // total bytes of encoded records
	BufferItems int64
	Metrics     bool

	// SyncWrites waits for each Set to be applied before returning, so a Get
	// right after Set sees the record. Ristretto buffers writes otherwise.
	SyncWrites bool
}

func New(cfg Config) (*Provider, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{
		c:    c,
		sync: cfg.SyncWrites,
		now:  time.Now,
		idx:  make(map[string]map[string]struct{}),
	}, nil
}

func (p *Provider) Get(_ context.Context, namespace, id string) (pr.Record, bool, error) {
	key := util.Key(keyPrefix, namespace, id)
	v, ok := p.c.Get(key)
	if !ok {
		return pr.Record{}, false, nil
	}
	b, _ := v.([]byte)
	rec, err := wire.DecodeRecord(b)
	if err != nil {
		// self-heal: drop unexpected entry shape
		p.c.Del(key)
		p.forget(namespace, id)
		return pr.Record{}, false, nil
	}
	return rec, true, nil
}

// Set admits rec with cost equal to its encoded size. ok=false means
// ristretto dropped the write (admission policy or full buffers).
func (p *Provider) Set(_ context.Context, rec pr.Record) (bool, error) {
	b, err := wire.EncodeRecord(rec)
	if err != nil {
		return false, err
	}
	key := util.Key(keyPrefix, rec.Namespace, rec.ID)

	var ttl time.Duration
	if rec.TTL > 0 {
		ttl = time.Unix(rec.TTL, 0).Sub(p.now())
		if ttl <= 0 {
			p.c.Del(key)
			p.forget(rec.Namespace, rec.ID)
			return true, nil
		}
	}

	// indexed before the write is queued so a concurrent Clear cannot miss it
	p.remember(rec.Namespace, rec.ID)
	ok := p.c.SetWithTTL(key, b, int64(len(b)), ttl)
	if ok && p.sync {
		p.c.Wait()
	}
	return ok, nil
}

func (p *Provider) Del(_ context.Context, namespace, id string) error {
	p.c.Del(util.Key(keyPrefix, namespace, id))
	p.forget(namespace, id)
	return nil
}

func (p *Provider) Clear(_ context.Context, namespace, idPrefix string) error {
	p.mu.Lock()
	ids := p.idx[namespace]
	var doomed []string
	for id := range ids {
		if strings.HasPrefix(id, idPrefix) {
			doomed = append(doomed, id)
			delete(ids, id)
		}
	}
	if len(ids) == 0 {
		delete(p.idx, namespace)
	}
	p.mu.Unlock()

	for _, id := range doomed {
		p.c.Del(util.Key(keyPrefix, namespace, id))
	}
	return nil
}

func (p *Provider) Close(_ context.Context) error {
	p.c.Wait()
	p.c.Close()
	return nil
}

// Helper to expose metrics if desired by the application (not part of provider.Provider).
func (p *Provider) Metrics() *rc.Metrics { return p.c.Metrics }

func (p *Provider) remember(ns, id string) {
	p.mu.Lock()
	ids := p.idx[ns]
	if ids == nil {
		ids = make(map[string]struct{})
		p.idx[ns] = ids
	}
	ids[id] = struct{}{}
	p.mu.Unlock()
}

func (p *Provider) forget(ns, id string) {
	p.mu.Lock()
	if ids := p.idx[ns]; ids != nil {
		delete(ids, id)
		if len(ids) == 0 {
			delete(p.idx, ns)
		}
	}
	p.mu.Unlock()
}
