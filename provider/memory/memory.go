// Package memory is an in-process Provider backed by patrickmn/go-cache.
// Records expire natively at their TTL; a janitor sweeps expired entries.
package memory

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/unkn0wn-root/swrcache/internal/util"
	pr "github.com/unkn0wn-root/swrcache/provider"
)

const (
	keyPrefix              = "swr"
	defaultCleanupInterval = 5 * time.Minute
)

type Provider struct {
	cache  *gocache.Cache
	now    func() time.Time
	closed atomic.Bool
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	CleanupInterval time.Duration // janitor period; 0 => 5m
}

func New(cfg Config) *Provider {
	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = defaultCleanupInterval
	}
	return &Provider{
		cache: gocache.New(gocache.NoExpiration, interval),
		now:   time.Now,
	}
}

func (p *Provider) Get(_ context.Context, namespace, id string) (pr.Record, bool, error) {
	if p.closed.Load() {
		return pr.Record{}, false, pr.ErrClosed
	}
	item, ok := p.cache.Get(util.Key(keyPrefix, namespace, id))
	if !ok {
		return pr.Record{}, false, nil
	}
	rec, ok := item.(pr.Record)
	if !ok {
		return pr.Record{}, false, nil
	}
	return clone(rec), true, nil
}

func (p *Provider) Set(_ context.Context, rec pr.Record) (bool, error) {
	if p.closed.Load() {
		return false, pr.ErrClosed
	}
	key := util.Key(keyPrefix, rec.Namespace, rec.ID)
	ttl := gocache.NoExpiration
	if rec.TTL > 0 {
		ttl = time.Unix(rec.TTL, 0).Sub(p.now())
		if ttl <= 0 {
			p.cache.Delete(key)
			return true, nil
		}
	}
	p.cache.Set(key, clone(rec), ttl)
	return true, nil
}

func (p *Provider) Del(_ context.Context, namespace, id string) error {
	if p.closed.Load() {
		return pr.ErrClosed
	}
	p.cache.Delete(util.Key(keyPrefix, namespace, id))
	return nil
}

func (p *Provider) Clear(_ context.Context, namespace, idPrefix string) error {
	if p.closed.Load() {
		return pr.ErrClosed
	}
	scope := util.Scope(keyPrefix, namespace) + idPrefix
	for key := range p.cache.Items() {
		if strings.HasPrefix(key, scope) {
			p.cache.Delete(key)
		}
	}
	return nil
}

// Close drops every record. Later calls fail with provider.ErrClosed.
func (p *Provider) Close(_ context.Context) error {
	if p.closed.CompareAndSwap(false, true) {
		p.cache.Flush()
	}
	return nil
}

// Len reports the number of stored records, including expired ones the
// janitor has not swept yet.
func (p *Provider) Len() int { return p.cache.ItemCount() }

func clone(rec pr.Record) pr.Record {
	if rec.Value != nil {
		rec.Value = append([]byte(nil), rec.Value...)
	}
	return rec
}
