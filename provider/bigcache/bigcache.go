package bigcache

import (
	"context"
	"errors"
	"strings"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/swrcache/internal/util"
	"github.com/unkn0wn-root/swrcache/internal/wire"
	pr "github.com/unkn0wn-root/swrcache/provider"
)

const keyPrefix = "swr"

type Provider struct {
	c   *bc.BigCache
	now func() time.Time
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	LifeWindow         time.Duration
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(cfg Config) (*Provider, error) {
	conf := bc.DefaultConfig(cfg.LifeWindow)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.New(context.Background(), conf)
	if err != nil {
		return nil, err
	}
	return &Provider{c: c, now: time.Now}, nil
}

func (p *Provider) Get(_ context.Context, namespace, id string) (pr.Record, bool, error) {
	b, err := p.c.Get(util.Key(keyPrefix, namespace, id))
	if errors.Is(err, bc.ErrEntryNotFound) {
		return pr.Record{}, false, nil
	}
	if err != nil {
		return pr.Record{}, false, err
	}
	rec, err := wire.DecodeRecord(b)
	if err != nil {
		return pr.Record{}, false, err
	}
	return rec, true, nil
}

// Set stores rec. BigCache has no per-entry TTL: entries live for the global
// LifeWindow. A record whose TTL already passed is deleted instead.
func (p *Provider) Set(ctx context.Context, rec pr.Record) (bool, error) {
	if rec.TTL > 0 && !time.Unix(rec.TTL, 0).After(p.now()) {
		return true, p.Del(ctx, rec.Namespace, rec.ID)
	}
	b, err := wire.EncodeRecord(rec)
	if err != nil {
		return false, err
	}
	return true, p.c.Set(util.Key(keyPrefix, rec.Namespace, rec.ID), b)
}

func (p *Provider) Del(_ context.Context, namespace, id string) error {
	err := p.c.Delete(util.Key(keyPrefix, namespace, id))
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil
	}
	return err
}

// Clear walks every shard; keys are matched by their namespace scope and
// collected first so deletes do not race the iterator.
func (p *Provider) Clear(ctx context.Context, namespace, idPrefix string) error {
	scope := util.Scope(keyPrefix, namespace) + idPrefix
	var doomed []string
	it := p.c.Iterator()
	for it.SetNext() {
		if err := ctx.Err(); err != nil {
			return err
		}
		entry, err := it.Value()
		if err != nil {
			// entry evicted mid-iteration
			continue
		}
		if strings.HasPrefix(entry.Key(), scope) {
			doomed = append(doomed, entry.Key())
		}
	}
	for _, k := range doomed {
		if err := p.c.Delete(k); err != nil && !errors.Is(err, bc.ErrEntryNotFound) {
			return err
		}
	}
	return nil
}

func (p *Provider) Close(_ context.Context) error {
	return p.c.Close()
}
