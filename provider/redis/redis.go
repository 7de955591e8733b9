package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/swrcache/internal/util"
	"github.com/unkn0wn-root/swrcache/internal/wire"
	pr "github.com/unkn0wn-root/swrcache/provider"
)

var ErrNilClient = errors.New("redis provider: nil client")

const (
	defaultPrefix = "swr"
	scanCount     = 512
)

type Redis struct {
	rdb         goredis.UniversalClient
	closeClient bool
	prefix      string
	now         func() time.Time
}

var _ pr.Provider = (*Redis)(nil)

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool   // set true only if this provider exclusively owns the client
	Prefix      string // key prefix; "" => "swr"
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Redis{rdb: cfg.Client, closeClient: cfg.CloseClient, prefix: prefix, now: time.Now}, nil
}

func (p *Redis) key(ns, id string) string { return util.Key(p.prefix, ns, id) }

func (p *Redis) Get(ctx context.Context, namespace, id string) (pr.Record, bool, error) {
	b, err := p.rdb.Get(ctx, p.key(namespace, id)).Bytes()
	if err == goredis.Nil {
		return pr.Record{}, false, nil // miss
	}
	if err != nil {
		return pr.Record{}, false, err // transport/server error
	}
	rec, err := wire.DecodeRecord(b)
	if err != nil {
		return pr.Record{}, false, err
	}
	return rec, true, nil
}

// Set stores rec with EXAT rec.TTL. A non-positive TTL means no expiry; a TTL
// already in the past deletes the key instead.
func (p *Redis) Set(ctx context.Context, rec pr.Record) (bool, error) {
	b, err := wire.EncodeRecord(rec)
	if err != nil {
		return false, err
	}
	key := p.key(rec.Namespace, rec.ID)

	var args goredis.SetArgs
	if rec.TTL > 0 {
		exp := time.Unix(rec.TTL, 0)
		if !exp.After(p.now()) {
			return true, p.rdb.Del(ctx, key).Err()
		}
		args.ExpireAt = exp
	}
	if err := p.rdb.SetArgs(ctx, key, b, args).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Redis) Del(ctx context.Context, namespace, id string) error {
	return p.rdb.Del(ctx, p.key(namespace, id)).Err()
}

// Clear scans for keys under namespace (and idPrefix) and deletes them in
// batches. On a cluster client every master is scanned.
func (p *Redis) Clear(ctx context.Context, namespace, idPrefix string) error {
	match := util.GlobEscape(util.Scope(p.prefix, namespace)+idPrefix) + "*"
	if cc, ok := p.rdb.(*goredis.ClusterClient); ok {
		return cc.ForEachMaster(ctx, func(ctx context.Context, node *goredis.Client) error {
			return clearNode(ctx, node, match)
		})
	}
	return clearNode(ctx, p.rdb, match)
}

func clearNode(ctx context.Context, c goredis.Cmdable, match string) error {
	var cursor uint64
	for {
		keys, next, err := c.Scan(ctx, cursor, match, scanCount).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Close releases the underlying redis client only when this provider owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (p *Redis) Close(context.Context) error {
	if p.closeClient {
		if err := p.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
