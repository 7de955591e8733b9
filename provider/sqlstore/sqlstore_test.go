package sqlstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	pr "github.com/unkn0wn-root/swrcache/provider"
)

func newSQLite(t *testing.T) *Provider {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "swr.db")
	p, err := New(context.Background(), Config{DriverName: "sqlite", DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	return p
}

func TestConfigValidation(t *testing.T) {
	ctx := context.Background()
	_, err := New(ctx, Config{DriverName: "oracle", DSN: "x"})
	require.Error(t, err)
	_, err = New(ctx, Config{DriverName: "sqlite"})
	require.Error(t, err)
	_, err = New(ctx, Config{DriverName: "sqlite", DSN: "x", Table: "bad-name;"})
	require.Error(t, err)
}

func TestValidateSQLTableName(t *testing.T) {
	require.NoError(t, validateSQLTableName("swr_records"))
	require.NoError(t, validateSQLTableName("cache.swr_records"))
	require.Error(t, validateSQLTableName(" "))
	require.Error(t, validateSQLTableName("1abc"))
	require.Error(t, validateSQLTableName("a.b-c"))
}

func TestUpsertRoundTrip(t *testing.T) {
	ctx := context.Background()
	p := newSQLite(t)

	exp := time.Now().Add(time.Hour).Unix()
	rec := pr.Record{Namespace: "ns", ID: "k1", Value: []byte{0x1f, 0x8b, 0x08, 0x00}, CreatedAt: 1700000000000, TTL: exp}
	ok, err := p.Set(ctx, rec)
	require.NoError(t, err)
	require.True(t, ok)

	got, hit, err := p.Get(ctx, "ns", "k1")
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, rec, got)

	rec.CreatedAt = 0
	_, err = p.Set(ctx, rec)
	require.NoError(t, err)
	got, _, err = p.Get(ctx, "ns", "k1")
	require.NoError(t, err)
	require.Zero(t, got.CreatedAt, "upsert must overwrite created_at")
	require.Equal(t, exp, got.TTL)
}

func TestExpiredRowsAreMisses(t *testing.T) {
	ctx := context.Background()
	p := newSQLite(t)

	base := time.Now()
	p.now = func() time.Time { return base }

	_, err := p.Set(ctx, pr.Record{Namespace: "ns", ID: "old", Value: []byte("v"), TTL: base.Unix() - 1})
	require.NoError(t, err)
	_, err = p.Set(ctx, pr.Record{Namespace: "ns", ID: "forever", Value: []byte("v")})
	require.NoError(t, err)
	_, err = p.Set(ctx, pr.Record{Namespace: "ns", ID: "stale", Value: []byte("v"), TTL: base.Unix() - 5})
	require.NoError(t, err)

	_, hit, err := p.Get(ctx, "ns", "old")
	require.NoError(t, err)
	require.False(t, hit)

	n, err := p.Purge(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n, "old was already dropped on read")

	_, hit, _ = p.Get(ctx, "ns", "forever")
	require.True(t, hit)
}

func TestClearScopesAndEscapes(t *testing.T) {
	ctx := context.Background()
	p := newSQLite(t)

	for _, id := range []string{"user:1", "user:2", "user_x", "userAx", "100%", "1000", "order:1"} {
		_, err := p.Set(ctx, pr.Record{Namespace: "ns", ID: id, Value: []byte(id)})
		require.NoError(t, err)
	}
	_, err := p.Set(ctx, pr.Record{Namespace: "other", ID: "user:1", Value: []byte("x")})
	require.NoError(t, err)

	require.NoError(t, p.Clear(ctx, "ns", "user_"))
	_, hit, _ := p.Get(ctx, "ns", "userAx")
	require.True(t, hit, "underscore must match literally")
	_, hit, _ = p.Get(ctx, "ns", "user_x")
	require.False(t, hit)

	require.NoError(t, p.Clear(ctx, "ns", "100%"))
	_, hit, _ = p.Get(ctx, "ns", "1000")
	require.True(t, hit, "percent must match literally")

	require.NoError(t, p.Clear(ctx, "ns", "user:"))
	_, hit, _ = p.Get(ctx, "ns", "user:2")
	require.False(t, hit)
	_, hit, _ = p.Get(ctx, "ns", "order:1")
	require.True(t, hit)

	require.NoError(t, p.Clear(ctx, "ns", ""))
	_, hit, _ = p.Get(ctx, "ns", "order:1")
	require.False(t, hit)
	_, hit, _ = p.Get(ctx, "other", "user:1")
	require.True(t, hit)

	require.NoError(t, p.Del(ctx, "other", "user:1"))
	require.NoError(t, p.Del(ctx, "other", "user:1"))
}

func TestLikeEscape(t *testing.T) {
	require.Equal(t, "plain", likeEscape("plain"))
	require.Equal(t, `a\_b\%c\\d`, likeEscape(`a_b%c\d`))
}

func TestClearPrefixIsCaseSensitive(t *testing.T) {
	ctx := context.Background()
	p := newSQLite(t)

	for _, id := range []string{"User:1", "user:2", "USER:3"} {
		_, err := p.Set(ctx, pr.Record{Namespace: "ns", ID: id, Value: []byte(id)})
		require.NoError(t, err)
	}

	require.NoError(t, p.Clear(ctx, "ns", "User:"))
	_, hit, err := p.Get(ctx, "ns", "User:1")
	require.NoError(t, err)
	require.False(t, hit)
	for _, id := range []string{"user:2", "USER:3"} {
		_, hit, err := p.Get(ctx, "ns", id)
		require.NoError(t, err)
		require.True(t, hit, "Clear(%q) deleted %q", "User:", id)
	}
}

func TestScopeArgsPerDialect(t *testing.T) {
	sqlite := &Provider{dialect: dialectSQLite, table: defaultTable}
	require.Equal(t, []any{"ns", "a_b", "a_b"}, sqlite.scopeArgs("ns", "a_b"))

	pg := &Provider{dialect: dialectPostgres, table: defaultTable}
	require.Equal(t, []any{"ns", `a\_b%`}, pg.scopeArgs("ns", "a_b"))
	require.Contains(t, pg.scopeSQL(), "$2")
}
