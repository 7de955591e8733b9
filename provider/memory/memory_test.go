package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	pr "github.com/unkn0wn-root/swrcache/provider"
)

func TestSetGetIsolatesCallerBuffers(t *testing.T) {
	ctx := context.Background()
	p := New(Config{})
	defer p.Close(ctx)

	val := []byte("hello")
	ok, err := p.Set(ctx, pr.Record{Namespace: "ns", ID: "k", Value: val, CreatedAt: 10, TTL: time.Now().Add(time.Hour).Unix()})
	require.NoError(t, err)
	require.True(t, ok)
	val[0] = 'X'

	got, hit, err := p.Get(ctx, "ns", "k")
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, "hello", string(got.Value))
	require.EqualValues(t, 10, got.CreatedAt)

	got.Value[0] = 'Y'
	again, _, _ := p.Get(ctx, "ns", "k")
	require.Equal(t, "hello", string(again.Value))
}

func TestTTLExpiry(t *testing.T) {
	ctx := context.Background()
	p := New(Config{CleanupInterval: time.Hour})
	defer p.Close(ctx)

	base := time.Now()
	p.now = func() time.Time { return base }

	_, err := p.Set(ctx, pr.Record{Namespace: "ns", ID: "past", Value: []byte("v"), TTL: base.Add(-time.Second).Unix()})
	require.NoError(t, err)
	_, hit, _ := p.Get(ctx, "ns", "past")
	require.False(t, hit)

	_, err = p.Set(ctx, pr.Record{Namespace: "ns", ID: "forever", Value: []byte("v")})
	require.NoError(t, err)
	_, hit, _ = p.Get(ctx, "ns", "forever")
	require.True(t, hit, "non-positive TTL means no expiry")
}

func TestClearAndDel(t *testing.T) {
	ctx := context.Background()
	p := New(Config{})
	defer p.Close(ctx)

	for _, r := range []pr.Record{
		{Namespace: "ns", ID: "user:1", Value: []byte("a")},
		{Namespace: "ns", ID: "user:2", Value: []byte("b")},
		{Namespace: "ns", ID: "order:1", Value: []byte("c")},
		{Namespace: "n", ID: "s:user:1", Value: []byte("d")},
	} {
		_, err := p.Set(ctx, r)
		require.NoError(t, err)
	}
	require.Equal(t, 4, p.Len())

	require.NoError(t, p.Clear(ctx, "ns", "user:"))
	require.Equal(t, 2, p.Len())

	require.NoError(t, p.Del(ctx, "ns", "order:1"))
	require.NoError(t, p.Del(ctx, "ns", "order:1"))
	_, hit, _ := p.Get(ctx, "n", "s:user:1")
	require.True(t, hit, "length-prefixed keys keep namespaces apart")
}

func TestClosed(t *testing.T) {
	ctx := context.Background()
	p := New(Config{})
	require.NoError(t, p.Close(ctx))
	require.NoError(t, p.Close(ctx))

	_, _, err := p.Get(ctx, "ns", "k")
	require.ErrorIs(t, err, pr.ErrClosed)
	_, err = p.Set(ctx, pr.Record{Namespace: "ns", ID: "k"})
	require.ErrorIs(t, err, pr.ErrClosed)
	require.ErrorIs(t, p.Del(ctx, "ns", "k"), pr.ErrClosed)
	require.ErrorIs(t, p.Clear(ctx, "ns", ""), pr.ErrClosed)
}
