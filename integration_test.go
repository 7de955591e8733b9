package swrcache_test

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/unkn0wn-root/swrcache"
	"github.com/unkn0wn-root/swrcache/codec"
	"github.com/unkn0wn-root/swrcache/compress"
	pr "github.com/unkn0wn-root/swrcache/provider"
	"github.com/unkn0wn-root/swrcache/provider/memory"
	"github.com/unkn0wn-root/swrcache/provider/sqlstore"
)

type profile struct {
	ID   string `json:"id"`
	Bio  string `json:"bio"`
	Hits int    `json:"hits"`
}

// syncScheduler runs refreshes inline so results are observable right after Get.
var syncScheduler = swrcache.SchedulerFunc(func(task func()) { task() })

func exerciseProvider(t *testing.T, p pr.Provider) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().Truncate(time.Millisecond)

	cc, err := swrcache.New[profile](swrcache.Options[profile]{
		Provider:  p,
		Codec:     codec.Msgpack[profile]{},
		TTR:       time.Minute,
		Gzip:      compress.Above(1),
		Scheduler: syncScheduler,
		Now:       func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer cc.Close(ctx)

	hits := 0
	src := func(_ context.Context, a swrcache.Args) (profile, error) {
		hits++
		return profile{ID: a.ID, Bio: strings.Repeat("b", 3000), Hits: hits}, nil
	}
	args := swrcache.Args{Namespace: "profiles", ID: "u1"}

	v, err := cc.Get(ctx, args, src)
	if err != nil || v.Hits != 1 {
		t.Fatalf("miss: %+v %v", v, err)
	}
	rec, ok, err := p.Get(ctx, "profiles", "u1")
	if err != nil || !ok {
		t.Fatalf("record not persisted: %v", err)
	}
	if !compress.IsCompressed(rec.Value) {
		t.Fatalf("large payload should be stored compressed")
	}
	if rec.CreatedAt != now.UnixMilli() {
		t.Fatalf("CreatedAt=%d", rec.CreatedAt)
	}

	if v, _ = cc.Get(ctx, args, src); v.Hits != 1 || hits != 1 {
		t.Fatalf("fresh hit called source: %+v hits=%d", v, hits)
	}

	now = now.Add(2 * time.Minute)
	if v, _ = cc.Get(ctx, args, src); v.Hits != 1 {
		t.Fatalf("stale hit must serve the cached value, got %+v", v)
	}
	if v, _ = cc.Get(ctx, args, src); v.Hits != 2 {
		t.Fatalf("refresh should have replaced the value, got %+v", v)
	}

	if err := cc.MarkToRefresh(ctx, args); err != nil {
		t.Fatalf("MarkToRefresh: %v", err)
	}
	if v, _ = cc.Get(ctx, args, src); v.Hits != 2 || hits != 3 {
		t.Fatalf("marked record: got %+v hits=%d", v, hits)
	}

	if err := cc.Clear(ctx, swrcache.Args{Namespace: "profiles"}); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok, _ := p.Get(ctx, "profiles", "u1"); ok {
		t.Fatalf("record survived Clear")
	}
}

func TestEndToEndMemory(t *testing.T) {
	exerciseProvider(t, memory.New(memory.Config{}))
}

func TestEndToEndSQLite(t *testing.T) {
	p, err := sqlstore.New(context.Background(), sqlstore.Config{
		DriverName: "sqlite",
		DSN:        filepath.Join(t.TempDir(), "swr.db"),
	})
	if err != nil {
		t.Fatalf("sqlstore.New: %v", err)
	}
	exerciseProvider(t, p)
}

func ExampleCache_Get() {
	ctx := context.Background()
	cc, _ := swrcache.New[string](swrcache.Options[string]{
		Provider: memory.New(memory.Config{}),
		Codec:    codec.String{},
		TTR:      time.Hour,
	})
	defer cc.Close(ctx)

	load := func(_ context.Context, a swrcache.Args) (string, error) {
		fmt.Println("loading", a.ID)
		return "hello " + a.ID, nil
	}
	args := swrcache.Args{Namespace: "greetings", ID: "world"}

	v, _ := cc.Get(ctx, args, load)
	fmt.Println(v)
	v, _ = cc.Get(ctx, args, load)
	fmt.Println(v)
	// Output:
	// loading world
	// hello world
	// hello world
}
