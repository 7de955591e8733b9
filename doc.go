// Package swrcache implements a storage-agnostic stale-while-revalidate cache.
// It stores nothing itself: a caller-supplied Provider persists records, and
// swrcache layers freshness rules, detached background refresh, transparent
// gzip compression and invalidation on top.
//
// Components:
//   - Provider: record store keyed by namespace and id (Redis, Ristretto,
//     BigCache, go-cache, SQL).
//   - Codec[V]: serialization strategy, JSON by default, String/Bytes for raw.
//   - compress: gzip policy on write, magic-byte sniffing on read.
//   - Scheduler: runs detached refresh tasks (one goroutine per task by default).
//
// Get protocol:
//
//	rec := provider.Get(ns, id)
//	miss           -> v := source(); write-through; return v
//	fresh (< TTR)  -> return cached
//	stale (>= TTR) -> schedule source()+write in background; return cached
//
// Concurrent misses for the same key each call the source; the last write wins.
package swrcache
