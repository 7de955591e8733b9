package swrcache

import "time"

const (
	defaultTTR = 7200 * time.Second
	defaultTTL = 60 * 24 * time.Hour
)

// AlwaysStale is a TTR under which every cached record counts as stale: reads
// return the cached value and schedule a refresh each time. A zero TTR cannot
// express this because zero selects the default.
const AlwaysStale time.Duration = -1

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
