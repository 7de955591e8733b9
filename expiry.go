package swrcache

import "time"

// Stale reports whether a record written at createdAt (unix ms) has reached
// ttr at now. A record exactly ttr old is stale; ttr <= 0 makes every record
// stale.
func Stale(createdAt int64, ttr time.Duration, now time.Time) bool {
	return now.UnixMilli()-createdAt >= ttr.Milliseconds()
}

// expiresAt is the TTL hint stamped on a record: the retention deadline in
// whole unix seconds.
func expiresAt(nowMs int64, retention time.Duration) int64 {
	return (nowMs + retention.Milliseconds()) / 1000
}
