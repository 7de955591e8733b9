package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/swrcache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	StaleEvery    uint64
	FilteredEvery uint64
	// Optional id redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

// Hooks logs cache events through slog. Namespaces are logged as is;
// ids go through Redact since they often carry user data.
type Hooks struct {
	l    *slog.Logger
	opts Options

	staleCtr    atomic.Uint64
	filteredCtr atomic.Uint64
}

var _ swrcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(id string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(id)
	}
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) StaleServed(ns, id string) {
	if h.l == nil || !sample(h.opts.StaleEvery, &h.staleCtr) {
		return
	}
	h.l.Debug("swrcache.stale_served",
		"ns", ns,
		"id", h.redact(id))
}

func (h *Hooks) WriteFiltered(ns, id string) {
	if h.l == nil || !sample(h.opts.FilteredEvery, &h.filteredCtr) {
		return
	}
	h.l.Debug("swrcache.write_filtered",
		"ns", ns,
		"id", h.redact(id))
}

func (h *Hooks) SetRejected(ns, id string) {
	if h.l == nil {
		return
	}
	h.l.Warn("swrcache.set_rejected",
		"ns", ns,
		"id", h.redact(id))
}

func (h *Hooks) ReadDegraded(ns, id string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("swrcache.read_degraded",
		"ns", ns,
		"id", h.redact(id),
		"err", err)
}

func (h *Hooks) WriteFailed(ns, id string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("swrcache.write_failed",
		"ns", ns,
		"id", h.redact(id),
		"err", err)
}

func (h *Hooks) RefreshFailed(ns, id string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("swrcache.refresh_failed",
		"ns", ns,
		"id", h.redact(id),
		"err", err)
}
