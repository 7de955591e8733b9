package swrcache

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking: most are called on the
// Get hot path, RefreshFailed from background tasks.
type Hooks interface {
	// A stale record was served and a background refresh was scheduled.
	StaleServed(namespace, id string)

	// A provider read failed and was treated as a miss.
	ReadDegraded(namespace, id string, err error)

	// SetFilter rejected a freshly fetched value; nothing was written.
	WriteFiltered(namespace, id string)

	// Provider returned ok=false on Set (backpressure/eviction).
	SetRejected(namespace, id string)

	// Provider Set failed (foreground or background).
	WriteFailed(namespace, id string, err error)

	// A background refresh failed in the source, the write, or panicked.
	RefreshFailed(namespace, id string, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) StaleServed(string, string)          {}
func (NopHooks) ReadDegraded(string, string, error)  {}
func (NopHooks) WriteFiltered(string, string)        {}
func (NopHooks) SetRejected(string, string)          {}
func (NopHooks) WriteFailed(string, string, error)   {}
func (NopHooks) RefreshFailed(string, string, error) {}
