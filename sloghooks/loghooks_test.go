package sloghooks

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newBufLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func TestRedactsIDs(t *testing.T) {
	l, buf := newBufLogger()
	h := New(l, Options{})

	h.RefreshFailed("users", "alice@example.com", errors.New("boom"))
	out := buf.String()
	require.Contains(t, out, "swrcache.refresh_failed")
	require.Contains(t, out, "ns=users")
	require.Contains(t, out, "err=boom")
	require.NotContains(t, out, "alice@example.com")

	buf.Reset()
	h = New(l, Options{Redact: func(s string) string { return "r-" + s }})
	h.SetRejected("users", "7")
	require.Contains(t, buf.String(), "id=r-7")
}

func TestSampling(t *testing.T) {
	l, buf := newBufLogger()
	h := New(l, Options{StaleEvery: 5})
	for i := 0; i < 20; i++ {
		h.StaleServed("ns", "id")
	}
	require.Equal(t, 4, strings.Count(buf.String(), "swrcache.stale_served"))
}

func TestNilLogger(t *testing.T) {
	h := New(nil, Options{})
	h.StaleServed("ns", "id")
	h.ReadDegraded("ns", "id", errors.New("x"))
	h.WriteFailed("ns", "id", errors.New("x"))
	h.WriteFiltered("ns", "id")
}
