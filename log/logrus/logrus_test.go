package logrus

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/swrcache"
)

func TestFieldsAndError(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.InfoLevel)
	l := New(base)

	l.Debug("dropped", swrcache.Fields{"ns": "a"})
	l.Warn("refresh failed", swrcache.Fields{"ns": "users", "id": "42", "err": errors.New("boom")})

	require.Len(t, hook.AllEntries(), 1)
	e := hook.LastEntry()
	require.Equal(t, logrus.WarnLevel, e.Level)
	require.Equal(t, "refresh failed", e.Message)
	require.Equal(t, "swrcache", e.Data["component"])
	require.Equal(t, "users", e.Data["ns"])
	require.EqualError(t, e.Data[logrus.ErrorKey].(error), "boom")
}
