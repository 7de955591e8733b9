package zap

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/swrcache"
)

var _ swrcache.Logger = Logger{}

// Logger adapts a *zap.Logger. Error values under "err" become zap.Error
// fields so stack and cause formatting stay consistent with the rest of the
// application's logs.
type Logger struct{ L *zap.Logger }

// New names l "swrcache".
func New(l *zap.Logger) Logger { return Logger{L: l.Named("swrcache")} }

func (z Logger) Debug(msg string, f swrcache.Fields) { z.log(zap.DebugLevel, msg, f) }
func (z Logger) Info(msg string, f swrcache.Fields)  { z.log(zap.InfoLevel, msg, f) }
func (z Logger) Warn(msg string, f swrcache.Fields)  { z.log(zap.WarnLevel, msg, f) }
func (z Logger) Error(msg string, f swrcache.Fields) { z.log(zap.ErrorLevel, msg, f) }

func (z Logger) log(lvl zapcore.Level, msg string, f swrcache.Fields) {
	if ce := z.L.Check(lvl, msg); ce != nil {
		ce.Write(fields(f)...)
	}
}

func fields(f swrcache.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok && k == "err" {
			out = append(out, zap.Error(err))
			continue
		}
		out = append(out, zap.Any(k, v))
	}
	return out
}
