package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/swrcache"
)

var _ swrcache.Logger = Logger{}

// Logger adapts a *logrus.Entry. An error under "err" is attached with
// WithError so formatters place it under logrus.ErrorKey.
type Logger struct{ E *logrus.Entry }

// New tags every entry with component=swrcache.
func New(l *logrus.Logger) Logger {
	return Logger{E: l.WithField("component", "swrcache")}
}

func (l Logger) Debug(msg string, f swrcache.Fields) { l.entry(logrus.DebugLevel, f).Debug(msg) }
func (l Logger) Info(msg string, f swrcache.Fields)  { l.entry(logrus.InfoLevel, f).Info(msg) }
func (l Logger) Warn(msg string, f swrcache.Fields)  { l.entry(logrus.WarnLevel, f).Warn(msg) }
func (l Logger) Error(msg string, f swrcache.Fields) { l.entry(logrus.ErrorLevel, f).Error(msg) }

func (l Logger) entry(lvl logrus.Level, f swrcache.Fields) *logrus.Entry {
	if len(f) == 0 || !l.E.Logger.IsLevelEnabled(lvl) {
		return l.E
	}
	fields := make(logrus.Fields, len(f))
	e := l.E
	for k, v := range f {
		if err, ok := v.(error); ok && k == "err" {
			e = e.WithError(err)
			continue
		}
		fields[k] = v
	}
	return e.WithFields(fields)
}
