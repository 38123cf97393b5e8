package core

import "github.com/sirupsen/logrus"

// Logger is the logging sink the scheduler core writes through. Kept
// narrow and printf-style so both production (logrus) and test (recording)
// implementations are trivial.
type Logger interface {
	Criticalf(format string, args ...any)
	Debugf(format string, args ...any)
	Errorf(format string, args ...any)
	Noticef(format string, args ...any)
	Warningf(format string, args ...any)
}

// LogrusAdapter wraps a logrus.Logger to satisfy Logger.
type LogrusAdapter struct {
	*logrus.Logger
}

var _ Logger = (*LogrusAdapter)(nil)

// NewLogrusAdapter builds an adapter around a freshly configured logrus
// logger, writing text-formatted entries with timestamps to its default
// output.
func NewLogrusAdapter(level logrus.Level) *LogrusAdapter {
	l := logrus.New()
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &LogrusAdapter{Logger: l}
}

// Criticalf logs at Fatal level without terminating the process; ncrond
// treats "critical" as "this load failed", not "panic now".
func (l *LogrusAdapter) Criticalf(format string, args ...any) {
	l.Logger.Logf(logrus.FatalLevel, format, args...)
}

func (l *LogrusAdapter) Debugf(format string, args ...any) {
	l.Logger.Debugf(format, args...)
}

func (l *LogrusAdapter) Errorf(format string, args ...any) {
	l.Logger.Errorf(format, args...)
}

func (l *LogrusAdapter) Noticef(format string, args ...any) {
	l.Logger.Infof(format, args...)
}

func (l *LogrusAdapter) Warningf(format string, args ...any) {
	l.Logger.Warnf(format, args...)
}
