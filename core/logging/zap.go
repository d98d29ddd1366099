package logging

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// ZapLogger adapts a *zap.Logger into the Logger contract, for
// deployments that want structured, leveled log output rather than the
// plain-text StdLogger.
type ZapLogger struct {
	level atomic.Int32
	l     *zap.Logger
}

// NewZapLogger wraps l, suppressing messages less urgent than level.
func NewZapLogger(l *zap.Logger, level Level) *ZapLogger {
	z := &ZapLogger{l: l}
	z.level.Store(int32(level))
	return z
}

func (z *ZapLogger) WantLog(level Level) bool {
	return level <= Level(z.level.Load())
}

// SetLevel changes the active level, satisfying logging.LevelSetter.
func (z *ZapLogger) SetLevel(level Level) {
	z.level.Store(int32(level))
}

func (z *ZapLogger) LogMessage(level Level, msg string) bool {
	if !z.WantLog(level) {
		return true
	}
	switch level {
	case Fatal, Serious:
		z.l.Error(msg)
	case Warning:
		z.l.Warn(msg)
	case Info:
		z.l.Info(msg)
	default:
		z.l.Debug(msg)
	}
	return true
}
