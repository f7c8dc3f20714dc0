package obs

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger sends log lines to a zap logger.
type ZapLogger struct {
	S *zap.SugaredLogger
}

// NewZapLogger builds a production zap logger at the given level.
func NewZapLogger(level string) (*ZapLogger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel(lvl))
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &ZapLogger{S: l.Sugar()}, nil
}

// NewZapLoggerFrom wraps an existing zap logger.
func NewZapLoggerFrom(l *zap.Logger) *ZapLogger {
	return &ZapLogger{S: l.Sugar()}
}

func (z *ZapLogger) Logf(level Level, format string, args ...interface{}) {
	if z == nil || z.S == nil {
		return
	}
	switch level {
	case Debug:
		z.S.Debugf(format, args...)
	case Warn:
		z.S.Warnf(format, args...)
	case Error:
		z.S.Errorf(format, args...)
	default:
		z.S.Infof(format, args...)
	}
}

// Sync flushes buffered entries.
func (z *ZapLogger) Sync() error {
	if z == nil || z.S == nil {
		return nil
	}
	return z.S.Sync()
}

func zapLevel(l Level) zapcore.Level {
	switch l {
	case Debug:
		return zapcore.DebugLevel
	case Warn:
		return zapcore.WarnLevel
	case Error:
		return zapcore.ErrorLevel
	}
	return zapcore.InfoLevel
}
