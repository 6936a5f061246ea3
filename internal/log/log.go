// Package log provides the process-wide structured logger for the command
// line tools. Library packages take a *zap.Logger instead of using it.
package log

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.Logger
	once   sync.Once
)

// ParseLevel maps "debug", "info", "warn" and "error" to a zap level.
// Anything else is info.
func ParseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// New builds a logger at the given level: JSON when GO_ENV=production,
// console output otherwise.
func New(level string) (*zap.Logger, error) {
	var cfg zap.Config
	if os.Getenv("GO_ENV") == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.DisableStacktrace = true
	}
	cfg.Level = zap.NewAtomicLevelAt(ParseLevel(level))
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// Init initializes the global logger once. Later calls are ignored.
func Init(level string) {
	once.Do(func() {
		l, err := New(level)
		if err != nil {
			l = zap.NewNop()
		}
		logger = l
		zap.ReplaceGlobals(logger)
	})
}

// L returns the global logger, initializing it at info level if needed.
func L() *zap.Logger {
	Init("info")
	return logger
}

// Sync flushes buffered entries.
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}

func Debug(msg string, fields ...zap.Field) { L().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { L().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { L().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { L().Error(msg, fields...) }

// With returns a child of the global logger carrying fields.
func With(fields ...zap.Field) *zap.Logger {
	return L().With(fields...)
}
