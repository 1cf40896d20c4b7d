// Package log provides the process-wide zap logger.
package log

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ComponentKey is the field name used to tag log lines with the emitting component.
const ComponentKey = "component"

var (
	logger *zap.Logger
	mu     sync.RWMutex
)

// InitLogger initializes the logger with a plain text format at the given level.
func InitLogger(level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return err
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(zapcore.Lock(os.Stdout)),
		lvl,
	)

	mu.Lock()
	logger = zap.New(core, zap.AddCaller())
	mu.Unlock()
	return nil
}

// GetLogger returns the initialized logger. Before InitLogger is called a no-op
// logger is returned so that packages can log from tests without setup.
func GetLogger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// Component returns a logger tagged with the given component name.
func Component(name string) *zap.Logger {
	return GetLogger().With(zap.String(ComponentKey, name))
}

// Sync flushes any buffered log entries.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if logger != nil {
		_ = logger.Sync()
	}
}

// MaskString masks characters in a string except for the first and last characters.
func MaskString(s string) string {
	if len(s) <= 3 {
		return "***"[:len(s)]
	}
	masked := make([]byte, len(s))
	masked[0] = s[0]
	for i := 1; i < len(s)-1; i++ {
		masked[i] = '*'
	}
	masked[len(s)-1] = s[len(s)-1]
	return string(masked)
}
