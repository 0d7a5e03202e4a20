// Package logger provides the process-wide leveled logger.
//
// The package exposes printf-style helpers so call sites stay terse; the
// actual sink is a zap SugaredLogger so the level can be flipped at runtime.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is the verbosity threshold used by the logger.
type Level = zapcore.Level

const (
	// LevelDebug enables verbose logs intended for debugging.
	LevelDebug = zapcore.DebugLevel
	// LevelInfo enables informational logs (default).
	LevelInfo = zapcore.InfoLevel
	// LevelWarn enables only warnings and errors.
	LevelWarn = zapcore.WarnLevel
	// LevelError enables only error logs.
	LevelError = zapcore.ErrorLevel
)

var (
	atomicLevel = zap.NewAtomicLevelAt(LevelInfo)
	sugar       = newSugar()
)

func newSugar() *zap.SugaredLogger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = atomicLevel
	cfg.DisableStacktrace = true
	log, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		// The development config only fails on invalid output paths, which
		// we never set; fall back to a no-op logger rather than crash.
		log = zap.NewNop()
	}
	return log.Sugar()
}

// ParseLevel parses a log level string into a Level.
func ParseLevel(raw string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", raw)
	}
}

// SetLevel sets the global log level threshold.
func SetLevel(level Level) {
	atomicLevel.SetLevel(level)
}

// Enabled reports whether a level would be emitted by the current configuration.
func Enabled(level Level) bool {
	return atomicLevel.Enabled(level)
}

// Debugf logs at DEBUG level.
func Debugf(format string, args ...any) {
	sugar.Debugf(format, args...)
}

// Infof logs at INFO level.
func Infof(format string, args ...any) {
	sugar.Infof(format, args...)
}

// Warnf logs at WARN level.
func Warnf(format string, args ...any) {
	sugar.Warnf(format, args...)
}

// Errorf logs at ERROR level.
func Errorf(format string, args ...any) {
	sugar.Errorf(format, args...)
}
