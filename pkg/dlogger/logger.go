// Package dlogger builds the engine's zap loggers from a level word.
package dlogger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// LogLevelDebug enables per-operation storage and staging output
	LogLevelDebug = "debug"

	// LogLevelInfo keeps init, commit and branch events only
	LogLevelInfo = "info"

	// LogLevelNone silences the engine
	LogLevelNone = "none"
)

// GetLogger builds a production logger at the given level. The empty
// string and LogLevelNone yield a nop logger.
func GetLogger(logLevel string) (*zap.Logger, error) {
	switch logLevel {
	case "", LogLevelNone:
		return zap.NewNop(), nil
	case LogLevelDebug, LogLevelInfo:
		cfg := zap.NewProductionConfig()
		lvl := zapcore.InfoLevel
		if logLevel == LogLevelDebug {
			lvl = zapcore.DebugLevel
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
		return cfg.Build()
	default:
		return nil, fmt.Errorf("unknown log level %q", logLevel)
	}
}

// MustGetLogger builds a logger or panics on an unknown level.
func MustGetLogger(logLevel string) *zap.Logger {
	l, err := GetLogger(logLevel)
	if err != nil {
		panic(err)
	}
	return l
}
