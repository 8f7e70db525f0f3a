// Package logger provides a process-wide leveled logging facade backed by zap.
// Pipeline packages log through the package-level functions; the binary
// configures the backend once at startup via Init.
package logger

import (
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var base atomic.Pointer[zap.SugaredLogger]

func init() {
	// Default to a no-op-ish development logger so library tests can log
	// without calling Init.
	l, _ := zap.NewDevelopment(zap.AddCallerSkip(2))
	base.Store(l.Sugar())
}

// Init builds the process logger. Format is "json" or "console"; level is one
// of debug/info/warn/error. It replaces the package-level logger and returns
// the underlying *zap.Logger for components that want structured fields.
func Init(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	var cfg zap.Config
	if strings.EqualFold(format, "console") {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	l, err := cfg.Build(zap.AddCallerSkip(2))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	base.Store(l.Sugar())
	return l, nil
}

// L returns the current sugared logger.
func L() *zap.SugaredLogger { return base.Load() }

// Debugf logs a debug message.
func Debugf(format string, args ...any) { base.Load().Debugf(format, args...) }

// Infof logs an info message.
func Infof(format string, args ...any) { base.Load().Infof(format, args...) }

// Warnf logs a warning message.
func Warnf(format string, args ...any) { base.Load().Warnf(format, args...) }

// Errorf logs an error message.
func Errorf(format string, args ...any) { base.Load().Errorf(format, args...) }

// Sync flushes buffered log entries. Safe to call at shutdown.
func Sync() { _ = base.Load().Sync() }
