// internal/util/logger.go
package util

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

// InitLogger builds the process-wide structured logger and installs it as the zap global.
// Unknown levels fall back to info.
func InitLogger(level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	built, err := cfg.Build(zap.AddCaller())
	if err != nil {
		built = zap.NewNop()
	}
	logger = built
	zap.ReplaceGlobals(logger)
	return logger
}

// GetLogger returns the initialized global logger.
func GetLogger() *zap.Logger {
	if logger == nil {
		InitLogger("info")
	}
	return logger
}
