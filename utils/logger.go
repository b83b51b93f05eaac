package utils

import (
	"log"
	"sync"

	"tripnest/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// GetLogger returns the process-wide logger, building it on first use
// from ENV and LOG_LEVEL. It also installs itself as the zap global so
// zap.L() callers share the same sink.
func GetLogger() *zap.Logger {
	loggerOnce.Do(buildLogger)
	return logger
}

func buildLogger() {
	var cfg zap.Config
	if config.IsProduction() {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	level := zapcore.InfoLevel
	if parsed, err := zapcore.ParseLevel(config.AppConfig.LogLevel); err == nil {
		level = parsed
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	built, err := cfg.Build()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	logger = built
	zap.ReplaceGlobals(logger)
}
