// Package logger owns the zap logger shared by the API server, the seed
// tool and every ranking, feed and storage component.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is shared by every component. cmd/server and scripts/seed set it via Init.
var Logger *zap.Logger

// Init picks the encoder for ENV. Production emits JSON lines at info
// level tagged service=scholargraph. Test gets a no-op logger. Development
// and any other value get a colored console at debug.
func Init(env string) error {
	if env == "test" {
		Logger = zap.NewNop()
		return nil
	}

	var config zap.Config
	if env == "production" {
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	} else {
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	built, err := config.Build(zap.Fields(zap.String("service", "scholargraph")))
	if err != nil {
		return err
	}
	Logger = built
	return nil
}

// Sync flushes any buffered log entries
func Sync() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}

// Get hands out the shared logger. Packages that build before Init runs,
// such as graph.NewRepository in tests, get a throwaway development logger.
func Get() *zap.Logger {
	if Logger == nil {
		fallback, _ := zap.NewDevelopment()
		return fallback
	}
	return Logger
}

// Named tags the shared logger with component, e.g. "ranking" or "breaker"
func Named(component string) *zap.Logger {
	return Get().With(zap.String("component", component))
}
