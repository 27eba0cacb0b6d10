package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var globalLogger *zap.Logger

// Configure builds the global JSON logger at the given level. Unknown
// levels fall back to info.
func Configure(level string) error {
	zapConfig := zap.NewProductionConfig()
	zapConfig.EncoderConfig.TimeKey = "timestamp"
	zapConfig.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder

	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		parsed = zapcore.InfoLevel
	}
	zapConfig.Level = zap.NewAtomicLevelAt(parsed)

	logger, err := zapConfig.Build()
	if err != nil {
		return err
	}
	globalLogger = logger.With(zap.String("component", "main"))
	return nil
}

// GetLogger returns the global logger, configuring it at info on first use
func GetLogger() *zap.Logger {
	if globalLogger == nil {
		if err := Configure("info"); err != nil {
			globalLogger = zap.NewNop()
		}
	}
	return globalLogger
}

// GetSugaredLogger returns the global logger in its printf-style form
func GetSugaredLogger() *zap.SugaredLogger {
	return GetLogger().Sugar()
}
