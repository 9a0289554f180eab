// Package utils provides logging, formatting and export helpers.
package utils

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the global logger instance. Read it through GetLogger.
var Logger *zap.Logger

var (
	loggerMu    sync.RWMutex
	defaultOnce sync.Once
)

// ParseLevel maps a LOG_LEVEL value to a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// InitLogger initializes the global logger. JSON output is used on Lambda
// and in the prod stage; everything else gets the colored console encoder.
func InitLogger(level string) error {
	zapLevel := ParseLevel(level)

	structured := os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" || os.Getenv("STAGE") == "prod"

	var config zap.Config
	if structured {
		config = zap.NewProductionConfig()
		config.OutputPaths = []string{"stdout"}
		config.ErrorOutputPaths = []string{"stderr"}
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	logger, err := config.Build()
	if err != nil {
		return err
	}
	loggerMu.Lock()
	Logger = logger.Named("bike-predict")
	loggerMu.Unlock()

	return nil
}

// GetLogger returns the global logger, initializing it at info level once
// if InitLogger has not run.
func GetLogger() *zap.Logger {
	if l := currentLogger(); l != nil {
		return l
	}
	defaultOnce.Do(func() {
		if currentLogger() == nil {
			if err := InitLogger("info"); err != nil {
				loggerMu.Lock()
				Logger = zap.NewNop()
				loggerMu.Unlock()
			}
		}
	})
	return currentLogger()
}

func currentLogger() *zap.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return Logger
}

// Sync flushes any buffered log entries.
func Sync() {
	if l := currentLogger(); l != nil {
		_ = l.Sync()
	}
}

// LogField creates a zap field for structured logging.
type LogField = zap.Field

// Common field constructors
var (
	String   = zap.String
	Int      = zap.Int
	Int64    = zap.Int64
	Float64  = zap.Float64
	Bool     = zap.Bool
	Error    = zap.Error
	Any      = zap.Any
	Duration = zap.Duration
)
