// internal/utils/logging.go
package utils

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	LogFileName = "station.log"
	LogFileMode = 0644
)

var Logger *zap.Logger

// LogOptions controls where log entries go.
type LogOptions struct {
	// FilePath receives JSON entries. Empty means LogFileName.
	FilePath string
	// Console receives human-readable entries. Nil disables console output,
	// which the terminal station needs so log lines do not tear its screen.
	Console io.Writer
	// Level overrides LOG_LEVEL when non-empty.
	Level string
}

// Init configures zap to write to the console and a log file.
// This should be called once at application startup.
func Init(opts LogOptions) error {
	path := opts.FilePath
	if path == "" {
		path = LogFileName
	}
	logFile, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, LogFileMode)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	level := ParseLevel(opts.Level)

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(logFile), level),
	}
	if opts.Console != nil {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(opts.Console), level))
	}

	Logger = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	Logger.Info("logging initialized",
		zap.String("log_level", level.String()),
		zap.String("log_file", path))

	return nil
}

// ParseLevel resolves the level from the explicit value or `LOG_LEVEL`, falling back to info.
func ParseLevel(explicit string) zapcore.Level {
	raw := explicit
	if raw == "" {
		raw = os.Getenv("LOG_LEVEL")
	}
	if raw == "" {
		return zapcore.InfoLevel
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		fmt.Fprintf(os.Stderr, "unknown LOG_LEVEL '%s', defaulting to 'info'\n", raw)
		return zapcore.InfoLevel
	}
	return level
}

// Sync flushes any buffered log entries.
func Sync() error {
	if Logger != nil {
		return Logger.Sync()
	}
	return nil
}

// WithComponent returns a logger pre-bound with a `component` field.
// Before Init it returns a no-op logger so packages can log from tests.
func WithComponent(component string) *zap.Logger {
	if Logger == nil {
		return zap.NewNop()
	}
	return Logger.With(zap.String("component", component))
}
