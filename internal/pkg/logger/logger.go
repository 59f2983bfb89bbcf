package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	globalLogger *slog.Logger
	logLevel     = zap.NewAtomicLevel()
)

// Options configures the process logger.
type Options struct {
	Level string // debug, info, warn, error
	// File enables a rotated JSON log file next to the console output.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Init builds the zap logger, installs a slog handler writing into it as the global
// and default slog logger, and returns the zap logger for clients that log through zap directly.
func Init(opts Options) (*zap.Logger, error) {
	SetLevel(opts.Level)

	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.Lock(os.Stdout),
		logLevel,
	)
	core := consoleCore

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "time"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder

		writer := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    valueOr(opts.MaxSizeMB, 500),
			MaxBackups: valueOr(opts.MaxBackups, 7),
			MaxAge:     valueOr(opts.MaxAgeDays, 7),
			Compress:   true,
		}
		fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(writer), logLevel)
		core = zapcore.NewTee(fileCore, consoleCore)
	}

	zapLogger := zap.New(core, zap.AddCaller())
	globalLogger = slog.New(zapslog.NewHandler(core, zapslog.WithName("portfolio")))
	slog.SetDefault(globalLogger)
	return zapLogger, nil
}

// SetLevel changes the level of every logger built by Init. Unknown levels fall back to info.
func SetLevel(level string) {
	zapLevel, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		zapLevel = zapcore.InfoLevel
	}
	logLevel.SetLevel(zapLevel)
}

func valueOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func ensureInitialized() *slog.Logger {
	if globalLogger == nil {
		return slog.Default()
	}
	return globalLogger
}

// Debug logs a message at DebugLevel.
func Debug(msg string, args ...any) {
	ensureInitialized().Log(context.Background(), slog.LevelDebug, msg, args...)
}

// Info logs a message at InfoLevel.
func Info(msg string, args ...any) {
	ensureInitialized().Log(context.Background(), slog.LevelInfo, msg, args...)
}

// Warn logs a message at WarnLevel.
func Warn(msg string, args ...any) {
	ensureInitialized().Log(context.Background(), slog.LevelWarn, msg, args...)
}

// Error logs a message at ErrorLevel.
func Error(msg string, args ...any) {
	ensureInitialized().Log(context.Background(), slog.LevelError, msg, args...)
}

// Fatal logs a message at ErrorLevel then exits.
func Fatal(msg string, args ...any) {
	ensureInitialized().Log(context.Background(), slog.LevelError, msg, args...)
	os.Exit(1)
}
