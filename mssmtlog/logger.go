// Package mssmtlog provides the structured logger used across this
// module's tree engines and storage backends, wrapping zap.SugaredLogger.
package mssmtlog

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap.SugaredLogger with four levels. This module's storage
// and tree code emits only Debug and Error.
type Logger struct {
	zLogger *zap.SugaredLogger
}

// Config selects the logger's running environment and optional output
// file, decoded from the same toml config a caller loads its store
// configuration from.
type Config struct {
	Environment string `toml:"env"`
	Path        string `toml:"path,omitempty"`
}

// New builds a Logger for conf.Environment, which must be "development"
// (debug level and above) or "production" (info level and above).
func New(conf *Config) *Logger {
	level := zap.NewAtomicLevel()
	switch {
	case strings.EqualFold("development", conf.Environment):
		level.SetLevel(zap.DebugLevel)
	case strings.EqualFold("production", conf.Environment):
		level.SetLevel(zap.InfoLevel)
	default:
		panic("mssmtlog: Environment must be either development or production")
	}

	outputs := []string{"stderr"}
	if conf.Path != "" {
		outputs = append(outputs, conf.Path)
	}

	zConfig := &zap.Config{
		Level:       level,
		Encoding:    "console",
		OutputPaths: outputs,
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "path",
			MessageKey:     "msg",
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
		},
	}

	built, err := zConfig.Build()
	if err != nil {
		panic(err)
	}
	return &Logger{built.Sugar()}
}

// Noop returns a Logger that discards everything, for callers that don't
// want any storage-layer logging (tests, short-lived in-memory trees).
func Noop() *Logger {
	return &Logger{zap.NewNop().Sugar()}
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.zLogger.Debugw(msg, keysAndValues...)
}

func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.zLogger.Infow(msg, keysAndValues...)
}

func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.zLogger.Warnw(msg, keysAndValues...)
}

func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.zLogger.Errorw(msg, keysAndValues...)
}
