// internal/logging/logger.go
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the verbosity and format of the command line logger.
type Config struct {
	Level       string // "debug", "info", "warn", "error"
	Development bool
	OutputPaths []string
}

func DefaultConfig() Config {
	return Config{
		Level:       "info",
		OutputPaths: []string{"stderr"},
	}
}

// New builds a console logger. Development adds caller information and
// stack traces on warnings.
func New(cfg Config) (*zap.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	zapCfg := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       cfg.Development,
		Encoding:          "console",
		EncoderConfig:     encoderConfig(cfg.Development),
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !cfg.Development,
		DisableStacktrace: !cfg.Development,
	}
	return zapCfg.Build()
}

// NewDefault returns an info level logger, or a no-op logger when stderr
// cannot be opened.
func NewDefault() *zap.Logger {
	logger, err := New(DefaultConfig())
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// ParseLevel accepts the usual zap level names in any case. An empty
// string means info.
func ParseLevel(level string) (zapcore.Level, error) {
	if level == "" {
		return zapcore.InfoLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return l, nil
}

func encoderConfig(development bool) zapcore.EncoderConfig {
	cfg := zapcore.EncoderConfig{
		TimeKey:        "T",
		LevelKey:       "L",
		NameKey:        "N",
		MessageKey:     "M",
		StacktraceKey:  "S",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("15:04:05"),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if development {
		cfg.CallerKey = "C"
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	return cfg
}
