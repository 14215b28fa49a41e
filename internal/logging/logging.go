// Package logging builds the zap logger used across the updater.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logging configuration.
type Config struct {
	Debug  bool   // debug level instead of info
	Format string // json, console
	File   string // optional log file
	Stderr bool   // also log to stderr (off while the TUI owns the terminal)
}

// New builds a logger. With neither a file nor stderr output it returns a no-op logger.
func New(cfg Config) (*zap.Logger, error) {
	var outputs []string

	if cfg.Stderr {
		outputs = append(outputs, "stderr")
	}

	if cfg.File != "" {
		outputs = append(outputs, cfg.File)
	}

	if len(outputs) == 0 {
		return zap.NewNop(), nil
	}

	var config zap.Config
	if cfg.Format == "json" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	level := zapcore.InfoLevel
	if cfg.Debug {
		level = zapcore.DebugLevel
	}

	config.Level = zap.NewAtomicLevelAt(level)
	config.OutputPaths = outputs
	config.ErrorOutputPaths = []string{"stderr"}
	config.DisableStacktrace = !cfg.Debug

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return logger, nil
}
