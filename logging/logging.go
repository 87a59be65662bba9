// Package logging builds the zap loggers used across rmxtoys.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rapidmidiex/rmxtoys/config"
)

type Opts struct {
	// Verbose forces debug level.
	Verbose bool
	// ToFile sends output to cfg.File instead of stderr, for the TUI.
	ToFile bool
}

// New builds a logger from cfg: a production JSON config, or a development
// console config when cfg.Format is "console".
func New(cfg config.LoggingConfig, o Opts) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}

	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.Set(cfg.Level); err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
	}
	if o.Verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	if o.ToFile {
		if cfg.File == "" {
			return zap.NewNop(), nil
		}
		zc.OutputPaths = []string{cfg.File}
		zc.ErrorOutputPaths = []string{cfg.File}
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
