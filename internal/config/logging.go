// =============================================================================
// Firefly Amazon Reconciler - Logger Setup
// =============================================================================

package config

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the application logger from the configuration: console
// encoding on stdout by default, JSON encoding when logging to a file.
// verbose forces the debug level regardless of log_level.
func (c *Config) NewLogger(verbose bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if err := level.Set(c.LogLevel); err != nil {
		return nil, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	if verbose {
		level = zapcore.DebugLevel
	}

	var zcfg zap.Config
	if c.LogFile != "" {
		zcfg = zap.NewProductionConfig()
		zcfg.OutputPaths = []string{c.LogFile}
		zcfg.ErrorOutputPaths = []string{c.LogFile}
	} else {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.OutputPaths = []string{"stdout"}
		zcfg.ErrorOutputPaths = []string{"stderr"}
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
