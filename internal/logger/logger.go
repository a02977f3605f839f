package logger

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/menta2k/dataset-prep/internal/utils"
)

// Config contains configuration for the logger
type Config struct {
	Debug     bool   // enable debug level logging
	LogFormat string // "json" or "human"
	LogFile   string // path to log file (optional)
}

// DefaultConfig returns a default configuration
func DefaultConfig() Config {
	return Config{
		Debug:     false,
		LogFormat: "human",
		LogFile:   "",
	}
}

// New builds a SugaredLogger from the provided configuration
func New(config Config) (*zap.SugaredLogger, error) {
	var zapConfig zap.Config

	if config.LogFormat == "json" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	outputPaths := []string{"stdout"}
	if config.LogFile != "" {
		logDir := filepath.Dir(config.LogFile)
		if err := utils.EnsureDir(logDir); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		outputPaths = append(outputPaths, config.LogFile)
	}
	zapConfig.OutputPaths = outputPaths

	if config.Debug {
		zapConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	log, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return log.Sugar(), nil
}

// Nop returns a logger that discards everything, for tests and library callers
// that bring no logger of their own.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
