// Package logging builds the zap loggers used by the hxtree server and CLI.
//
// Library code never reaches for a global logger: Application and Registry
// take a *zap.Logger option and default to a no-op logger. The CLI builds
// one here from a level string or the HXTREE_LOG_LEVEL environment variable.
package logging

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LevelEnvVar controls logging verbosity when no level is given explicitly.
// Valid values: "debug", "info", "warn", "error". Empty means silent.
const LevelEnvVar = "HXTREE_LOG_LEVEL"

// New builds a console logger at the given level. If level is empty the
// environment variable is consulted; if that is empty too, a no-op logger
// is returned.
func New(level string) (*zap.Logger, error) {
	if level == "" {
		level = os.Getenv(LevelEnvVar)
	}
	if level == "" {
		return zap.NewNop(), nil
	}

	zapLevel, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	config.EncoderConfig.EncodeLevel = levelEncoder(os.Stderr.Fd())

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// ParseLevel maps a level name to a zap level.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// levelEncoder colours levels only when writing to a terminal.
func levelEncoder(fd uintptr) zapcore.LevelEncoder {
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return zapcore.CapitalColorLevelEncoder
	}
	return zapcore.CapitalLevelEncoder
}

// Component returns a field identifying a component by id and tag.
func Component(id, tag string) zap.Field {
	return zap.Dict("component", zap.String("id", id), zap.String("tag", tag))
}
