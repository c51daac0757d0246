package config

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

var ErrInvalidLogFormat = errors.New("unknown log format")

// NewLogger пишет всегда в stderr: stdout занят результатами CLI.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	level := parseLogLevel(cfg.Level)

	format, err := resolveLogFormat(cfg.Format, level)
	if err != nil {
		return nil, err
	}

	var zc zap.Config
	if format == LogFormatConsole {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "timestamp"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zc.InitialFields = map[string]interface{}{"app": "efmnb"}
	}

	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	zc.EncoderConfig.CallerKey = "caller"
	zc.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	return zc.Build()
}

// resolveLogFormat: пустой формат - console для debug, json для остального
func resolveLogFormat(format string, level zapcore.Level) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "":
		if level == zapcore.DebugLevel {
			return LogFormatConsole, nil
		}
		return LogFormatJSON, nil
	case LogFormatJSON:
		return LogFormatJSON, nil
	case LogFormatConsole, "text":
		return LogFormatConsole, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidLogFormat, format)
	}
}

func parseLogLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
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
