// Package logging builds the zap loggers used across the server.
//
// Logs always go to stderr in production because stdout carries the MCP
// protocol stream.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvLevel names the environment variable that overrides the log level.
const EnvLevel = "SIGN_MCP_LOG_LEVEL"

// New returns a logger writing to w at the given level.
//
// level is one of debug, info, warn or error. format is "json" or "console";
// an empty format means console. A nil w writes to stderr.
func New(level, format string, w io.Writer) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = os.Stderr
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	switch strings.ToLower(format) {
	case "json":
		enc = zapcore.NewJSONEncoder(encCfg)
	case "", "console", "text":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), lvl)
	return zap.New(core, zap.AddCaller()), nil
}

// ParseLevel accepts zap level names; an empty string means info.
func ParseLevel(level string) (zapcore.Level, error) {
	if strings.TrimSpace(level) == "" {
		return zapcore.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return lvl, nil
}

// Must is like New but falls back to a no-op logger on error. The error is
// reported on stderr.
func Must(level, format string, w io.Writer) *zap.Logger {
	logger, err := New(level, format, w)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging disabled: %v\n", err)
		return zap.NewNop()
	}
	return logger
}
