// Package logging builds the logr.Logger shared by the CLI and the probing
// packages.
package logging

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the logger flavour.
type Options struct {
	// Verbose enables V(1) messages (every transfer and register result).
	Verbose bool
	// JSON switches from console output to structured JSON lines.
	JSON bool
}

// New returns a zap-backed logr.Logger writing to stderr.
func New(opts Options) (logr.Logger, error) {
	var zc zap.Config
	if opts.JSON {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zc.DisableStacktrace = true
	}

	// logr V(n) maps to zap level -n.
	level := zapcore.InfoLevel
	if opts.Verbose {
		level = zapcore.Level(-1)
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	zl, err := zc.Build()
	if err != nil {
		return logr.Discard(), fmt.Errorf("logging: build zap logger: %w", err)
	}
	return zapr.NewLogger(zl), nil
}

// Sync flushes buffered log entries when the logger is zap-backed.
func Sync(log logr.Logger) {
	if u, ok := log.GetSink().(zapr.Underlier); ok {
		_ = u.GetUnderlying().Sync()
	}
}
