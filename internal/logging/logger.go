// Package logging builds the zap logger used for diagnostics.
package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log formats accepted by New.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// New returns a logger writing to stderr. The console format is the colored
// development encoder; json is zap's production encoder. verbose enables
// debug-level per-tick lines.
func New(format string, verbose bool) (*zap.Logger, error) {
	// stdout may carry the event stream
	return NewWriter(os.Stderr, format, verbose)
}

// NewWriter is New with an explicit destination.
func NewWriter(w io.Writer, format string, verbose bool) (*zap.Logger, error) {
	var encoder zapcore.Encoder
	var opts []zap.Option

	switch format {
	case FormatJSON:
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	case FormatConsole, "":
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(cfg)
		opts = append(opts, zap.Development())
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	out := zapcore.Lock(zapcore.AddSync(w))
	core := zapcore.NewCore(encoder, out, zap.NewAtomicLevelAt(level))
	opts = append(opts, zap.AddCaller(), zap.ErrorOutput(out))

	return zap.New(core, opts...), nil
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
