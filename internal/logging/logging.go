// Package logging builds the zap logger shared by all components.
package logging

import (
	"bytes"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ecgscope/hal"
)

// Options selects level, encoding and destination.
type Options struct {
	// Level is "debug", "info", "warn" or "error" (default "info").
	Level string
	// Format is "console" or "json" (default "console").
	Format string
	// Service, when set, is attached to every entry.
	Service string
	// Sink receives encoded entries; nil means stdout.
	Sink io.Writer
}

// ParseLevel maps a level name to a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// New returns a logger for opts.
func New(opts Options) *zap.Logger {
	var enc zapcore.Encoder
	if opts.Format == "json" {
		cfg := zap.NewProductionEncoderConfig()
		cfg.TimeKey = "timestamp"
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(cfg)
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewConsoleEncoder(cfg)
	}

	sink := opts.Sink
	if sink == nil {
		sink = os.Stdout
	}
	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(sink)), zap.NewAtomicLevelAt(ParseLevel(opts.Level)))
	l := zap.New(core)
	if opts.Service != "" {
		l = l.With(zap.String("service", opts.Service))
	}
	return l
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// LineWriter adapts a HAL line logger to io.Writer. Bytes are buffered until
// a newline and each complete line is forwarded without its terminator.
func LineWriter(l hal.Logger) io.Writer {
	return &lineWriter{l: l}
}

type lineWriter struct {
	mu  sync.Mutex
	l   hal.Logger
	buf []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.l.WriteLineBytes(w.buf[:i])
		w.buf = w.buf[i+1:]
	}
	if len(w.buf) == 0 {
		w.buf = w.buf[:0:0]
	}
	return len(p), nil
}
