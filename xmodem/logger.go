package xmodem

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// Logger interface for XMODEM protocol logging
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// NoopLogger does nothing
type NoopLogger struct{}

func (NoopLogger) Debug(format string, args ...interface{}) {}
func (NoopLogger) Info(format string, args ...interface{})  {}
func (NoopLogger) Error(format string, args ...interface{}) {}

// ZerologLogger adapts a zerolog.Logger to Logger
type ZerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger wraps an existing zerolog logger.
func NewZerologLogger(log zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{log: log}
}

// NewLogger creates a console logger writing to w. Debug output, which
// includes every byte on the wire when used with LoggingTransport, is only
// emitted when debug is true.
func NewLogger(w io.Writer, debug bool) *ZerologLogger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
		NoColor:    true,
	}
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(output).Level(level).With().Timestamp().Str("component", "xmodem").Logger()
	return &ZerologLogger{log: log}
}

func (l *ZerologLogger) Debug(format string, args ...interface{}) {
	l.log.Debug().Msgf(format, args...)
}

func (l *ZerologLogger) Info(format string, args ...interface{}) {
	l.log.Info().Msgf(format, args...)
}

func (l *ZerologLogger) Error(format string, args ...interface{}) {
	l.log.Error().Msgf(format, args...)
}

// LoggingTransport wraps a transport and logs all reads and writes
type LoggingTransport struct {
	transport Transport
	logger    Logger
	name      string
}

// NewLoggingTransport creates a tracing wrapper around t.
func NewLoggingTransport(t Transport, logger Logger, name string) *LoggingTransport {
	if logger == nil {
		logger = NoopLogger{}
	}
	return &LoggingTransport{
		transport: t,
		logger:    logger,
		name:      name,
	}
}

func (lt *LoggingTransport) Read(p []byte) (int, error) {
	n, err := lt.transport.Read(p)
	if n > 0 {
		lt.logger.Debug("%s: read %s", lt.name, formatBytes(p[:n]))
	}
	if err != nil && err != io.EOF {
		lt.logger.Error("%s: read error: %v", lt.name, err)
	}
	return n, err
}

func (lt *LoggingTransport) Write(p []byte) (int, error) {
	n, err := lt.transport.Write(p)
	if n > 0 {
		lt.logger.Debug("%s: wrote %s", lt.name, formatBytes(p[:n]))
	}
	if err != nil {
		lt.logger.Error("%s: write error: %v", lt.name, err)
	}
	return n, err
}

func (lt *LoggingTransport) Flush() error {
	return lt.transport.Flush()
}

// SetReadTimeout forwards to the wrapped transport when it supports timeouts.
func (lt *LoggingTransport) SetReadTimeout(d time.Duration) error {
	if ts, ok := lt.transport.(ReadTimeoutSetter); ok {
		return ts.SetReadTimeout(d)
	}
	return nil
}

// formatBytes renders single control bytes by name and longer runs as a
// truncated hex dump.
func formatBytes(p []byte) string {
	if len(p) == 1 {
		return ControlName(p[0])
	}
	if len(p) > 16 {
		return fmt.Sprintf("%d bytes [% x ...]", len(p), p[:16])
	}
	return fmt.Sprintf("%d bytes [% x]", len(p), p)
}
