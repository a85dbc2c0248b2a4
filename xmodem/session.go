package xmodem

import (
	"fmt"
	"io"
	"time"
)

// Session is a single XMODEM transfer over a transport. It owns the
// transport for the duration of Transmit or Receive and cannot be reused:
// the sequence counter and the handshake state belong to one transfer.
//
// A Session is not safe for concurrent use.
type Session struct {
	transport Transport

	// Configuration
	config *Config

	// Hooks
	progress ProgressFunc
	logger   Logger

	// Transfer state
	retry   RetryPolicy
	seq     byte
	started bool
	packets int
	used    bool
}

// Config holds session configuration.
type Config struct {
	// MaxAttempts bounds the tries per packet; values below 1 mean MaxAttempts
	MaxAttempts int

	// ReadTimeout is applied to transports implementing ReadTimeoutSetter
	// before the transfer starts; 0 leaves the transport's setting alone
	ReadTimeout time.Duration

	// TrimPadding strips trailing zero padding from the final received packet
	TrimPadding bool
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: MaxAttempts,
		ReadTimeout: 0,
		TrimPadding: false,
	}
}

// Option configures a Session.
type Option func(*Session)

// WithConfig sets the session configuration.
func WithConfig(config *Config) Option {
	return func(s *Session) {
		if config != nil {
			c := *config
			s.config = &c
		}
	}
}

// WithProgress sets the progress callback. nil selects NoopProgress.
func WithProgress(f ProgressFunc) Option {
	return func(s *Session) {
		if f == nil {
			f = NoopProgress
		}
		s.progress = f
	}
}

// WithLogger sets a logger for protocol debugging.
func WithLogger(logger Logger) Option {
	return func(s *Session) {
		if logger == nil {
			logger = NoopLogger{}
		}
		s.logger = logger
	}
}

// WithReadTimeout sets the transport's first-byte read timeout.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.config.ReadTimeout = d
	}
}

// WithMaxAttempts sets the number of tries per packet.
func WithMaxAttempts(n int) Option {
	return func(s *Session) {
		s.config.MaxAttempts = n
	}
}

// WithTrimPadding makes Receive strip the zero padding of the final packet.
func WithTrimPadding(trim bool) Option {
	return func(s *Session) {
		s.config.TrimPadding = trim
	}
}

// NewSession creates a new XMODEM session over t.
func NewSession(t Transport, opts ...Option) *Session {
	s := &Session{
		transport: t,
		config:    DefaultConfig(),
		progress:  NoopProgress,
		logger:    NoopLogger{},
		seq:       1,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// begin prepares the session for its one and only transfer.
func (s *Session) begin() error {
	if s.used {
		return ErrSessionUsed
	}
	s.used = true
	s.seq = 1
	s.started = false
	s.packets = 0
	s.retry = RetryPolicy{Attempts: s.config.MaxAttempts}

	if s.config.ReadTimeout > 0 {
		if ts, ok := s.transport.(ReadTimeoutSetter); ok {
			if err := ts.SetReadTimeout(s.config.ReadTimeout); err != nil {
				return WrapError(ErrIO, "set read timeout", err)
			}
		}
	}
	return nil
}

// Transmit sends everything read from data and returns the number of
// source bytes sent.
func Transmit(data io.Reader, to Transport) (int64, error) {
	return TransmitWithProgress(data, to, NoopProgress)
}

// TransmitWithProgress is Transmit with a progress callback.
func TransmitWithProgress(data io.Reader, to Transport, f ProgressFunc) (int64, error) {
	return NewSession(to, WithProgress(f)).Transmit(data)
}

// Receive writes every received packet to into and returns the number of
// bytes written.
func Receive(from Transport, into io.Writer) (int64, error) {
	return ReceiveWithProgress(from, into, NoopProgress)
}

// ReceiveWithProgress is Receive with a progress callback.
func ReceiveWithProgress(from Transport, into io.Writer, f ProgressFunc) (int64, error) {
	return NewSession(from, WithProgress(f)).Receive(into)
}

func (s *Session) readByte() (byte, error) {
	var buf [1]byte
	if err := readFull(s.transport, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (s *Session) write(p []byte) error {
	if err := writeAll(s.transport, p); err != nil {
		return err
	}
	if err := s.transport.Flush(); err != nil {
		return WrapError(ErrIO, "flush", err)
	}
	return nil
}

func (s *Session) writeByte(b byte) error {
	s.logger.Debug("send %s", ControlName(b))
	return s.write([]byte{b})
}

// expectByte reads one byte and fails unless it is want. A CAN always ends
// the transfer as an aborted connection.
func (s *Session) expectByte(want byte, what string) error {
	b, err := s.readByte()
	if err != nil {
		return err
	}
	switch b {
	case want:
		s.logger.Debug("recv %s", ControlName(b))
		return nil
	case CAN:
		return NewError(ErrConnectionAborted, "received CAN")
	default:
		return NewError(ErrInvalidData, fmt.Sprintf("%s, got %s", what, ControlName(b)))
	}
}
