package xmodem

import (
	"errors"
	"io"
	"sync"
	"time"
)

// Transport is the byte stream a Session drives.
//
// Read must honour the transport's read timeout for the first byte only:
// once a byte has arrived, Read returns whatever else is already available,
// up to len(p), without waiting for more. A timed-out read returns (0, nil)
// or an error for which IsTimeout is true.
//
// Write must accept every byte before returning, and Flush pushes out
// anything the transport buffers.
type Transport interface {
	io.Reader
	io.Writer
	Flush() error
}

// ReadTimeoutSetter is implemented by transports whose first-byte read
// timeout can be changed. A zero duration blocks forever.
type ReadTimeoutSetter interface {
	SetReadTimeout(time.Duration) error
}

// AsTransport returns rw as a Transport. Writers without a Flush method get
// a no-op one.
func AsTransport(rw io.ReadWriter) Transport {
	if t, ok := rw.(Transport); ok {
		return t
	}
	return nopFlusher{rw}
}

type nopFlusher struct {
	io.ReadWriter
}

func (nopFlusher) Flush() error { return nil }

// readFull fills buf from t. Any read that times out before buf is full is a
// timeout fault; the engine never retries it.
func readFull(t io.Reader, buf []byte) error {
	for off := 0; off < len(buf); {
		n, err := t.Read(buf[off:])
		off += n
		if off == len(buf) {
			return nil
		}
		if err != nil {
			return readError(err)
		}
		if n == 0 {
			return NewError(ErrTimeout, "timed out waiting for data")
		}
	}
	return nil
}

func readError(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if IsTimeout(err) {
		return WrapError(ErrTimeout, "read deadline exceeded", err)
	}
	return WrapError(ErrIO, "read", err)
}

// writeAll writes every byte of p to w.
func writeAll(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if err != nil {
			var e *Error
			if errors.As(err, &e) {
				return err
			}
			return WrapError(ErrIO, "write", err)
		}
		if n == 0 {
			return WrapError(ErrIO, "write", io.ErrShortWrite)
		}
		p = p[n:]
	}
	return nil
}

// byteQueue is a single-consumer byte FIFO whose pop implements the
// first-byte-timeout / drain contract.
type byteQueue struct {
	mu     sync.Mutex
	buf    []byte
	closed bool
	err    error
	ready  chan struct{}
}

func newByteQueue() *byteQueue {
	return &byteQueue{ready: make(chan struct{}, 1)}
}

func (q *byteQueue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *byteQueue) push(p []byte) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return io.ErrClosedPipe
	}
	q.buf = append(q.buf, p...)
	q.mu.Unlock()
	q.signal()
	return nil
}

// closeWithError marks the queue closed. Buffered bytes can still be read;
// after that pop returns err, or io.EOF when err is nil.
func (q *byteQueue) closeWithError(err error) {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		q.err = err
	}
	q.mu.Unlock()
	q.signal()
}

func (q *byteQueue) pop(p []byte, timeout time.Duration) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		q.mu.Lock()
		if len(q.buf) > 0 {
			n := copy(p, q.buf)
			q.buf = q.buf[n:]
			q.mu.Unlock()
			return n, nil
		}
		if q.closed {
			err := q.err
			q.mu.Unlock()
			if err == nil {
				err = io.EOF
			}
			return 0, err
		}
		q.mu.Unlock()

		select {
		case <-q.ready:
		case <-deadline:
			return 0, NewError(ErrTimeout, "timed out waiting for first byte")
		}
	}
}

// StreamTransport gives a plain reader/writer pair (stdin/stdout, SSH
// pipes) the Transport read contract. A single goroutine pumps the reader
// into a queue once the first Read is made.
type StreamTransport struct {
	reader io.Reader
	writer io.Writer

	queue   *byteQueue
	pump    sync.Once
	mu      sync.Mutex
	timeout time.Duration
}

// NewStreamTransport creates a transport reading from r and writing to w.
func NewStreamTransport(r io.Reader, w io.Writer) *StreamTransport {
	return &StreamTransport{
		reader: r,
		writer: w,
		queue:  newByteQueue(),
	}
}

func (s *StreamTransport) run() {
	buf := make([]byte, 256)
	for {
		n, err := s.reader.Read(buf)
		if n > 0 {
			if s.queue.push(buf[:n]) != nil {
				return
			}
		}
		if err != nil {
			if err == io.EOF {
				err = nil
			}
			s.queue.closeWithError(err)
			return
		}
	}
}

// Read implements Transport.
func (s *StreamTransport) Read(p []byte) (int, error) {
	s.pump.Do(func() { go s.run() })
	s.mu.Lock()
	timeout := s.timeout
	s.mu.Unlock()
	return s.queue.pop(p, timeout)
}

// Write implements Transport.
func (s *StreamTransport) Write(p []byte) (int, error) {
	if err := writeAll(s.writer, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Flush flushes the writer if it buffers.
func (s *StreamTransport) Flush() error {
	if f, ok := s.writer.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// SetReadTimeout implements ReadTimeoutSetter.
func (s *StreamTransport) SetReadTimeout(d time.Duration) error {
	s.mu.Lock()
	s.timeout = d
	s.mu.Unlock()
	return nil
}

// Close closes the writer (when it is an io.Closer) and unblocks readers.
func (s *StreamTransport) Close() error {
	s.queue.closeWithError(io.ErrClosedPipe)
	if c, ok := s.writer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
