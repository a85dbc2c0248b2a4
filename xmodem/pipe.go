package xmodem

import (
	"io"
	"sync"
	"time"
)

// PipeEnd is one side of an in-memory duplex byte stream created by Pipe.
// Bytes written to one end are read from the other. Writes never block.
type PipeEnd struct {
	in  *byteQueue
	out *byteQueue

	mu      sync.Mutex
	timeout time.Duration
}

// Pipe creates a connected pair of transports, the in-memory counterpart of
// a serial cable.
func Pipe() (*PipeEnd, *PipeEnd) {
	a := newByteQueue()
	b := newByteQueue()
	return &PipeEnd{in: a, out: b}, &PipeEnd{in: b, out: a}
}

// Read implements Transport.
func (p *PipeEnd) Read(buf []byte) (int, error) {
	p.mu.Lock()
	timeout := p.timeout
	p.mu.Unlock()
	return p.in.pop(buf, timeout)
}

// Write implements Transport.
func (p *PipeEnd) Write(buf []byte) (int, error) {
	if err := p.out.push(buf); err != nil {
		return 0, err
	}
	return len(buf), nil
}

// Flush implements Transport.
func (p *PipeEnd) Flush() error {
	return nil
}

// SetReadTimeout implements ReadTimeoutSetter.
func (p *PipeEnd) SetReadTimeout(d time.Duration) error {
	p.mu.Lock()
	p.timeout = d
	p.mu.Unlock()
	return nil
}

// Close closes both directions. The peer reads io.EOF once it has drained
// what was already written, and writes to either end fail.
func (p *PipeEnd) Close() error {
	p.out.closeWithError(nil)
	p.in.closeWithError(io.ErrClosedPipe)
	return nil
}
