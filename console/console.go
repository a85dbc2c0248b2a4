// Package console connects the local terminal to a serial transport so the
// board's shell can be used interactively between transfers.
package console

import (
	"bytes"
	"context"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/drunlade/go-xmodem/xmodem"
)

// EscapeByte (Ctrl-]) ends a console session.
const EscapeByte = 0x1d

// pollInterval bounds how long the port pump takes to notice the console
// was closed.
const pollInterval = 100 * time.Millisecond

// Console copies bytes between a local terminal and a transport.
type Console struct {
	// Underlying I/O
	port xmodem.Transport
	in   io.Reader
	out  io.Writer

	escape byte
	logger xmodem.Logger
}

// New creates a console between port and the in/out pair.
func New(port xmodem.Transport, in io.Reader, out io.Writer, logger xmodem.Logger) *Console {
	if logger == nil {
		logger = xmodem.NoopLogger{}
	}
	return &Console{
		port:   port,
		in:     in,
		out:    out,
		escape: EscapeByte,
		logger: logger,
	}
}

// Run copies until the escape byte is typed, in reaches EOF, the port fails
// or ctx is done. The port's read timeout is left at pollInterval; callers
// restore their own before the next transfer.
func (c *Console) Run(ctx context.Context) error {
	if ts, ok := c.port.(xmodem.ReadTimeoutSetter); ok {
		if err := ts.SetReadTimeout(pollInterval); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	pumpErr := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		pumpErr <- c.pump(ctx)
	}()

	inErr := make(chan error, 1)
	go func() {
		inErr <- c.forward(ctx)
	}()

	var err error
	select {
	case err = <-inErr:
	case err = <-pumpErr:
	case <-ctx.Done():
	}
	cancel()
	wg.Wait()
	c.logger.Debug("console: closed (%v)", err)
	return err
}

// pump copies port output to the terminal.
func (c *Console) pump(ctx context.Context) error {
	buf := make([]byte, 256)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, err := c.port.Read(buf)
		if n > 0 {
			if _, werr := c.out.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if err != nil && !xmodem.IsTimeout(err) {
			return err
		}
	}
}

// forward copies terminal input to the port until the escape byte. The
// goroutine running it may stay blocked in in.Read after the console closes;
// whatever it reads then is dropped.
func (c *Console) forward(ctx context.Context) error {
	buf := make([]byte, 64)
	for {
		n, err := c.in.Read(buf)
		if ctx.Err() != nil {
			return nil
		}
		if n > 0 {
			chunk := buf[:n]
			i := bytes.IndexByte(chunk, c.escape)
			if i >= 0 {
				chunk = chunk[:i]
			}
			if len(chunk) > 0 {
				if _, werr := c.port.Write(chunk); werr != nil {
					return werr
				}
				if ferr := c.port.Flush(); ferr != nil {
					return ferr
				}
			}
			if i >= 0 {
				return nil
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// RunTerminal runs a console reading from in and writing to stdout,
// switching stdin to raw mode when it is a terminal. in is usually os.Stdin
// or a reader fed from it.
func RunTerminal(ctx context.Context, port xmodem.Transport, in io.Reader, logger xmodem.Logger) error {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			return err
		}
		defer term.Restore(fd, oldState)
	}
	return New(port, in, os.Stdout, logger).Run(ctx)
}
