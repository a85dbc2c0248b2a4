// Package transfer runs one send or receive over a transport on behalf of
// the command line tools.
package transfer

import (
	"context"
	"fmt"
	"io"

	"github.com/drunlade/go-xmodem/internal/lz4stream"
	"github.com/drunlade/go-xmodem/xmodem"
)

// Options selects how a transfer is carried out.
type Options struct {
	// Raw copies bytes straight to the transport without XMODEM framing
	Raw bool

	// Compress wraps the stream in a length-prefixed lz4 frame
	Compress bool

	// TrimPadding strips trailing zero padding from the last packet
	TrimPadding bool

	Progress xmodem.ProgressFunc
	Logger   xmodem.Logger
}

func (o Options) session(t xmodem.Transport, trim bool) *xmodem.Session {
	return xmodem.NewSession(t,
		xmodem.WithProgress(o.Progress),
		xmodem.WithLogger(o.Logger),
		xmodem.WithTrimPadding(trim),
	)
}

// Send writes data to t and returns the number of payload bytes sent.
// Cancelling ctx closes t when it is an io.Closer.
func Send(ctx context.Context, t xmodem.Transport, data io.Reader, opts Options) (int64, error) {
	if opts.Compress {
		packed, _, err := lz4stream.Compress(data)
		if err != nil {
			return 0, err
		}
		data = packed
	}

	return withCancel(ctx, t, func() (int64, error) {
		if opts.Raw {
			n, err := io.Copy(t, data)
			if err != nil {
				return n, err
			}
			return n, t.Flush()
		}
		return opts.session(t, false).Transmit(data)
	})
}

// Recv reads from t into w and returns the number of bytes written to w.
// In raw mode the transfer ends at the first read timeout after data has
// arrived.
func Recv(ctx context.Context, t xmodem.Transport, w io.Writer, opts Options) (int64, error) {
	if opts.Compress {
		dec := lz4stream.NewDecoder(w)
		_, err := withCancel(ctx, t, func() (int64, error) {
			return opts.session(t, false).Receive(dec)
		})
		if err != nil {
			return 0, err
		}
		return dec.Close()
	}

	return withCancel(ctx, t, func() (int64, error) {
		if opts.Raw {
			return readRaw(t, w)
		}
		return opts.session(t, opts.TrimPadding).Receive(w)
	})
}

func readRaw(t io.Reader, w io.Writer) (int64, error) {
	var total int64
	buf := make([]byte, 4096)
	for {
		n, err := t.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return total, werr
			}
			total += int64(n)
		}
		switch {
		case err == io.EOF:
			return total, nil
		case xmodem.IsTimeout(err) && total > 0:
			return total, nil
		case err != nil:
			return total, err
		}
	}
}

func withCancel(ctx context.Context, t xmodem.Transport, fn func() (int64, error)) (int64, error) {
	closer, ok := t.(io.Closer)
	if !ok {
		return fn()
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			closer.Close()
		case <-stop:
		}
	}()

	n, err := fn()
	if err != nil && ctx.Err() != nil {
		return n, fmt.Errorf("%w: %v", ctx.Err(), err)
	}
	return n, err
}
