package console

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/drunlade/go-xmodem/xmodem"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestConsolePassthrough(t *testing.T) {
	port, board := xmodem.Pipe()
	defer port.Close()
	require.NoError(t, board.SetReadTimeout(2*time.Second))

	inR, inW := io.Pipe()
	var out syncBuffer

	done := make(chan error, 1)
	go func() {
		done <- New(port, inR, &out, nil).Run(context.Background())
	}()

	go inW.Write([]byte("echo hi\r"))
	got := make([]byte, 8)
	_, err := io.ReadFull(board, got)
	require.NoError(t, err)
	require.Equal(t, "echo hi\r", string(got))

	board.Write([]byte("hi\r\n> "))
	require.Eventually(t, func() bool {
		return out.String() == "hi\r\n> "
	}, 2*time.Second, 5*time.Millisecond)

	go inW.Write([]byte{'l', 's', EscapeByte, 'x'})
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("console did not exit on escape")
	}

	got = make([]byte, 2)
	_, err = io.ReadFull(board, got)
	require.NoError(t, err)
	require.Equal(t, "ls", string(got))
}

func TestConsoleStopsOnContext(t *testing.T) {
	port, _ := xmodem.Pipe()
	defer port.Close()
	inR, _ := io.Pipe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- New(port, inR, io.Discard, nil).Run(ctx)
	}()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("console did not stop")
	}
}
