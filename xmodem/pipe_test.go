package xmodem

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPipeDrainsAvailableBytes(t *testing.T) {
	a, b := Pipe()
	defer a.Close()

	_, err := a.Write([]byte("hello"))
	require.NoError(t, err)
	_, err = a.Write([]byte(" world"))
	require.NoError(t, err)

	buf := make([]byte, 64)
	n, err := b.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(buf[:n]))

	small := make([]byte, 3)
	a.Write([]byte("abcdef"))
	n, err = b.Read(small)
	require.NoError(t, err)
	require.Equal(t, "abc", string(small[:n]))
	n, err = b.Read(small)
	require.NoError(t, err)
	require.Equal(t, "def", string(small[:n]))
}

func TestPipeFirstByteTimeout(t *testing.T) {
	a, b := Pipe()
	defer a.Close()
	require.NoError(t, b.SetReadTimeout(20*time.Millisecond))

	start := time.Now()
	n, err := b.Read(make([]byte, 1))
	require.Equal(t, 0, n)
	require.True(t, IsTimeout(err))
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	go func() {
		time.Sleep(5 * time.Millisecond)
		a.Write([]byte{ACK})
	}()
	require.NoError(t, b.SetReadTimeout(time.Second))
	n, err = b.Read(make([]byte, 8))
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestPipeClose(t *testing.T) {
	a, b := Pipe()
	a.Write([]byte{1, 2})
	require.NoError(t, a.Close())

	buf := make([]byte, 4)
	n, err := b.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	_, err = b.Read(buf)
	require.Equal(t, io.EOF, err)

	_, err = b.Write([]byte{3})
	require.Equal(t, io.ErrClosedPipe, err)
}

func TestStreamTransport(t *testing.T) {
	pr, pw := io.Pipe()
	var out bytes.Buffer
	st := NewStreamTransport(pr, &out)
	require.NoError(t, st.SetReadTimeout(20*time.Millisecond))

	_, err := st.Read(make([]byte, 1))
	require.True(t, IsTimeout(err))

	go pw.Write([]byte{NAK, ACK})
	require.NoError(t, st.SetReadTimeout(time.Second))
	buf := make([]byte, 2)
	require.NoError(t, readFull(st, buf))
	require.Equal(t, []byte{NAK, ACK}, buf)

	n, err := st.Write([]byte{EOT})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.NoError(t, st.Flush())
	require.Equal(t, []byte{EOT}, out.Bytes())

	pw.Close()
	_, err = st.Read(buf)
	require.Equal(t, io.EOF, err)
}

func TestAsTransport(t *testing.T) {
	a, _ := Pipe()
	require.Same(t, a, AsTransport(a))

	var rw struct {
		io.Reader
		io.Writer
	}
	rw.Reader = bytes.NewReader(nil)
	rw.Writer = io.Discard
	tr := AsTransport(rw)
	require.NoError(t, tr.Flush())
}

func TestReadFullTimeoutOnZeroRead(t *testing.T) {
	err := readFull(zeroReader{}, make([]byte, 2))
	require.True(t, IsTimeout(err))
}

type zeroReader struct{}

func (zeroReader) Read([]byte) (int, error) { return 0, nil }
