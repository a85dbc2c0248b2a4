package transfer

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/drunlade/go-xmodem/xmodem"
)

func payload(n int) []byte {
	p := make([]byte, n)
	rand.New(rand.NewSource(int64(n))).Read(p)
	return p
}

type result struct {
	n   int64
	err error
}

func roundTrip(t *testing.T, data []byte, send, recv Options) ([]byte, result, result) {
	t.Helper()
	a, b := xmodem.Pipe()
	defer a.Close()
	require.NoError(t, a.SetReadTimeout(time.Second))
	require.NoError(t, b.SetReadTimeout(time.Second))

	sent := make(chan result, 1)
	go func() {
		n, err := Send(context.Background(), a, bytes.NewReader(data), send)
		sent <- result{n, err}
	}()

	var out bytes.Buffer
	n, err := Recv(context.Background(), b, &out, recv)
	return out.Bytes(), result{n, err}, <-sent
}

func TestXmodemRoundTripTrimmed(t *testing.T) {
	data := append(payload(300), 'x')
	got, recv, send := roundTrip(t, data, Options{}, Options{TrimPadding: true})
	require.NoError(t, send.err)
	require.NoError(t, recv.err)
	require.Equal(t, int64(len(data)), send.n)
	require.Equal(t, int64(len(data)), recv.n)
	require.Equal(t, data, got)
}

func TestCompressedRoundTrip(t *testing.T) {
	// Trailing zeros would be lost to padding trim; the lz4 length prefix
	// keeps them.
	data := append([]byte(strings.Repeat("boot ", 400)), 0, 0, 0)
	got, recv, send := roundTrip(t, data, Options{Compress: true}, Options{Compress: true})
	require.NoError(t, send.err)
	require.NoError(t, recv.err)
	require.Equal(t, int64(len(data)), recv.n)
	require.Equal(t, data, got)
}

func TestRawRoundTrip(t *testing.T) {
	a, b := xmodem.Pipe()
	defer a.Close()
	require.NoError(t, b.SetReadTimeout(50*time.Millisecond))

	data := payload(1000)
	n, err := Send(context.Background(), a, bytes.NewReader(data), Options{Raw: true})
	require.NoError(t, err)
	require.Equal(t, int64(1000), n)

	var out bytes.Buffer
	n, err = Recv(context.Background(), b, &out, Options{Raw: true})
	require.NoError(t, err)
	require.Equal(t, int64(1000), n)
	require.Equal(t, data, out.Bytes())
}

func TestRawRecvTimesOutWithoutData(t *testing.T) {
	a, b := xmodem.Pipe()
	defer a.Close()
	require.NoError(t, b.SetReadTimeout(20*time.Millisecond))

	_, err := Recv(context.Background(), b, &bytes.Buffer{}, Options{Raw: true})
	require.True(t, xmodem.IsTimeout(err))
}

func TestCancelClosesTransport(t *testing.T) {
	a, _ := xmodem.Pipe()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	// No receiver ever answers, so the sender blocks on the handshake.
	_, err := Send(ctx, a, bytes.NewReader([]byte("abc")), Options{})
	require.Error(t, err)
	require.True(t, errors.Is(err, context.Canceled))
}

func TestPrinterLines(t *testing.T) {
	var out bytes.Buffer
	p := NewPrinter(&out, "kernel8.img", false)
	f := p.Func()
	f(xmodem.Started)
	f(xmodem.PacketProgress(1))
	p.Done()
	require.Equal(t, "Progress: Started\nProgress: Packet(1)\n", out.String())
}

func TestPrinterTerminal(t *testing.T) {
	var out bytes.Buffer
	p := NewPrinter(&out, "kernel8.img", true)
	f := p.Func()
	f(xmodem.PacketProgress(1))
	f(xmodem.PacketProgress(2))
	p.Done()
	require.Contains(t, out.String(), "\rkernel8.img: 256 bytes in ")
	require.True(t, strings.HasSuffix(out.String(), "\n"))
}
