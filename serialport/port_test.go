package serialport

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.bug.st/serial"

	"github.com/drunlade/go-xmodem/xmodem"
)

// fakeSerial stands in for a UART. Methods the tests do not exercise fall
// through to the nil embedded interface.
type fakeSerial struct {
	serial.Port

	input   []byte
	output  bytes.Buffer
	chunk   int
	cts     []bool
	timeout time.Duration
	drained bool
}

func (f *fakeSerial) Read(p []byte) (int, error) {
	if len(f.input) == 0 {
		return 0, nil
	}
	n := copy(p, f.input)
	f.input = f.input[n:]
	return n, nil
}

func (f *fakeSerial) Write(p []byte) (int, error) {
	if f.chunk > 0 && len(p) > f.chunk {
		p = p[:f.chunk]
	}
	return f.output.Write(p)
}

func (f *fakeSerial) SetReadTimeout(t time.Duration) error {
	f.timeout = t
	return nil
}

func (f *fakeSerial) GetModemStatusBits() (*serial.ModemStatusBits, error) {
	if len(f.cts) == 0 {
		return nil, errors.New("no modem")
	}
	cts := f.cts[0]
	if len(f.cts) > 1 {
		f.cts = f.cts[1:]
	}
	return &serial.ModemStatusBits{CTS: cts}, nil
}

func (f *fakeSerial) Drain() error {
	f.drained = true
	return nil
}

func newTestPort(f *fakeSerial, flow FlowControl) *Port {
	s := DefaultSettings()
	s.Device = "/dev/fake"
	s.FlowControl = flow
	return &Port{port: f, settings: s, timeout: time.Second}
}

func TestPortReadTimeout(t *testing.T) {
	f := &fakeSerial{input: []byte{xmodem.NAK}}
	p := newTestPort(f, FlowNone)

	buf := make([]byte, 4)
	n, err := p.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, err = p.Read(buf)
	require.True(t, xmodem.IsTimeout(err))
}

func TestPortSetReadTimeout(t *testing.T) {
	f := &fakeSerial{}
	p := newTestPort(f, FlowNone)

	require.NoError(t, p.SetReadTimeout(3*time.Second))
	require.Equal(t, 3*time.Second, f.timeout)

	require.NoError(t, p.SetReadTimeout(0))
	require.Equal(t, serial.NoTimeout, f.timeout)
}

func TestPortWriteAll(t *testing.T) {
	f := &fakeSerial{chunk: 7}
	p := newTestPort(f, FlowNone)

	payload := bytes.Repeat([]byte{0xaa}, xmodem.PacketSize)
	n, err := p.Write(payload)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
	require.Equal(t, payload, f.output.Bytes())

	require.NoError(t, p.Flush())
	require.True(t, f.drained)
}

func TestPortHardwareFlowControl(t *testing.T) {
	f := &fakeSerial{cts: []bool{false, false, true}}
	p := newTestPort(f, FlowHardware)

	_, err := p.Write([]byte{xmodem.EOT})
	require.NoError(t, err)
	require.Equal(t, []byte{xmodem.EOT}, f.output.Bytes())

	f = &fakeSerial{cts: []bool{false}}
	p = newTestPort(f, FlowHardware)
	p.timeout = 20 * time.Millisecond
	_, err = p.Write([]byte{xmodem.EOT})
	require.True(t, xmodem.IsTimeout(err))
	require.Zero(t, f.output.Len())
}

func TestPortTransmit(t *testing.T) {
	// The receiver's answers are queued up front: handshake NAK, packet
	// ACK, then NAK/ACK for the two EOTs.
	f := &fakeSerial{input: []byte{xmodem.NAK, xmodem.ACK, xmodem.NAK, xmodem.ACK}}
	p := newTestPort(f, FlowNone)

	n, err := xmodem.Transmit(bytes.NewReader([]byte("ABC")), p)
	require.NoError(t, err)
	require.Equal(t, int64(3), n)

	wire := f.output.Bytes()
	require.Len(t, wire, xmodem.PacketSize+2)
	require.Equal(t, []byte{xmodem.SOH, 0x01, 0xfe, 'A', 'B', 'C'}, wire[:6])
	require.Equal(t, byte(0xc6), wire[xmodem.PacketSize-1])
	require.Equal(t, []byte{xmodem.EOT, xmodem.EOT}, wire[xmodem.PacketSize:])
}
