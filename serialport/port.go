package serialport

import (
	"fmt"
	"time"

	"go.bug.st/serial"

	"github.com/drunlade/go-xmodem/xmodem"
)

// ctsPollInterval is how often a blocked hardware-flow-control write
// re-checks the CTS line.
const ctsPollInterval = 5 * time.Millisecond

// Port is an open serial device. It satisfies xmodem.Transport and
// xmodem.ReadTimeoutSetter.
type Port struct {
	port     serial.Port
	settings Settings
	timeout  time.Duration
}

// Open opens and configures the device named in s.
func Open(s Settings) (*Port, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: s.BaudRate,
		DataBits: s.CharWidth,
		Parity:   serial.NoParity,
		StopBits: stopBits(s.StopBits),
	}
	if s.FlowControl == FlowHardware {
		mode.InitialStatusBits = &serial.ModemOutputBits{RTS: true, DTR: true}
	}

	sp, err := serial.Open(s.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", s.Device, err)
	}

	p := &Port{port: sp, settings: s}
	if err := p.SetReadTimeout(s.Timeout.Duration); err != nil {
		sp.Close()
		return nil, err
	}
	return p, nil
}

func stopBits(n int) serial.StopBits {
	if n == 2 {
		return serial.TwoStopBits
	}
	return serial.OneStopBit
}

// Settings returns the settings the port was opened with.
func (p *Port) Settings() Settings {
	return p.settings
}

// SetReadTimeout sets how long Read waits for the first byte. Zero waits
// forever.
func (p *Port) SetReadTimeout(d time.Duration) error {
	t := d
	if d <= 0 {
		t = serial.NoTimeout
	}
	if err := p.port.SetReadTimeout(t); err != nil {
		return fmt.Errorf("serial: set timeout: %w", err)
	}
	p.timeout = d
	return nil
}

// Read returns as soon as at least one byte is available. The driver
// reports a timeout as (0, nil), which is turned into an xmodem timeout.
func (p *Port) Read(b []byte) (int, error) {
	n, err := p.port.Read(b)
	if err != nil {
		return n, err
	}
	if n == 0 && len(b) > 0 {
		return 0, xmodem.NewError(xmodem.ErrTimeout, fmt.Sprintf("no data from %s within %v", p.settings.Device, p.timeout))
	}
	return n, nil
}

// Write writes all of b, waiting for CTS first under hardware flow control.
func (p *Port) Write(b []byte) (int, error) {
	if p.settings.FlowControl == FlowHardware {
		if err := p.waitCTS(); err != nil {
			return 0, err
		}
	}

	written := 0
	for written < len(b) {
		n, err := p.port.Write(b[written:])
		written += n
		if err != nil {
			return written, err
		}
		if n == 0 {
			return written, fmt.Errorf("serial: write to %s made no progress", p.settings.Device)
		}
	}
	return written, nil
}

func (p *Port) waitCTS() error {
	var deadline time.Time
	if p.timeout > 0 {
		deadline = time.Now().Add(p.timeout)
	}
	for {
		status, err := p.port.GetModemStatusBits()
		if err != nil {
			return fmt.Errorf("serial: modem status: %w", err)
		}
		if status.CTS {
			return nil
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return xmodem.NewError(xmodem.ErrTimeout, "CTS not asserted")
		}
		time.Sleep(ctsPollInterval)
	}
}

// Flush waits until everything written has left the UART.
func (p *Port) Flush() error {
	return p.port.Drain()
}

// ResetInput discards bytes received but not yet read.
func (p *Port) ResetInput() error {
	return p.port.ResetInputBuffer()
}

// Close closes the device. A transfer blocked in Read fails with an I/O
// error.
func (p *Port) Close() error {
	return p.port.Close()
}

// List returns the serial devices present on the host.
func List() ([]string, error) {
	return serial.GetPortsList()
}
