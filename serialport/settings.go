// Package serialport opens host serial devices as XMODEM transports.
package serialport

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// FlowControl selects the line discipline used by the serial driver.
type FlowControl int

const (
	// FlowNone disables flow control
	FlowNone FlowControl = iota

	// FlowHardware uses the RTS/CTS lines
	FlowHardware

	// FlowSoftware uses XON/XOFF, which cannot carry binary XMODEM payloads
	FlowSoftware
)

func (f FlowControl) String() string {
	switch f {
	case FlowNone:
		return "none"
	case FlowHardware:
		return "hardware"
	case FlowSoftware:
		return "software"
	default:
		return "unknown"
	}
}

// UnmarshalText lets FlowControl be read from TOML.
func (f *FlowControl) UnmarshalText(text []byte) error {
	v, err := ParseFlowControl(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Duration is a time.Duration that TOML reads from strings such as "10s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Settings describes how to open a serial device.
type Settings struct {
	Device      string      `toml:"device"`
	BaudRate    int         `toml:"baud_rate"`
	CharWidth   int         `toml:"char_width"`
	StopBits    int         `toml:"stop_bits"`
	FlowControl FlowControl `toml:"flow_control"`
	Timeout     Duration    `toml:"timeout"`
}

// DefaultSettings returns 115200 baud, 8N1, no flow control and a 10 second
// read timeout.
func DefaultSettings() Settings {
	return Settings{
		BaudRate:    115200,
		CharWidth:   8,
		StopBits:    1,
		FlowControl: FlowNone,
		Timeout:     Duration{10 * time.Second},
	}
}

// Validate checks every field against the ranges the driver accepts.
func (s Settings) Validate() error {
	if s.Device == "" {
		return fmt.Errorf("serial: no device")
	}
	if _, err := ParseBaudRate(strconv.Itoa(s.BaudRate)); err != nil {
		return err
	}
	if _, err := ParseCharWidth(strconv.Itoa(s.CharWidth)); err != nil {
		return err
	}
	if _, err := ParseStopBits(strconv.Itoa(s.StopBits)); err != nil {
		return err
	}
	if s.FlowControl == FlowSoftware {
		return fmt.Errorf("serial: software flow control would swallow XON/XOFF bytes in binary payloads")
	}
	if s.Timeout.Duration < 0 {
		return fmt.Errorf("serial: negative timeout %v", s.Timeout.Duration)
	}
	return nil
}

// LoadSettings reads settings from a TOML file on top of DefaultSettings.
// Keys the file sets but Settings does not know are an error.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	md, err := toml.DecodeFile(path, &s)
	if err != nil {
		return s, fmt.Errorf("serial: load %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return s, fmt.Errorf("serial: load %s: unknown keys %v", path, undecoded)
	}
	return s, nil
}

var standardBaudRates = []int{
	110, 300, 600, 1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200,
	230400, 460800, 921600,
}

// ParseBaudRate parses a baud rate. Standard rates are always accepted;
// other positive rates are passed to the driver as custom rates.
func ParseBaudRate(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid baud rate %q", s)
	}
	return v, nil
}

// IsStandardBaudRate reports whether rate is one of the usual UART rates.
func IsStandardBaudRate(rate int) bool {
	for _, r := range standardBaudRates {
		if r == rate {
			return true
		}
	}
	return false
}

// ParseCharWidth parses a data character width of 5 to 8 bits.
func ParseCharWidth(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < 5 || v > 8 {
		return 0, fmt.Errorf("invalid char width %q: must be 5, 6, 7 or 8", s)
	}
	return v, nil
}

// ParseStopBits parses the number of stop bits, 1 or 2.
func ParseStopBits(s string) (int, error) {
	switch strings.TrimSpace(s) {
	case "1":
		return 1, nil
	case "2":
		return 2, nil
	default:
		return 0, fmt.Errorf("invalid stop bits %q: must be 1 or 2", s)
	}
}

// ParseFlowControl parses "none", "hardware" or "software".
func ParseFlowControl(s string) (FlowControl, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return FlowNone, nil
	case "hardware":
		return FlowHardware, nil
	case "software":
		return FlowSoftware, nil
	default:
		return FlowNone, fmt.Errorf("invalid flow control %q: must be none, hardware or software", s)
	}
}
