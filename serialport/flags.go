package serialport

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Overrides holds settings as typed on a command line. Empty fields keep the
// value already in Settings, so flags can be layered over a config file.
type Overrides struct {
	Device      string
	BaudRate    string
	CharWidth   string
	StopBits    string
	FlowControl string
	Timeout     string
}

// Apply returns s with every non-empty override parsed and applied.
func (s Settings) Apply(o Overrides) (Settings, error) {
	var err error
	if o.Device != "" {
		s.Device = o.Device
	}
	if o.BaudRate != "" {
		if s.BaudRate, err = ParseBaudRate(o.BaudRate); err != nil {
			return s, err
		}
	}
	if o.CharWidth != "" {
		if s.CharWidth, err = ParseCharWidth(o.CharWidth); err != nil {
			return s, err
		}
	}
	if o.StopBits != "" {
		if s.StopBits, err = ParseStopBits(o.StopBits); err != nil {
			return s, err
		}
	}
	if o.FlowControl != "" {
		if s.FlowControl, err = ParseFlowControl(o.FlowControl); err != nil {
			return s, err
		}
	}
	if o.Timeout != "" {
		if s.Timeout.Duration, err = ParseTimeout(o.Timeout); err != nil {
			return s, err
		}
	}
	return s, nil
}

// ParseTimeout accepts whole seconds ("10") or a Go duration ("500ms").
func ParseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.Atoi(s); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("invalid timeout %q", s)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid timeout %q", s)
	}
	return d, nil
}

// Resolve loads configPath when it is set, then applies the overrides.
func Resolve(configPath string, o Overrides) (Settings, error) {
	s := DefaultSettings()
	if configPath != "" {
		var err error
		if s, err = LoadSettings(configPath); err != nil {
			return s, err
		}
	}
	return s.Apply(o)
}
