package serialport

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParsers(t *testing.T) {
	baud, err := ParseBaudRate("115200")
	require.NoError(t, err)
	require.Equal(t, 115200, baud)
	require.True(t, IsStandardBaudRate(baud))
	baud, err = ParseBaudRate(" 250000 ")
	require.NoError(t, err)
	require.False(t, IsStandardBaudRate(baud))
	_, err = ParseBaudRate("fast")
	require.Error(t, err)
	_, err = ParseBaudRate("0")
	require.Error(t, err)

	for _, w := range []string{"5", "6", "7", "8"} {
		_, err := ParseCharWidth(w)
		require.NoError(t, err)
	}
	_, err = ParseCharWidth("9")
	require.Error(t, err)

	bits, err := ParseStopBits("2")
	require.NoError(t, err)
	require.Equal(t, 2, bits)
	_, err = ParseStopBits("1.5")
	require.Error(t, err)

	testCases := []struct {
		in   string
		want FlowControl
		ok   bool
	}{
		{"none", FlowNone, true},
		{"Hardware", FlowHardware, true},
		{"software", FlowSoftware, true},
		{"rts", FlowNone, false},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseFlowControl(tc.in)
			if !tc.ok {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestValidate(t *testing.T) {
	s := DefaultSettings()
	require.Error(t, s.Validate())

	s.Device = "/dev/ttyUSB0"
	require.NoError(t, s.Validate())

	bad := s
	bad.CharWidth = 4
	require.Error(t, bad.Validate())

	bad = s
	bad.FlowControl = FlowSoftware
	require.Error(t, bad.Validate())

	bad = s
	bad.StopBits = 3
	require.Error(t, bad.Validate())
}

func TestLoadSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "serial.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
device = "/dev/ttyAMA0"
baud_rate = 57600
flow_control = "hardware"
timeout = "250ms"
`), 0o644))

	s, err := LoadSettings(path)
	require.NoError(t, err)
	require.Equal(t, "/dev/ttyAMA0", s.Device)
	require.Equal(t, 57600, s.BaudRate)
	require.Equal(t, 8, s.CharWidth)
	require.Equal(t, 1, s.StopBits)
	require.Equal(t, FlowHardware, s.FlowControl)
	require.Equal(t, 250*time.Millisecond, s.Timeout.Duration)
}

func TestLoadSettingsRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "serial.toml")
	require.NoError(t, os.WriteFile(path, []byte("parity = \"even\"\n"), 0o644))

	_, err := LoadSettings(path)
	require.ErrorContains(t, err, "unknown keys")
}

func TestLoadSettingsBadValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "serial.toml")
	require.NoError(t, os.WriteFile(path, []byte("flow_control = \"rts\"\n"), 0o644))

	_, err := LoadSettings(path)
	require.Error(t, err)
}
