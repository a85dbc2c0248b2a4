package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const missingDevice = "/dev/ttyXMODEM-missing"

func runArgs(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(append([]string{"ttyread"}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestVersion(t *testing.T) {
	code, stdout, _ := runArgs("--version")
	require.Equal(t, 0, code)
	require.Equal(t, versionString+"\n", stdout)
}

func TestOpenFailureLeavesNoOutputFile(t *testing.T) {
	output := filepath.Join(t.TempDir(), "received.bin")

	code, stdout, stderr := runArgs(missingDevice, "-o", output)
	require.Equal(t, 1, code)
	require.Empty(t, stdout)
	require.Contains(t, stderr, "Error: ")
	require.Contains(t, stderr, missingDevice)

	_, err := os.Stat(output)
	require.True(t, os.IsNotExist(err))
}

func TestFailuresReturnExitCode(t *testing.T) {
	testCases := []struct {
		name string
		args []string
		want string
	}{
		{"no device", nil, "no device"},
		{"device flag", []string{"-d", missingDevice, "--trim"}, missingDevice},
		{"device given twice", []string{missingDevice, "-d", "/dev/ttyS9"}, "device given twice"},
		{"software flow control", []string{missingDevice, "-f", "software"}, "software flow control"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			code, _, stderr := runArgs(tc.args...)
			require.Equal(t, 1, code)
			require.Contains(t, stderr, tc.want)
		})
	}
}
