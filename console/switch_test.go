package console

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func readN(t *testing.T, r io.Reader, n int) string {
	t.Helper()
	buf := make([]byte, n)
	_, err := io.ReadFull(r, buf)
	require.NoError(t, err)
	return string(buf)
}

func TestSwitchRoutesInput(t *testing.T) {
	src, feed := io.Pipe()
	sw, shell := NewSwitch(src)

	go feed.Write([]byte("ab"))
	require.Equal(t, "ab", readN(t, shell, 2))

	attached := sw.Attach()
	go feed.Write([]byte("cd"))
	require.Equal(t, "cd", readN(t, attached, 2))

	sw.Detach()
	_, err := attached.Read(make([]byte, 1))
	require.Equal(t, io.EOF, err)

	go feed.Write([]byte("ef"))
	require.Equal(t, "ef", readN(t, shell, 2))

	feed.Close()
	_, err = shell.Read(make([]byte, 1))
	require.Equal(t, io.EOF, err)
}
