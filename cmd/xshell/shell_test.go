package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransferArgs(t *testing.T) {
	tests := []struct {
		args     []string
		path     string
		compress bool
		trim     bool
		wantErr  bool
	}{
		{args: []string{"kernel8.img"}, path: "kernel8.img"},
		{args: []string{"-z", "kernel8.img"}, path: "kernel8.img", compress: true},
		{args: []string{"out.bin", "--trim"}, path: "out.bin", trim: true},
		{args: []string{"--lz4", "--trim", "out.bin"}, path: "out.bin", compress: true, trim: true},
		{args: nil, wantErr: true},
		{args: []string{"a", "b"}, wantErr: true},
		{args: []string{"-x", "a"}, wantErr: true},
	}

	for _, tt := range tests {
		path, opts, err := transferArgs(tt.args)
		if tt.wantErr {
			require.Error(t, err, "%v", tt.args)
			continue
		}
		require.NoError(t, err, "%v", tt.args)
		require.Equal(t, tt.path, path)
		require.Equal(t, tt.compress, opts.Compress)
		require.Equal(t, tt.trim, opts.TrimPadding)
	}
}
