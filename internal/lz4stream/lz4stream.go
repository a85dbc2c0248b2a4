// Package lz4stream packs a byte stream into a length-prefixed lz4 frame.
//
// XMODEM pads the final packet, so the receiver cannot tell where a raw
// lz4 frame ends. The 8-byte big-endian length in front of the frame lets
// the decoder ignore whatever padding follows it.
package lz4stream

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pierrec/lz4"
)

// headerSize is the size of the length prefix.
const headerSize = 8

// Compress reads src to the end and returns a reader over the prefixed,
// compressed stream along with its total size.
func Compress(src io.Reader) (io.Reader, int64, error) {
	var frame bytes.Buffer
	zw := lz4.NewWriter(&frame)
	if _, err := io.Copy(zw, src); err != nil {
		return nil, 0, fmt.Errorf("lz4: compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, 0, fmt.Errorf("lz4: compress: %w", err)
	}

	header := make([]byte, headerSize)
	binary.BigEndian.PutUint64(header, uint64(frame.Len()))
	size := int64(headerSize + frame.Len())
	return io.MultiReader(bytes.NewReader(header), &frame), size, nil
}

// Decoder buffers a prefixed stream and decompresses it into dst on Close.
type Decoder struct {
	dst io.Writer
	buf bytes.Buffer
}

// NewDecoder creates a decoder writing decompressed bytes to dst.
func NewDecoder(dst io.Writer) *Decoder {
	return &Decoder{dst: dst}
}

// Write buffers received bytes.
func (d *Decoder) Write(p []byte) (int, error) {
	return d.buf.Write(p)
}

// Close decompresses the buffered frame and returns the number of bytes
// written to dst. Bytes after the frame are ignored.
func (d *Decoder) Close() (int64, error) {
	data := d.buf.Bytes()
	if len(data) < headerSize {
		return 0, fmt.Errorf("lz4: stream too short (%d bytes)", len(data))
	}
	size := binary.BigEndian.Uint64(data[:headerSize])
	if size > uint64(len(data)-headerSize) {
		return 0, fmt.Errorf("lz4: frame of %d bytes truncated to %d", size, len(data)-headerSize)
	}
	frame := data[headerSize : headerSize+int(size)]
	n, err := io.Copy(d.dst, lz4.NewReader(bytes.NewReader(frame)))
	if err != nil {
		return n, fmt.Errorf("lz4: decompress: %w", err)
	}
	return n, nil
}
