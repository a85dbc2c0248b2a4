package xmodem

// Checksum returns the 8-bit wrapping sum of buf. The sender computes it
// over the padded 128-byte payload, never over the short source block.
func Checksum(buf []byte) byte {
	var sum byte
	for _, b := range buf {
		sum += b
	}
	return sum
}
