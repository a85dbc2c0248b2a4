// Package xmodem implements the XMODEM file transfer protocol.
//
// XMODEM is a half-duplex, packet-oriented protocol designed for use over
// serial connections. Every packet carries 128 bytes of payload and an 8-bit
// checksum, and the receiver acknowledges each packet before the next one is
// sent. This package provides both the transmitting and the receiving side
// over any byte stream that satisfies the Transport contract.
//
// The package is designed as a library that host tools wrap around a serial
// port or an SSH session, and it provides hooks for progress reporting and
// protocol logging.
package xmodem

import "fmt"

// Control bytes
const (
	// SOH marks the start of a 128-byte packet
	SOH byte = 0x01

	// EOT ends the transmission
	EOT byte = 0x04

	// ACK acknowledges a packet or the final EOT
	ACK byte = 0x06

	// NAK rejects a packet; the receiver also sends it to start a transfer
	NAK byte = 0x15

	// CAN cancels the transfer
	CAN byte = 0x18
)

// Packet layout
const (
	// PayloadSize is the number of data bytes in every packet
	PayloadSize = 128

	// HeaderSize covers the start byte, the sequence byte and its complement
	HeaderSize = 3

	// PacketSize is the size of a packet on the wire
	PacketSize = HeaderSize + PayloadSize + 1
)

// MaxAttempts bounds the number of tries for a single packet exchange.
const MaxAttempts = 10

// controlNames provides human-readable names for control bytes
var controlNames = map[byte]string{
	SOH: "SOH",
	EOT: "EOT",
	ACK: "ACK",
	NAK: "NAK",
	CAN: "CAN",
}

// ControlName returns the name of a control byte, or its hex value when the
// byte is not one of the protocol's control bytes.
func ControlName(b byte) string {
	if name, ok := controlNames[b]; ok {
		return name
	}
	return fmt.Sprintf("0x%02x", b)
}
