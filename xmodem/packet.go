package xmodem

import "fmt"

// Packet is a single XMODEM data packet.
//
// Wire format:
//
//	[SOH] [seq] [^seq] [128 payload bytes] [checksum]
type Packet struct {
	Seq     byte
	Payload [PayloadSize]byte
}

// NewPacket builds a packet from a payload of exactly PayloadSize bytes.
// Short final blocks must go through PadPayload first.
func NewPacket(seq byte, payload []byte) (*Packet, error) {
	if len(payload) != PayloadSize {
		return nil, NewError(ErrUnexpectedEOF, fmt.Sprintf("payload must be %d bytes, got %d", PayloadSize, len(payload)))
	}
	p := &Packet{Seq: seq}
	copy(p.Payload[:], payload)
	return p, nil
}

// PadPayload zero-fills buf[n:] so a short final block still occupies a
// whole packet. buf must be PayloadSize bytes long.
func PadPayload(buf []byte, n int) {
	for i := n; i < len(buf); i++ {
		buf[i] = 0
	}
}

// Complement returns the one's complement companion of the sequence byte.
func (p *Packet) Complement() byte {
	return ^p.Seq
}

// Checksum returns the checksum of the payload.
func (p *Packet) Checksum() byte {
	return Checksum(p.Payload[:])
}

// AppendTo appends the wire representation of p to dst.
func (p *Packet) AppendTo(dst []byte) []byte {
	dst = append(dst, SOH, p.Seq, p.Complement())
	dst = append(dst, p.Payload[:]...)
	return append(dst, p.Checksum())
}

// Encode returns the PacketSize-byte wire representation of p.
func (p *Packet) Encode() []byte {
	return p.AppendTo(make([]byte, 0, PacketSize))
}

// String implements fmt.Stringer for logging.
func (p *Packet) String() string {
	return fmt.Sprintf("packet(seq=%d, ^seq=%d, cksum=0x%02x)", p.Seq, p.Complement(), p.Checksum())
}

// headerStatus classifies the sequence/complement pair of an incoming packet
// against the sequence the receiver expects next.
type headerStatus int

const (
	headerOK headerStatus = iota
	headerDuplicate
	headerBad
)

func checkHeader(seq, complement, expected byte) headerStatus {
	if complement != ^seq {
		return headerBad
	}
	switch seq {
	case expected:
		return headerOK
	case expected - 1:
		return headerDuplicate
	default:
		return headerBad
	}
}

// DecodePacket parses a PacketSize-byte wire packet that is expected to carry
// sequence number expected. Sequence and complement mismatches are framing
// errors (ErrInvalidData); a checksum mismatch is ErrInterrupted so the caller
// asks for the same packet again.
func DecodePacket(wire []byte, expected byte) (*Packet, error) {
	if len(wire) != PacketSize {
		return nil, NewError(ErrUnexpectedEOF, fmt.Sprintf("packet must be %d bytes, got %d", PacketSize, len(wire)))
	}
	if wire[0] != SOH {
		return nil, NewError(ErrInvalidData, fmt.Sprintf("expected SOH, got %s", ControlName(wire[0])))
	}
	if wire[2] != ^wire[1] {
		return nil, NewError(ErrInvalidData, "packet number complement mismatch")
	}
	if wire[1] != expected {
		return nil, NewError(ErrInvalidData, fmt.Sprintf("packet number mismatch: got %d, want %d", wire[1], expected))
	}
	p := &Packet{Seq: wire[1]}
	copy(p.Payload[:], wire[HeaderSize:HeaderSize+PayloadSize])
	if sum := wire[PacketSize-1]; p.Checksum() != sum {
		return nil, NewError(ErrInterrupted, fmt.Sprintf("checksum mismatch: got 0x%02x, want 0x%02x", sum, p.Checksum()))
	}
	return p, nil
}
