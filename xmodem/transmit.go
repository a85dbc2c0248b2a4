package xmodem

import (
	"fmt"
	"io"
)

// Transmit sends everything read from data to the receiver and returns the
// number of source bytes sent. The final short block is zero-padded on the
// wire but not counted.
//
// Flow:
//  1. Wait for the receiver's NAK
//  2. Send each 128-byte packet until it is ACKed (up to the retry bound)
//  3. EOT -> NAK, EOT -> ACK
func (s *Session) Transmit(data io.Reader) (int64, error) {
	if err := s.begin(); err != nil {
		return 0, err
	}

	var written int64
	buf := make([]byte, PayloadSize)

	for {
		n, err := readBlock(data, buf)
		if err != nil {
			return written, WrapError(ErrIO, "read source", err)
		}
		if n == 0 {
			if err := s.endTransmission(); err != nil {
				s.logger.Error("Transmit: end of transmission failed after %d bytes: %v", written, err)
				return written, err
			}
			s.logger.Info("Transmit: complete, %d bytes in %d packets", written, s.packets)
			return written, nil
		}

		if err := s.awaitHandshake(); err != nil {
			s.logger.Error("Transmit: handshake failed: %v", err)
			return written, err
		}

		PadPayload(buf, n)
		packet, err := NewPacket(s.seq, buf)
		if err != nil {
			return written, err
		}

		err = s.retry.Do("bad transmit", func(attempt int) error {
			if attempt > 1 {
				s.logger.Debug("Transmit: resending %s (attempt %d)", packet, attempt)
			}
			return s.sendPacket(packet)
		})
		if err != nil {
			s.logger.Error("Transmit: %s failed: %v", packet, err)
			return written, err
		}

		written += int64(n)
	}
}

// readBlock reads up to len(buf) bytes, tolerating a short final block.
func readBlock(r io.Reader, buf []byte) (int, error) {
	n, err := io.ReadFull(r, buf)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return n, nil
	}
	return n, err
}

// awaitHandshake waits for the receiver's initial NAK. It runs once per
// transfer, before the first packet or the first EOT.
func (s *Session) awaitHandshake() error {
	if s.started {
		return nil
	}

	s.progress(Waiting)
	if err := s.expectByte(NAK, "expected NAK to start transmission"); err != nil {
		return err
	}
	s.started = true
	s.progress(Started)
	return nil
}

// sendPacket writes one packet and classifies the receiver's answer.
func (s *Session) sendPacket(p *Packet) error {
	s.logger.Debug("send %s", p)
	if err := s.write(p.Encode()); err != nil {
		return err
	}

	b, err := s.readByte()
	if err != nil {
		return err
	}

	switch b {
	case ACK:
		s.progress(PacketProgress(p.Seq))
		s.seq++
		s.packets++
		return nil
	case NAK:
		return NewError(ErrInterrupted, "checksum failed")
	case CAN:
		return NewError(ErrConnectionAborted, "connection aborted by receiver")
	default:
		return NewError(ErrInvalidData, fmt.Sprintf("expected ACK, NAK, or CAN, got %s", ControlName(b)))
	}
}

// endTransmission runs the two-phase EOT handshake. A reply other than NAK
// to the first EOT costs one attempt and the EOT is sent again.
func (s *Session) endTransmission() error {
	if err := s.awaitHandshake(); err != nil {
		return err
	}

	err := s.retry.Do("bad end of transmission", func(attempt int) error {
		if err := s.writeByte(EOT); err != nil {
			return err
		}
		b, err := s.readByte()
		if err != nil {
			return err
		}
		switch b {
		case NAK:
			return nil
		case CAN:
			return NewError(ErrConnectionAborted, "received CAN")
		default:
			return NewError(ErrInterrupted, fmt.Sprintf("expected NAK after first EOT, got %s", ControlName(b)))
		}
	})
	if err != nil {
		return err
	}

	if err := s.writeByte(EOT); err != nil {
		return err
	}
	return s.expectByte(ACK, "expected ACK after second EOT")
}
