package xmodem

import (
	"bytes"
	"fmt"
	"io"
)

// receiveResult is the outcome of one successful readPacket call.
type receiveResult int

const (
	receivedPacket receiveResult = iota
	receivedDuplicate
	receivedEnd
)

// Receive writes every received packet to into and returns the number of
// bytes written. Packets are written whole unless the session trims padding.
//
// Flow:
//  1. Send NAK to ask for the first packet
//  2. Read packets, answering ACK or NAK (up to the retry bound per packet)
//  3. EOT -> NAK, EOT -> ACK
func (s *Session) Receive(into io.Writer) (int64, error) {
	if err := s.begin(); err != nil {
		return 0, err
	}

	sink := &packetSink{writer: into, trim: s.config.TrimPadding}
	wire := make([]byte, PacketSize)

	s.progress(Waiting)
	if err := s.writeByte(NAK); err != nil {
		return 0, err
	}

	for {
		var result receiveResult
		// A resent previous packet is ACKed again but still costs an attempt
		// of the packet we are waiting for, so a sender stuck on it ends in
		// ErrBrokenPipe.
		err := s.retry.Do("bad receive", func(attempt int) error {
			var err error
			result, err = s.readPacket(wire, sink)
			if err == nil && result == receivedDuplicate {
				err = NewError(ErrInterrupted, fmt.Sprintf("duplicate of packet %d", s.seq-1))
			}
			if IsInterrupted(err) {
				s.logger.Debug("Receive: packet %d rejected (attempt %d): %v", s.seq, attempt, err)
			}
			return err
		})
		if err != nil {
			s.logger.Error("Receive: failed after %d packets: %v", s.packets, err)
			return sink.written, err
		}

		if result == receivedEnd {
			if err := sink.close(); err != nil {
				return sink.written, err
			}
			s.logger.Info("Receive: complete, %d bytes in %d packets", sink.written, s.packets)
			return sink.written, nil
		}
	}
}

// readPacket reads one packet or the end of transmission. wire is scratch
// space of PacketSize bytes.
func (s *Session) readPacket(wire []byte, sink *packetSink) (receiveResult, error) {
	b, err := s.readByte()
	if err != nil {
		return 0, err
	}

	switch b {
	case SOH:
		if !s.started {
			s.started = true
			s.progress(Started)
		}

		// Drain the whole body before judging the header so the next read
		// starts on a packet boundary.
		wire[0] = SOH
		if err := readFull(s.transport, wire[1:]); err != nil {
			return 0, err
		}

		switch checkHeader(wire[1], wire[2], s.seq) {
		case headerDuplicate:
			if s.packets > 0 {
				s.logger.Debug("Receive: duplicate packet %d acknowledged", wire[1])
				return receivedDuplicate, s.writeByte(ACK)
			}
			fallthrough
		case headerBad:
			if err := s.writeByte(NAK); err != nil {
				return 0, err
			}
			return 0, NewError(ErrInterrupted, fmt.Sprintf("packet number mismatch: got %d/%d, want %d", wire[1], wire[2], s.seq))
		}

		packet, err := DecodePacket(wire, s.seq)
		if err != nil {
			if err := s.writeByte(NAK); err != nil {
				return 0, err
			}
			return 0, err
		}

		if err := s.writeByte(ACK); err != nil {
			return 0, err
		}
		s.progress(PacketProgress(packet.Seq))
		if err := sink.write(packet.Payload[:]); err != nil {
			return 0, err
		}
		s.seq++
		s.packets++
		return receivedPacket, nil

	case EOT:
		if err := s.writeByte(NAK); err != nil {
			return 0, err
		}
		if err := s.expectByte(EOT, "expected second EOT"); err != nil {
			return 0, err
		}
		if err := s.writeByte(ACK); err != nil {
			return 0, err
		}
		return receivedEnd, nil

	case CAN:
		return 0, NewError(ErrConnectionAborted, "received CAN")

	default:
		if err := s.writeByte(NAK); err != nil {
			return 0, err
		}
		return 0, NewError(ErrInvalidData, fmt.Sprintf("expected SOH or EOT, got %s", ControlName(b)))
	}
}

// packetSink writes received payloads. When trimming it holds the latest
// packet back until it is known not to be the last one.
type packetSink struct {
	writer  io.Writer
	trim    bool
	pending []byte
	written int64
}

func (k *packetSink) write(payload []byte) error {
	if !k.trim {
		return k.emit(payload)
	}
	if k.pending != nil {
		if err := k.emit(k.pending); err != nil {
			return err
		}
	} else {
		k.pending = make([]byte, PayloadSize)
	}
	copy(k.pending, payload)
	return nil
}

func (k *packetSink) close() error {
	if !k.trim || k.pending == nil {
		return nil
	}
	last := bytes.TrimRight(k.pending, "\x00")
	k.pending = nil
	if len(last) == 0 {
		return nil
	}
	return k.emit(last)
}

func (k *packetSink) emit(p []byte) error {
	n, err := k.writer.Write(p)
	k.written += int64(n)
	if err != nil {
		return WrapError(ErrIO, "write sink", err)
	}
	return nil
}
