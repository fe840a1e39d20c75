// Package tsio implements the leaf layer of the MPEG-2 transport stream
// pipeline: sync-locked packet framing and the pure packet-header/
// adaptation-field decoder. It has no notion of sections, PES units or
// ARIB captions; those live in the psi, pes, signaling and caption
// packages built on top of it.
package tsio

import (
	"errors"
	"fmt"
)

// SyncByte is the fixed first byte of every transport packet.
const SyncByte = 0x47

// StuffingByte fills unused adaptation-field and packet space.
const StuffingByte = 0xff

// PacketSize is the fixed length of an MPEG-2 TS packet (188-byte
// profile; 192/204-byte FEC-wrapped variants are out of scope).
const PacketSize = 188

// Reserved PIDs.
const (
	PIDPAT  uint16 = 0x0000
	PIDCAT  uint16 = 0x0001
	PIDTSDT uint16 = 0x0002
	PIDNull uint16 = 0x1fff
)

// ErrNotSyncLocked is returned by ParsePacket when the first byte isn't
// SyncByte.
var ErrNotSyncLocked = errors.New("tsio: packet does not start with sync byte 0x47")

// Packet is a pure, allocation-light view over one 188-byte TS frame.
// It never copies the frame; all fields reference the input slice.
type Packet struct {
	Bytes           []byte
	Header          PacketHeader
	AdaptationField *AdaptationField
	Payload         []byte
}

// PacketHeader is the fixed 4-byte TS packet header.
type PacketHeader struct {
	TransportErrorIndicator   bool
	PayloadUnitStart          bool
	TransportPriority         bool
	PID                       uint16
	TransportScramblingControl uint8
	HasAdaptationField        bool
	HasPayload                bool
	ContinuityCounter         uint8
}

// AdaptationField is the optional adaptation field following the
// header when HasAdaptationField is set.
type AdaptationField struct {
	Length                  int
	DiscontinuityIndicator  bool
	RandomAccessIndicator   bool
	ESPriorityIndicator     bool
	HasPCR                  bool
	HasOPCR                 bool
	HasSplicingCountdown    bool
	HasTransportPrivateData bool
	HasExtension            bool
	PCR                     *ClockReference
	OPCR                    *ClockReference
	SpliceCountdown         int8
	TransportPrivateData    []byte
}

// ParsePacket decodes one fixed-size TS frame. frame must be exactly
// PacketSize bytes; the framer guarantees this invariant.
func ParsePacket(frame []byte) (*Packet, error) {
	if len(frame) != PacketSize {
		return nil, fmt.Errorf("tsio: frame is %d bytes, want %d", len(frame), PacketSize)
	}
	if frame[0] != SyncByte {
		return nil, ErrNotSyncLocked
	}

	p := &Packet{Bytes: frame}
	p.Header = parseHeader(frame)

	offset := 4
	if p.Header.HasAdaptationField {
		af, n := parseAdaptationField(frame[4:])
		p.AdaptationField = af
		offset += n
	}
	if p.Header.HasPayload && offset < PacketSize {
		p.Payload = frame[offset:]
	}
	return p, nil
}

func parseHeader(b []byte) PacketHeader {
	return PacketHeader{
		TransportErrorIndicator:    b[1]&0x80 != 0,
		PayloadUnitStart:           b[1]&0x40 != 0,
		TransportPriority:          b[1]&0x20 != 0,
		PID:                        uint16(b[1]&0x1f)<<8 | uint16(b[2]),
		TransportScramblingControl: b[3] >> 6 & 0x3,
		HasAdaptationField:         b[3]&0x20 != 0,
		HasPayload:                 b[3]&0x10 != 0,
		ContinuityCounter:          b[3] & 0x0f,
	}
}

// parseAdaptationField parses the adaptation field starting right
// after the 4-byte header and returns the number of bytes it (plus its
// own length byte) occupies, so the caller can compute the payload
// offset as 4+n.
func parseAdaptationField(b []byte) (*AdaptationField, int) {
	length := int(b[0])
	af := &AdaptationField{Length: length}
	if length == 0 {
		return af, 1
	}

	flags := b[1]
	af.DiscontinuityIndicator = flags&0x80 != 0
	af.RandomAccessIndicator = flags&0x40 != 0
	af.ESPriorityIndicator = flags&0x20 != 0
	af.HasPCR = flags&0x10 != 0
	af.HasOPCR = flags&0x08 != 0
	af.HasSplicingCountdown = flags&0x04 != 0
	af.HasTransportPrivateData = flags&0x02 != 0
	af.HasExtension = flags&0x01 != 0

	offset := 2
	if af.HasPCR && offset+6 <= 2+length {
		cr := parsePCRField(b[offset:])
		af.PCR = &cr
		offset += 6
	}
	if af.HasOPCR && offset+6 <= 2+length {
		cr := parsePCRField(b[offset:])
		af.OPCR = &cr
		offset += 6
	}
	if af.HasSplicingCountdown && offset < 2+length {
		af.SpliceCountdown = int8(b[offset])
		offset++
	}
	if af.HasTransportPrivateData && offset < 2+length {
		n := int(b[offset])
		offset++
		if offset+n <= 2+length {
			af.TransportPrivateData = b[offset : offset+n]
			offset += n
		}
	}
	return af, 1 + length
}

// parsePCRField decodes the 48-bit PCR/OPCR field: 33-bit 90kHz base,
// 6 reserved bits, 9-bit 27MHz extension.
func parsePCRField(b []byte) ClockReference {
	raw := uint64(b[0])<<40 | uint64(b[1])<<32 | uint64(b[2])<<24 | uint64(b[3])<<16 | uint64(b[4])<<8 | uint64(b[5])
	base := raw >> 15
	ext := uint16(raw & 0x1ff)
	return NewClockReference(base, ext)
}
