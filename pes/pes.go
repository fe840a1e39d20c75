// Package pes reassembles Packetized Elementary Stream units from raw
// transport-stream payload bytes and extracts their PTS/DTS
// timestamps, grounded on the same bitio decode style the tsio and psi
// packages use.
package pes

import (
	"fmt"

	"github.com/icza/bitio"
	"github.com/jstream/aribts/tsio"
)

// maxUnitSize bounds one PID's PES accumulation buffer. ARIB caption
// units are small (well under a kilobyte of text/control bytes per
// data group) but a declared length of zero means "unbounded until the
// next payload-start", so a hard ceiling guards against a stream that
// never raises payload_unit_start again.
const maxUnitSize = 64 * 1024

// PTSDTSIndicator values.
const (
	PTSDTSNone     = 0
	ptsdtsReserved = 1
	PTSDTSOnlyPTS  = 2
	PTSDTSBoth     = 3
)

// Unit is one reassembled PES packet.
type Unit struct {
	StreamID     uint8
	PacketLength uint16
	PTS          *tsio.ClockReference
	DTS          *tsio.ClockReference
	Data         []byte
}

// Reassembler accumulates PES bytes for a single PID and emits a Unit
// every time payload_unit_start rises, per the "eager on next start"
// rule: it never waits for PacketLength to be satisfied, since
// PacketLength is frequently 0 (unbounded) for the streams this
// decoder targets.
type Reassembler struct {
	buf      []byte
	started  bool
	onUnit   func(*Unit)
	onError  func(error)
}

// NewReassembler builds a Reassembler that calls onUnit for every
// successfully parsed PES unit. onError, if non-nil, receives parse
// failures; none of them are fatal to the stream.
func NewReassembler(onUnit func(*Unit), onError func(error)) *Reassembler {
	return &Reassembler{onUnit: onUnit, onError: onError}
}

// Push feeds one packet's payload into the reassembler.
func (a *Reassembler) Push(pkt *tsio.Packet) {
	if pkt.Payload == nil {
		return
	}

	if pkt.Header.PayloadUnitStart {
		a.emit()
		a.buf = append(a.buf[:0], pkt.Payload...)
		a.started = true
		return
	}

	if !a.started {
		return
	}
	if len(a.buf)+len(pkt.Payload) > maxUnitSize {
		a.fail(fmt.Errorf("pes: unit exceeds %d bytes, discarding", maxUnitSize))
		a.started = false
		a.buf = a.buf[:0]
		return
	}
	a.buf = append(a.buf, pkt.Payload...)
}

// Flush emits whatever unit is currently in progress; callers use this
// at end-of-stream, where there is no further payload-start to trigger
// emission.
func (a *Reassembler) Flush() { a.emit() }

func (a *Reassembler) emit() {
	if !a.started || len(a.buf) < 6 {
		a.started = false
		a.buf = a.buf[:0]
		return
	}

	unit, err := parseUnit(a.buf)
	if err != nil {
		a.fail(err)
	} else if a.onUnit != nil {
		a.onUnit(unit)
	}

	a.started = false
	a.buf = a.buf[:0]
}

func (a *Reassembler) fail(err error) {
	if a.onError != nil {
		a.onError(err)
	}
}

// parseUnit decodes one complete PES unit: start-code prefix,
// stream_id, packet_length, then (for non-padding/private-stream-2
// streams) an optional header carrying PTS/DTS, followed by payload
// data.
func parseUnit(b []byte) (*Unit, error) {
	if b[0] != 0x00 || b[1] != 0x00 || b[2] != 0x01 {
		return nil, fmt.Errorf("pes: missing start code prefix")
	}

	u := &Unit{StreamID: b[3]}
	u.PacketLength = uint16(b[4])<<8 | uint16(b[5])

	r := bitio.NewCountReader(newByteReader(b[6:]))

	if !hasOptionalHeader(u.StreamID) {
		u.Data = b[6:]
		return u, nil
	}

	_ = r.TryReadBits(2) // marker bits, 10
	_ = r.TryReadBits(2) // scrambling control
	_ = r.TryReadBool()  // priority
	_ = r.TryReadBool()  // data alignment indicator
	_ = r.TryReadBool()  // copyright
	_ = r.TryReadBool()  // original or copy

	ptsDTSIndicator := uint8(r.TryReadBits(2))
	_ = r.TryReadBool() // ESCR flag
	_ = r.TryReadBool() // ES rate flag
	_ = r.TryReadBool() // DSM trick mode flag
	_ = r.TryReadBool() // additional copy info flag
	_ = r.TryReadBool() // CRC flag
	_ = r.TryReadBool() // extension flag

	headerLength := r.TryReadByte()
	if r.TryError != nil {
		return nil, r.TryError
	}

	headerStart := r.BitsCount
	headerEnd := headerStart + int64(headerLength)*8

	switch ptsDTSIndicator {
	case PTSDTSOnlyPTS:
		pts, err := parseTimestamp(r, 0x2)
		if err != nil {
			return nil, fmt.Errorf("pes: PTS: %w", err)
		}
		u.PTS = &pts
	case PTSDTSBoth:
		pts, err := parseTimestamp(r, 0x3)
		if err != nil {
			return nil, fmt.Errorf("pes: PTS: %w", err)
		}
		u.PTS = &pts
		dts, err := parseTimestamp(r, 0x1)
		if err != nil {
			return nil, fmt.Errorf("pes: DTS: %w", err)
		}
		u.DTS = &dts
	}

	if headerEnd > r.BitsCount {
		skip := make([]byte, (headerEnd-r.BitsCount)/8)
		tryReadFull(r, skip)
	}

	u.Data = b[6+3+int(headerLength):]
	return u, r.TryError
}

// parseTimestamp decodes a 5-byte, 33-bit PTS or DTS field:
// sentinelNibble(4) pts[32:30](3) marker(1) pts[29:15](15) marker(1)
// pts[14:0](15) marker(1).
func parseTimestamp(r *bitio.CountReader, sentinelNibble uint8) (tsio.ClockReference, error) {
	_ = r.TryReadBits(4) // sentinel nibble, not validated: some encoders reuse 0x1 for both PTS and DTS.
	_ = sentinelNibble

	high := r.TryReadBits(3)
	_ = r.TryReadBool() // marker bit

	mid := r.TryReadBits(15)
	_ = r.TryReadBool() // marker bit

	low := r.TryReadBits(15)
	_ = r.TryReadBool() // marker bit

	if r.TryError != nil {
		return tsio.ClockReference{}, r.TryError
	}

	base := high<<30 | mid<<15 | low
	return tsio.NewClockReference(base, 0), nil
}

// hasOptionalHeader reports whether stream_id carries the standard PES
// optional header rather than raw payload; padding_stream (0xbe) and
// a handful of other stream IDs never do.
func hasOptionalHeader(streamID uint8) bool {
	switch streamID {
	case 0xbc, 0xbe, 0xbf, 0xf0, 0xf1, 0xff, 0xf2, 0xf8:
		return false
	default:
		return true
	}
}

type byteReader struct {
	b []byte
	i int
}

func newByteReader(b []byte) *byteReader { return &byteReader{b: b} }

func (r *byteReader) Read(p []byte) (int, error) {
	if r.i >= len(r.b) {
		return 0, errEOF
	}
	n := copy(p, r.b[r.i:])
	r.i += n
	return n, nil
}

var errEOF = fmt.Errorf("pes: read past end of unit buffer")

func tryReadFull(r *bitio.CountReader, p []byte) {
	if r.TryError == nil {
		for i := range p {
			p[i] = r.TryReadByte()
			if r.TryError != nil {
				return
			}
		}
	}
}
