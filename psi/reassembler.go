package psi

import (
	"fmt"

	"github.com/jstream/aribts/tsio"
)

// maxSectionSize bounds a single PID's accumulation buffer. It is the
// 4096-byte ceiling PAT/PMT sections may reach, applied to every table;
// DVB SI tables (TOT/TDT/EIT) top out at 1024 by standard, well inside
// it, and are not held to a tighter bound.
const maxSectionSize = 4096

// Reassembler reconstructs PSI/SI sections from the TS packets of a
// single PID, honoring pointer_field on payload_unit_start packets and
// silently discarding a section whose CRC-32 fails rather than
// surfacing it as fatal — a corrupted section is exactly as common as
// a corrupted packet, and the stream keeps flowing around it.
type Reassembler struct {
	buf       []byte
	synced    bool
	onSection func(*Section)
	onError   func(error)
}

// NewReassembler builds a Reassembler that invokes onSection for every
// successfully decoded, CRC-valid section. onError, if non-nil, is
// invoked for sections that fail to parse or fail CRC validation; it
// is never fatal to the stream.
func NewReassembler(onSection func(*Section), onError func(error)) *Reassembler {
	return &Reassembler{onSection: onSection, onError: onError}
}

// Push feeds one packet's payload into the reassembler. pid is passed
// by the caller purely for error messages; the Reassembler itself is
// scoped to one PID by construction (the cmd tools keep one per
// watched PID).
func (a *Reassembler) Push(pkt *tsio.Packet, pid uint16) {
	if pkt.Payload == nil {
		return
	}
	payload := pkt.Payload

	if pkt.Header.PayloadUnitStart {
		pointerField := int(payload[0])
		if 1+pointerField <= len(payload) {
			a.finishPending(payload[1 : 1+pointerField])
		}
		payload = payload[1+pointerField:]
		a.buf = a.buf[:0]
		a.synced = true
	}

	if !a.synced {
		return
	}

	a.append(payload, pid)
}

// finishPending appends filler bytes belonging to a section that
// started in a previous packet, then attempts to parse whatever is
// buffered.
func (a *Reassembler) finishPending(filler []byte) {
	if a.synced && len(filler) > 0 {
		a.append(filler, 0)
	}
}

func (a *Reassembler) append(b []byte, pid uint16) {
	if len(a.buf)+len(b) > maxSectionSize {
		a.fail(fmt.Errorf("psi: pid 0x%04x section exceeds %d bytes, discarding", pid, maxSectionSize))
		a.synced = false
		a.buf = a.buf[:0]
		return
	}
	a.buf = append(a.buf, b...)
	a.drainSections(pid)
}

// drainSections consumes as many complete sections as the buffer
// currently holds, since a single TS packet payload can carry the
// tail of one section and the whole of the next.
func (a *Reassembler) drainSections(pid uint16) {
	for {
		if len(a.buf) < 3 {
			return
		}
		if TableID(a.buf[0]) == TableIDStuffed {
			a.buf = a.buf[:0]
			return
		}

		sectionLength := int(a.buf[1]&0x0f)<<8 | int(a.buf[2])
		total := 3 + sectionLength
		if len(a.buf) < total {
			return
		}

		section, err := ParseSection(a.buf[:total])
		if err != nil {
			if err != errUnknownTable {
				a.fail(fmt.Errorf("psi: pid 0x%04x: %w", pid, err))
			}
		} else if a.onSection != nil {
			a.onSection(section)
		}

		a.buf = a.buf[total:]
	}
}

func (a *Reassembler) fail(err error) {
	if a.onError != nil {
		a.onError(err)
	}
}
