package rewrite

import "github.com/jstream/aribts/tsio"

// ContinuityCounter is a per-PID 4-bit counter the repacketiser
// advances on every packet it emits, per the invariant that continuity
// counters are private to the rewriter.
type ContinuityCounter struct {
	value uint8
}

// Next returns the counter's current value then advances it mod 16.
func (c *ContinuityCounter) Next() uint8 {
	v := c.value
	c.value = (c.value + 1) % 16
	return v
}

// Repacketize splits a complete section (including its leading
// pointer_field-free bytes — callers pass the section itself, not a
// pre-existing TS payload) into 188-byte TS packets on pid, setting
// payload_unit_start only on the first packet, a leading
// pointer_field=0 byte before the section body, 0xFF trailing
// stuffing on the last packet, and continuity counters drawn from cc.
func Repacketize(section []byte, pid uint16, cc *ContinuityCounter) [][]byte {
	payload := make([]byte, 0, len(section)+1)
	payload = append(payload, 0x00) // pointer_field
	payload = append(payload, section...)

	var packets [][]byte
	for offset := 0; offset < len(payload); offset += tsio.PacketSize - 4 {
		end := offset + (tsio.PacketSize - 4)
		chunk := payload[offset:min(end, len(payload))]

		pkt := make([]byte, tsio.PacketSize)
		pkt[0] = tsio.SyncByte
		pkt[1] = byte(pid >> 8 & 0x1f)
		if offset == 0 {
			pkt[1] |= 0x40 // payload_unit_start_indicator
		}
		pkt[2] = byte(pid)
		pkt[3] = 0x10 | cc.Next() // payload present, no adaptation field

		n := copy(pkt[4:], chunk)
		for i := 4 + n; i < tsio.PacketSize; i++ {
			pkt[i] = tsio.StuffingByte
		}

		packets = append(packets, pkt)
	}
	return packets
}
