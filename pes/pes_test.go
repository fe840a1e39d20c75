package pes

import (
	"testing"

	"github.com/jstream/aribts/tsio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodePTSDTS packs a 33-bit clock base into the 5-byte sentinel/
// marker-bit layout a PES optional header carries, per parseTimestamp's
// field widths: sentinel(4) high(3) marker(1) mid(15) marker(1)
// low(15) marker(1).
func encodePTSDTS(sentinel uint8, base uint64) []byte {
	high := (base >> 30) & 0x7
	mid := (base >> 15) & 0x7fff
	low := base & 0x7fff

	v := uint64(sentinel&0xf)<<36 | high<<33 | 1<<32 | mid<<17 | 1<<16 | low<<1 | 1
	return []byte{
		byte(v >> 32), byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v),
	}
}

// buildPESUnit assembles one complete PES unit carrying stream_id,
// an optional header with the given PTS/DTS indicator and timestamp
// bytes, and a payload.
func buildPESUnit(streamID uint8, ptsDTSIndicator uint8, timestamps []byte, payload []byte) []byte {
	b := []byte{0x00, 0x00, 0x01, streamID, 0x00, 0x00}
	b = append(b, 0x80)                  // marker bits 10, rest 0
	b = append(b, ptsDTSIndicator<<6)    // PTS_DTS_flags in top 2 bits
	b = append(b, byte(len(timestamps))) // header_data_length
	b = append(b, timestamps...)
	b = append(b, payload...)
	return b
}

func TestReassemblerExtractsOnlyPTS(t *testing.T) {
	const base = uint64(12345)
	pts := encodePTSDTS(0x2, base)
	payload := []byte{0xAA, 0xBB, 0xCC}
	unit := buildPESUnit(0xbd, PTSDTSOnlyPTS, pts, payload)

	pkt := &tsio.Packet{Header: tsio.PacketHeader{PayloadUnitStart: true}, Payload: unit}

	var got *Unit
	r := NewReassembler(func(u *Unit) { got = u }, func(error) {})
	r.Push(pkt)
	r.Flush()

	require.NotNil(t, got)
	require.NotNil(t, got.PTS)
	assert.Nil(t, got.DTS)
	assert.Equal(t, base, got.PTS.Base)
	assert.Equal(t, payload, got.Data)
}

func TestReassemblerExtractsPTSAndDTS(t *testing.T) {
	const ptsBase = uint64(200000)
	const dtsBase = uint64(190000)
	timestamps := append(encodePTSDTS(0x3, ptsBase), encodePTSDTS(0x1, dtsBase)...)
	payload := []byte{0x01, 0x02}
	unit := buildPESUnit(0xbd, PTSDTSBoth, timestamps, payload)

	pkt := &tsio.Packet{Header: tsio.PacketHeader{PayloadUnitStart: true}, Payload: unit}

	var got *Unit
	r := NewReassembler(func(u *Unit) { got = u }, func(error) {})
	r.Push(pkt)
	r.Flush()

	require.NotNil(t, got)
	require.NotNil(t, got.PTS)
	require.NotNil(t, got.DTS)
	assert.Equal(t, ptsBase, got.PTS.Base)
	assert.Equal(t, dtsBase, got.DTS.Base)
	assert.Equal(t, payload, got.Data)
}

func TestReassemblerEmitsOnNextPayloadStart(t *testing.T) {
	first := buildPESUnit(0xbd, PTSDTSNone, nil, []byte{0x01})
	second := buildPESUnit(0xbd, PTSDTSNone, nil, []byte{0x02})

	var units []*Unit
	r := NewReassembler(func(u *Unit) { units = append(units, u) }, func(error) {})

	r.Push(&tsio.Packet{Header: tsio.PacketHeader{PayloadUnitStart: true}, Payload: first})
	assert.Empty(t, units, "unit must not emit until the next start or a Flush")

	r.Push(&tsio.Packet{Header: tsio.PacketHeader{PayloadUnitStart: true}, Payload: second})
	require.Len(t, units, 1)
	assert.Equal(t, []byte{0x01}, units[0].Data)

	r.Flush()
	require.Len(t, units, 2)
	assert.Equal(t, []byte{0x02}, units[1].Data)
}

func TestReassemblerAppendsAcrossContinuationPackets(t *testing.T) {
	unit := buildPESUnit(0xbd, PTSDTSNone, nil, []byte{0x01, 0x02, 0x03, 0x04})
	split := len(unit) - 2

	var got *Unit
	r := NewReassembler(func(u *Unit) { got = u }, func(error) {})
	r.Push(&tsio.Packet{Header: tsio.PacketHeader{PayloadUnitStart: true}, Payload: unit[:split]})
	r.Push(&tsio.Packet{Header: tsio.PacketHeader{PayloadUnitStart: false}, Payload: unit[split:]})
	r.Flush()

	require.NotNil(t, got)
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, got.Data)
}
