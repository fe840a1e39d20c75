package tsio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildPacket(t *testing.T, pid uint16, pus bool, payload []byte) []byte {
	t.Helper()
	frame := make([]byte, PacketSize)
	frame[0] = SyncByte
	frame[1] = byte(pid >> 8 & 0x1f)
	if pus {
		frame[1] |= 0x40
	}
	frame[2] = byte(pid)
	frame[3] = 0x10 // payload only, no adaptation field, cc=0
	n := copy(frame[4:], payload)
	require.LessOrEqual(t, n, len(payload))
	for i := 4 + n; i < PacketSize; i++ {
		frame[i] = StuffingByte
	}
	return frame
}

func TestParsePacketHeader(t *testing.T) {
	frame := buildPacket(t, 0x0100, true, []byte{0x00, 0x01, 0x02})
	pkt, err := ParsePacket(frame)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0100), pkt.Header.PID)
	assert.True(t, pkt.Header.PayloadUnitStart)
	assert.True(t, pkt.Header.HasPayload)
	assert.False(t, pkt.Header.HasAdaptationField)
	assert.Equal(t, []byte{0x00, 0x01, 0x02}, pkt.Payload[:3])
}

func TestParsePacketRejectsBadSync(t *testing.T) {
	frame := make([]byte, PacketSize)
	_, err := ParsePacket(frame)
	assert.ErrorIs(t, err, ErrNotSyncLocked)
}

func TestParsePacketRejectsWrongSize(t *testing.T) {
	_, err := ParsePacket(make([]byte, 10))
	require.Error(t, err)
}

func TestParseAdaptationFieldWithPCR(t *testing.T) {
	frame := make([]byte, PacketSize)
	frame[0] = SyncByte
	frame[1] = 0x00
	frame[2] = 0x11
	frame[3] = 0x30 // adaptation field + payload present
	frame[4] = 7     // adaptation field length
	frame[5] = 0x10  // PCR flag only

	// 33-bit base = 1, 6 reserved bits, 9-bit extension = 0
	base := uint64(1)
	raw := base<<15 | 0x3f<<9 | 0
	frame[6] = byte(raw >> 40)
	frame[7] = byte(raw >> 32)
	frame[8] = byte(raw >> 24)
	frame[9] = byte(raw >> 16)
	frame[10] = byte(raw >> 8)
	frame[11] = byte(raw)

	pkt, err := ParsePacket(frame)
	require.NoError(t, err)
	require.NotNil(t, pkt.AdaptationField)
	require.NotNil(t, pkt.AdaptationField.PCR)
	assert.Equal(t, uint64(1), pkt.AdaptationField.PCR.Base)
}
