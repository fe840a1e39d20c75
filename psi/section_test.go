package psi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildSection assembles a complete table_id..CRC-32 section from a
// syntax-header-and-payload body, computing section_length and the
// CRC-32/MPEG-2 trailer the way finishSection does on the rewrite side.
func buildSection(t *testing.T, tableID TableID, body []byte) []byte {
	t.Helper()
	sectionLength := len(body) + 4
	header := []byte{
		byte(tableID),
		0x80 | byte(sectionLength>>8)&0x0f, // section_syntax_indicator=1
		byte(sectionLength),
	}
	crcInput := append(append([]byte{}, header...), body...)
	crc := ComputeCRC32(crcInput)
	return append(crcInput, byte(crc>>24), byte(crc>>16), byte(crc>>8), byte(crc))
}

func patSyntaxHeader(tsid uint16) []byte {
	return []byte{byte(tsid >> 8), byte(tsid), 0xc1, 0x00, 0x00}
}

func patProgramEntry(num, pid uint16) []byte {
	return []byte{byte(num >> 8), byte(num), 0xe0 | byte(pid>>8)&0x1f, byte(pid)}
}

func TestParseSectionPAT(t *testing.T) {
	body := append(patSyntaxHeader(0x1234),
		append(patProgramEntry(1, 0x0100), patProgramEntry(2, 0x0200)...)...)
	raw := buildSection(t, TableIDPAT, body)

	s, err := ParseSection(raw)
	require.NoError(t, err)
	require.NotNil(t, s.PAT)
	assert.Equal(t, uint16(0x1234), s.PAT.TransportStreamID)
	require.Len(t, s.PAT.Programs, 2)
	assert.Equal(t, PATProgram{ProgramNumber: 1, ProgramMapPID: 0x0100}, s.PAT.Programs[0])
	assert.Equal(t, PATProgram{ProgramNumber: 2, ProgramMapPID: 0x0200}, s.PAT.Programs[1])
}

func TestParseSectionRejectsBadCRC(t *testing.T) {
	body := append(patSyntaxHeader(0x1234), patProgramEntry(1, 0x0100)...)
	raw := buildSection(t, TableIDPAT, body)
	raw[len(raw)-1] ^= 0xff

	_, err := ParseSection(raw)
	assert.ErrorIs(t, err, ErrInvalidCRC32)
}

func TestParseSectionUnknownTableSkipped(t *testing.T) {
	_, err := ParseSection([]byte{0xff, 0x00, 0x00})
	assert.ErrorIs(t, err, errUnknownTable)
}

// buildPMTBody constructs a PMT section body (after the 3-byte table
// header) for one elementary stream carrying a single stream-identifier
// descriptor.
func buildPMTBody(programNumber, pcrPID, elementaryPID uint16, streamType, componentTag uint8) []byte {
	body := append([]byte{}, byte(programNumber>>8), byte(programNumber), 0xc1, 0x00, 0x00) // syntax header
	body = append(body, 0xe0|byte(pcrPID>>8)&0x1f, byte(pcrPID))                            // reserved+PCR_PID
	body = append(body, 0xf0, 0x00)                                                        // reserved+program_info_length=0

	desc := []byte{0x52, 0x01, componentTag} // stream_identifier_descriptor
	esInfoLength := len(desc)

	body = append(body, streamType)
	body = append(body, 0xe0|byte(elementaryPID>>8)&0x1f, byte(elementaryPID))
	body = append(body, 0xf0|byte(esInfoLength>>8)&0x0f, byte(esInfoLength))
	body = append(body, desc...)
	return body
}

func TestParseSectionPMT(t *testing.T) {
	body := buildPMTBody(0x0001, 0x0101, 0x0102, StreamTypeARIBSubtitle, 0x30)
	raw := buildSection(t, TableIDPMT, body)

	s, err := ParseSection(raw)
	require.NoError(t, err)
	require.NotNil(t, s.PMT)
	assert.Equal(t, uint16(0x0001), s.PMT.ProgramNumber)
	assert.Equal(t, uint16(0x0101), s.PMT.PCRPID)
	assert.Empty(t, s.PMT.ProgramDescriptors)

	require.Len(t, s.PMT.ElementaryStreams, 1)
	es := s.PMT.ElementaryStreams[0]
	assert.Equal(t, uint8(StreamTypeARIBSubtitle), es.StreamType)
	assert.Equal(t, uint16(0x0102), es.ElementaryPID)

	tag, ok := es.ComponentTag()
	require.True(t, ok)
	assert.Equal(t, uint8(0x30), tag)
}
