package rewrite

import (
	"testing"

	"github.com/jstream/aribts/psi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildRawSection assembles a complete table_id..CRC-32 section (the
// same byte shape FilterPAT/StripPMTSubtitles expect as input) from a
// syntax-header-and-body pair.
func buildRawSection(tableID byte, body []byte) []byte {
	sectionLength := len(body) + 4
	header := []byte{tableID, 0x80 | byte(sectionLength>>8)&0x0f, byte(sectionLength)}
	crcInput := append(append([]byte{}, header...), body...)
	crc := psi.ComputeCRC32(crcInput)
	return append(crcInput, byte(crc>>24), byte(crc>>16), byte(crc>>8), byte(crc))
}

func patBody(tsid uint16, entries ...[2]uint16) []byte {
	body := []byte{byte(tsid >> 8), byte(tsid), 0xc1, 0x00, 0x00}
	for _, e := range entries {
		num, pid := e[0], e[1]
		body = append(body, byte(num>>8), byte(num), 0xe0|byte(pid>>8)&0x1f, byte(pid))
	}
	return body
}

// TestFilterPATS5Scenario transcribes the PAT-rewriter worked example:
// programs {1->0x1001, 2->0x1002}, SID=2, keeps exactly {2->0x1002}.
func TestFilterPATS5Scenario(t *testing.T) {
	raw := buildRawSection(0x00, patBody(0x0001, [2]uint16{1, 0x1001}, [2]uint16{2, 0x1002}))

	out, err := FilterPAT(raw, 2)
	require.NoError(t, err)

	s, err := psi.ParseSection(out)
	require.NoError(t, err)
	require.NotNil(t, s.PAT)
	require.Len(t, s.PAT.Programs, 1)
	assert.Equal(t, psi.PATProgram{ProgramNumber: 2, ProgramMapPID: 0x1002}, s.PAT.Programs[0])

	// Invariant 2: valid section, CRC remainder zero, declared
	// section_length equals len(out)-3.
	assert.Equal(t, uint32(0), psi.ComputeCRC32(out))
	assert.Equal(t, len(out)-3, int(s.SectionLength))
}

// TestFilterPATEmptyProgramLoop covers the boundary behaviour where no
// program matches the SID: the rewritten section must still be valid,
// with a zero-entry program loop.
func TestFilterPATEmptyProgramLoop(t *testing.T) {
	raw := buildRawSection(0x00, patBody(0x0001, [2]uint16{1, 0x1001}))

	out, err := FilterPAT(raw, 0x00ff)
	require.NoError(t, err)

	s, err := psi.ParseSection(out)
	require.NoError(t, err)
	require.NotNil(t, s.PAT)
	assert.Empty(t, s.PAT.Programs)
	assert.Equal(t, uint32(0), psi.ComputeCRC32(out))
}

// TestFinishSectionUsesORForLengthHighNibble locks in the rewriter's
// fix for the section_length high-nibble bug: combining the preserved
// flag bits with the new length's high nibble must OR them together,
// not AND, or a section_length above 255 gets truncated.
func TestFinishSectionUsesORForLengthHighNibble(t *testing.T) {
	header := []byte{0x00, 0xb3, 0x00, 0, 0, 0, 0, 0}
	body := make([]byte, 300) // total section_length = 8-3+300+4 = 309, needs a nonzero high nibble

	out, err := finishSection(header, body)
	require.NoError(t, err)

	wantLength := 309
	assert.Equal(t, byte(0xb0|byte(wantLength>>8)&0x0f), out[1])
	assert.Equal(t, byte(wantLength), out[2])
	assert.Equal(t, uint32(0), psi.ComputeCRC32(out))
}

func pmtStreamEntry(streamType byte, pid uint16, desc []byte) []byte {
	e := []byte{streamType, 0xe0 | byte(pid>>8)&0x1f, byte(pid)}
	e = append(e, 0xf0|byte(len(desc)>>8)&0x0f, byte(len(desc)))
	return append(e, desc...)
}

func TestStripPMTSubtitlesZeroesOnlySubtitleDescriptors(t *testing.T) {
	subtitleDesc := []byte{psi.DescriptorTagStreamIdentifier, 0x01, 0x30}
	videoDesc := []byte{0x09, 0x04, 0x01, 0x02, 0x03, 0x04}

	body := []byte{0x00, 0x01, 0xc1, 0x00, 0x00} // syntax header
	body = append(body, 0xe0, 0x01)              // reserved+PCR_PID (0x0001)
	body = append(body, 0xf0, 0x00)              // reserved+program_info_length=0
	body = append(body, pmtStreamEntry(0x02, 0x1050, videoDesc)...)
	body = append(body, pmtStreamEntry(psi.StreamTypeARIBSubtitle, 0x1100, subtitleDesc)...)

	raw := buildRawSection(0x02, body)

	out, err := StripPMTSubtitles(raw)
	require.NoError(t, err)

	s, err := psi.ParseSection(out)
	require.NoError(t, err)
	require.NotNil(t, s.PMT)
	require.Len(t, s.PMT.ElementaryStreams, 2)

	video := s.PMT.ElementaryStreams[0]
	assert.Equal(t, uint16(0x1050), video.ElementaryPID)
	require.Len(t, video.Descriptors, 1)

	sub := s.PMT.ElementaryStreams[1]
	assert.Equal(t, uint16(0x1100), sub.ElementaryPID)
	assert.Empty(t, sub.Descriptors, "subtitle ES_info_length must be zeroed")

	assert.Equal(t, uint32(0), psi.ComputeCRC32(out))
}
