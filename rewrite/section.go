// Package rewrite produces modified PAT/PMT sections — filtered down
// to one program, or with subtitle descriptors stripped from a PMT —
// and repacketises them into stuffed, continuity-numbered TS frames.
// It works directly on raw section bytes rather than psi's decoded
// structs, since the rewrite is a byte-surgery operation that must
// preserve every field it doesn't explicitly touch.
package rewrite

import (
	"errors"
	"fmt"

	"github.com/jstream/aribts/psi"
)

// ErrSectionTooShort is returned when a section buffer is shorter than
// the fixed fields its table_id requires.
var ErrSectionTooShort = errors.New("rewrite: section shorter than its fixed header")

// FilterPAT rebuilds a PAT section containing only the program whose
// program_number equals sid, recomputing section_length and CRC-32.
// raw must be a complete PAT section (table_id through CRC-32
// inclusive) that has already passed psi.ParseSection validation.
func FilterPAT(raw []byte, sid uint16) ([]byte, error) {
	if len(raw) < 12 {
		return nil, ErrSectionTooShort
	}

	header := append([]byte(nil), raw[:8]...)
	programs := raw[8 : len(raw)-4]

	var kept []byte
	for i := 0; i+4 <= len(programs); i += 4 {
		programNumber := uint16(programs[i])<<8 | uint16(programs[i+1])
		if programNumber == sid {
			kept = append(kept, programs[i:i+4]...)
		}
	}

	return finishSection(header, kept)
}

// StripPMTSubtitles rebuilds a PMT section with every ARIB subtitle
// elementary stream's ES_info_length zeroed (its descriptor loop
// erased) while every other byte, including unrelated elementary
// streams and their descriptors, passes through unchanged.
func StripPMTSubtitles(raw []byte) ([]byte, error) {
	if len(raw) < 13 {
		return nil, ErrSectionTooShort
	}

	header := append([]byte(nil), raw[:8]...)

	programInfoLength := int(raw[10]&0x0f)<<8 | int(raw[11])
	fixedEnd := 12 + programInfoLength
	if fixedEnd+4 > len(raw) {
		return nil, ErrSectionTooShort
	}

	body := append([]byte(nil), raw[8:fixedEnd]...)

	streams := raw[fixedEnd : len(raw)-4]
	out := append([]byte(nil), body...)

	for i := 0; i < len(streams); {
		if i+5 > len(streams) {
			return nil, ErrSectionTooShort
		}
		streamType := streams[i]
		elementaryPID := uint16(streams[i+1]&0x1f)<<8 | uint16(streams[i+2])
		esInfoLength := int(streams[i+3]&0x0f)<<8 | int(streams[i+4])
		descStart := i + 5
		descEnd := descStart + esInfoLength
		if descEnd > len(streams) {
			return nil, ErrSectionTooShort
		}

		isSubtitle := streamType == psi.StreamTypeARIBSubtitle && hasSubtitleComponentTag(streams[descStart:descEnd])

		out = append(out, streamType, streams[i+1], elementaryPIDLow(elementaryPID))
		if isSubtitle {
			out = append(out, streams[i+3]&0xf0, 0x00)
		} else {
			out = append(out, streams[i+3], streams[i+4])
			out = append(out, streams[descStart:descEnd]...)
		}

		i = descEnd
	}

	return finishSection(header, out)
}

func elementaryPIDLow(pid uint16) byte { return byte(pid) }

// hasSubtitleComponentTag walks a raw descriptor loop body (already
// sliced to its own length, no leading 12-bit length field) looking
// for a stream-identifier descriptor whose component_tag is the ARIB
// subtitle tag.
func hasSubtitleComponentTag(descs []byte) bool {
	const subtitleComponentTag = 0x30
	for i := 0; i+2 <= len(descs); {
		tag := descs[i]
		length := int(descs[i+1])
		start := i + 2
		end := start + length
		if end > len(descs) {
			return false
		}
		if tag == psi.DescriptorTagStreamIdentifier && length >= 1 && descs[start] == subtitleComponentTag {
			return true
		}
		i = end
	}
	return false
}

// finishSection reassembles table_id..last_section_number (header),
// the already-rebuilt body, a recomputed section_length, and a fresh
// CRC-32/MPEG-2 trailer.
func finishSection(header, body []byte) ([]byte, error) {
	if len(header) != 8 {
		return nil, fmt.Errorf("rewrite: header must be 8 bytes, got %d", len(header))
	}

	sectionLength := len(header) - 3 + len(body) + 4
	if sectionLength > 0x0fff {
		return nil, fmt.Errorf("rewrite: section_length %d exceeds 12-bit field", sectionLength)
	}

	out := append([]byte(nil), header...)
	out[1] = out[1]&0xf0 | byte(sectionLength>>8)&0x0f
	out[2] = byte(sectionLength)
	out = append(out, body...)

	crc := psi.ComputeCRC32(out)
	out = append(out,
		byte(crc>>24), byte(crc>>16), byte(crc>>8), byte(crc))
	return out, nil
}
