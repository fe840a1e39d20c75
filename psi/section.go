package psi

import (
	"errors"
	"fmt"
	"io"

	"github.com/icza/bitio"
)

// TableID identifies the structure of a PSI/SI section's payload.
type TableID uint8

// Table IDs this decoder recognizes; every other value is treated as
// unknown and its section is skipped without error.
const (
	TableIDPAT     TableID = 0x00
	TableIDPMT     TableID = 0x02
	TableIDTDT     TableID = 0x70
	TableIDTOT     TableID = 0x73
	TableIDEITMin  TableID = 0x4e // present/following, actual TS.
	TableIDEITMax  TableID = 0x6f
	TableIDStuffed TableID = 0xff
)

func (t TableID) isEIT() bool { return t >= TableIDEITMin && t <= TableIDEITMax }

// hasSyntaxHeader reports whether the section carries the common
// table_id_extension/version/current_next/section_number header.
func (t TableID) hasSyntaxHeader() bool {
	return t == TableIDPAT || t == TableIDPMT || t.isEIT()
}

// hasCRC32 reports whether the section ends in a 4-byte CRC-32/MPEG-2
// trailer. TOT carries one; TDT, sharing the same PID, does not.
func (t TableID) hasCRC32() bool {
	return t == TableIDPAT || t == TableIDPMT || t == TableIDTOT || t.isEIT()
}

// Section is one decoded PSI/SI section: the common header plus
// exactly one populated payload field for the table types this
// decoder understands.
type Section struct {
	TableID       TableID
	SectionLength uint16
	CRC32         uint32

	SyntaxHeader *SyntaxHeader

	PAT *PATData
	PMT *PMTData
	EIT *EITData
	TOT *TOTData
}

// SyntaxHeader is the common header carried by PAT, PMT and EIT
// sections right after the 3-byte table header.
type SyntaxHeader struct {
	TableIDExtension     uint16
	VersionNumber        uint8
	CurrentNextIndicator bool
	SectionNumber        uint8
	LastSectionNumber    uint8
}

// ErrInvalidCRC32 is returned when a section's trailing checksum
// doesn't match the one computed over its own bytes.
var ErrInvalidCRC32 = errors.New("psi: computed CRC32 doesn't match section CRC32")

// errUnknownTable marks a section whose table_id this decoder doesn't
// interpret; reassembler.go uses it to skip the section without
// surfacing an error to the caller.
var errUnknownTable = errors.New("psi: unrecognized table_id")

// ParseSection decodes one complete section, including its trailing
// CRC-32 when the table type carries one, and validates the checksum.
// body must contain exactly the bytes from table_id through the end of
// the section (inclusive of the CRC-32 trailer, if any); the
// reassembler is responsible for locating those boundaries inside the
// PID's accumulated buffer via SectionLength.
func ParseSection(body []byte) (*Section, error) {
	cr := newCRC32Reader(newByteReader(body))
	r := bitio.NewCountReader(cr)

	s := &Section{}
	tableID := TableID(r.TryReadByte())
	s.TableID = tableID

	if tableID == TableIDStuffed {
		return nil, errUnknownTable
	}

	_ = r.TryReadBool()       // section_syntax_indicator
	_ = r.TryReadBool()       // private/reserved
	_ = r.TryReadBits(2)      // reserved
	s.SectionLength = uint16(r.TryReadBits(12))

	offsetSectionsEnd := int64(3+s.SectionLength) * 8
	if tableID.hasCRC32() {
		offsetSectionsEnd -= 32
	}

	if !tableID.hasSyntaxHeader() && tableID != TableIDTDT && tableID != TableIDTOT {
		return nil, errUnknownTable
	}

	var sh *SyntaxHeader
	if tableID.hasSyntaxHeader() {
		var err error
		sh, err = parseSyntaxHeader(r)
		if err != nil {
			return nil, fmt.Errorf("psi: syntax header: %w", err)
		}
		s.SyntaxHeader = sh
	}

	var err error
	switch {
	case tableID == TableIDPAT:
		s.PAT, err = parsePATSection(r, offsetSectionsEnd, sh.TableIDExtension)
	case tableID == TableIDPMT:
		s.PMT, err = parsePMTSection(r, offsetSectionsEnd, sh.TableIDExtension)
	case tableID.isEIT():
		s.EIT, err = parseEITSection(r, offsetSectionsEnd, sh.TableIDExtension)
	case tableID == TableIDTOT:
		s.TOT, err = parseTOTSection(r)
	case tableID == TableIDTDT:
		s.TOT, err = parseTDTSection(r)
	default:
		return nil, errUnknownTable
	}
	if err != nil {
		return nil, err
	}

	if r.TryError != nil {
		return nil, r.TryError
	}

	if tableID.hasCRC32() {
		computed := cr.CRC32()

		if offsetSectionsEnd > r.BitsCount {
			skip := make([]byte, (offsetSectionsEnd-r.BitsCount)/8)
			tryReadFull(r, skip)
		}

		s.CRC32 = uint32(r.TryReadBits(32))
		if r.TryError != nil {
			return nil, r.TryError
		}
		if computed != s.CRC32 {
			return nil, fmt.Errorf("%w: computed=%#x section=%#x", ErrInvalidCRC32, computed, s.CRC32)
		}
	}

	return s, nil
}

func parseSyntaxHeader(r *bitio.CountReader) (*SyntaxHeader, error) {
	h := &SyntaxHeader{}
	h.TableIDExtension = uint16(r.TryReadBits(16))
	_ = r.TryReadBits(2) // reserved
	h.VersionNumber = uint8(r.TryReadBits(5))
	h.CurrentNextIndicator = r.TryReadBool()
	h.SectionNumber = r.TryReadByte()
	h.LastSectionNumber = r.TryReadByte()
	return h, r.TryError
}

// tryReadFull discards n bytes, recording any error on r.
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

// byteReader adapts a []byte to io.Reader without copying.
type byteReader struct {
	b []byte
	i int
}

func newByteReader(b []byte) *byteReader { return &byteReader{b: b} }

func (r *byteReader) Read(p []byte) (int, error) {
	if r.i >= len(r.b) {
		return 0, io.EOF
	}
	n := copy(p, r.b[r.i:])
	r.i += n
	return n, nil
}
