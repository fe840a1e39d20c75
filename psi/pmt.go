package psi

import "github.com/icza/bitio"

// Stream types this decoder cares about; the rest pass through as
// opaque StreamType values.
const (
	StreamTypeARIBSubtitle = 0x06 // caption/superimpose data, private-stream-1 framed.
)

// PMTData is a decoded Program Map Table: the PCR PID and the list of
// elementary streams that make up one program.
type PMTData struct {
	ProgramNumber      uint16
	PCRPID             uint16
	ProgramDescriptors []Descriptor
	ElementaryStreams  []PMTElementaryStream
}

// PMTElementaryStream is one entry of a PMT's stream loop.
type PMTElementaryStream struct {
	StreamType  uint8
	ElementaryPID uint16
	Descriptors []Descriptor
}

// ComponentTag returns the component_tag carried by this stream's
// stream-identifier descriptor, and whether one was present.
func (e PMTElementaryStream) ComponentTag() (uint8, bool) {
	for _, d := range e.Descriptors {
		if d.StreamIdentifier != nil {
			return d.StreamIdentifier.ComponentTag, true
		}
	}
	return 0, false
}

func parsePMTSection(r *bitio.CountReader, offsetSectionsEnd int64, tableIDExtension uint16) (*PMTData, error) {
	d := &PMTData{ProgramNumber: tableIDExtension}

	_ = r.TryReadBits(3) // reserved
	d.PCRPID = uint16(r.TryReadBits(13))

	_ = r.TryReadBits(4) // reserved, ahead of program_info_length
	var err error
	d.ProgramDescriptors, err = parseDescriptors(r)
	if err != nil {
		return nil, err
	}

	for r.BitsCount < offsetSectionsEnd {
		e := PMTElementaryStream{StreamType: r.TryReadByte()}
		_ = r.TryReadBits(3) // reserved
		e.ElementaryPID = uint16(r.TryReadBits(13))

		_ = r.TryReadBits(4) // reserved, ahead of ES_info_length
		e.Descriptors, err = parseDescriptors(r)
		if err != nil {
			return nil, err
		}

		d.ElementaryStreams = append(d.ElementaryStreams, e)
	}
	return d, r.TryError
}
