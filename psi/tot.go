package psi

import (
	"time"

	"github.com/icza/bitio"
)

// TOTData is a decoded Time Offset Table. TDT, sharing PID 0x14, uses
// only the UTCTime field — it has no descriptor loop and no CRC-32,
// unlike TOT.
type TOTData struct {
	UTCTime     time.Time
	Descriptors []Descriptor
}

func parseTOTSection(r *bitio.CountReader) (*TOTData, error) {
	d := &TOTData{}
	var err error
	if d.UTCTime, err = parseMJDTime(r); err != nil {
		return nil, err
	}
	_ = r.TryReadBits(4) // reserved, ahead of descriptors_loop_length
	if d.Descriptors, err = parseDescriptors(r); err != nil {
		return nil, err
	}
	return d, r.TryError
}

func parseTDTSection(r *bitio.CountReader) (*TOTData, error) {
	d := &TOTData{}
	var err error
	if d.UTCTime, err = parseMJDTime(r); err != nil {
		return nil, err
	}
	return d, r.TryError
}
