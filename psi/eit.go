package psi

import (
	"time"

	"github.com/icza/bitio"
)

// EITData is a decoded Event Information Table section (present/
// following or schedule).
type EITData struct {
	ServiceID                uint16
	TransportStreamID        uint16
	OriginalNetworkID        uint16
	SegmentLastSectionNumber uint8
	LastTableID              uint8
	Events                   []EITEvent
}

// EITEvent is one event entry of an EIT section.
type EITEvent struct {
	EventID        uint16
	StartTime      time.Time
	Duration       time.Duration
	RunningStatus  uint8
	HasFreeCAMode  bool
	Descriptors    []Descriptor
}

func parseEITSection(r *bitio.CountReader, offsetSectionsEnd int64, tableIDExtension uint16) (*EITData, error) {
	d := &EITData{ServiceID: tableIDExtension}

	d.TransportStreamID = uint16(r.TryReadBits(16))
	d.OriginalNetworkID = uint16(r.TryReadBits(16))
	d.SegmentLastSectionNumber = r.TryReadByte()
	d.LastTableID = r.TryReadByte()

	for r.BitsCount < offsetSectionsEnd {
		e := EITEvent{}
		e.EventID = uint16(r.TryReadBits(16))

		var err error
		if e.StartTime, err = parseMJDTime(r); err != nil {
			return nil, err
		}
		if e.Duration, err = parseBCDDurationSeconds(r); err != nil {
			return nil, err
		}

		e.RunningStatus = uint8(r.TryReadBits(3))
		e.HasFreeCAMode = r.TryReadBool()

		if e.Descriptors, err = parseDescriptors(r); err != nil {
			return nil, err
		}

		d.Events = append(d.Events, e)
	}
	return d, r.TryError
}

// parseBCDDurationSeconds reads a 24-bit HHMMSS BCD duration field, as
// used by the EIT event duration.
func parseBCDDurationSeconds(r *bitio.CountReader) (time.Duration, error) {
	h := r.TryReadByte()
	m := r.TryReadByte()
	s := r.TryReadByte()
	if r.TryError != nil {
		return 0, r.TryError
	}
	return bcdDuration(h)*time.Hour + bcdDuration(m)*time.Minute + bcdDuration(s)*time.Second, nil
}
