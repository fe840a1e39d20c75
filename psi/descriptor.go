package psi

import "github.com/icza/bitio"

// Descriptor tags this decoder interprets. Every other tag is kept as
// a raw byte span so a rewriter can still reproduce it verbatim.
const (
	DescriptorTagStreamIdentifier = 0x52
	DescriptorTagSubtitling       = 0x59
)

// Descriptor is one entry of a descriptor loop. Exactly one of the
// typed fields is populated for a recognized Tag; Raw always holds the
// descriptor's payload bytes (excluding tag/length) so callers that
// only need to pass descriptors through, like the rewriter, never have
// to special-case an unrecognized tag.
type Descriptor struct {
	Tag    uint8
	Length uint8
	Raw    []byte

	StreamIdentifier *StreamIdentifierDescriptor
	Subtitling       *SubtitlingDescriptor
}

// StreamIdentifierDescriptor (tag 0x52) carries the component_tag used
// to correlate a PMT elementary stream with its EIT/teletext/subtitle
// role.
type StreamIdentifierDescriptor struct {
	ComponentTag uint8
}

// SubtitlingDescriptor (tag 0x59) lists the subtitle languages and
// page IDs an elementary stream carries.
type SubtitlingDescriptor struct {
	Items []SubtitlingItem
}

// SubtitlingItem is one language entry of a SubtitlingDescriptor.
type SubtitlingItem struct {
	Language          [3]byte
	Type              uint8
	CompositionPageID uint16
	AncillaryPageID   uint16
}

// parseDescriptors reads a 12-bit descriptor-loop length followed by
// that many bytes of tag/length/payload entries.
func parseDescriptors(r *bitio.CountReader) ([]Descriptor, error) {
	length := int64(r.TryReadBits(12))
	if length <= 0 {
		return nil, r.TryError
	}

	offsetEnd := r.BitsCount + length*8
	var out []Descriptor
	for r.BitsCount < offsetEnd {
		d := Descriptor{Tag: r.TryReadByte(), Length: r.TryReadByte()}
		if r.TryError != nil {
			return nil, r.TryError
		}

		descEnd := r.BitsCount + int64(d.Length)*8
		d.Raw = make([]byte, d.Length)
		tryReadFull(r, d.Raw)
		if r.TryError != nil {
			return nil, r.TryError
		}

		switch d.Tag {
		case DescriptorTagStreamIdentifier:
			if len(d.Raw) >= 1 {
				d.StreamIdentifier = &StreamIdentifierDescriptor{ComponentTag: d.Raw[0]}
			}
		case DescriptorTagSubtitling:
			d.Subtitling = parseSubtitlingDescriptor(d.Raw)
		}

		if r.BitsCount < descEnd {
			skip := make([]byte, (descEnd-r.BitsCount)/8)
			tryReadFull(r, skip)
		}

		out = append(out, d)
	}
	return out, r.TryError
}

func parseSubtitlingDescriptor(raw []byte) *SubtitlingDescriptor {
	d := &SubtitlingDescriptor{}
	for i := 0; i+8 <= len(raw); i += 8 {
		item := SubtitlingItem{
			Type:              raw[i+3],
			CompositionPageID: uint16(raw[i+4])<<8 | uint16(raw[i+5]),
			AncillaryPageID:   uint16(raw[i+6])<<8 | uint16(raw[i+7]),
		}
		copy(item.Language[:], raw[i:i+3])
		d.Items = append(d.Items, item)
	}
	return d
}
