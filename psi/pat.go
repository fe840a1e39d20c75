package psi

import "github.com/icza/bitio"

// PATData is a decoded Program Association Table: the map from
// program number to the PID carrying that program's PMT.
type PATData struct {
	TransportStreamID uint16
	Programs          []PATProgram
}

// PATProgram is one program_number/program_map_PID pair from a PAT's
// program loop. A program_number of 0 denotes the network PID entry
// rather than a program and is kept as-is; callers filtering by
// service ID should skip it explicitly.
type PATProgram struct {
	ProgramNumber uint16
	ProgramMapPID uint16
}

func parsePATSection(r *bitio.CountReader, offsetSectionsEnd int64, tableIDExtension uint16) (*PATData, error) {
	d := &PATData{TransportStreamID: tableIDExtension}
	for r.BitsCount < offsetSectionsEnd {
		programNumber := uint16(r.TryReadBits(16))
		_ = r.TryReadBits(3) // reserved
		pid := uint16(r.TryReadBits(13))
		d.Programs = append(d.Programs, PATProgram{ProgramNumber: programNumber, ProgramMapPID: pid})
	}
	return d, r.TryError
}
