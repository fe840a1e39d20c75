// Command subtitlestrip erases the descriptor loop (ES_info_length set
// to zero) of every ARIB subtitle elementary stream in every program's
// PMT in a transport stream, passing all other packets through
// unchanged. Unlike patpmtfilter, it tracks a continuity counter and a
// confirmed flag per PMT PID discovered in the PAT, not just a single
// configured program — every program's PMT is
// rewritten, matching the reference stripper's multi-program scope.
package main

import (
	"bufio"
	"flag"
	"io"
	"log"
	"os"

	"github.com/pkg/errors"

	"github.com/jstream/aribts/psi"
	"github.com/jstream/aribts/rewrite"
	"github.com/jstream/aribts/tsio"
)

func main() {
	var (
		input  = flag.String("input", "-", "input transport-stream file, or - for stdin")
		output = flag.String("output", "-", "output transport-stream file, or - for stdout")
	)
	flag.Parse()

	if err := run(*input, *output); err != nil {
		log.Fatal(err)
	}
}

// pmtTrack is the per-PMT-PID state subtitlestrip maintains: the
// continuity counter for its rewritten output, and whether this PID
// has been confirmed (via a successfully parsed PAT) to actually carry
// a PMT, so a PID reused between programs is never mistaken for one.
type pmtTrack struct {
	cc        rewrite.ContinuityCounter
	confirmed bool
}

func run(input, output string) error {
	r, closeIn, err := openInput(input)
	if err != nil {
		return errors.Wrap(err, "subtitlestrip")
	}
	defer closeIn()

	w, closeOut, err := openOutput(output)
	if err != nil {
		return errors.Wrap(err, "subtitlestrip")
	}
	defer closeOut()
	bw := bufio.NewWriterSize(w, tsio.PacketSize*188)
	defer bw.Flush()

	framer := tsio.NewFramer(r)
	tracks := map[uint16]*pmtTrack{}

	for {
		frame, err := framer.Next()
		if err == io.EOF {
			return bw.Flush()
		}
		if err != nil {
			return errors.Wrap(err, "subtitlestrip: read")
		}

		pkt, err := tsio.ParsePacket(frame)
		if err != nil {
			if _, err := bw.Write(frame); err != nil {
				return errors.Wrap(err, "subtitlestrip: write")
			}
			continue
		}

		if pkt.Header.PID == tsio.PIDPAT {
			observePAT(pkt, tracks)
		}

		track, tracked := tracks[pkt.Header.PID]
		if !tracked || !track.confirmed || pkt.Payload == nil || !pkt.Header.PayloadUnitStart {
			if _, err := bw.Write(frame); err != nil {
				return errors.Wrap(err, "subtitlestrip: write")
			}
			continue
		}

		pointerField := int(pkt.Payload[0])
		body := pkt.Payload[1+pointerField:]
		if len(body) < 3 {
			continue
		}
		sectionLength := int(body[1]&0x0f)<<8 | int(body[2])
		if len(body) < 3+sectionLength {
			if _, err := bw.Write(frame); err != nil {
				return errors.Wrap(err, "subtitlestrip: write")
			}
			continue
		}
		raw := body[:3+sectionLength]

		if _, err := psi.ParseSection(raw); err != nil {
			if _, err := bw.Write(frame); err != nil {
				return errors.Wrap(err, "subtitlestrip: write")
			}
			continue
		}

		stripped, err := rewrite.StripPMTSubtitles(raw)
		if err != nil {
			return errors.Wrap(err, "subtitlestrip: strip PMT")
		}

		for _, out := range rewrite.Repacketize(stripped, pkt.Header.PID, &track.cc) {
			if _, err := bw.Write(out); err != nil {
				return errors.Wrap(err, "subtitlestrip: write")
			}
		}
	}
}

// observePAT parses a PAT packet (if it is one, and carries a full
// section already) and registers every program_map_PID it names as a
// tracked PMT PID.
func observePAT(pkt *tsio.Packet, tracks map[uint16]*pmtTrack) {
	if pkt.Payload == nil || !pkt.Header.PayloadUnitStart {
		return
	}
	pointerField := int(pkt.Payload[0])
	body := pkt.Payload[1+pointerField:]
	if len(body) < 3 {
		return
	}
	sectionLength := int(body[1]&0x0f)<<8 | int(body[2])
	if len(body) < 3+sectionLength {
		return
	}

	section, err := psi.ParseSection(body[:3+sectionLength])
	if err != nil || section.PAT == nil {
		return
	}
	for _, p := range section.PAT.Programs {
		if p.ProgramNumber == 0 {
			continue
		}
		t, ok := tracks[p.ProgramMapPID]
		if !ok {
			t = &pmtTrack{}
			tracks[p.ProgramMapPID] = t
		}
		t.confirmed = true
	}
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}
