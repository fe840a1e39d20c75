// Command headtime reads a transport stream and prints the wall-clock
// time of its first packet, reconstructed from the PCR/PTS clock
// anchored to the stream's TOT/TDT.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/pkg/errors"

	"github.com/jstream/aribts/psi"
	"github.com/jstream/aribts/signaling"
	"github.com/jstream/aribts/tsio"
)

func main() {
	var (
		input = flag.String("input", "-", "input transport-stream file, or - for stdin")
		sid   = flag.Uint("sid", 0, "service ID (program number) to resolve; 0 selects the first program found in the PAT")
	)
	flag.Parse()

	if err := run(*input, uint16(*sid)); err != nil {
		log.Fatal(err)
	}
}

func run(input string, sid uint16) error {
	r, closeFn, err := openInput(input)
	if err != nil {
		return errors.Wrap(err, "headtime")
	}
	defer closeFn()

	framer := tsio.NewFramer(r)
	recon := signaling.NewReconstructor()

	var resolver *signaling.Resolver
	if sid != 0 {
		resolver = signaling.NewResolver(sid)
	}
	pmtReassemblers := map[uint16]*psi.Reassembler{}

	patReassembler := psi.NewReassembler(func(s *psi.Section) {
		if s.PAT == nil {
			return
		}
		for _, p := range s.PAT.Programs {
			if p.ProgramNumber == 0 {
				continue
			}
			if resolver == nil {
				resolver = signaling.NewResolver(p.ProgramNumber)
			}
			if p.ProgramNumber != resolver.State().ServiceID {
				continue
			}
			resolver.ObservePAT(s.PAT)
			if _, ok := pmtReassemblers[p.ProgramMapPID]; !ok {
				pmtReassemblers[p.ProgramMapPID] = psi.NewReassembler(func(inner *psi.Section) {
					if inner.PMT != nil {
						resolver.ObservePMT(inner.PMT)
					}
				}, nil)
			}
		}
	}, nil)

	totReassembler := psi.NewReassembler(func(s *psi.Section) {
		if s.TOT != nil {
			recon.ObserveTOT(s.TOT.UTCTime)
		}
	}, nil)

	var pcrPID uint16
	var pcrPIDKnown bool
	var latestPCRBase uint64
	var havePCR bool
	var firstTOTPCR uint64
	var haveFirstTOTPCR bool

	for {
		frame, err := framer.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, "headtime: read")
		}

		pkt, err := tsio.ParsePacket(frame)
		if err != nil {
			continue
		}

		switch {
		case pkt.Header.PID == tsio.PIDPAT:
			patReassembler.Push(pkt, pkt.Header.PID)
		case pkt.Header.PID == 0x14: // TOT/TDT PID
			totReassembler.Push(pkt, pkt.Header.PID)
		default:
			if pr, ok := pmtReassemblers[pkt.Header.PID]; ok {
				pr.Push(pkt, pkt.Header.PID)
			}
		}

		if resolver != nil && resolver.Resolved() && !pcrPIDKnown {
			pcrPID = resolver.State().PCRPID
			pcrPIDKnown = true
		}

		if pcrPIDKnown && pkt.Header.PID == pcrPID && pkt.AdaptationField != nil && pkt.AdaptationField.PCR != nil {
			latestPCRBase = pkt.AdaptationField.PCR.Base
			havePCR = true
			recon.ObservePCR(latestPCRBase)
		}

		if havePCR && recon.Ready() && !haveFirstTOTPCR {
			firstTOTPCR = latestPCRBase
			haveFirstTOTPCR = true
			break
		}
	}

	if !haveFirstTOTPCR {
		return fmt.Errorf("headtime: stream ended before both a PCR and a TOT/TDT were observed")
	}

	fmt.Println(recon.HeadTime(firstTOTPCR).Format("2006-01-02T15:04:05Z07:00"))
	return nil
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
