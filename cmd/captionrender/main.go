// Command captionrender demuxes a transport stream's ARIB subtitle
// elementary stream and renders each caption unit to a PNG, named by
// its reconstructed presentation wall-clock. Font rasterization and
// PNG encoding are this decoder's explicit external collaborators:
// captionrender wires image/png directly, and leaves the
// caption.FontRasterizer boundary to whatever font library a caller
// chooses to supply (none is wired by default, producing
// background-only cells, since no font library is part of this
// corpus's stack).
package main

import (
	"flag"
	"fmt"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/pkg/profile"

	"github.com/jstream/aribts/caption"
	"github.com/jstream/aribts/metrics"
	"github.com/jstream/aribts/pes"
	"github.com/jstream/aribts/psi"
	"github.com/jstream/aribts/signaling"
	"github.com/jstream/aribts/tsio"
)

func main() {
	var (
		input       = flag.String("input", "-", "input transport-stream file, or - for stdin")
		outputDir   = flag.String("output-dir", ".", "directory caption PNGs are written into")
		sid         = flag.Uint("sid", 0, "service ID (program number) to resolve; 0 selects the first program in the PAT")
		cpuProfile  = flag.Bool("cp", false, "write a CPU profile (pkg/profile default path)")
		memProfile  = flag.Bool("mp", false, "write a memory profile (pkg/profile default path)")
		metricsAddr = flag.String("metrics-addr", "", "if set, serve Prometheus metrics on this address")
	)
	flag.Parse()

	if *cpuProfile {
		defer profile.Start(profile.CPUProfile).Stop()
	} else if *memProfile {
		defer profile.Start(profile.MemProfile).Stop()
	}

	reg := metrics.NewRegistry("captionrender")
	if *metricsAddr != "" {
		go func() {
			if err := reg.ListenAndServe(*metricsAddr); err != nil {
				log.Printf("captionrender: metrics server: %v", err)
			}
		}()
	}

	if err := run(*input, *outputDir, uint16(*sid), reg); err != nil {
		log.Fatal(err)
	}
}

func run(input, outputDir string, sid uint16, reg *metrics.Registry) error {
	r, closeFn, err := openInput(input)
	if err != nil {
		return errors.Wrap(err, "captionrender")
	}
	defer closeFn()

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return errors.Wrap(err, "captionrender: output dir")
	}

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
	var pcrPIDKnown, subPIDKnown bool
	var subPID uint16
	var pesReassembler *pes.Reassembler
	index := 0

	renderUnit := func(u *pes.Unit) {
		in := caption.NewInterpreter()
		in.Canvas = caption.NewCanvas(caption.Size{W: 960, H: 540})
		in.OnUnsupported = func(uerr *caption.Unsupported) {
			reg.UnsupportedFeatures.WithLabelValues(uerr.Feature).Inc()
		}

		dataGroup, ok := unwrapSynchronizedPES(u.Data)
		if !ok {
			return
		}
		if err := in.ParseDataGroup(dataGroup); err != nil {
			log.Printf("captionrender: data group: %v", err)
			return
		}

		when := fmt.Sprintf("unit-%06d", index)
		if u.PTS != nil && recon.Ready() {
			when = recon.WallClock(u.PTS.Base).UTC().Format("20060102T150405.000Z")
		}
		index++

		path := filepath.Join(outputDir, when+".png")
		f, err := os.Create(path)
		if err != nil {
			log.Printf("captionrender: create %s: %v", path, err)
			return
		}
		defer f.Close()
		if err := png.Encode(f, in.Canvas.Image()); err != nil {
			log.Printf("captionrender: encode %s: %v", path, err)
		}
	}

	for {
		frame, err := framer.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, "captionrender: read")
		}
		reg.PacketsRead.Inc()

		pkt, err := tsio.ParsePacket(frame)
		if err != nil {
			continue
		}

		switch {
		case pkt.Header.PID == tsio.PIDPAT:
			patReassembler.Push(pkt, pkt.Header.PID)
		case pkt.Header.PID == 0x14:
			totReassembler.Push(pkt, pkt.Header.PID)
		default:
			if pr, ok := pmtReassemblers[pkt.Header.PID]; ok {
				pr.Push(pkt, pkt.Header.PID)
			}
		}

		if resolver != nil && resolver.Resolved() {
			if !pcrPIDKnown {
				pcrPID = resolver.State().PCRPID
				pcrPIDKnown = true
			}
			if !subPIDKnown {
				subPID = resolver.State().SubtitlePID
				subPIDKnown = true
				pesReassembler = pes.NewReassembler(func(u *pes.Unit) {
					reg.PESUnitsEmitted.Inc()
					renderUnit(u)
				}, nil)
			}
		}

		if pcrPIDKnown && pkt.Header.PID == pcrPID && pkt.AdaptationField != nil && pkt.AdaptationField.PCR != nil {
			recon.ObservePCR(pkt.AdaptationField.PCR.Base)
		}

		if subPIDKnown && pkt.Header.PID == subPID {
			pesReassembler.Push(pkt)
		}
	}

	if pesReassembler != nil {
		pesReassembler.Flush()
	}
	return nil
}

// unwrapSynchronizedPES strips a PES_private_data payload's
// data_identifier/PES_data_private_data_id/PES_data_packet_header down
// to the data_group bytes an Interpreter's ParseDataGroup expects.
func unwrapSynchronizedPES(b []byte) ([]byte, bool) {
	if len(b) < 3 {
		return nil, false
	}
	headerLength := int(b[2] & 0x0f)
	offset := 3 + headerLength
	if offset >= len(b) {
		return nil, false
	}
	return b[offset:], true
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
