// Command segmenter splits a transport stream into fixed-duration .ts
// files named by each segment's reconstructed start time, and records
// a JSON-lines manifest of the segments it closes.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/jstream/aribts/metrics"
	"github.com/jstream/aribts/psi"
	"github.com/jstream/aribts/signaling"
	"github.com/jstream/aribts/tsio"
)

func main() {
	var (
		input      = flag.String("input", "-", "input transport-stream file, or - for stdin")
		outputDir  = flag.String("output-dir", ".", "directory segment files are written into")
		duration   = flag.Duration("duration", 10*time.Minute, "target segment duration")
		sid        = flag.Uint("sid", 0, "service ID (program number) to resolve; 0 selects the first program in the PAT")
		metricsAddr = flag.String("metrics-addr", "", "if set, serve Prometheus metrics on this address")
	)
	flag.Parse()

	reg := metrics.NewRegistry("segmenter")
	if *metricsAddr != "" {
		go func() {
			if err := reg.ListenAndServe(*metricsAddr); err != nil {
				log.Printf("segmenter: metrics server: %v", err)
			}
		}()
	}

	if err := run(*input, *outputDir, *duration, uint16(*sid), reg); err != nil {
		log.Fatal(err)
	}
}

// manifestEntry is one JSON-lines record appended to manifest.jsonl as
// each segment closes.
type manifestEntry struct {
	File      string    `json:"file"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Bytes     int       `json:"bytes"`
}

func run(input, outputDir string, duration time.Duration, sid uint16, reg *metrics.Registry) error {
	r, closeFn, err := openInput(input)
	if err != nil {
		return errors.Wrap(err, "segmenter")
	}
	defer closeFn()

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return errors.Wrap(err, "segmenter: output dir")
	}
	manifest, err := os.Create(filepath.Join(outputDir, "manifest.jsonl"))
	if err != nil {
		return errors.Wrap(err, "segmenter: manifest")
	}
	defer manifest.Close()
	enc := json.NewEncoder(manifest)

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

	var seg *segment

	flush := func(endTime time.Time) error {
		if seg == nil {
			return nil
		}
		n, err := seg.close()
		if err != nil {
			return err
		}
		return enc.Encode(manifestEntry{File: filepath.Base(seg.path), StartTime: seg.start, EndTime: endTime, Bytes: n})
	}

	for {
		frame, err := framer.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, "segmenter: read")
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

		if resolver != nil && resolver.Resolved() && !pcrPIDKnown {
			pcrPID = resolver.State().PCRPID
			pcrPIDKnown = true
		}
		if pcrPIDKnown && pkt.Header.PID == pcrPID && pkt.AdaptationField != nil && pkt.AdaptationField.PCR != nil {
			recon.ObservePCR(pkt.AdaptationField.PCR.Base)
		}

		now := time.Now()
		if recon.Ready() && pcrPIDKnown && pkt.Header.PID == pcrPID && pkt.AdaptationField != nil && pkt.AdaptationField.PCR != nil {
			now = recon.WallClock(pkt.AdaptationField.PCR.Base)
		}

		if seg == nil {
			seg, err = newSegment(outputDir, now)
			if err != nil {
				return err
			}
		} else if now.Sub(seg.start) >= duration {
			if err := flush(now); err != nil {
				return err
			}
			seg, err = newSegment(outputDir, now)
			if err != nil {
				return err
			}
		}

		if err := seg.write(frame); err != nil {
			return err
		}
	}

	return flush(time.Now())
}

type segment struct {
	f     *os.File
	path  string
	start time.Time
	n     int
}

func newSegment(dir string, start time.Time) (*segment, error) {
	name := start.UTC().Format("20060102T150405.000Z") + ".ts"
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("segmenter: create segment: %w", err)
	}
	return &segment{f: f, path: path, start: start}, nil
}

func (s *segment) write(b []byte) error {
	n, err := s.f.Write(b)
	s.n += n
	return err
}

func (s *segment) close() (int, error) {
	n := s.n
	return n, s.f.Close()
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
