// Command patpmtfilter rewrites a transport stream's PAT down to a
// single program, passing every other packet through unchanged. It is
// a streaming, packet-at-a-time rewriter: no whole-file buffering.
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
		sid    = flag.Uint("sid", 0, "service ID (program number) to keep in the rewritten PAT")
	)
	flag.Parse()

	if *sid == 0 {
		log.Fatal("patpmtfilter: -sid is required")
	}

	if err := run(*input, *output, uint16(*sid)); err != nil {
		log.Fatal(err)
	}
}

func run(input, output string, sid uint16) error {
	r, closeIn, err := openInput(input)
	if err != nil {
		return errors.Wrap(err, "patpmtfilter")
	}
	defer closeIn()

	w, closeOut, err := openOutput(output)
	if err != nil {
		return errors.Wrap(err, "patpmtfilter")
	}
	defer closeOut()
	bw := bufio.NewWriterSize(w, tsio.PacketSize*188)
	defer bw.Flush()

	framer := tsio.NewFramer(r)
	var cc rewrite.ContinuityCounter

	for {
		frame, err := framer.Next()
		if err == io.EOF {
			return bw.Flush()
		}
		if err != nil {
			return errors.Wrap(err, "patpmtfilter: read")
		}

		pkt, err := tsio.ParsePacket(frame)
		if err != nil || pkt.Header.PID != tsio.PIDPAT || pkt.Payload == nil {
			if _, err := bw.Write(frame); err != nil {
				return errors.Wrap(err, "patpmtfilter: write")
			}
			continue
		}

		if !pkt.Header.PayloadUnitStart {
			// Mid-section PAT continuation packets are dropped; the
			// rewritten PAT is always small enough to fit in the
			// single packet patpmtfilter re-emits per PAT occurrence.
			continue
		}

		pointerField := int(pkt.Payload[0])
		body := pkt.Payload[1+pointerField:]
		sectionLength := int(body[1]&0x0f)<<8 | int(body[2])
		raw := body[:3+sectionLength]

		if _, err := psi.ParseSection(raw); err != nil {
			if _, err := bw.Write(frame); err != nil {
				return errors.Wrap(err, "patpmtfilter: write")
			}
			continue
		}

		filtered, err := rewrite.FilterPAT(raw, sid)
		if err != nil {
			return errors.Wrap(err, "patpmtfilter: filter PAT")
		}

		for _, out := range rewrite.Repacketize(filtered, tsio.PIDPAT, &cc) {
			if _, err := bw.Write(out); err != nil {
				return errors.Wrap(err, "patpmtfilter: write")
			}
		}
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
