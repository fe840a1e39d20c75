package tsio

import (
	"bufio"
	"fmt"
	"io"
)

// resyncWindow bounds how many consecutive bad sync bytes a Framer will
// skip before giving up and reporting desync as fatal. Set generously;
// a single dropped byte from a multicast input can desync for at most
// one PacketSize before the next 0x47 realigns.
const resyncWindow = PacketSize * 4

// Framer turns a raw byte stream into a sequence of sync-locked
// 188-byte frames, resynchronizing on 0x47 after any corruption. It
// mirrors the teacher's packet buffer in spirit: read fixed chunks,
// verify sync, and step forward one byte at a time to find the next
// frame boundary when the stream's alignment is lost.
type Framer struct {
	r       *bufio.Reader
	buf     [PacketSize]byte
	Resyncs int
}

// NewFramer wraps r for sync-locked frame extraction.
func NewFramer(r io.Reader) *Framer {
	return &Framer{r: bufio.NewReaderSize(r, PacketSize*64)}
}

// Next returns the next sync-locked 188-byte frame, or io.EOF once the
// underlying reader is exhausted on a packet boundary. The returned
// slice is only valid until the next call to Next.
func (f *Framer) Next() ([]byte, error) {
	for {
		if _, err := io.ReadFull(f.r, f.buf[:1]); err != nil {
			return nil, err
		}
		if f.buf[0] != SyncByte {
			continue
		}
		if _, err := io.ReadFull(f.r, f.buf[1:]); err != nil {
			return nil, err
		}
		if ok, err := f.peekSync(); err != nil {
			return nil, err
		} else if !ok {
			f.Resyncs++
			logger.Warn(fmt.Sprintf("tsio: lost sync after frame, resynchronizing (resync #%d)", f.Resyncs))
			if err := f.resync(); err != nil {
				return nil, err
			}
			continue
		}
		return f.buf[:], nil
	}
}

// peekSync checks that the byte one full packet ahead is also a sync
// byte, confirming the buffer is correctly aligned. It tolerates EOF
// right at the stream's end, since the final packet has no successor.
func (f *Framer) peekSync() (bool, error) {
	next, err := f.r.Peek(1)
	if err == io.EOF {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return next[0] == SyncByte, nil
}

// resync discards bytes one at a time until a sync byte followed by
// another sync byte PacketSize later is found, or resyncWindow is
// exceeded.
func (f *Framer) resync() error {
	for i := 0; i < resyncWindow; i++ {
		b, err := f.r.Peek(1)
		if err != nil {
			return err
		}
		if b[0] != SyncByte {
			if _, err := f.r.Discard(1); err != nil {
				return err
			}
			continue
		}
		ahead, err := f.r.Peek(PacketSize + 1)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if ahead[PacketSize] == SyncByte {
			return nil
		}
		if _, err := f.r.Discard(1); err != nil {
			return err
		}
	}
	return fmt.Errorf("tsio: could not resynchronize within %d bytes", resyncWindow)
}
