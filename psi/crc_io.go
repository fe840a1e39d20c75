package psi

import "io"

// crc32Reader wraps an io.Reader and accumulates the CRC-32/MPEG-2 of
// every byte that passes through Read, so a section's checksum can be
// computed in the same pass as its bit-level decode instead of a
// second buffer scan. Mirrors the teacher's CRC32Reader, whose source
// wasn't part of the retrieved snapshot but whose call shape
// (NewCRC32Reader(i), then cr.CRC32() after the syntax section has
// been consumed) is preserved exactly.
type crc32Reader struct {
	r   io.Reader
	crc uint32
}

func newCRC32Reader(r io.Reader) *crc32Reader {
	return &crc32Reader{r: r, crc: 0xffffffff}
}

func (c *crc32Reader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.crc = updateCRC32(c.crc, p[:n])
	}
	return n, err
}

func (c *crc32Reader) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(c, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// CRC32 returns the checksum accumulated so far.
func (c *crc32Reader) CRC32() uint32 { return c.crc }

// crc32Writer mirrors crc32Reader on the encoding side: bytes written
// through it are both forwarded and folded into a running checksum.
// Nothing in the module uses it at present; the rewrite package
// computes its trailers with ComputeCRC32.
type crc32Writer struct {
	w   io.Writer
	crc uint32
}

func newCRC32Writer(w io.Writer) *crc32Writer {
	return &crc32Writer{w: w, crc: 0xffffffff}
}

func (c *crc32Writer) Write(p []byte) (int, error) {
	c.crc = updateCRC32(c.crc, p)
	return c.w.Write(p)
}

func (c *crc32Writer) WriteByte(b byte) error {
	_, err := c.Write([]byte{b})
	return err
}

func (c *crc32Writer) CRC32() uint32 { return c.crc }
