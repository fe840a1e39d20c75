package caption

import (
	"fmt"
	"math/bits"
)

// parseDRCS consumes one DRCS data unit's payload (parameter 0x30 for
// 1-byte banks, 0x31 for the 2-byte bank), defining each code it finds
// into the bank drcsBankFor picks for codeLen. Layout: NumberOfCode(1),
// then per code: CharacterCode(codeLen), NumberOfFont(1), then per
// font: (FontID:4|Mode:4)(1), Width(1), Height(1), [DepthByte(1) when
// Mode!=0], followed by the packed bitmap itself. Only the uncompressed
// modes 0 and 1 are decoded; any other mode is reported unsupported and
// ends the data unit.
func (in *Interpreter) parseDRCS(codeLen int, b []byte) {
	if len(b) < 1 {
		return
	}
	numberOfCode := int(b[0])
	p := 1

	for n := 0; n < numberOfCode; n++ {
		if p+codeLen+1 > len(b) {
			return
		}
		var code uint32
		for k := 0; k < codeLen; k++ {
			code = code<<8 | uint32(b[p+k])
		}
		p += codeLen

		numberOfFont := int(b[p])
		p++

		for f := 0; f < numberOfFont; f++ {
			if p+3 > len(b) {
				return
			}
			mode := b[p] & 0x0f
			if mode > 1 {
				in.unsupported(fmt.Sprintf("DRCS font mode %#x", mode))
				return
			}
			p++
			width := int(b[p])
			p++
			height := int(b[p])
			p++

			depthBits := 1
			if mode != 0 {
				if p >= len(b) {
					return
				}
				depthBits = bits.Len(uint(b[p]) + 1) // ceil(log2(depth+2))
				p++
			}

			numBytes := (width*height*depthBits + 7) / 8
			if p+numBytes > len(b) {
				return
			}
			bitmap := append([]byte(nil), b[p:p+numBytes]...)
			p += numBytes

			// The first font definition for a code wins; later
			// resolutions of the same code (used for bitmap fallback
			// scaling on some receivers) are skipped.
			if f == 0 {
				bank := in.drcsSet(drcsBankFor(codeLen))
				if ds, ok := bank.(*drcsSet); ok {
					ds.define(code, Glyph{
						Kind:       GlyphDRCS,
						DRCSBitmap: bitmap,
						DRCSWidth:  width,
						DRCSHeight: height,
						DepthBits:  depthBits,
					})
				}
			}
		}
	}
}

// drcsBankFor returns the G-set identifier for the bank a DRCS data
// unit's code length implies: the 2-byte data unit always targets
// bank 0, the 1-byte data unit targets whichever 1-byte bank is
// currently designated into GL/GR (approximated here as bank 1, the
// overwhelmingly common broadcast choice, since the data unit itself
// carries no bank number).
func drcsBankFor(codeLen int) GSetID {
	if codeLen == 2 {
		return GSetDRCS0
	}
	return GSetDRCS1
}
