package caption

import "fmt"

// parseText runs the byte-dispatch loop over one 0x20-parameter data
// unit's payload: C0/C1 controls, ESC set-designation and
// locking-shift sequences, CSI display-format sequences, and GL/GR
// character lookups through whichever G-buffer is currently shifted
// in.
func (in *Interpreter) parseText(b []byte) {
	i := 0
	for i < len(b) {
		c := b[i]
		switch {
		case c == bESC:
			i += in.parseESC(b[i:])
		case c == bCSI:
			i += in.parseCSI(b[i:])
		case c == bSS2:
			i += 1 + in.parseInvoke(b[i+1:], in.gBack[2], 1)
		case c == bSS3:
			i += 1 + in.parseInvoke(b[i+1:], in.gBack[3], 1)
		case c <= bSP || c == bDEL:
			i += in.parseC0(b[i:])
		case c < 0x80:
			i += in.parseInvoke(b[i:], in.gBack[in.gl], 1)
		case c < 0xa0:
			i += in.parseC1(b[i:])
		default:
			i += in.parseInvoke(b[i:], in.gBack[in.gr], 1)
		}
	}
}

// parseInvoke reads one character code (1 or 2 bytes, per set.Size())
// from GL or GR through set, masking each byte to 7 bits, renders it,
// and returns the number of input bytes consumed. shiftOnce is 1 for
// a plain GL/GR reference; SS2/SS3 always consume exactly one code
// from the designated set regardless of the caller's current GL/GR.
func (in *Interpreter) parseInvoke(b []byte, set GBuffer, shiftOnce int) int {
	if set == nil {
		return 1
	}
	n := set.Size()
	if len(b) < n {
		return len(b)
	}
	var code uint32
	for k := 0; k < n; k++ {
		code = code<<8 | uint32(b[k]&0x7f)
	}
	if g, ok := set.Lookup(code); ok {
		in.renderGlyph(g)
	}
	return n
}

func (in *Interpreter) parseC0(b []byte) int {
	switch b[0] {
	case bNUL, bBEL, bCAN, bRS, bUS:
		return 1
	case bAPB:
		in.moveRelativePos(-1, 0)
		return 1
	case bAPF:
		in.moveRelativePos(1, 0)
		return 1
	case bAPD:
		in.moveRelativePos(0, 1)
		return 1
	case bAPU:
		in.moveRelativePos(0, -1)
		return 1
	case bCS:
		if in.Canvas != nil {
			in.Canvas.Clear()
		}
		in.pos = nil
		return 1
	case bAPR:
		in.moveNewline()
		return 1
	case bLS0:
		in.gl = 0
		return 1
	case bLS1:
		in.gl = 1
		return 1
	case bSP:
		in.renderGlyph(Glyph{Kind: GlyphChar, Char: " "})
		return 1
	case bPAPF:
		if len(b) < 2 {
			return len(b)
		}
		in.moveRelativePos(int(b[1]&0x3f), 0)
		return 2
	case bAPS:
		if len(b) < 3 {
			return len(b)
		}
		in.moveAbsolutePos(int(b[2]&0x3f), int(b[1]&0x3f))
		return 3
	default:
		return 1
	}
}

func (in *Interpreter) parseC1(b []byte) int {
	switch b[0] {
	case bBKF, bRDF, bGRF, bYLF, bBLF, bMGF, bCNF, bWHF:
		in.fgIdx = int(b[0] - bBKF)
		return 1
	case bCOL:
		return in.parseCOL(b)
	case bSSZ:
		in.textSize = [2]float64{0.5, 0.5}
		return 1
	case bMSZ:
		in.textSize = [2]float64{0.5, 1}
		return 1
	case bNSZ:
		in.textSize = [2]float64{1, 1}
		return 1
	case bSZX:
		if len(b) < 2 {
			return len(b)
		}
		return 2
	case bFLC:
		if len(b) < 2 {
			return len(b)
		}
		return 2
	case bCDC, bPOL, bWMM, bRPC:
		in.unsupported(fmt.Sprintf("C1 control %#x", b[0]))
		if len(b) < 2 {
			return len(b)
		}
		return 2
	case bSPL:
		in.stl = false
		return 1
	case bHLC:
		if len(b) < 2 {
			return len(b)
		}
		in.hlc = b[1] & 0x0f
		return 2
	case bSTL:
		in.stl = true
		return 1
	case bMACR:
		return in.parseMacro(b)
	case bTIME:
		if len(b) < 3 {
			return len(b)
		}
		return 3
	default:
		return 1
	}
}

// parseCOL reads COL's colour-control/palette-select form: COL P1 [P2]
// where P1's low nibble selects a palette when its high nibble is
// 0x2, or directly a background index (0x48..0x4F window) otherwise.
func (in *Interpreter) parseCOL(b []byte) int {
	if len(b) < 2 {
		return len(b)
	}
	p1 := b[1]
	switch {
	case p1>>4 == 0x2:
		in.paletteIdx = int(p1 & 0x0f)
		return 2
	case p1>>4 == 0x4:
		in.bgIdx = int(p1 & 0x0f)
		return 2
	default:
		return 2
	}
}

// parseMacro expands a stored macro, reassigning G0..G3 to the four
// sets the macro names and resetting GL=G0, GR=G2. ARIB's MACRO control
// also supports inline macro *definition*; this decoder supports only
// invocation of the built-in default macro, matching newMacro's scope.
func (in *Interpreter) parseMacro(b []byte) int {
	if len(b) < 2 {
		return len(b)
	}
	if g, ok := in.macro.Lookup(uint32(b[1])); ok && g.Kind == GlyphMacro {
		for slot, id := range g.Macro {
			in.assignSet(slot, id, false)
		}
		in.gl, in.gr = 0, 2
	} else {
		in.unsupported(fmt.Sprintf("MACRO code %#x", b[1]))
	}
	return 2
}

// parseESC dispatches locking-shift and character-set designation
// sequences.
func (in *Interpreter) parseESC(b []byte) int {
	if len(b) < 2 {
		return len(b)
	}
	switch b[1] {
	case escLS2:
		in.gl = 2
		return 2
	case escLS3:
		in.gl = 3
		return 2
	case escLS1R:
		in.gr = 1
		return 2
	case escLS2R:
		in.gr = 2
		return 2
	case escLS3R:
		in.gr = 3
		return 2
	case escG0, escG1, escG2, escG3:
		id, isDRCS, n, ok := readDesignation(b[2:])
		if !ok {
			return len(b)
		}
		in.assignSet(gSlotFromESC(b[1]), id, isDRCS)
		return 2 + n
	case escG2b:
		if len(b) < 3 {
			return len(b)
		}
		switch b[2] {
		case escG0, escG1, escG2, escG3:
			if len(b) < 4 {
				return len(b)
			}
			id, isDRCS, n, ok := readDesignation(b[3:])
			if !ok {
				return len(b)
			}
			in.assignSet(gSlotFromESC(b[2]), id, isDRCS)
			return 3 + n
		default:
			id, isDRCS, n, ok := readDesignation(b[2:])
			if !ok {
				return len(b)
			}
			in.assignSet(0, id, isDRCS)
			return 2 + n
		}
	default:
		in.unsupported(fmt.Sprintf("ESC %#x", b[1]))
		return 2
	}
}

// readDesignation reads the character-set identifier that follows an
// ESC G0..G3 (or 2-byte-set G0..G3) selector byte. Ordinarily that's a
// single identifying byte, but when it is the 0x20 intermediate byte,
// a DRCS bank designation follows instead, named by the byte after it.
// isDRCS reports which shape was seen: DRCS bank finals (0x40..0x4F)
// share their numeric range with some static-dictionary finals (e.g.
// ALNUM is 0x4A), so the two can only be told apart by whether the
// 0x20 intermediate byte preceded the id, never by the id's value.
func readDesignation(b []byte) (id GSetID, isDRCS bool, consumed int, ok bool) {
	if len(b) == 0 {
		return 0, false, 0, false
	}
	if b[0] == bSP {
		if len(b) < 2 {
			return 0, false, 0, false
		}
		return GSetID(b[1]), true, 2, true
	}
	return GSetID(b[0]), false, 1, true
}

func gSlotFromESC(secondByte byte) int {
	switch secondByte {
	case escG0:
		return 0
	case escG1:
		return 1
	case escG2:
		return 2
	default:
		return 3
	}
}

// assignSet installs the set named by id into G-buffer slot. isDRCS
// must be true only when id was read from a 0x20-prefixed DRCS bank
// designation; the DRCS final-byte range (0x40..0x4F) overlaps real
// static-dictionary finals (ALNUM is 0x4A), so id's value alone can't
// distinguish the two.
func (in *Interpreter) assignSet(slot int, id GSetID, isDRCS bool) {
	switch {
	case isDRCS:
		in.gBack[slot] = in.drcsSet(id)
	case id == GSetMacro:
		in.gBack[slot] = in.macro
	default:
		if set, ok := in.gText[id]; ok {
			in.gBack[slot] = set
		} else {
			in.unsupported(fmt.Sprintf("character set designation %#x", id))
		}
	}
}

// parseCSI dispatches the 0x9B CSI introducer. Every recognized final
// follows the generic decimal-ASCII-parameters, then a single 0x20
// intermediate byte, then the final byte — except ORN, whose
// reference decoder reads two raw bytes immediately after the
// introducer instead of decimal parameters; this interpreter special
// cases that shape rather than forcing it through the generic
// grammar.
func (in *Interpreter) parseCSI(b []byte) int {
	if len(b) < 2 {
		return len(b)
	}
	if n, ok := in.tryParseORN(b); ok {
		return n
	}

	j := 1
	var params []int
	cur, have := 0, false
	for j < len(b) && (b[j] == 0x3b || (b[j] >= 0x30 && b[j] <= 0x39)) {
		if b[j] == 0x3b {
			params = append(params, cur)
			cur, have = 0, false
		} else {
			cur = cur*10 + int(b[j]-0x30)
			have = true
		}
		j++
	}
	if have {
		params = append(params, cur)
	}
	if j >= len(b) || b[j] != bSP {
		in.unsupported("malformed CSI sequence")
		return j + 1
	}
	j++
	if j >= len(b) {
		return j
	}
	final := b[j]
	j++

	switch final {
	case csiSWF:
		if len(params) > 0 {
			in.applySWF(params[0])
		}
	case csiSDF:
		if len(params) >= 2 {
			in.sdf = Size{params[0], params[1]}
		}
	case csiSDP:
		if len(params) >= 2 {
			in.sdp = Point{params[0], params[1]}
		}
	case csiSSM:
		if len(params) >= 2 {
			in.ssm = Size{params[0], params[1]}
		}
	case csiSHS:
		if len(params) > 0 {
			in.shs = params[0]
		}
	case csiSVS:
		if len(params) > 0 {
			in.svs = params[0]
		}
	case csiACPS:
		if len(params) >= 2 {
			in.moveAbsoluteDot(params[0], params[1])
		}
	case csiRCS:
		// Raster colour select: out of scope beyond recording the
		// palette index, already handled via COL.
	default:
		in.unsupported(fmt.Sprintf("CSI final %#x", final))
	}
	return j
}

// applySWF selects one of the standard screen formats; only the
// geometry (not the partitioning into "display areas") matters here
// since this decoder renders a single caption at a time.
func (in *Interpreter) applySWF(format int) {
	switch format {
	case 5:
		in.swf = Size{1920, 1080}
	case 7:
		in.swf = Size{960, 540}
	case 9:
		in.swf = Size{720, 480}
	default:
		in.unsupported(fmt.Sprintf("SWF format %d", format))
		return
	}
	if in.Canvas != nil {
		in.Canvas.Resize(in.swf)
	}
}

// tryParseORN recognizes ORN's raw-byte parameter shape: CSI
// followed directly by a mode byte and a 2-byte palette/colour index,
// then the 0x20 intermediate and the 0x63 final — no ASCII decimal
// encoding involved. Mode 0x31 enables the outline; any other mode
// byte (0x30 in particular) disables it.
func (in *Interpreter) tryParseORN(b []byte) (int, bool) {
	if len(b) < 6 || b[5] != csiORN || b[4] != bSP {
		return 0, false
	}
	mode := b[1]
	colorIdx := int(b[2])<<8 | int(b[3])
	in.ornEnabled = mode == 0x31
	in.ornColor = colorIdx
	return 6, true
}
