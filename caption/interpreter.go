package caption

import (
	"fmt"
)

// Unsupported is passed to Interpreter.OnUnsupported (never returned
// as an error, never panicked) whenever the interpreter encounters a
// feature the spec explicitly excludes — geometric DRCS, bitmap data
// units, an unrecognized CSI final, and the like. Interpretation of
// the data unit stream continues after it; it is never fatal to the
// run.
type Unsupported struct {
	Feature string
}

func (e *Unsupported) Error() string { return "caption: unsupported feature: " + e.Feature }

// Point is a dot-precision cursor/canvas coordinate.
type Point struct{ X, Y int }

// Size is a width/height pair in dots.
type Size struct{ W, H int }

// Interpreter is one caption unit's full JIS-8 state machine: the
// four G-buffers, GL/GR pointers, cursor, and every display attribute
// a control sequence can mutate. Its lifetime is exactly one rendered
// caption, per the spec's "interpreter state lives for the lifetime of
// one rendered caption" lifecycle rule.
type Interpreter struct {
	gText map[GSetID]GBuffer
	drcs  [16]*drcsSet // index 0 = 2-byte bank, 1..15 = 1-byte banks.
	macro GBuffer

	gBack [4]GBuffer
	gl    int
	gr    int

	swf       Size // screen writing format
	sdf       Size // display format
	sdp       Point
	ssm       Size    // character composition size, dots
	shs, svs  int     // inter-character / inter-line gap, dots
	textSize  [2]float64

	pos *Point

	paletteIdx int
	fgIdx      int
	bgIdx      int
	ornEnabled bool
	ornPalette int
	ornColor   int
	stl        bool
	hlc        uint8

	Canvas *Canvas

	// Rasterizer draws a static-dictionary glyph's body; DRCS glyphs
	// never go through it since their bitmap is already in the
	// stream. A nil Rasterizer leaves GlyphChar cells painted with
	// only their background, which is still useful for layout-only
	// passes.
	Rasterizer FontRasterizer

	// OnUnsupported, if non-nil, is called with every unsupported
	// feature encountered; it never stops interpretation.
	OnUnsupported func(*Unsupported)
}

// NewInterpreter builds an Interpreter with ARIB's documented initial
// state: G0=KANJI, G1=ALNUM, G2=HIRAGANA, G3=MACRO, GL=G0, GR=G2, and
// the default SWF/SDF/SSM/SHS/SVS geometry.
func NewInterpreter() *Interpreter {
	in := &Interpreter{
		gText: map[GSetID]GBuffer{
			GSetKanji:    newKanji(),
			GSetAlnum:    newAlnum(),
			GSetHiragana: newKanaSet(hiraganaRow),
			GSetKatakana: newKanaSet(katakanaRow),
		},
		macro: newMacro(),
		swf:   Size{960, 540},
		sdf:   Size{960, 540},
		ssm:   Size{36, 36},
		shs:   4,
		svs:   24,
	}
	in.textSize = [2]float64{1, 1}
	for i := range in.drcs {
		size := 1
		if i == 0 {
			size = 2
		}
		in.drcs[i] = newDRCSSet(size)
	}
	in.fgIdx, in.bgIdx, in.paletteIdx = 7, 8, 0
	in.gBack = [4]GBuffer{in.gText[GSetKanji], in.gText[GSetAlnum], in.gText[GSetHiragana], in.macro}
	in.gl, in.gr = 0, 2
	return in
}

func (in *Interpreter) drcsSet(id GSetID) GBuffer {
	if id == GSetDRCS0 {
		return in.drcs[0]
	}
	return in.drcs[id-GSetDRCS1+1]
}

func (in *Interpreter) unsupported(feature string) {
	if in.OnUnsupported != nil {
		in.OnUnsupported(&Unsupported{Feature: feature})
	}
}

// cellSize returns the current character cell's (width, height) in
// dots, matching the spec's "one cell width = (SHS+SSM.w)*text_scale.x"
// relation.
func (in *Interpreter) cellSize() Size {
	return Size{
		W: int(float64(in.shs+in.ssm.W) * in.textSize[0]),
		H: int(float64(in.svs+in.ssm.H) * in.textSize[1]),
	}
}

func (in *Interpreter) moveAbsoluteDot(x, y int) { in.pos = &Point{x, y} }

func (in *Interpreter) moveAbsolutePos(x, y int) {
	cell := in.cellSize()
	in.pos = &Point{in.sdp.X + x*cell.W, in.sdp.Y + (y+1)*cell.H}
}

func (in *Interpreter) moveRelativePos(dx, dy int) {
	if in.pos == nil {
		in.moveAbsolutePos(0, 0)
	}
	cell := in.cellSize()
	for dx < 0 {
		dx++
		in.pos.X -= cell.W
		if in.pos.X < in.sdp.X {
			in.pos.X = in.sdp.X + in.sdf.W - cell.W
			dy--
		}
	}
	for dx > 0 {
		dx--
		in.pos.X += cell.W
		if in.pos.X >= in.sdp.X+in.sdf.W {
			in.pos.X = in.sdp.X
			dy++
		}
	}
	for dy < 0 {
		dy++
		in.pos.Y -= cell.H
	}
	for dy > 0 {
		dy--
		in.pos.Y += cell.H
	}
}

func (in *Interpreter) moveNewline() {
	if in.pos == nil {
		in.moveAbsolutePos(0, 0)
	}
	cell := in.cellSize()
	in.pos = &Point{in.sdp.X, in.pos.Y + cell.H}
}

// ParseDataGroup consumes one caption management/data data-group (the
// bytes starting at data_group_id, inclusive, through its CRC-16). It
// decodes only the first-language caption data group (data_group_id &
// 0x0F == 1); any other group is ignored, matching the reference
// renderer's scope.
func (in *Interpreter) ParseDataGroup(b []byte) error {
	if len(b) < 5 {
		return fmt.Errorf("caption: data group shorter than its fixed header")
	}
	dataGroupID := b[0] >> 2
	dataGroupSize := int(b[3])<<8 | int(b[4])
	if len(b) < 5+dataGroupSize {
		return fmt.Errorf("caption: data group size exceeds buffer")
	}

	if dataGroupID&0x0f != 1 {
		return nil
	}

	data := b[5 : 5+dataGroupSize]
	if len(data) < 4 {
		return fmt.Errorf("caption: data group data shorter than its TMD/length header")
	}

	// data_group_data opens with a 1-byte TMD followed by a 3-byte
	// data_unit_loop_length; only free-run TMD (0) is supported, since
	// non-free-run TMD carries an additional offset-time field this
	// decoder doesn't interpret.
	tmd := data[0] >> 6
	if tmd != 0 {
		in.unsupported(fmt.Sprintf("TMD %#x (non-free-run)", tmd))
		return nil
	}

	dataUnitLoopLength := int(data[1])<<16 | int(data[2])<<8 | int(data[3])
	if len(data) < 4+dataUnitLoopLength {
		return fmt.Errorf("caption: data_unit_loop_length exceeds buffer")
	}

	return in.parseDataUnits(data[4 : 4+dataUnitLoopLength])
}

// parseDataUnits walks a data group's payload, each entry framed as
// (separator=0x1F, parameter, 24-bit size, payload).
func (in *Interpreter) parseDataUnits(b []byte) error {
	i := 0
	for i+5 <= len(b) {
		parameter := b[i+1]
		size := int(b[i+2])<<16 | int(b[i+3])<<8 | int(b[i+4])
		start := i + 5
		end := start + size
		if end > len(b) {
			return fmt.Errorf("caption: data unit size exceeds buffer")
		}

		switch parameter {
		case 0x20:
			in.parseText(b[start:end])
		case 0x30:
			in.parseDRCS(1, b[start:end])
		case 0x31:
			in.parseDRCS(2, b[start:end])
		case 0x35:
			in.unsupported("bitmap data unit")
		default:
			in.unsupported(fmt.Sprintf("data unit parameter %#x", parameter))
		}

		i = end
	}
	return nil
}
