package caption

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingRasterizer stands in for a real font library in tests,
// recording every string it was asked to draw.
type recordingRasterizer struct {
	drawn []string
}

func (r *recordingRasterizer) DrawGlyph(_ *Canvas, _ Point, _ Size, _ color.RGBA, _ [2]float64, text string) {
	r.drawn = append(r.drawn, text)
}

func TestApplySWF(t *testing.T) {
	cases := []struct {
		format      int
		want        Size
		unsupported bool
	}{
		{5, Size{1920, 1080}, false},
		{7, Size{960, 540}, false},
		{9, Size{720, 480}, false},
		{8, Size{}, true},
		{10, Size{}, true},
	}
	for _, tc := range cases {
		in := NewInterpreter()
		var got *Unsupported
		in.OnUnsupported = func(u *Unsupported) { got = u }
		before := in.swf

		in.applySWF(tc.format)

		if tc.unsupported {
			require.NotNil(t, got, "format %d should be flagged unsupported", tc.format)
			assert.Equal(t, before, in.swf, "unsupported format must not change swf")
		} else {
			require.Nil(t, got)
			assert.Equal(t, tc.want, in.swf)
		}
	}
}

func TestParseC1SPLSetsUnderlineOff(t *testing.T) {
	in := NewInterpreter()
	in.stl = true

	n := in.parseC1([]byte{bSPL})

	assert.Equal(t, 1, n)
	assert.False(t, in.stl)
}

func TestParseC1STLSetsUnderlineOn(t *testing.T) {
	in := NewInterpreter()
	in.stl = false

	n := in.parseC1([]byte{bSTL})

	assert.Equal(t, 1, n)
	assert.True(t, in.stl)
}

// buildDataGroup assembles a complete data-group buffer (data_group_id
// through data_group_data inclusive) for the first-language caption
// group, with a TMD byte and data_unit_loop_length header preceding
// dataUnits, matching the real wire layout.
func buildDataGroup(tmd byte, dataUnits []byte) []byte {
	data := []byte{
		tmd << 6,
		byte(len(dataUnits) >> 16), byte(len(dataUnits) >> 8), byte(len(dataUnits)),
	}
	data = append(data, dataUnits...)

	b := []byte{
		1 << 2, // data_group_id low nibble = 1 (first language)
		0, 0,   // data_group_id extension / link number, unused
		byte(len(data) >> 8), byte(len(data)),
	}
	return append(b, data...)
}

func textDataUnit(payload []byte) []byte {
	u := []byte{0x1f, 0x20, byte(len(payload) >> 16), byte(len(payload) >> 8), byte(len(payload))}
	return append(u, payload...)
}

func TestParseDataGroupSkipsTMDAndLoopLength(t *testing.T) {
	// Two SP (0x20) controls: each renders a glyph and advances the
	// cursor by exactly one cell. If the TMD/length header were not
	// skipped, the stray header bytes would be consumed as a bogus
	// data unit whose declared size overruns the buffer, producing an
	// error instead of two successful renders.
	group := buildDataGroup(0, textDataUnit([]byte{bSP, bSP}))

	in := NewInterpreter()
	err := in.ParseDataGroup(group)
	require.NoError(t, err)

	require.NotNil(t, in.pos)
	cell := in.cellSize()
	assert.Equal(t, 2*cell.W, in.pos.X)
}

func TestParseDataGroupRejectsNonFreeRunTMD(t *testing.T) {
	group := buildDataGroup(1, textDataUnit([]byte{bSP}))

	in := NewInterpreter()
	var got *Unsupported
	in.OnUnsupported = func(u *Unsupported) { got = u }

	err := in.ParseDataGroup(group)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Contains(t, got.Feature, "TMD")
	assert.Nil(t, in.pos, "non-free-run TMD must not run the data units")
}

func TestParseESCDesignates1ByteDRCSBank(t *testing.T) {
	in := NewInterpreter()
	n := in.parseESC([]byte{bESC, escG0, bSP, 0x41})

	assert.Equal(t, 4, n)
	assert.Same(t, in.drcs[1], in.gBack[0])
}

func TestParseESCDesignates2ByteStaticSet(t *testing.T) {
	in := NewInterpreter()
	n := in.parseESC([]byte{bESC, escG2b, escG0, byte(GSetKanji)})

	assert.Equal(t, 4, n)
	assert.Equal(t, in.gText[GSetKanji], in.gBack[0])
}

func TestParseESCDesignates2ByteDRCSBank(t *testing.T) {
	in := NewInterpreter()
	n := in.parseESC([]byte{bESC, escG2b, escG1, bSP, 0x42})

	assert.Equal(t, 5, n)
	assert.Same(t, in.drcs[2], in.gBack[1])
}

func TestParseESCTwoByteSetImplicitG0(t *testing.T) {
	// ESC 0x24 0x42 (no G1/G2/G3 intermediate): the 2-byte set goes
	// into G0, the byte right after 0x24 names the set directly.
	in := NewInterpreter()
	n := in.parseESC([]byte{bESC, escG2b, byte(GSetKanji)})

	assert.Equal(t, 3, n)
	assert.Equal(t, in.gText[GSetKanji], in.gBack[0])
}

func TestParseDRCSDepthBitsCeilLog2(t *testing.T) {
	in := NewInterpreter()

	// NumberOfCode=1, CharacterCode=0x41 (codeLen=1), NumberOfFont=1,
	// FontID|Mode byte with Mode!=0, width=1, height=8, depth byte=2
	// (depthBits should be ceil(log2(2+2))=2, not 2+2=4), then the
	// packed bitmap: (1*8*2+7)/8 = 2 bytes.
	b := []byte{
		1,    // NumberOfCode
		0x41, // CharacterCode
		1,    // NumberOfFont
		0x01, // FontID(high nibble)|Mode=1
		1, 8, // width, height
		2,          // depth byte
		0xff, 0xff, // bitmap (2 bytes)
	}

	in.parseDRCS(1, b)

	ds := in.drcs[1]
	g, ok := ds.Lookup(0x41)
	require.True(t, ok)
	assert.Equal(t, 2, g.DepthBits)
	assert.Len(t, g.DRCSBitmap, 2)
}

func TestS6LockingShiftStateTransition(t *testing.T) {
	in := NewInterpreter()
	// LS3R designates GR to G3 without touching GL.
	n := in.parseESC([]byte{bESC, escLS3R})

	assert.Equal(t, 2, n)
	assert.Equal(t, 0, in.gl)
	assert.Equal(t, 3, in.gr)
}

func TestS6GRCharacterLookupThroughG3(t *testing.T) {
	// G3 defaults to the 1-byte MACRO dictionary; designate it to the
	// 2-byte KANJI set first so the masked two-byte GR lookup the
	// scenario describes actually exercises a 2-byte G-buffer.
	in := NewInterpreter()
	in.assignSet(3, GSetKanji, false)
	rec := &recordingRasterizer{}
	in.Rasterizer = rec
	in.Canvas = NewCanvas(Size{100, 100})

	in.parseText([]byte{bESC, escLS3R, 0xA4, 0xA2})

	assert.Equal(t, 3, in.gr)
	require.Len(t, rec.drawn, 1)

	// 0xA4 0xA2 masked to 0x7F each -> 0x24 0x22, looked up in KANJI.
	g, ok := kanjiSet{}.Lookup(0x2422)
	require.True(t, ok)
	assert.Equal(t, g.Char, rec.drawn[0])
}
