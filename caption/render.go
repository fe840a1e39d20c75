package caption

import "image/color"

// FontRasterizer is the boundary this decoder draws static-dictionary
// text glyphs through. Producing pixel-accurate broadcast fonts is
// outside this decoder's scope; callers that need real glyph shapes
// supply a Rasterizer (backed by any font library), and callers that
// only need layout can leave it nil.
type FontRasterizer interface {
	// DrawGlyph paints text at the top-left corner "at", constrained
	// to cell, in foreground color fg, scaled by textSize.
	DrawGlyph(canvas *Canvas, at Point, cell Size, fg color.RGBA, textSize [2]float64, text string)
}

// renderGlyph composites one resolved glyph at the interpreter's
// current cursor, then advances the cursor by one cell: background
// rectangle, glyph body (ornament outline first when ORN is active,
// then the glyph itself, or a direct DRCS bitmap blit), HLC edge bars,
// STL underline.
func (in *Interpreter) renderGlyph(g Glyph) {
	if g.Kind == GlyphMacro {
		for slot, id := range g.Macro {
			in.assignSet(slot, id, false)
		}
		in.gl, in.gr = 0, 2
		return
	}
	if in.pos == nil {
		in.moveAbsolutePos(0, 0)
	}
	if in.Canvas == nil {
		in.advanceCursor()
		return
	}

	cell := in.cellSize()
	pal := PaletteAt(in.paletteIdx)
	bg := pal[in.bgIdx%len(pal)]
	fg := pal[in.fgIdx%len(pal)]

	at := *in.pos
	in.Canvas.fillRect(at, cell, bg)

	switch g.Kind {
	case GlyphDRCS:
		in.Canvas.blitDRCS(at, cell, g.DRCSBitmap, g.DRCSWidth, g.DRCSHeight, g.DepthBits, pal, in.fgIdx)
	case GlyphChar:
		if in.ornEnabled {
			outline := pal[in.ornColor%len(pal)]
			in.drawOutline(at, cell, outline, g.Char)
		}
		if in.Rasterizer != nil {
			in.Rasterizer.DrawGlyph(in.Canvas, at, cell, fg, in.textSize, g.Char)
		}
	}

	if in.hlc != 0 {
		in.drawHLC(at, cell, fg)
	}
	if in.stl {
		in.drawSTL(at, cell, fg)
	}

	in.advanceCursor()
}

// drawOutline approximates ORN's ornament outline by drawing the
// glyph through the rasterizer offset by one dot in each of the eight
// surrounding directions in the outline colour before the main glyph
// is painted over it.
func (in *Interpreter) drawOutline(at Point, cell Size, outline color.RGBA, text string) {
	if in.Rasterizer == nil {
		return
	}
	for _, d := range [8]Point{{1, 0}, {-1, 0}, {0, 1}, {0, -1}, {1, 1}, {1, -1}, {-1, 1}, {-1, -1}} {
		in.Rasterizer.DrawGlyph(in.Canvas, Point{at.X + d.X, at.Y + d.Y}, cell, outline, in.textSize, text)
	}
}

// drawHLC paints the highlight character decoration's edge bars: the
// side(s) named by the HLC nibble (bit 0 bottom, bit 1 right, bit 2
// top, bit 3 left) get a bar 1/24th of the cell height thick.
func (in *Interpreter) drawHLC(at Point, cell Size, col color.RGBA) {
	thickness := cell.H / 24
	if thickness < 1 {
		thickness = 1
	}
	if in.hlc&0x1 != 0 { // bottom
		in.Canvas.fillRect(Point{at.X, at.Y + cell.H - thickness}, Size{cell.W, thickness}, col)
	}
	if in.hlc&0x2 != 0 { // right
		in.Canvas.fillRect(Point{at.X + cell.W - thickness, at.Y}, Size{thickness, cell.H}, col)
	}
	if in.hlc&0x4 != 0 { // top
		in.Canvas.fillRect(at, Size{cell.W, thickness}, col)
	}
	if in.hlc&0x8 != 0 { // left
		in.Canvas.fillRect(at, Size{thickness, cell.H}, col)
	}
}

// drawSTL paints the underline decoration as a single bar across the
// bottom of the cell.
func (in *Interpreter) drawSTL(at Point, cell Size, col color.RGBA) {
	thickness := cell.H / 16
	if thickness < 1 {
		thickness = 1
	}
	in.Canvas.fillRect(Point{at.X, at.Y + cell.H - thickness}, Size{cell.W, thickness}, col)
}

func (in *Interpreter) advanceCursor() {
	cell := in.cellSize()
	in.pos.X += cell.W
	if in.pos.X >= in.sdp.X+in.sdf.W {
		in.pos.X = in.sdp.X
		in.pos.Y += cell.H
	}
}
