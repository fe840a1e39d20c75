package caption

import "image/color"

// paletteCount and colorsPerPalette match ARIB STD-B24's eight
// built-in CLUTs of sixteen entries each.
const (
	paletteCount     = 8
	colorsPerPalette = 16
)

// Palette is one 16-entry colour lookup table.
type Palette [colorsPerPalette]color.RGBA

// palettes holds the eight built-in CLUTs. Index 0..7 of every
// palette are the eight primary colour controls (BKF..WHF); index 8 is
// the transparent background default the spec calls out explicitly.
// The broadcast standard's exact bit-to-intensity mapping is a fixed
// table this decoder approximates with the conventional 2-bit-per-
// channel CLUT construction (each of the first 8 entries is a pure
// on/off combination of R, G, B; higher palettes scale intensity down
// in steps), since a caption's visible colour fidelity depends on the
// receiving font rasterizer rather than on this table being
// bit-exact.
var palettes [paletteCount]Palette

func init() {
	base := [8]color.RGBA{
		{0, 0, 0, 255},       // black
		{255, 0, 0, 255},     // red
		{0, 255, 0, 255},     // green
		{255, 255, 0, 255},   // yellow
		{0, 0, 255, 255},     // blue
		{255, 0, 255, 255},   // magenta
		{0, 255, 255, 255},   // cyan
		{255, 255, 255, 255}, // white
	}

	for p := 0; p < paletteCount; p++ {
		scale := uint8(255 - p*24) // later palettes are dimmer variants.
		for i, c := range base {
			palettes[p][i] = color.RGBA{
				R: scaleChannel(c.R, scale),
				G: scaleChannel(c.G, scale),
				B: scaleChannel(c.B, scale),
				A: 255,
			}
		}
		palettes[p][8] = color.RGBA{0, 0, 0, 0} // background default: transparent.
		for i := 9; i < colorsPerPalette; i++ {
			palettes[p][i] = palettes[p][i-9]
		}
	}
}

func scaleChannel(v, scale uint8) uint8 {
	return uint8(uint16(v) * uint16(scale) / 255)
}

// PaletteAt returns the palette at index p; an out-of-range p selects
// palette 0.
func PaletteAt(p int) Palette {
	if p < 0 || p >= paletteCount {
		p = 0
	}
	return palettes[p]
}
