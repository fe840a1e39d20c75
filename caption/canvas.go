package caption

import (
	"image"
	"image/color"
	"image/draw"
)

// Canvas is the RGBA surface one rendered caption is composited onto,
// sized to the current screen writing format.
type Canvas struct {
	img *image.RGBA
}

// NewCanvas allocates a transparent canvas sized to sz.
func NewCanvas(sz Size) *Canvas {
	c := &Canvas{}
	c.Resize(sz)
	return c
}

// Resize reallocates the canvas to sz, discarding its contents.
func (c *Canvas) Resize(sz Size) {
	c.img = image.NewRGBA(image.Rect(0, 0, sz.W, sz.H))
}

// Clear erases the canvas back to fully transparent, matching the
// CS (clear screen) control.
func (c *Canvas) Clear() {
	if c.img == nil {
		return
	}
	draw.Draw(c.img, c.img.Bounds(), image.Transparent, image.Point{}, draw.Src)
}

// Image exposes the underlying bitmap for encoding.
func (c *Canvas) Image() *image.RGBA { return c.img }

// fillRect paints a solid rectangle, used for both the per-glyph
// background cell and DRCS bitmap compositing.
func (c *Canvas) fillRect(at Point, sz Size, col color.RGBA) {
	if c.img == nil {
		return
	}
	r := image.Rect(at.X, at.Y, at.X+sz.W, at.Y+sz.H)
	draw.Draw(c.img, r, &image.Uniform{C: col}, image.Point{}, draw.Over)
}

// blitDRCS paints a packed DRCS bitmap (MSB-first rows, depthBits per
// pixel, pixel value 0 always transparent, every non-zero pixel in
// palette[baseIdx]) at at, scaled to fit cell.
func (c *Canvas) blitDRCS(at Point, cell Size, bmp []byte, w, h, depthBits int, palette Palette, baseIdx int) {
	if c.img == nil || w == 0 || h == 0 {
		return
	}
	rowBytes := (w*depthBits + 7) / 8
	scaleX := float64(cell.W) / float64(w)
	scaleY := float64(cell.H) / float64(h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			bitOffset := x * depthBits
			byteOffset := y*rowBytes + bitOffset/8
			if byteOffset >= len(bmp) {
				continue
			}
			shift := 8 - depthBits - (bitOffset % 8)
			if shift < 0 {
				shift = 0
			}
			mask := byte(1<<depthBits) - 1
			val := (bmp[byteOffset] >> uint(shift)) & mask
			if val == 0 {
				continue
			}
			idx := baseIdx
			px := image.Rect(
				at.X+int(float64(x)*scaleX),
				at.Y+int(float64(y)*scaleY),
				at.X+int(float64(x+1)*scaleX)+1,
				at.Y+int(float64(y+1)*scaleY)+1,
			)
			draw.Draw(c.img, px, &image.Uniform{C: palette[idx]}, image.Point{}, draw.Over)
		}
	}
}
