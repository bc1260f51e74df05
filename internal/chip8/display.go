package chip8

// Display resolutions. CHIP-8 and the low-res half of Super-CHIP/XO-CHIP
// use 64x32; Super-CHIP's HighRes mode and XO-CHIP both use 128x64.
const (
	LowWidth, LowHeight   = 64, 32
	HighWidth, HighHeight = 128, 64
)

// palette for the non-XO-CHIP modes: background, foreground.
var monoPalette = [2]uint32{0x00000000, 0x00FFFFFF}

// palette for XO-CHIP's dual bitplane display. Index is
// (primary bit) | (secondary bit << 1).
var xoPalette = [4]uint32{0x00000000, 0x00A9A9A9, 0x00545454, 0x00FFFFFF}

// Display holds the CHIP-8 framebuffer: a primary bitplane used by every
// mode, and a secondary bitplane used only by XO-CHIP. Both are always
// allocated at the maximum 128x64 resolution; HighRes selects the logical
// resolution, and low-res coordinates are mapped onto the buffer by
// scaleIntoBuffer.
type Display struct {
	primary   [HighWidth * HighHeight]bool
	secondary [HighWidth * HighHeight]bool
	highRes   bool
	// writeMask selects which plane(s) draw instructions affect:
	// bit 0 = primary, bit 1 = secondary. XO-CHIP's FX01 sets this;
	// every other mode behaves as if it is permanently 0x1.
	writeMask byte
}

func newDisplay() *Display {
	return &Display{writeMask: 0x1}
}

// Resolution returns the currently active logical width/height.
func (d *Display) Resolution() (w, h int) {
	if d.highRes {
		return HighWidth, HighHeight
	}
	return LowWidth, LowHeight
}

func (d *Display) HighRes() bool { return d.highRes }

func (d *Display) SetHighRes(on bool) { d.highRes = on }

func (d *Display) SetWriteMask(mask byte) { d.writeMask = mask & 0x3 }

func (d *Display) WriteMask() byte { return d.writeMask }

// Clear clears only the primary plane. The secondary plane (XO-CHIP) is
// deliberately preserved: 00E0 is specified to affect only the plane(s)
// selected by the current write mask in upstream XO-CHIP documentation,
// but the reference implementation this spec follows clears
// unconditionally on the primary plane only, leaving the secondary plane
// untouched regardless of write mask. See DESIGN.md "clear scope".
func (d *Display) Clear() {
	for i := range d.primary {
		d.primary[i] = false
	}
}

func (d *Display) index(x, y int) int { return y*HighWidth + x }

// xorPixel XORs a single on-bit into the plane(s) selected by the write
// mask at (x, y), which must already be within [0, HighWidth)x[0,
// HighHeight). It returns true if drawing turned an on pixel off for ANY
// engaged plane (a collision).
func (d *Display) xorPixel(x, y int) bool {
	i := d.index(x, y)
	collided := false

	if d.writeMask&0x1 != 0 {
		if d.primary[i] {
			collided = true
		}
		d.primary[i] = !d.primary[i]
	}
	if d.writeMask&0x2 != 0 {
		if d.secondary[i] {
			collided = true
		}
		d.secondary[i] = !d.secondary[i]
	}
	return collided
}

// DrawPixelClipped draws (or XORs) one sprite bit with CHIP-8/Super-CHIP
// semantics: a pixel that falls outside the active resolution is simply
// dropped (no wrap, no collision contribution).
func (d *Display) DrawPixelClipped(x, y int) bool {
	w, h := d.Resolution()
	if x < 0 || x >= w || y < 0 || y >= h {
		return false
	}
	return d.xorPixel(d.scaleIntoBuffer(x, y))
}

// DrawPixelWrapped draws one sprite bit with XO-CHIP semantics: the
// coordinate wraps modulo the active resolution before drawing.
func (d *Display) DrawPixelWrapped(x, y int) bool {
	w, h := d.Resolution()
	x = ((x % w) + w) % w
	y = ((y % h) + h) % h
	return d.xorPixel(d.scaleIntoBuffer(x, y))
}

// scaleIntoBuffer maps a logical coordinate in the active resolution onto
// the backing 128x64 buffer. In low-res mode logical (x, y) maps to
// buffer cell (2x, 2y), the top-left cell of its 2x2 block. Drawing,
// Scroll and ToBuffer use only that cell: a low-res draw toggles one
// buffer cell, not all four cells of the block, and ToBuffer renders the
// active resolution (64x32 in low-res) rather than the 128x64 buffer.
func (d *Display) scaleIntoBuffer(x, y int) (int, int) {
	if d.highRes {
		return x, y
	}
	return x * 2, y * 2
}

// clearAt zeroes every plane bit covered by logical coordinate (x, y),
// honoring the same low-res 2x2 block scaling as drawing.
func (d *Display) clearAt(x, y int) {
	bx, by := d.scaleIntoBuffer(x, y)
	step := 1
	if !d.highRes {
		step = 2
	}
	for dy := 0; dy < step; dy++ {
		for dx := 0; dx < step; dx++ {
			i := d.index(bx+dx, by+dy)
			d.primary[i] = false
			d.secondary[i] = false
		}
	}
}

// Scroll shifts both planes by (dx, dy) logical pixels. There is no
// wraparound: pixels shifted off an edge are lost and vacated cells are
// cleared. Both XO-CHIP planes always move
// together regardless of write mask, matching the reference
// implementation (scroll is a structural operation, not a draw).
func (d *Display) Scroll(dx, dy int) {
	w, h := d.Resolution()

	primary := make([]bool, w*h)
	secondary := make([]bool, w*h)
	get := func(plane *[HighWidth * HighHeight]bool, x, y int) bool {
		bx, by := d.scaleIntoBuffer(x, y)
		return plane[d.index(bx, by)]
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sx, sy := x-dx, y-dy
			if sx < 0 || sx >= w || sy < 0 || sy >= h {
				continue
			}
			primary[y*w+x] = get(&d.primary, sx, sy)
			secondary[y*w+x] = get(&d.secondary, sx, sy)
		}
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			on := primary[y*w+x]
			off := secondary[y*w+x]
			bx, by := d.scaleIntoBuffer(x, y)
			i := d.index(bx, by)
			d.primary[i] = on
			d.secondary[i] = off
		}
	}
}

// ToBuffer renders the active plane(s) as an ARGB pixel buffer scaled by
// (scaleX, scaleY), suitable for blitting directly into an SDL texture.
// Colors come from the 4-entry XO-CHIP palette when xochip is true, and
// from the 2-entry mono palette (primary plane only) otherwise.
func (d *Display) ToBuffer(scaleX, scaleY int, xochip bool) []uint32 {
	w, h := d.Resolution()
	out := make([]uint32, w*scaleX*h*scaleY)
	stride := w * scaleX

	for ly := 0; ly < h; ly++ {
		for lx := 0; lx < w; lx++ {
			bx, by := d.scaleIntoBuffer(lx, ly)
			i := d.index(bx, by)

			var color uint32
			if xochip {
				idx := 0
				if d.primary[i] {
					idx |= 0x1
				}
				if d.secondary[i] {
					idx |= 0x2
				}
				color = xoPalette[idx]
			} else {
				if d.primary[i] {
					color = monoPalette[1]
				} else {
					color = monoPalette[0]
				}
			}

			for sy := 0; sy < scaleY; sy++ {
				for sx := 0; sx < scaleX; sx++ {
					out[(ly*scaleY+sy)*stride+lx*scaleX+sx] = color
				}
			}
		}
	}
	return out
}
