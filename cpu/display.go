// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import (
	"strings"

	"github.com/cespare/xxhash"
)

// Display dimensions in pixels.
const (
	DisplayWidth  = 64
	DisplayHeight = 32
)

// SpritePolicy selects what happens to sprite pixels that fall past the
// right or bottom edge of the display.
type SpritePolicy byte

const (
	// SpriteWrap wraps pixels around to the opposite edge.
	SpriteWrap SpritePolicy = iota

	// SpriteClip drops pixels that fall off the display.
	SpriteClip
)

// A Frame is a copy of the display's pixels, indexed [y][x].
type Frame [DisplayHeight][DisplayWidth]bool

// Display is the 64x32 monochrome frame buffer. Pixels change only through
// Clear and DrawSprite, both of which raise the redraw flag.
type Display struct {
	pixels Frame
	redraw bool
	policy SpritePolicy
}

// Clear turns every pixel off.
func (d *Display) Clear() {
	d.pixels = Frame{}
	d.redraw = true
}

// DrawSprite XORs a sprite onto the display with its top-left corner at
// (x, y). Each byte of rows is one 8-pixel row, most significant bit
// leftmost. It returns true if any pixel was turned off.
func (d *Display) DrawSprite(x, y byte, rows []byte) (collision bool) {
	x0, y0 := int(x)%DisplayWidth, int(y)%DisplayHeight
	for r, bits := range rows {
		py := y0 + r
		if py >= DisplayHeight {
			if d.policy == SpriteClip {
				break
			}
			py %= DisplayHeight
		}
		for c := 0; c < 8; c++ {
			if bits&(0x80>>c) == 0 {
				continue
			}
			px := x0 + c
			if px >= DisplayWidth {
				if d.policy == SpriteClip {
					break
				}
				px %= DisplayWidth
			}
			if d.pixels[py][px] {
				collision = true
			}
			d.pixels[py][px] = !d.pixels[py][px]
		}
	}
	d.redraw = true
	return collision
}

// Pixel reports whether the pixel at (x, y) is on. Coordinates outside the
// display report false.
func (d *Display) Pixel(x, y int) bool {
	if x < 0 || x >= DisplayWidth || y < 0 || y >= DisplayHeight {
		return false
	}
	return d.pixels[y][x]
}

// Snapshot returns a copy of the current pixels.
func (d *Display) Snapshot() Frame {
	return d.pixels
}

// Redraw returns true if the display changed since the flag was last
// cleared.
func (d *Display) Redraw() bool {
	return d.redraw
}

// ClearRedraw lowers the redraw flag after the host has consumed a frame.
func (d *Display) ClearRedraw() {
	d.redraw = false
}

// SetPolicy changes the sprite edge policy for subsequent draws.
func (d *Display) SetPolicy(p SpritePolicy) {
	d.policy = p
}

// Policy returns the sprite edge policy in use.
func (d *Display) Policy() SpritePolicy {
	return d.policy
}

// Digest returns a 64-bit hash of the packed frame. Two displays with the
// same pixels have the same digest.
func (d *Display) Digest() uint64 {
	return d.pixels.Digest()
}

// Digest returns a 64-bit hash of the packed frame.
func (f *Frame) Digest() uint64 {
	var packed [DisplayWidth * DisplayHeight / 8]byte
	for y := range f {
		for x, on := range f[y] {
			if on {
				i := y*DisplayWidth + x
				packed[i>>3] |= 0x80 >> (i & 7)
			}
		}
	}
	return xxhash.Sum64(packed[:])
}

// String renders the frame as text, one line per row, using '#' for lit
// pixels and '.' for dark ones.
func (f *Frame) String() string {
	var b strings.Builder
	b.Grow((DisplayWidth + 1) * DisplayHeight)
	for y := range f {
		for _, on := range f[y] {
			if on {
				b.WriteByte('#')
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// String renders the display as text.
func (d *Display) String() string {
	return d.pixels.String()
}
