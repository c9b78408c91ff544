package canvas

import "image/color"

// RGB565 values used on the reference panels.
const (
	Black   uint16 = 0x0000
	Grey    uint16 = 0x2108
	Green   uint16 = 0x07E0
	White   uint16 = 0xFFFF
	DarkRed uint16 = 0x8000
)

// To565 packs c into RGB565, dropping alpha.
func To565(c color.RGBA) uint16 {
	return uint16(c.R>>3)&0x1F<<11 | uint16(c.G>>2)&0x3F<<5 | uint16(c.B>>3)&0x1F
}

// RGBA expands an RGB565 value so that To565(RGBA(p)) == p.
func RGBA(p uint16) color.RGBA {
	r := (p >> 11) & 0x1F
	g := (p >> 5) & 0x3F
	b := p & 0x1F
	return color.RGBA{
		R: uint8(r<<3 | r>>2),
		G: uint8(g<<2 | g>>4),
		B: uint8(b<<3 | b>>2),
		A: 0xFF,
	}
}
