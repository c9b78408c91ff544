package hal

// expandRGB565 converts little-endian RGB565 pixels in src into opaque
// RGBA in dst and returns the number of pixels written.
func expandRGB565(dst, src []byte) int {
	n := min(len(src)/2, len(dst)/4)
	for i := 0; i < n; i++ {
		p := uint16(src[2*i]) | uint16(src[2*i+1])<<8
		r5, g6, b5 := p>>11, (p>>5)&0x3F, p&0x1F
		d := dst[4*i : 4*i+4]
		d[0] = uint8(r5<<3 | r5>>2)
		d[1] = uint8(g6<<2 | g6>>4)
		d[2] = uint8(b5<<3 | b5>>2)
		d[3] = 0xFF
	}
	return n
}
