// Package canvas implements an off-screen RGB565 drawing surface.
//
// A frame is composed completely in memory and then pushed to a panel with a
// single rectangular write, so the panel never shows a half-drawn frame.
package canvas

import (
	"image/color"

	"tinygo.org/x/drivers"
)

// Content describes what the canvas currently holds.
type Content uint8

const (
	ContentBlank Content = iota
	ContentGrid
	ContentTrace
)

func (c Content) String() string {
	switch c {
	case ContentBlank:
		return "blank"
	case ContentGrid:
		return "grid"
	case ContentTrace:
		return "trace"
	default:
		return "unknown"
	}
}

// Target receives a fully composed rectangle of little-endian RGB565 pixels.
type Target interface {
	WriteRect(x, y, w, h int, pix []byte) error
}

// Canvas is a width×height RGB565 pixel buffer.
type Canvas struct {
	w, h    int
	pix     []byte
	content Content
}

var _ drivers.Displayer = (*Canvas)(nil)

// New allocates a canvas. Negative dimensions are treated as zero.
func New(w, h int) *Canvas {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &Canvas{w: w, h: h, pix: make([]byte, w*h*2)}
}

func (c *Canvas) Width() int  { return c.w }
func (c *Canvas) Height() int { return c.h }

// Pixels exposes the backing buffer, row-major, two bytes per pixel.
func (c *Canvas) Pixels() []byte { return c.pix }

// Content reports what was last composed.
func (c *Canvas) Content() Content { return c.content }

// Pixel returns the raw RGB565 value at (x, y), or 0 when out of bounds.
func (c *Canvas) Pixel(x, y int) uint16 {
	if x < 0 || x >= c.w || y < 0 || y >= c.h {
		return 0
	}
	off := (y*c.w + x) * 2
	return uint16(c.pix[off]) | uint16(c.pix[off+1])<<8
}

// Size implements drivers.Displayer.
func (c *Canvas) Size() (x, y int16) {
	return int16(c.w), int16(c.h)
}

// SetPixel implements drivers.Displayer. Out-of-bounds writes are dropped.
func (c *Canvas) SetPixel(x, y int16, col color.RGBA) {
	c.set(int(x), int(y), To565(col))
}

// Display implements drivers.Displayer. Pixels only leave the canvas
// through BlitTo.
func (c *Canvas) Display() error { return nil }

func (c *Canvas) set(x, y int, p uint16) {
	if x < 0 || x >= c.w || y < 0 || y >= c.h {
		return
	}
	off := (y*c.w + x) * 2
	c.pix[off] = byte(p)
	c.pix[off+1] = byte(p >> 8)
}

// Clear fills the whole canvas and marks it blank.
func (c *Canvas) Clear(col color.RGBA) {
	p := To565(col)
	lo, hi := byte(p), byte(p>>8)
	for i := 0; i+1 < len(c.pix); i += 2 {
		c.pix[i] = lo
		c.pix[i+1] = hi
	}
	c.content = ContentBlank
}

// DrawGrid draws vertical and horizontal lines every spacing pixels,
// starting at 0 on both axes.
func (c *Canvas) DrawGrid(spacing int, col color.RGBA) {
	if spacing <= 0 {
		return
	}
	for x := 0; x < c.w; x += spacing {
		c.VLine(x, 0, c.h, col)
	}
	for y := 0; y < c.h; y += spacing {
		c.HLine(0, y, c.w, col)
	}
	if c.content == ContentBlank {
		c.content = ContentGrid
	}
}

// HLine draws a horizontal run of n pixels.
func (c *Canvas) HLine(x, y, n int, col color.RGBA) {
	c.FillRect(x, y, n, 1, col)
}

// VLine draws a vertical run of n pixels.
func (c *Canvas) VLine(x, y, n int, col color.RGBA) {
	c.FillRect(x, y, 1, n, col)
}

// FillRect fills the rectangle clipped to the canvas.
func (c *Canvas) FillRect(x, y, w, h int, col color.RGBA) {
	x0 := clampInt(x, 0, c.w)
	y0 := clampInt(y, 0, c.h)
	x1 := clampInt(x+w, 0, c.w)
	y1 := clampInt(y+h, 0, c.h)
	if x0 >= x1 || y0 >= y1 {
		return
	}
	p := To565(col)
	lo, hi := byte(p), byte(p>>8)
	for py := y0; py < y1; py++ {
		row := py * c.w * 2
		for px := x0; px < x1; px++ {
			off := row + px*2
			c.pix[off] = lo
			c.pix[off+1] = hi
		}
	}
}

// DrawRect outlines the rectangle.
func (c *Canvas) DrawRect(x, y, w, h int, col color.RGBA) {
	if w <= 0 || h <= 0 {
		return
	}
	c.HLine(x, y, w, col)
	c.HLine(x, y+h-1, w, col)
	c.VLine(x, y, h, col)
	c.VLine(x+w-1, y, h, col)
}

// DrawSegment draws a line with Bresenham's algorithm. Pixels outside the
// canvas are skipped individually.
func (c *Canvas) DrawSegment(x0, y0, x1, y1 int, col color.RGBA) {
	c.line(x0, y0, x1, y1, To565(col))
	c.content = ContentTrace
}

func (c *Canvas) line(x0, y0, x1, y1 int, p uint16) {
	dx := absInt(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -absInt(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		c.set(x0, y0, p)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// BlitTo pushes the whole canvas to dst at (x, y) in one write.
func (c *Canvas) BlitTo(dst Target, x, y int) error {
	return dst.WriteRect(x, y, c.w, c.h, c.pix)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
