package canvas

import (
	"image/color"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

// MaxTextSize is the largest integer text scale.
const MaxTextSize = 4

var font tinyfont.Fonter = &proggy.TinySZ8pt7b

// LineHeight returns the height of one text line at the given scale.
func LineHeight(size int) int {
	return int(font.GetYAdvance()) * clampSize(size)
}

// TextWidth returns the rendered width of s at the given scale.
func TextWidth(s string, size int) int {
	_, outbox := tinyfont.LineWidth(font, s)
	return int(outbox) * clampSize(size)
}

// Text draws s with its top-left corner at (x, y). size is an integer
// magnification clamped to [1, MaxTextSize].
func (c *Canvas) Text(x, y, size int, col color.RGBA, s string) {
	size = clampSize(size)
	ascent := int16(font.GetYAdvance()) * 3 / 4
	if size == 1 {
		tinyfont.WriteLine(c, font, int16(x), int16(y)+ascent, s, col)
		return
	}
	sd := &scaled{c: c, ox: x, oy: y, s: size}
	tinyfont.WriteLine(sd, font, 0, ascent, s, col)
}

func clampSize(size int) int {
	if size < 1 {
		return 1
	}
	if size > MaxTextSize {
		return MaxTextSize
	}
	return size
}

// scaled magnifies every glyph pixel into an s×s block on the canvas.
type scaled struct {
	c      *Canvas
	ox, oy int
	s      int
}

func (d *scaled) Size() (x, y int16) {
	w, h := d.c.Size()
	return w / int16(d.s), h / int16(d.s)
}

func (d *scaled) SetPixel(x, y int16, col color.RGBA) {
	d.c.FillRect(d.ox+int(x)*d.s, d.oy+int(y)*d.s, d.s, d.s, col)
}

func (d *scaled) Display() error { return nil }
