package canvas

import (
	"image/color"

	"ecgscope/cardio/wave"
)

// DrawTrace connects consecutive points with segments.
func (c *Canvas) DrawTrace(points []wave.Point, col color.RGBA) {
	p := To565(col)
	wave.Segments(points, func(x0, y0, x1, y1 int) {
		c.line(x0, y0, x1, y1, p)
	})
	if len(points) > 0 {
		c.content = ContentTrace
	}
}
