// Package wave maps a window of samples onto pixel rows of a trace area.
//
// Mapping is pure: the same samples and parameters always produce the same
// points. Out-of-range values are clamped to the nearest row and never
// dropped, so every column gets exactly one point.
package wave

import "math"

// Params controls the vertical mapping.
type Params struct {
	// Baseline is the sample value the gain is centred on.
	Baseline float32
	// Gain amplifies the distance from Baseline before mapping.
	Gain float32
	// ValueRange is the sample span that covers Height rows.
	ValueRange float32
	// Height is the trace area height in pixels.
	Height int
}

// DefaultParams matches the reference panel: a 0..240 value range on a
// 200 pixel trace with the amplitude doubled around 120.
func DefaultParams() Params {
	return Params{Baseline: 120, Gain: 2, ValueRange: 240, Height: 200}
}

// Valid reports whether p can map anything.
func (p Params) Valid() bool {
	return p.Height > 0 && p.ValueRange > 0 && !isNaN(p.ValueRange)
}

// Point is one trace vertex in canvas coordinates.
type Point struct {
	X, Y int
}

// Row maps a single sample to a pixel row in [0, Height-1].
func Row(v float32, p Params) int {
	if !p.Valid() {
		if p.Height > 0 {
			return p.Height - 1
		}
		return 0
	}
	if isNaN(v) {
		v = p.Baseline
	}

	h := float64(p.Height)
	adjusted := (float64(v)-float64(p.Baseline))*float64(p.Gain) + float64(p.Baseline)
	y := h - math.Round(adjusted*h/float64(p.ValueRange))
	if math.IsNaN(y) {
		// Gain of ±Inf on a baseline sample.
		y = h - math.Round(float64(p.Baseline)*h/float64(p.ValueRange))
	}

	// Clamp before converting; float→int of an out-of-range value is undefined.
	if y < 0 {
		return 0
	}
	if y > h-1 {
		return p.Height - 1
	}
	return int(y)
}

// Map converts samples to one point per column, X equal to the sample index.
// dst is reused when it has enough capacity.
func Map(dst []Point, samples []float32, p Params) []Point {
	if cap(dst) < len(samples) {
		dst = make([]Point, len(samples))
	}
	dst = dst[:len(samples)]
	for i, v := range samples {
		dst[i] = Point{X: i, Y: Row(v, p)}
	}
	return dst
}

// Segments calls fn for every pair of consecutive points so the caller can
// draw a connected trace. A single point yields one zero-length segment.
func Segments(points []Point, fn func(x0, y0, x1, y1 int)) {
	switch len(points) {
	case 0:
		return
	case 1:
		fn(points[0].X, points[0].Y, points[0].X, points[0].Y)
		return
	}
	for i := 1; i < len(points); i++ {
		a, b := points[i-1], points[i]
		fn(a.X, a.Y, b.X, b.Y)
	}
}

func isNaN(v float32) bool { return v != v }
