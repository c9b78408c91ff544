package canvas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecgscope/cardio/wave"
)

type rectWrite struct {
	x, y, w, h int
	pix        []byte
}

type recordTarget struct {
	writes []rectWrite
	err    error
}

func (r *recordTarget) WriteRect(x, y, w, h int, pix []byte) error {
	cp := append([]byte(nil), pix...)
	r.writes = append(r.writes, rectWrite{x, y, w, h, cp})
	return r.err
}

func TestColorRoundTrip(t *testing.T) {
	for _, p := range []uint16{Black, Grey, Green, White, DarkRed, 0x1234, 0xABCD} {
		assert.Equal(t, p, To565(RGBA(p)), "0x%04x", p)
	}
}

func TestClearFillsAndMarksBlank(t *testing.T) {
	c := New(4, 3)
	c.Clear(RGBA(DarkRed))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			require.Equal(t, DarkRed, c.Pixel(x, y))
		}
	}
	assert.Equal(t, ContentBlank, c.Content())
	// little-endian
	assert.Equal(t, []byte{0x00, 0x80}, c.Pixels()[:2])
}

func TestDrawGridCoversMultiples(t *testing.T) {
	c := New(240, 200)
	c.Clear(RGBA(Black))
	c.DrawGrid(20, RGBA(Grey))
	assert.Equal(t, ContentGrid, c.Content())

	for y := 0; y < 200; y++ {
		for x := 0; x < 240; x++ {
			want := Black
			if x%20 == 0 || y%20 == 0 {
				want = Grey
			}
			require.Equal(t, want, c.Pixel(x, y), "(%d,%d)", x, y)
		}
	}
}

func TestDrawGridIgnoresBadSpacing(t *testing.T) {
	c := New(8, 8)
	c.Clear(RGBA(Black))
	c.DrawGrid(0, RGBA(Grey))
	assert.Equal(t, Black, c.Pixel(0, 0))
	assert.Equal(t, ContentBlank, c.Content())
}

func TestDrawSegmentEndpointsAndClipping(t *testing.T) {
	c := New(10, 10)
	c.Clear(RGBA(Black))
	c.DrawSegment(0, 0, 9, 9, RGBA(Green))
	for i := 0; i < 10; i++ {
		require.Equal(t, Green, c.Pixel(i, i))
	}
	assert.Equal(t, ContentTrace, c.Content())

	// Partially outside: only the visible pixels change and nothing panics.
	c.Clear(RGBA(Black))
	c.DrawSegment(-5, 2, 20, 2, RGBA(White))
	for x := 0; x < 10; x++ {
		require.Equal(t, White, c.Pixel(x, 2))
	}
}

func TestDrawTraceIsConnected(t *testing.T) {
	c := New(3, 200)
	c.Clear(RGBA(Black))
	c.DrawTrace([]wave.Point{{X: 0, Y: 10}, {X: 1, Y: 190}, {X: 2, Y: 5}}, RGBA(Green))

	// Every row between neighbouring points has a lit pixel in one of the two columns.
	for y := 10; y <= 190; y++ {
		lit := c.Pixel(0, y) == Green || c.Pixel(1, y) == Green
		require.True(t, lit, "gap at row %d", y)
	}
	for y := 5; y <= 190; y++ {
		lit := c.Pixel(1, y) == Green || c.Pixel(2, y) == Green
		require.True(t, lit, "gap at row %d", y)
	}
	assert.Equal(t, ContentTrace, c.Content())
}

func TestFillRectClips(t *testing.T) {
	c := New(5, 5)
	c.Clear(RGBA(Black))
	c.FillRect(3, 3, 10, 10, RGBA(White))
	assert.Equal(t, White, c.Pixel(4, 4))
	assert.Equal(t, White, c.Pixel(3, 3))
	assert.Equal(t, Black, c.Pixel(2, 2))

	c.FillRect(-3, -3, 2, 2, RGBA(White))
	assert.Equal(t, Black, c.Pixel(0, 0))
}

func TestDrawRectOutline(t *testing.T) {
	c := New(6, 6)
	c.Clear(RGBA(Black))
	c.DrawRect(1, 1, 4, 4, RGBA(White))
	assert.Equal(t, White, c.Pixel(1, 1))
	assert.Equal(t, White, c.Pixel(4, 4))
	assert.Equal(t, Black, c.Pixel(2, 2))
}

func TestTextDrawsInsideCanvas(t *testing.T) {
	c := New(240, 240)
	c.Clear(RGBA(Black))
	c.Text(60, 100, 2, RGBA(White), "LEAD OFF!")

	lit := 0
	for y := 0; y < 240; y++ {
		for x := 0; x < 240; x++ {
			if c.Pixel(x, y) == White {
				lit++
				require.GreaterOrEqual(t, x, 56)
				require.Greater(t, y, 100-LineHeight(2))
				require.Less(t, y, 100+2*LineHeight(2))
			}
		}
	}
	assert.Positive(t, lit)
}

func TestTextWidthScales(t *testing.T) {
	w1 := TextWidth("72 BPM", 1)
	require.Positive(t, w1)
	assert.Equal(t, 3*w1, TextWidth("72 BPM", 3))
	assert.Equal(t, TextWidth("x", MaxTextSize), TextWidth("x", 99))
	assert.Equal(t, 2*LineHeight(1), LineHeight(2))
}

func TestBlitToIsSingleWrite(t *testing.T) {
	c := New(240, 200)
	c.Clear(RGBA(Black))
	c.DrawGrid(20, RGBA(Grey))

	var tgt recordTarget
	require.NoError(t, c.BlitTo(&tgt, 0, 0))
	require.Len(t, tgt.writes, 1)
	w := tgt.writes[0]
	assert.Equal(t, [4]int{0, 0, 240, 200}, [4]int{w.x, w.y, w.w, w.h})
	assert.Equal(t, c.Pixels(), w.pix)
}

func TestBlitToReportsTargetError(t *testing.T) {
	c := New(2, 2)
	boom := errors.New("bus fault")
	err := c.BlitTo(&recordTarget{err: boom}, 0, 0)
	assert.ErrorIs(t, err, boom)
}

func TestDisplayerSize(t *testing.T) {
	c := New(240, 280)
	w, h := c.Size()
	assert.Equal(t, int16(240), w)
	assert.Equal(t, int16(280), h)
	assert.NoError(t, c.Display())
}
