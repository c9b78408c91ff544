//go:build !tinygo || !baremetal

package hal

import (
	"fmt"
	"sync"
)

// hostPanel is an in-memory panel: an RGB565 framebuffer behind a
// chip-select line.
type hostPanel struct {
	mu     sync.Mutex
	name   string
	width  int
	height int
	stride int
	buf    []byte
	cs     GPIOPin
	writes uint64
}

func newHostPanel(name string, width, height int, cs GPIOPin) *hostPanel {
	stride := width * 2
	return &hostPanel{
		name:   name,
		width:  width,
		height: height,
		stride: stride,
		buf:    make([]byte, stride*height),
		cs:     cs,
	}
}

func (p *hostPanel) selected() bool {
	level, err := p.cs.Read()
	return err == nil && !level
}

// blit copies a w×h rectangle into the framebuffer, clipped to the panel.
func (p *hostPanel) blit(x, y, w, h int, pix []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.writes++
	for row := 0; row < h; row++ {
		py := y + row
		if py < 0 || py >= p.height {
			continue
		}
		for col := 0; col < w; col++ {
			px := x + col
			if px < 0 || px >= p.width {
				continue
			}
			src := (row*w + col) * 2
			dst := py*p.stride + px*2
			p.buf[dst] = pix[src]
			p.buf[dst+1] = pix[src+1]
		}
	}
}

func (p *hostPanel) snapshotRGB565(dst []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	copy(dst, p.buf)
}

func (p *hostPanel) writeCount() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes
}

func (p *hostPanel) info() Panel {
	return Panel{Name: p.name, Width: p.width, Height: p.height, CS: p.cs}
}

// hostBus delivers every write to each panel whose chip-select is low.
// Two selected panels both receive the frame, as on real hardware.
type hostBus struct {
	panels []*hostPanel
}

func (b *hostBus) WriteRect(x, y, w, h int, pix []byte) error {
	if w < 0 || h < 0 || len(pix) < w*h*2 {
		return fmt.Errorf("bus write %dx%d: short buffer (%d bytes)", w, h, len(pix))
	}
	for _, p := range b.panels {
		if p.selected() {
			p.blit(x, y, w, h, pix)
		}
	}
	return nil
}

type hostDisplay struct {
	bus *hostBus
}

func (d hostDisplay) Bus() Bus { return d.bus }

func (d hostDisplay) Panels() []Panel {
	out := make([]Panel, 0, len(d.bus.panels))
	for _, p := range d.bus.panels {
		out = append(out, p.info())
	}
	return out
}
