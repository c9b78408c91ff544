//go:build !tinygo && cgo

package hal

import (
	"image"

	"ecgscope/internal/buildinfo"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

const windowGap = 8

// RunWindow starts a desktop window that shows both panels side by side and
// forwards keyboard input. It blocks until the window closes.
func RunWindow(opts HostOptions, newApp func(HAL) func() error) error {
	h := New(opts).(*hostHAL)
	step := newApp(h)

	g := &hostGame{h: h, step: step}
	w, ht := g.Layout(0, 0)
	ebiten.SetWindowTitle("ecgscope (" + buildinfo.Short() + ")")
	ebiten.SetWindowSize(w*2, ht*2)
	ebiten.SetTPS(60)
	return ebiten.RunGame(g)
}

type panelView struct {
	img     *image.RGBA
	eimg    *ebiten.Image
	scratch []byte
}

type hostGame struct {
	h     *hostHAL
	views []panelView
	step  func() error
}

func (g *hostGame) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyF2) {
		g.h.toggleLeadOff()
	}
	g.h.kbd.poll()
	g.h.clock.advance()
	if g.step != nil {
		if err := g.step(); err != nil {
			return err
		}
	}
	return nil
}

func (g *hostGame) Draw(screen *ebiten.Image) {
	panels := g.h.bus.panels
	if len(g.views) != len(panels) {
		g.views = make([]panelView, len(panels))
	}

	x := 0
	for i, p := range panels {
		v := &g.views[i]
		if v.img == nil {
			v.img = image.NewRGBA(image.Rect(0, 0, p.width, p.height))
			v.scratch = make([]byte, len(p.buf))
			v.eimg = ebiten.NewImage(p.width, p.height)
		}

		p.snapshotRGB565(v.scratch)
		expandRGB565(v.img.Pix, v.scratch)
		v.eimg.WritePixels(v.img.Pix)

		op := &ebiten.DrawImageOptions{}
		op.GeoM.Translate(float64(x), 0)
		screen.DrawImage(v.eimg, op)
		x += p.width + windowGap
	}
}

func (g *hostGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	w, h := 0, 0
	for i, p := range g.h.bus.panels {
		if i > 0 {
			w += windowGap
		}
		w += p.width
		if p.height > h {
			h = p.height
		}
	}
	return w, h
}
