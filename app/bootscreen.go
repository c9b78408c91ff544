package app

import (
	"go.uber.org/zap"

	"ecgscope/cardio/busmux"
	"ecgscope/cardio/canvas"
	"ecgscope/hal"
	"ecgscope/internal/buildinfo"
)

// bootScreen shows a startup message on the info panel until the first
// statistics frame replaces it.
func (a *app) bootScreen(p hal.Panel, msg string) {
	a.log.Debug("boot", zap.String("step", msg))
	c := canvas.New(p.Width, p.Height)
	c.Clear(canvas.RGBA(canvas.Black))
	fg := canvas.RGBA(canvas.White)
	c.Text(60, 100, 2, fg, "ecgscope")
	c.Text(60, 130, 1, fg, buildinfo.Short())
	c.Text(60, 145, 1, fg, msg)
	if err := a.mux.WithDevice(busmux.Info, func(d busmux.Device) error {
		return c.BlitTo(d, 0, 0)
	}); err != nil {
		a.log.Warn("boot screen not shown", zap.Error(err))
	}
}
