package app

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"ecgscope/cardio/busmux"
	"ecgscope/cardio/canvas"
)

// showFault logs a recovered panic and paints it on the info panel, black
// on white, wrapped to the panel width.
func (a *app) showFault(v any, stack []byte) error {
	err := fmt.Errorf("app: panic: %v", v)
	a.log.Error("monitor panic", zap.Any("panic", v), zap.ByteString("stack", stack))
	if a.mux == nil {
		return err
	}
	panels := a.h.Display().Panels()
	if int(busmux.Info) >= len(panels) {
		return err
	}
	p := panels[busmux.Info]
	c := canvas.New(p.Width, p.Height)
	c.Clear(canvas.RGBA(canvas.White))

	lines := []string{"ecgscope fault:", fmt.Sprintf("panic: %v", v)}
	if len(stack) > 0 {
		lines = append(lines, "stack:")
		for _, line := range strings.Split(string(stack), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				lines = append(lines, line)
			}
		}
	} else {
		lines = append(lines, "stack: unavailable")
	}

	fg := canvas.RGBA(canvas.Black)
	lh := canvas.LineHeight(1)
	cols := 1
	if cw := canvas.TextWidth("0", 1); cw > 0 && p.Width/cw > 0 {
		cols = p.Width / cw
	}
	y := 0
draw:
	for _, line := range lines {
		for len(line) > 0 {
			if y+lh > p.Height {
				break draw
			}
			chunk, rest := takeRunes(line, cols)
			c.Text(0, y, 1, fg, chunk)
			y += lh
			line = strings.TrimLeft(rest, " ")
		}
	}

	_ = a.mux.Deselect()
	if werr := a.mux.WithDevice(busmux.Info, func(d busmux.Device) error {
		return c.BlitTo(d, 0, 0)
	}); werr != nil {
		a.log.Error("fault screen not shown", zap.Error(werr))
	}
	return err
}

// takeRunes splits s after at most n runes.
func takeRunes(s string, n int) (prefix, rest string) {
	if n <= 0 || s == "" {
		return "", s
	}
	if len(s) <= n {
		return s, ""
	}
	i, count := 0, 0
	for i < len(s) && count < n {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
		count++
	}
	if i >= len(s) {
		return s, ""
	}
	return s[:i], s[i:]
}
