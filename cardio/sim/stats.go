package sim

import (
	"math"

	"ecgscope/cardio/monitor"
	"ecgscope/cardio/ring"
)

// Window keeps running min, max and average over the last n samples. The
// heart rate is not derived from the signal; it comes from Rate when set.
type Window struct {
	r   *ring.Ring
	buf []float32

	// Rate supplies the heart rate, for example the simulator's BPM.
	Rate func() int
}

// NewWindow covers the last n samples, at least one.
func NewWindow(n int) *Window {
	return &Window{r: ring.New(n)}
}

// WindowFor sizes a window to span one second at sampleRate.
func WindowFor(sampleRate float64) *Window {
	n := int(math.Round(sampleRate))
	return NewWindow(n)
}

func (w *Window) Add(v float32) {
	if math.IsNaN(float64(v)) {
		return
	}
	w.r.Push(v)
}

func (w *Window) Reset() { w.r.Reset() }

// Stats implements monitor.StatsSource. An empty window reports zeros.
func (w *Window) Stats() monitor.Stats {
	var st monitor.Stats
	if w.Rate != nil {
		st.HeartRate = w.Rate()
	}
	n := w.r.Len()
	if n == 0 {
		return st
	}
	w.buf = w.r.Snapshot(w.buf, n)
	lo, hi := w.buf[0], w.buf[0]
	var sum float64
	for _, v := range w.buf {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
		sum += float64(v)
	}
	st.Min, st.Max = lo, hi
	st.Avg = float32(sum / float64(n))
	return st
}
