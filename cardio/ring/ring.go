// Package ring keeps the most recent samples of a single signal in a
// fixed-size circular store.
//
// The backing array is allocated once. A monotonically increasing write
// cursor names the next slot; reads walk backwards from it modulo the
// capacity. There is a single producer and no locking.
package ring

// DefaultCapacity matches one screen width of trace on the reference panel.
const DefaultCapacity = 240

// Ring is a fixed-capacity circular store of float32 samples.
type Ring struct {
	buf    []float32
	cursor uint64
}

// New returns a ring holding at most capacity samples.
func New(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{buf: make([]float32, capacity)}
}

// Cap returns the fixed capacity.
func (r *Ring) Cap() int { return len(r.buf) }

// Len returns the number of samples currently stored.
func (r *Ring) Len() int {
	if r.cursor < uint64(len(r.buf)) {
		return int(r.cursor)
	}
	return len(r.buf)
}

// Written returns the total number of samples pushed since creation or the
// last Reset.
func (r *Ring) Written() uint64 { return r.cursor }

// Push stores v, overwriting the oldest sample once the ring is full.
func (r *Ring) Push(v float32) {
	r.buf[r.cursor%uint64(len(r.buf))] = v
	r.cursor++
}

// Latest returns the most recently pushed sample.
func (r *Ring) Latest() (float32, bool) {
	if r.cursor == 0 {
		return 0, false
	}
	return r.buf[(r.cursor-1)%uint64(len(r.buf))], true
}

// Snapshot copies the window most recent samples into dst, oldest first, and
// returns the filled slice. dst is reused when it has enough capacity.
//
// window is clamped to [0, Cap()]. When fewer than window samples have been
// written the result is zero-padded at the oldest end, so the returned slice
// is always window long.
func (r *Ring) Snapshot(dst []float32, window int) []float32 {
	if window < 0 {
		window = 0
	}
	if window > len(r.buf) {
		window = len(r.buf)
	}
	if cap(dst) < window {
		dst = make([]float32, window)
	}
	dst = dst[:window]

	n := uint64(len(r.buf))
	pad := 0
	if r.cursor < uint64(window) {
		pad = window - int(r.cursor)
	}
	for i := 0; i < pad; i++ {
		dst[i] = 0
	}
	// Oldest wanted sample sits window slots behind the cursor.
	start := r.cursor - uint64(window-pad)
	for i := pad; i < window; i++ {
		dst[i] = r.buf[(start+uint64(i-pad))%n]
	}
	return dst
}

// Reset forgets all samples without reallocating.
func (r *Ring) Reset() {
	for i := range r.buf {
		r.buf[i] = 0
	}
	r.cursor = 0
}
