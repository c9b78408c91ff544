package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecgscope/hal"
)

func TestECGStaysInDisplayRange(t *testing.T) {
	e := NewECG(DefaultECGConfig())
	lo, hi := float32(math.MaxFloat32), float32(-math.MaxFloat32)
	for i := 0; i < 1000; i++ {
		v := e.Next()
		lo = min(lo, v)
		hi = max(hi, v)
	}
	// R wave well above baseline, S dip below it, and nothing off the panel at gain 2.
	assert.Greater(t, hi, float32(160))
	assert.Less(t, lo, float32(120))
	assert.Less(t, hi, float32(180))
	assert.Greater(t, lo, float32(60))
}

func TestECGPeriod(t *testing.T) {
	cfg := DefaultECGConfig()
	cfg.Noise = 0
	cfg.BPM = 60
	e := NewECG(cfg)
	// One beat per second: the sample stream repeats every SampleRate samples.
	first := make([]float32, 100)
	for i := range first {
		first[i] = e.Next()
	}
	for i := range first {
		assert.InDelta(t, first[i], e.Next(), 1e-3, "sample %d", i)
	}
	assert.Equal(t, 60, e.BPM())
}

func TestECGSetBPM(t *testing.T) {
	e := NewECG(ECGConfig{BPM: 72})
	e.SetBPM(-5)
	assert.Equal(t, 0, e.BPM())
	e.SetBPM(90.4)
	assert.Equal(t, 90, e.BPM())
}

func TestWindowStats(t *testing.T) {
	w := NewWindow(4)
	st := w.Stats()
	assert.Zero(t, st.Min)
	assert.Zero(t, st.Max)
	assert.Zero(t, st.Avg)

	for _, v := range []float32{1, 2, 3, 4, 100} {
		w.Add(v)
	}
	st = w.Stats()
	// Only the last four samples count.
	assert.Equal(t, float32(2), st.Min)
	assert.Equal(t, float32(100), st.Max)
	assert.InDelta(t, 27.25, st.Avg, 1e-6)

	w.Add(float32(math.NaN()))
	assert.InDelta(t, 27.25, w.Stats().Avg, 1e-6)

	w.Rate = func() int { return 72 }
	assert.Equal(t, 72, w.Stats().HeartRate)

	w.Reset()
	assert.Zero(t, w.Stats().Max)
}

func TestWindowForOneSecond(t *testing.T) {
	w := WindowFor(250)
	for i := 0; i < 500; i++ {
		w.Add(float32(i))
	}
	assert.Equal(t, float32(250), w.Stats().Min)
}

type pin struct {
	name  string
	level bool
	err   error
	mode  hal.GPIOMode
}

func (p *pin) Name() string       { return p.name }
func (p *pin) Caps() hal.GPIOCaps { return hal.GPIOCapInput }
func (p *pin) Configure(mode hal.GPIOMode, _ hal.GPIOPull) error {
	p.mode = mode
	return nil
}
func (p *pin) Read() (bool, error) { return p.level, p.err }
func (p *pin) Write(bool) error    { return errors.New("input only") }

func TestLeadsFollowInputs(t *testing.T) {
	plus, minus := &pin{name: "LO+"}, &pin{name: "LO-"}
	l, err := NewLeads(plus, minus, nil)
	require.NoError(t, err)
	assert.Equal(t, hal.GPIOModeInput, plus.mode)

	assert.False(t, l.LeadOff())
	minus.level = true
	assert.True(t, l.LeadOff())
	minus.level = false
	plus.level = true
	assert.True(t, l.LeadOff())
}

func TestLeadsOverride(t *testing.T) {
	plus := &pin{name: "LO+", level: true}
	l, err := NewLeads(plus, nil, nil)
	require.NoError(t, err)
	assert.True(t, l.LeadOff())

	l.SetMode(LeadAttached)
	assert.False(t, l.LeadOff())

	plus.level = false
	l.SetMode(LeadDetached)
	assert.True(t, l.LeadOff())

	l.SetMode(LeadAuto)
	assert.False(t, l.LeadOff())
}

func TestLeadsReadErrorCountsAsOff(t *testing.T) {
	l, err := NewLeads(&pin{name: "LO+", err: errors.New("gone")}, nil, nil)
	require.NoError(t, err)
	assert.True(t, l.LeadOff())
}

func TestLeadsWithoutPins(t *testing.T) {
	l, err := NewLeads(nil, nil, nil)
	require.NoError(t, err)
	assert.False(t, l.LeadOff())
}

func TestParseLeadMode(t *testing.T) {
	for in, want := range map[string]LeadMode{"auto": LeadAuto, "ON": LeadAttached, " off ": LeadDetached} {
		got, err := ParseLeadMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseLeadMode("maybe")
	assert.Error(t, err)
	assert.Equal(t, "off", LeadDetached.String())
}
