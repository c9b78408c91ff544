// Package sim provides stand-ins for the analog front end: a synthetic
// ECG source, a windowed statistics collaborator and a lead-off detector
// backed by GPIO inputs.
package sim

import "math"

// ECGConfig shapes the synthetic signal in display units.
type ECGConfig struct {
	SampleRate float64 // Hz
	BPM        float64
	Noise      float64 // fraction of Amplitude
	Baseline   float32
	Amplitude  float32 // height of the R wave above Baseline
}

// DefaultECGConfig produces a 72 BPM trace centred on 120 that stays inside
// a 240-unit range at gain 2.
func DefaultECGConfig() ECGConfig {
	return ECGConfig{
		SampleRate: 100,
		BPM:        72,
		Noise:      0.02,
		Baseline:   120,
		Amplitude:  50,
	}
}

// ECG is a non-clinical PQRST generator: a slow baseline wander plus
// gaussian P, Q, R, S and T waves and deterministic noise.
type ECG struct {
	cfg   ECGConfig
	phase float64
}

func NewECG(cfg ECGConfig) *ECG {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultECGConfig().SampleRate
	}
	if cfg.BPM < 0 {
		cfg.BPM = 0
	}
	return &ECG{cfg: cfg}
}

// BPM returns the configured rate.
func (e *ECG) BPM() int { return int(math.Round(e.cfg.BPM)) }

// SetBPM changes the rate without a phase jump.
func (e *ECG) SetBPM(bpm float64) {
	if bpm < 0 {
		bpm = 0
	}
	e.cfg.BPM = bpm
}

// Next returns the next sample and advances one sample period.
func (e *ECG) Next() float32 {
	e.phase += e.cfg.BPM / 60 / e.cfg.SampleRate
	e.phase -= math.Floor(e.phase)
	t := e.phase

	wander := 0.05 * math.Sin(2*math.Pi*0.33*t)
	p := 0.08 * gauss(t, 0.18, 0.03)
	q := -0.12 * gauss(t, 0.30, 0.01)
	r := 1.00 * gauss(t, 0.32, 0.008)
	s := -0.25 * gauss(t, 0.35, 0.012)
	tw := 0.25 * gauss(t, 0.60, 0.06)
	n := e.cfg.Noise * (2*fract(math.Sin(12345.678*t)*9876.543) - 1)

	v := wander + p + q + r + s + tw + n
	return e.cfg.Baseline + e.cfg.Amplitude*float32(v)
}

func gauss(x, mu, sigma float64) float64 {
	z := (x - mu) / sigma
	return math.Exp(-0.5 * z * z)
}

func fract(x float64) float64 { return x - math.Floor(x) }
