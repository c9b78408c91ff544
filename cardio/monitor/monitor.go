// Package monitor ties the sample ring, the waveform mapper, the canvases
// and the refresh scheduler into the two-panel ECG display.
//
// Panel 0 shows the scrolling trace over a grid. Panel 1 shows heart rate,
// running statistics and elapsed time, or the lead-off alarm.
package monitor

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ecgscope/cardio/busmux"
	"ecgscope/cardio/canvas"
	"ecgscope/cardio/refresh"
	"ecgscope/cardio/ring"
	"ecgscope/cardio/wave"
	"ecgscope/hal"
	"ecgscope/internal/logging"
)

// Stats is the latest summary of the signal.
type Stats struct {
	HeartRate int
	Min       float32
	Max       float32
	Avg       float32
}

// StatsSource supplies heart rate and running statistics.
type StatsSource interface {
	Stats() Stats
}

// AlarmSource reports electrode contact.
type AlarmSource interface {
	LeadOff() bool
}

// Config sizes the panels and sets the drawing parameters.
type Config struct {
	Wave        wave.Params
	GridSpacing int
	Capacity    int

	TraceWidth int
	InfoWidth  int
	InfoHeight int
	Refresh    refresh.Config
}

// DefaultConfig is the reference layout: a 240x200 trace and a 240x240 info panel.
func DefaultConfig() Config {
	return Config{
		Wave:        wave.DefaultParams(),
		GridSpacing: 20,
		Capacity:    ring.DefaultCapacity,
		TraceWidth:  240,
		InfoWidth:   240,
		InfoHeight:  240,
		Refresh:     refresh.DefaultConfig(),
	}
}

// Deps are the collaborators of a Monitor. Stats, Alarm and LED may be nil.
type Deps struct {
	Mux   refresh.Acquirer
	Stats StatsSource
	Alarm AlarmSource
	LED   hal.LED
	Log   *zap.Logger
}

// Monitor is single-threaded. Call Ingest for each sample and Step once per tick.
type Monitor struct {
	cfg   Config
	deps  Deps
	log   *zap.Logger
	ring  *ring.Ring
	sched *refresh.Scheduler

	trace *canvas.Canvas
	info  *canvas.Canvas
	stamp *canvas.Canvas

	samples []float32
	points  []wave.Point

	start   time.Time
	started bool
	leadOff bool
	ledSet  bool
}

func New(cfg Config, deps Deps) (*Monitor, error) {
	if deps.Mux == nil {
		return nil, errors.New("monitor: nil multiplexer")
	}
	if !cfg.Wave.Valid() {
		return nil, fmt.Errorf("monitor: invalid waveform params %+v", cfg.Wave)
	}
	if cfg.TraceWidth <= 0 || cfg.InfoWidth <= 0 || cfg.InfoHeight <= 0 {
		return nil, errors.New("monitor: invalid panel size")
	}
	if cfg.Capacity < cfg.TraceWidth {
		cfg.Capacity = cfg.TraceWidth
	}
	log := logging.OrNop(deps.Log).Named("monitor")
	m := &Monitor{
		cfg:   cfg,
		deps:  deps,
		log:   log,
		ring:  ring.New(cfg.Capacity),
		sched: refresh.New(cfg.Refresh, deps.Mux, log),
		trace: canvas.New(cfg.TraceWidth, cfg.Wave.Height),
		info:  canvas.New(cfg.InfoWidth, cfg.InfoHeight),
		stamp: canvas.New(stampWidth, stampHeight),
	}
	m.sched.Handle(refresh.Waveform, m.renderWaveform)
	m.sched.Handle(refresh.Statistics, m.renderStatistics)
	m.sched.Handle(refresh.Timestamp, m.renderTimestamp)
	m.sched.Handle(refresh.Alarm, m.renderAlarm)
	return m, nil
}

// Ingest records one sample. It never blocks.
func (m *Monitor) Ingest(v float32) { m.ring.Push(v) }

// Step reads the alarm state and refreshes whatever regions are due.
func (m *Monitor) Step(now time.Time) error {
	if !m.started {
		m.start = now
		m.started = true
	}
	lead := m.deps.Alarm != nil && m.deps.Alarm.LeadOff()
	if lead != m.leadOff || !m.ledSet {
		if lead != m.leadOff {
			m.log.Info("lead state changed", zap.Bool("leadOff", lead))
		}
		m.leadOff = lead
		m.setLED(lead)
	}
	m.sched.SetAlarm(lead)
	return m.sched.Step(now)
}

func (m *Monitor) setLED(on bool) {
	if m.deps.LED == nil {
		return
	}
	m.ledSet = true
	if on {
		m.deps.LED.High()
	} else {
		m.deps.LED.Low()
	}
}

// ResetTrace drops buffered samples and shows an empty grid on the trace panel.
func (m *Monitor) ResetTrace() error {
	m.ring.Reset()
	m.composeGrid()
	return m.deps.Mux.WithDevice(m.traceTarget(), func(dev busmux.Device) error {
		return m.trace.BlitTo(dev, 0, 0)
	})
}

// SetWaveParams changes gain, baseline and range. The height is fixed by the
// panel and is kept.
func (m *Monitor) SetWaveParams(p wave.Params) error {
	p.Height = m.cfg.Wave.Height
	if !p.Valid() {
		return fmt.Errorf("monitor: invalid waveform params %+v", p)
	}
	m.cfg.Wave = p
	return nil
}

// WaveParams returns the current mapping parameters.
func (m *Monitor) WaveParams() wave.Params { return m.cfg.Wave }

// SetGridSpacing changes the grid pitch. Non-positive values are rejected.
func (m *Monitor) SetGridSpacing(px int) error {
	if px <= 0 {
		return fmt.Errorf("monitor: grid spacing %d", px)
	}
	m.cfg.GridSpacing = px
	return nil
}

func (m *Monitor) GridSpacing() int { return m.cfg.GridSpacing }

// Scheduler exposes the refresh scheduler for interval changes and inspection.
func (m *Monitor) Scheduler() *refresh.Scheduler { return m.sched }

// LeadOff reports the lead state seen by the last Step.
func (m *Monitor) LeadOff() bool { return m.leadOff }

// Samples returns the number of buffered samples.
func (m *Monitor) Samples() int { return m.ring.Len() }

// Latest returns the newest buffered sample.
func (m *Monitor) Latest() (float32, bool) { return m.ring.Latest() }

// Elapsed returns the time since the first Step.
func (m *Monitor) Elapsed(now time.Time) time.Duration {
	if !m.started || now.Before(m.start) {
		return 0
	}
	return now.Sub(m.start)
}

// TraceCanvas and InfoCanvas expose the composed frames.
func (m *Monitor) TraceCanvas() *canvas.Canvas { return m.trace }
func (m *Monitor) InfoCanvas() *canvas.Canvas  { return m.info }

func (m *Monitor) traceTarget() busmux.DeviceID {
	if id, ok := m.cfg.Refresh.Targets[refresh.Waveform]; ok {
		return id
	}
	return busmux.Waveform
}

func (m *Monitor) stats() Stats {
	if m.deps.Stats == nil {
		return Stats{}
	}
	return m.deps.Stats.Stats()
}
