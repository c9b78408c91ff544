// Package app wires a HAL to the ECG monitor and returns the per-tick step.
package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"ecgscope/cardio/busmux"
	"ecgscope/cardio/console"
	"ecgscope/cardio/monitor"
	"ecgscope/cardio/refresh"
	"ecgscope/cardio/settings"
	"ecgscope/cardio/sim"
	"ecgscope/hal"
	"ecgscope/internal/buildinfo"
	"ecgscope/internal/logging"
)

type Config struct {
	Log logging.Options
	// ECG shapes the synthetic source used when the board has no ADC.
	// SampleRate should match the tick rate.
	ECG sim.ECGConfig
	// FormatFlash formats the settings volume when it cannot be mounted.
	FormatFlash bool
}

func DefaultConfig() Config {
	return Config{
		Log:         logging.Options{Level: "info", Service: "ecgscope"},
		ECG:         sim.DefaultECGConfig(),
		FormatFlash: true,
	}
}

type app struct {
	h     hal.HAL
	log   *zap.Logger
	clock hal.Clock

	mux   *busmux.Mux
	mon   *monitor.Monitor
	leads *sim.Leads
	stats *sim.Window
	ecg   *sim.ECG
	adc   hal.Analog
	store *settings.Store
	con   *console.Console
	cal   settings.Calibration

	serial <-chan []byte
	keys   <-chan hal.KeyEvent

	adcFailed bool
	fault     error
}

// New initializes the monitor on h. Setup failures are logged and returned
// by every call of the step function.
func New(h hal.HAL, cfg Config) func() error {
	a, err := newApp(h, cfg)
	if err != nil {
		return func() error { return err }
	}
	return a.step
}

// Run drives the monitor at the sample rate and never returns (TinyGo entrypoint).
func Run(h hal.HAL, cfg Config) {
	step := New(h, cfg)
	hz := cfg.ECG.SampleRate
	if hz <= 0 {
		hz = sim.DefaultECGConfig().SampleRate
	}
	t := time.NewTicker(time.Duration(float64(time.Second) / hz))
	defer t.Stop()
	for range t.C {
		if err := step(); err != nil {
			if l := h.Logger(); l != nil {
				l.WriteLineString("ecgscope halted: " + err.Error())
			}
			select {}
		}
	}
}

func newApp(h hal.HAL, cfg Config) (*app, error) {
	if h == nil {
		return nil, errors.New("app: nil hal")
	}
	if cfg.Log.Sink == nil && h.Logger() != nil {
		cfg.Log.Sink = logging.LineWriter(h.Logger())
	}
	log := logging.New(cfg.Log)
	log.Info("starting", buildinfo.Fields()...)

	a := &app{h: h, log: log, clock: h.Clock()}
	if a.clock == nil {
		a.clock = refresh.SystemClock{}
	}

	disp := h.Display()
	if disp == nil || disp.Bus() == nil {
		return nil, a.fail(errors.New("app: no display"))
	}
	panels := disp.Panels()
	if len(panels) < 2 {
		return nil, a.fail(fmt.Errorf("app: need two panels, have %d", len(panels)))
	}
	lines := make([]hal.GPIOPin, len(panels))
	for i, p := range panels {
		lines[i] = p.CS
	}
	mux, err := busmux.New(disp.Bus(), lines, log.Named("busmux"))
	if err != nil {
		return nil, a.fail(err)
	}
	a.mux = mux
	a.bootScreen(panels[busmux.Info], "loading settings")

	a.cal = settings.Default()
	if fl := h.Flash(); fl != nil {
		store, err := settings.Open(settings.NewFlashDevice(fl), cfg.FormatFlash, log.Named("settings"))
		if err != nil {
			log.Warn("settings unavailable, using defaults", zap.Error(err))
		} else {
			a.store = store
			a.cal = store.LoadOrDefault()
		}
	}

	leads, err := sim.LeadsFromGPIO(h.GPIO(), log.Named("leads"))
	if err != nil {
		return nil, a.fail(err)
	}
	a.leads = leads

	rate := cfg.ECG.SampleRate
	if rate <= 0 {
		rate = sim.DefaultECGConfig().SampleRate
		cfg.ECG.SampleRate = rate
	}
	a.stats = sim.WindowFor(rate)
	if adc := h.Analog(); adc != nil {
		a.adc = adc
		log.Info("sampling analog front end")
	} else {
		a.ecg = sim.NewECG(cfg.ECG)
		a.stats.Rate = a.ecg.BPM
		log.Info("sampling synthetic ECG", zap.Int("bpm", a.ecg.BPM()), zap.Float64("hz", rate))
	}

	mcfg := monitor.DefaultConfig()
	waveH := mcfg.Wave.Height
	mcfg.Wave = a.cal.WaveParams(waveH)
	mcfg.GridSpacing = int(a.cal.GridSpacing)
	mcfg.TraceWidth = panels[busmux.Waveform].Width
	mcfg.InfoWidth = panels[busmux.Info].Width
	mcfg.InfoHeight = panels[busmux.Info].Height
	mcfg.Refresh.Intervals[refresh.Statistics] = a.cal.StatsInterval()
	mcfg.Refresh.Intervals[refresh.Timestamp] = a.cal.TimestampInterval()

	mon, err := monitor.New(mcfg, monitor.Deps{
		Mux:   mux,
		Stats: a.stats,
		Alarm: leads,
		LED:   h.LED(),
		Log:   log,
	})
	if err != nil {
		return nil, a.fail(err)
	}
	a.mon = mon

	env := console.Env{Monitor: mon, Leads: leads, OnCalibration: a.calibrationChanged}
	if a.ecg != nil {
		env.Rate = a.ecg
	}
	if a.store != nil {
		env.Store = a.store
	}
	var out hal.Serial
	if s := h.Serial(); s != nil {
		out = s
		a.serial = console.Reader(context.Background(), s, log.Named("serial"))
	}
	con, err := console.New(env, a.cal, serialWriter{out}, log)
	if err != nil {
		return nil, a.fail(err)
	}
	a.con = con

	if in := h.Input(); in != nil {
		if kb := in.Keyboard(); kb != nil {
			a.keys = kb.Events()
		}
	}

	if err := mon.ResetTrace(); err != nil {
		log.Warn("initial trace clear failed", zap.Error(err))
	}
	log.Info("ready",
		zap.Float32("gain", a.cal.Gain),
		zap.Float32("baseline", a.cal.Baseline),
		zap.Float32("range", a.cal.ValueRange))
	return a, nil
}

func (a *app) fail(err error) error {
	a.log.Error("startup failed", zap.Error(err))
	return err
}

func (a *app) calibrationChanged(c settings.Calibration) {
	a.cal = c
	sched := a.mon.Scheduler()
	sched.SetInterval(refresh.Statistics, c.StatsInterval())
	sched.SetInterval(refresh.Timestamp, c.TimestampInterval())
	a.log.Info("calibration changed",
		zap.Float32("gain", c.Gain),
		zap.Float32("baseline", c.Baseline),
		zap.Float32("range", c.ValueRange),
		zap.Uint16("grid", c.GridSpacing))
}

// step runs one acquisition tick. Render errors are logged and do not stop
// the loop; a panic draws the fault screen and does.
func (a *app) step() (err error) {
	if a.fault != nil {
		return a.fault
	}
	defer func() {
		if r := recover(); r != nil {
			a.fault = a.showFault(r, debug.Stack())
			err = a.fault
		}
	}()

	a.drainInput()
	v := a.sample()
	a.mon.Ingest(v)
	a.stats.Add(v)
	if err := a.mon.Step(a.clock.Now()); err != nil {
		a.log.Debug("refresh incomplete", zap.Error(err))
	}
	return nil
}

func (a *app) sample() float32 {
	if a.adc == nil {
		return a.ecg.Next()
	}
	raw, err := a.adc.Read()
	if err != nil {
		if !a.adcFailed {
			a.log.Warn("adc read failed", zap.Error(err))
			a.adcFailed = true
		}
		return a.cal.Baseline
	}
	a.adcFailed = false
	return float32(raw) * a.cal.ValueRange / math.MaxUint16
}

func (a *app) drainInput() {
	if a.serial != nil && !a.con.Drain(a.serial) {
		a.serial = nil
	}
	for a.keys != nil {
		select {
		case ev, ok := <-a.keys:
			if !ok {
				a.keys = nil
				return
			}
			a.handleKey(ev)
		default:
			return
		}
	}
}

const gainStep = 1.25

func (a *app) handleKey(ev hal.KeyEvent) {
	if !ev.Press {
		return
	}
	var line string
	switch {
	case ev.Code == hal.KeyUp || ev.Rune == '+' || ev.Rune == '=':
		line = fmt.Sprintf("gain %g", a.cal.Gain*gainStep)
	case ev.Code == hal.KeyDown || ev.Rune == '-':
		line = fmt.Sprintf("gain %g", a.cal.Gain/gainStep)
	case ev.Rune == 'r':
		line = "reset"
	case ev.Rune == 's':
		line = "save"
	case ev.Rune == 'l':
		line = "load"
	default:
		return
	}
	if err := a.con.Exec(line); err != nil {
		a.log.Warn("key command failed", zap.String("command", line), zap.Error(err))
	}
}

// serialWriter sends console output to the serial port, if any.
type serialWriter struct{ s hal.Serial }

func (w serialWriter) Write(p []byte) (int, error) {
	if w.s == nil {
		return len(p), nil
	}
	return w.s.Write(p)
}
