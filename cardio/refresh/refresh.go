// Package refresh decides when each screen region is redrawn.
//
// Every region has a minimum interval between renders. A region that was
// never drawn is always due. Renders reach a panel only through the bus
// multiplexer, one device at a time.
//
// The alarm region is event driven: SetAlarm(true) makes it due at once and
// takes over its panel. Other regions on that panel stay quiet until the
// alarm clears, then redraw on the next step.
package refresh

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ecgscope/cardio/busmux"
	"ecgscope/internal/logging"
)

// Region is an independently refreshed area of a panel.
type Region uint8

const (
	Alarm Region = iota
	Waveform
	Statistics
	Timestamp

	regionCount
)

// order is the polling order of Step.
var order = [...]Region{Alarm, Waveform, Statistics, Timestamp}

func (r Region) String() string {
	switch r {
	case Alarm:
		return "alarm"
	case Waveform:
		return "waveform"
	case Statistics:
		return "statistics"
	case Timestamp:
		return "timestamp"
	default:
		return fmt.Sprintf("region(%d)", uint8(r))
	}
}

// State is the lifecycle of one region.
type State uint8

const (
	Idle State = iota
	Due
	Rendering
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Due:
		return "due"
	case Rendering:
		return "rendering"
	default:
		return "unknown"
	}
}

// Config sets per-region intervals and target panels.
//
// A zero interval means due on every attempt. For the alarm region a zero
// interval means it is drawn once per activation.
type Config struct {
	Intervals map[Region]time.Duration
	Targets   map[Region]busmux.DeviceID
}

// DefaultConfig matches the reference firmware.
func DefaultConfig() Config {
	return Config{
		Intervals: map[Region]time.Duration{
			Waveform:   0,
			Statistics: 1500 * time.Millisecond,
			Timestamp:  1000 * time.Millisecond,
			Alarm:      0,
		},
		Targets: map[Region]busmux.DeviceID{
			Waveform:   busmux.Waveform,
			Statistics: busmux.Info,
			Timestamp:  busmux.Info,
			Alarm:      busmux.Info,
		},
	}
}

// Acquirer grants scoped access to one panel.
type Acquirer interface {
	WithDevice(id busmux.DeviceID, fn func(busmux.Device) error) error
}

// Renderer draws a region onto dev.
type Renderer func(dev busmux.Device, now time.Time) error

type region struct {
	interval time.Duration
	target   busmux.DeviceID
	render   Renderer
	state    State
	last     time.Time
	drawn    bool
}

// Scheduler throttles region renders. It is not safe for concurrent use.
type Scheduler struct {
	mux     Acquirer
	log     *zap.Logger
	regions [regionCount]region

	alarm        bool
	alarmPending bool
}

func New(cfg Config, mux Acquirer, log *zap.Logger) *Scheduler {
	s := &Scheduler{mux: mux, log: logging.OrNop(log)}
	def := DefaultConfig()
	for r := Region(0); r < regionCount; r++ {
		rg := &s.regions[r]
		if d, ok := cfg.Intervals[r]; ok {
			rg.interval = d
		} else {
			rg.interval = def.Intervals[r]
		}
		if rg.interval < 0 {
			rg.interval = 0
		}
		if id, ok := cfg.Targets[r]; ok {
			rg.target = id
		} else {
			rg.target = def.Targets[r]
		}
	}
	return s
}

// Handle installs the renderer for r. A region without a renderer is never
// due.
func (s *Scheduler) Handle(r Region, fn Renderer) {
	if r >= regionCount {
		return
	}
	s.regions[r].render = fn
}

// SetInterval changes the throttle of r.
func (s *Scheduler) SetInterval(r Region, d time.Duration) {
	if r >= regionCount {
		return
	}
	if d < 0 {
		d = 0
	}
	s.regions[r].interval = d
}

// Interval returns the throttle of r.
func (s *Scheduler) Interval(r Region) time.Duration {
	if r >= regionCount {
		return 0
	}
	return s.regions[r].interval
}

// State reports the lifecycle state of r.
func (s *Scheduler) State(r Region) State {
	if r >= regionCount {
		return Idle
	}
	return s.regions[r].state
}

// LastUpdate returns when r was last rendered.
func (s *Scheduler) LastUpdate(r Region) (time.Time, bool) {
	if r >= regionCount || !s.regions[r].drawn {
		return time.Time{}, false
	}
	return s.regions[r].last, true
}

// AlarmActive reports the overlay state.
func (s *Scheduler) AlarmActive() bool { return s.alarm }

// SetAlarm raises or clears the alarm overlay. Repeated calls with the same
// value are no-ops.
func (s *Scheduler) SetAlarm(active bool) {
	if active == s.alarm {
		return
	}
	s.alarm = active
	ar := &s.regions[Alarm]
	if active {
		s.alarmPending = true
		ar.state = Due
		s.log.Info("alarm raised")
		return
	}

	s.alarmPending = false
	ar.state = Idle
	ar.drawn = false
	for r := Region(0); r < regionCount; r++ {
		if r == Alarm || s.regions[r].target != ar.target {
			continue
		}
		s.regions[r].drawn = false
		s.regions[r].state = Due
	}
	s.log.Info("alarm cleared")
}

func (s *Scheduler) suppressed(r Region) bool {
	return r != Alarm && s.alarm && s.regions[r].target == s.regions[Alarm].target
}

func (s *Scheduler) due(r Region, now time.Time) bool {
	rg := &s.regions[r]
	if rg.render == nil {
		return false
	}
	if r == Alarm {
		if !s.alarm {
			return false
		}
		if s.alarmPending || !rg.drawn {
			return true
		}
		return rg.interval > 0 && now.Sub(rg.last) >= rg.interval
	}
	if s.suppressed(r) {
		return false
	}
	return !rg.drawn || now.Sub(rg.last) >= rg.interval
}

// Attempt renders r when it is due at now and reports whether it did.
//
// A failed render still counts as an update so that a broken panel is not
// retried on every tick.
func (s *Scheduler) Attempt(r Region, now time.Time) (bool, error) {
	if r >= regionCount {
		return false, fmt.Errorf("refresh: unknown region %d", uint8(r))
	}
	rg := &s.regions[r]
	if !s.due(r, now) {
		rg.state = Idle
		return false, nil
	}
	if s.mux == nil {
		return false, errors.New("refresh: no multiplexer")
	}

	rg.state = Rendering
	err := s.mux.WithDevice(rg.target, func(dev busmux.Device) error {
		return rg.render(dev, now)
	})
	rg.last = now
	rg.drawn = true
	rg.state = Idle
	if r == Alarm {
		s.alarmPending = false
	}
	if err != nil {
		s.log.Warn("region render failed",
			zap.String("region", r.String()),
			zap.Uint8("device", uint8(rg.target)),
			zap.Error(err))
		return true, fmt.Errorf("%s: %w", r, err)
	}
	return true, nil
}

// Step polls every region once in fixed order.
func (s *Scheduler) Step(now time.Time) error {
	var errs []error
	for _, r := range order {
		if _, err := s.Attempt(r, now); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
