package refresh

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecgscope/cardio/busmux"
)

type fakeDevice struct{ id busmux.DeviceID }

func (d fakeDevice) ID() busmux.DeviceID                     { return d.id }
func (d fakeDevice) WriteRect(x, y, w, h int, _ []byte) error { return nil }

type fakeMux struct {
	acquired []busmux.DeviceID
	err      error
}

func (m *fakeMux) WithDevice(id busmux.DeviceID, fn func(busmux.Device) error) error {
	if m.err != nil {
		return m.err
	}
	m.acquired = append(m.acquired, id)
	return fn(fakeDevice{id: id})
}

type counter struct {
	calls []time.Time
	err   error
}

func (c *counter) render(_ busmux.Device, now time.Time) error {
	c.calls = append(c.calls, now)
	return c.err
}

var t0 = time.Unix(0, 0)

func at(ms int) time.Time { return t0.Add(time.Duration(ms) * time.Millisecond) }

func TestStatisticsThrottle(t *testing.T) {
	s := New(DefaultConfig(), &fakeMux{}, nil)
	var c counter
	s.Handle(Statistics, c.render)

	ok, err := s.Attempt(Statistics, at(0))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Attempt(Statistics, at(1000))
	require.NoError(t, err)
	assert.False(t, ok)
	last, _ := s.LastUpdate(Statistics)
	assert.Equal(t, at(0), last)

	ok, err = s.Attempt(Statistics, at(1600))
	require.NoError(t, err)
	assert.True(t, ok)
	last, _ = s.LastUpdate(Statistics)
	assert.Equal(t, at(1600), last)

	assert.Equal(t, []time.Time{at(0), at(1600)}, c.calls)
}

func TestNeverRenderedIsDue(t *testing.T) {
	s := New(DefaultConfig(), &fakeMux{}, nil)
	var c counter
	s.Handle(Timestamp, c.render)
	_, ok := s.LastUpdate(Timestamp)
	assert.False(t, ok)

	// Even at the zero time, a region that was never drawn renders.
	done, err := s.Attempt(Timestamp, time.Time{})
	require.NoError(t, err)
	assert.True(t, done)
}

func TestExactIntervalIsDue(t *testing.T) {
	s := New(DefaultConfig(), &fakeMux{}, nil)
	var c counter
	s.Handle(Timestamp, c.render)
	_, _ = s.Attempt(Timestamp, at(0))
	ok, _ := s.Attempt(Timestamp, at(999))
	assert.False(t, ok)
	ok, _ = s.Attempt(Timestamp, at(1000))
	assert.True(t, ok)
}

func TestWaveformEveryAttempt(t *testing.T) {
	mux := &fakeMux{}
	s := New(DefaultConfig(), mux, nil)
	var c counter
	s.Handle(Waveform, c.render)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Step(at(0)))
	}
	assert.Len(t, c.calls, 5)
	for _, id := range mux.acquired {
		assert.Equal(t, busmux.Waveform, id)
	}
}

func TestRegionWithoutRendererIsSkipped(t *testing.T) {
	mux := &fakeMux{}
	s := New(DefaultConfig(), mux, nil)
	require.NoError(t, s.Step(at(0)))
	assert.Empty(t, mux.acquired)
}

func TestRenderErrorStillUpdatesTimestamp(t *testing.T) {
	s := New(DefaultConfig(), &fakeMux{}, nil)
	boom := errors.New("write failed")
	c := counter{err: boom}
	s.Handle(Statistics, c.render)

	ok, err := s.Attempt(Statistics, at(0))
	assert.True(t, ok)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Idle, s.State(Statistics))

	ok, err = s.Attempt(Statistics, at(10))
	assert.False(t, ok)
	assert.NoError(t, err)
}

func TestAcquireFailureIsReported(t *testing.T) {
	boom := errors.New("bus busy")
	s := New(DefaultConfig(), &fakeMux{err: boom}, nil)
	var c counter
	s.Handle(Statistics, c.render)
	_, err := s.Attempt(Statistics, at(0))
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, c.calls)
}

func TestStepJoinsErrorsAndKeepsGoing(t *testing.T) {
	s := New(DefaultConfig(), &fakeMux{}, nil)
	bad := counter{err: errors.New("waveform down")}
	var stats, ts counter
	s.Handle(Waveform, bad.render)
	s.Handle(Statistics, stats.render)
	s.Handle(Timestamp, ts.render)

	err := s.Step(at(0))
	assert.ErrorIs(t, err, bad.err)
	assert.Len(t, stats.calls, 1)
	assert.Len(t, ts.calls, 1)
}

func TestStepOrder(t *testing.T) {
	s := New(DefaultConfig(), &fakeMux{}, nil)
	var seen []Region
	for _, r := range []Region{Timestamp, Statistics, Waveform, Alarm} {
		r := r
		s.Handle(r, func(busmux.Device, time.Time) error {
			seen = append(seen, r)
			return nil
		})
	}
	s.SetAlarm(true)
	require.NoError(t, s.Step(at(0)))
	// Info-panel regions are suppressed under the alarm.
	assert.Equal(t, []Region{Alarm, Waveform}, seen)
}

func TestStateDuringRender(t *testing.T) {
	s := New(DefaultConfig(), &fakeMux{}, nil)
	var during State
	s.Handle(Statistics, func(busmux.Device, time.Time) error {
		during = s.State(Statistics)
		return nil
	})
	_, err := s.Attempt(Statistics, at(0))
	require.NoError(t, err)
	assert.Equal(t, Rendering, during)
	assert.Equal(t, Idle, s.State(Statistics))
}

func TestAlarmTakesOverInfoPanel(t *testing.T) {
	mux := &fakeMux{}
	s := New(DefaultConfig(), mux, nil)
	var alarm, stats, wave counter
	s.Handle(Alarm, alarm.render)
	s.Handle(Statistics, stats.render)
	s.Handle(Waveform, wave.render)

	require.NoError(t, s.Step(at(0)))
	assert.Len(t, stats.calls, 1)
	assert.Empty(t, alarm.calls)

	s.SetAlarm(true)
	assert.True(t, s.AlarmActive())
	assert.Equal(t, Due, s.State(Alarm))

	require.NoError(t, s.Step(at(100)))
	assert.Len(t, alarm.calls, 1)
	assert.Equal(t, busmux.Info, mux.acquired[len(mux.acquired)-1])

	// Stats would be due by interval but stay suppressed. The alarm is drawn once.
	require.NoError(t, s.Step(at(5000)))
	assert.Len(t, stats.calls, 1)
	assert.Len(t, alarm.calls, 1)
	assert.Len(t, wave.calls, 3)

	// Raising again is a no-op.
	s.SetAlarm(true)
	require.NoError(t, s.Step(at(5100)))
	assert.Len(t, alarm.calls, 1)

	s.SetAlarm(false)
	assert.Equal(t, Due, s.State(Statistics))
	// Less than an interval since the last draw, but the clear forces a redraw.
	require.NoError(t, s.Step(at(5200)))
	assert.Len(t, stats.calls, 2)
	assert.Equal(t, at(5200), stats.calls[1])
	assert.Len(t, alarm.calls, 1)
}

func TestAlarmRepeatsWithInterval(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Intervals[Alarm] = 500 * time.Millisecond
	s := New(cfg, &fakeMux{}, nil)
	var alarm counter
	s.Handle(Alarm, alarm.render)
	s.SetAlarm(true)
	for ms := 0; ms <= 1000; ms += 100 {
		require.NoError(t, s.Step(at(ms)))
	}
	assert.Equal(t, []time.Time{at(0), at(500), at(1000)}, alarm.calls)
}

func TestAlarmRedrawsOnEachActivation(t *testing.T) {
	s := New(DefaultConfig(), &fakeMux{}, nil)
	var alarm counter
	s.Handle(Alarm, alarm.render)
	s.SetAlarm(true)
	require.NoError(t, s.Step(at(0)))
	s.SetAlarm(false)
	require.NoError(t, s.Step(at(10)))
	s.SetAlarm(true)
	require.NoError(t, s.Step(at(20)))
	assert.Equal(t, []time.Time{at(0), at(20)}, alarm.calls)
}

func TestConfigDefaultsAndOverrides(t *testing.T) {
	s := New(Config{Intervals: map[Region]time.Duration{Statistics: 2 * time.Second}}, &fakeMux{}, nil)
	assert.Equal(t, 2*time.Second, s.Interval(Statistics))
	assert.Equal(t, time.Second, s.Interval(Timestamp))

	s.SetInterval(Timestamp, -time.Second)
	assert.Equal(t, time.Duration(0), s.Interval(Timestamp))

	_, err := s.Attempt(Region(42), at(0))
	assert.Error(t, err)
	assert.Equal(t, "region(42)", Region(42).String())
}

func TestFakeClock(t *testing.T) {
	c := NewFakeClock(t0)
	assert.Equal(t, t0, c.Now())
	assert.Equal(t, at(1500), c.Advance(1500*time.Millisecond))
	c.Set(at(10))
	assert.Equal(t, at(10), c.Now())

	var _ Clock = SystemClock{}
	assert.False(t, SystemClock{}.Now().IsZero())
}
