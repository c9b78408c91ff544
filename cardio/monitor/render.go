package monitor

import (
	"fmt"
	"time"

	"ecgscope/cardio/busmux"
	"ecgscope/cardio/canvas"
	"ecgscope/cardio/wave"
)

// Info panel layout, top-left text origins.
const (
	hrX, hrY       = 80, 60
	statsX         = 60
	maxY           = 120
	minY           = 140
	avgY           = 160
	stampX, stampY = 60, 200

	stampWidth  = 80
	stampHeight = 12

	alarmTitleX, alarmTitleY = 60, 100
	alarmLine1X, alarmLine1Y = 50, 130
	alarmLine2X, alarmLine2Y = 60, 145
)

var (
	bgColor    = canvas.RGBA(canvas.Black)
	gridColor  = canvas.RGBA(canvas.Grey)
	traceColor = canvas.RGBA(canvas.Green)
	textColor  = canvas.RGBA(canvas.White)
	alarmColor = canvas.RGBA(canvas.DarkRed)
)

func (m *Monitor) composeGrid() {
	m.trace.Clear(bgColor)
	m.trace.DrawGrid(m.cfg.GridSpacing, gridColor)
}

func (m *Monitor) renderWaveform(dev busmux.Device, _ time.Time) error {
	m.composeGrid()
	if m.ring.Len() > 0 {
		m.samples = m.ring.Snapshot(m.samples, m.trace.Width())
		m.points = wave.Map(m.points, m.samples, m.cfg.Wave)
		m.trace.DrawTrace(m.points, traceColor)
	}
	return m.trace.BlitTo(dev, 0, 0)
}

// HeartRateText is the large readout: the rate when known, else the average.
func HeartRateText(s Stats) string {
	if s.HeartRate > 0 {
		return fmt.Sprintf("%d BPM", s.HeartRate)
	}
	return fmt.Sprintf("%.1f BPM", s.Avg)
}

// FormatElapsed renders d as MM:SS. Minutes are not wrapped.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// The statistics frame repaints the whole info panel, timestamp included,
// so nothing of a previous alarm screen survives.
func (m *Monitor) renderStatistics(dev busmux.Device, now time.Time) error {
	s := m.stats()
	c := m.info
	c.Clear(bgColor)
	c.Text(hrX, hrY, 3, traceColor, HeartRateText(s))
	c.Text(statsX, maxY, 2, textColor, fmt.Sprintf("Max:%.1f", s.Max))
	c.Text(statsX, minY, 2, textColor, fmt.Sprintf("Min:%.1f", s.Min))
	c.Text(statsX, avgY, 2, textColor, fmt.Sprintf("Avg:%.1f", s.Avg))
	c.Text(stampX, stampY, 1, textColor, FormatElapsed(m.Elapsed(now)))
	return c.BlitTo(dev, 0, 0)
}

func (m *Monitor) renderTimestamp(dev busmux.Device, now time.Time) error {
	m.stamp.Clear(bgColor)
	m.stamp.Text(0, 0, 1, textColor, FormatElapsed(m.Elapsed(now)))
	return m.stamp.BlitTo(dev, stampX, stampY)
}

func (m *Monitor) renderAlarm(dev busmux.Device, _ time.Time) error {
	c := m.info
	c.Clear(alarmColor)
	c.Text(alarmTitleX, alarmTitleY, 2, textColor, "LEAD OFF!")
	c.Text(alarmLine1X, alarmLine1Y, 1, textColor, "Check electrode")
	c.Text(alarmLine2X, alarmLine2Y, 1, textColor, "connections")
	return c.BlitTo(dev, 0, 0)
}
