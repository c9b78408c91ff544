// Package busmux shares one pixel bus between several panels, each behind
// its own active-low chip-select line.
//
// At most one line is asserted at any time. Access is scoped: WithDevice
// selects a panel, runs the caller and always deselects afterwards, so no
// exit path can leave two panels listening.
package busmux

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"ecgscope/hal"
	"ecgscope/internal/logging"
)

// DeviceID names a panel by its position in the line list.
type DeviceID uint8

// Reference wiring.
const (
	Waveform DeviceID = 0
	Info     DeviceID = 1
)

var (
	ErrUnknownDevice = errors.New("busmux: unknown device")
	ErrBusy          = errors.New("busmux: bus already acquired")
	ErrNotSelected   = errors.New("busmux: device no longer selected")
)

// Device is the write handle given to a WithDevice callback. It is valid
// only inside that callback.
type Device interface {
	ID() DeviceID
	WriteRect(x, y, w, h int, pix []byte) error
}

// Mux owns the chip-select lines.
type Mux struct {
	bus    hal.Bus
	lines  []hal.GPIOPin
	log    *zap.Logger
	active int
	held   *device
}

// New configures every line as an output and deasserts it.
func New(bus hal.Bus, lines []hal.GPIOPin, log *zap.Logger) (*Mux, error) {
	if bus == nil {
		return nil, errors.New("busmux: nil bus")
	}
	if len(lines) == 0 {
		return nil, errors.New("busmux: no chip-select lines")
	}
	m := &Mux{bus: bus, lines: lines, log: logging.OrNop(log), active: -1}
	for i, l := range lines {
		if l == nil {
			return nil, fmt.Errorf("busmux: line %d missing", i)
		}
		if err := l.Configure(hal.GPIOModeOutput, hal.GPIOPullNone); err != nil {
			return nil, fmt.Errorf("busmux: line %d (%s): %w", i, l.Name(), err)
		}
	}
	if err := m.Deselect(); err != nil {
		return nil, err
	}
	return m, nil
}

// Count returns the number of devices.
func (m *Mux) Count() int { return len(m.lines) }

// Select asserts id's line after deasserting all others.
func (m *Mux) Select(id DeviceID) error {
	if int(id) >= len(m.lines) {
		if err := m.Deselect(); err != nil {
			return errors.Join(fmt.Errorf("%w: %d", ErrUnknownDevice, id), err)
		}
		return fmt.Errorf("%w: %d", ErrUnknownDevice, id)
	}
	var errs []error
	for i, l := range m.lines {
		if i == int(id) {
			continue
		}
		if err := l.Write(true); err != nil {
			errs = append(errs, fmt.Errorf("busmux: deassert %s: %w", l.Name(), err))
		}
	}
	if len(errs) > 0 {
		// Never assert a line while another may still be low.
		m.active = -1
		return errors.Join(errs...)
	}
	if err := m.lines[id].Write(false); err != nil {
		m.active = -1
		return fmt.Errorf("busmux: assert %s: %w", m.lines[id].Name(), err)
	}
	m.active = int(id)
	return nil
}

// Deselect deasserts every line.
func (m *Mux) Deselect() error {
	var errs []error
	for _, l := range m.lines {
		if err := l.Write(true); err != nil {
			errs = append(errs, fmt.Errorf("busmux: deassert %s: %w", l.Name(), err))
		}
	}
	m.active = -1
	return errors.Join(errs...)
}

// Active reports the selected device, if any.
func (m *Mux) Active() (DeviceID, bool) {
	if m.active < 0 {
		return 0, false
	}
	return DeviceID(m.active), true
}

// Addressable reports whether id's line is asserted right now.
func (m *Mux) Addressable(id DeviceID) bool {
	if int(id) >= len(m.lines) {
		return false
	}
	level, err := m.lines[id].Read()
	return err == nil && !level
}

// WithDevice selects id, runs fn with a handle to it and deselects on every
// exit path, including a panic in fn. A nested call fails with ErrBusy and
// leaves the lines untouched.
func (m *Mux) WithDevice(id DeviceID, fn func(Device) error) (err error) {
	if m.held != nil {
		return fmt.Errorf("%w: device %d held", ErrBusy, m.held.id)
	}
	if err := m.Select(id); err != nil {
		return err
	}

	d := &device{m: m, id: id}
	m.held = d
	defer func() {
		d.m = nil
		m.held = nil
		if derr := m.Deselect(); derr != nil {
			err = errors.Join(err, derr)
		}
	}()

	if err := fn(d); err != nil {
		return fmt.Errorf("device %d: %w", id, err)
	}
	return nil
}

type device struct {
	m  *Mux
	id DeviceID
}

func (d *device) ID() DeviceID { return d.id }

func (d *device) WriteRect(x, y, w, h int, pix []byte) error {
	if d.m == nil {
		return ErrNotSelected
	}
	if err := d.m.bus.WriteRect(x, y, w, h, pix); err != nil {
		d.m.log.Warn("device write failed",
			zap.Uint8("device", uint8(d.id)),
			zap.Int("x", x), zap.Int("y", y), zap.Int("w", w), zap.Int("h", h),
			zap.Error(err))
		return fmt.Errorf("device %d write: %w", d.id, err)
	}
	return nil
}
