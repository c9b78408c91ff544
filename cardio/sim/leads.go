package sim

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"ecgscope/hal"
	"ecgscope/internal/logging"
)

// LeadMode overrides what the electrode inputs say.
type LeadMode uint8

const (
	LeadAuto LeadMode = iota
	LeadAttached
	LeadDetached
)

func (m LeadMode) String() string {
	switch m {
	case LeadAuto:
		return "auto"
	case LeadAttached:
		return "on"
	case LeadDetached:
		return "off"
	default:
		return "unknown"
	}
}

// ParseLeadMode accepts auto, on and off.
func ParseLeadMode(s string) (LeadMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auto":
		return LeadAuto, nil
	case "on", "attached":
		return LeadAttached, nil
	case "off", "detached":
		return LeadDetached, nil
	}
	return LeadAuto, fmt.Errorf("lead mode %q", s)
}

// Leads reads the LO+ and LO- comparator outputs. Either line high means an
// electrode is off. A pin that cannot be read counts as off.
type Leads struct {
	plus, minus hal.GPIOPin
	mode        LeadMode
	log         *zap.Logger
	readFailed  bool
}

// NewLeads configures the given pins as inputs. Nil pins are ignored; with
// neither pin present the leads read as attached unless overridden.
func NewLeads(plus, minus hal.GPIOPin, log *zap.Logger) (*Leads, error) {
	l := &Leads{plus: plus, minus: minus, log: logging.OrNop(log)}
	for _, p := range []hal.GPIOPin{plus, minus} {
		if p == nil {
			continue
		}
		if err := p.Configure(hal.GPIOModeInput, hal.GPIOPullNone); err != nil {
			return nil, fmt.Errorf("leads: %s: %w", p.Name(), err)
		}
	}
	return l, nil
}

// LeadsFromGPIO looks up the well-known lead-off pins.
func LeadsFromGPIO(g hal.GPIO, log *zap.Logger) (*Leads, error) {
	return NewLeads(hal.PinByName(g, hal.PinLeadOffPlus), hal.PinByName(g, hal.PinLeadOffMinus), log)
}

func (l *Leads) Mode() LeadMode     { return l.mode }
func (l *Leads) SetMode(m LeadMode) { l.mode = m }

// LeadOff implements monitor.AlarmSource.
func (l *Leads) LeadOff() bool {
	switch l.mode {
	case LeadAttached:
		return false
	case LeadDetached:
		return true
	}
	off := false
	for _, p := range []hal.GPIOPin{l.plus, l.minus} {
		if p == nil {
			continue
		}
		level, err := p.Read()
		if err != nil {
			if !l.readFailed {
				l.log.Warn("lead-off input unreadable", zap.String("pin", p.Name()), zap.Error(err))
				l.readFailed = true
			}
			return true
		}
		off = off || level
	}
	l.readFailed = false
	return off
}
