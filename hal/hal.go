package hal

import (
	"errors"
	"time"
)

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

// LED is a minimal output pin abstraction.
type LED interface {
	High()
	Low()
}

var ErrNotImplemented = errors.New("not implemented")

// Bus is the pixel bus shared by all panels. A write reaches every panel
// whose chip-select line is currently asserted (driven low).
//
// pix holds w*h little-endian RGB565 pixels, row-major.
type Bus interface {
	WriteRect(x, y, w, h int, pix []byte) error
}

// Panel describes one display attached to the shared bus.
type Panel struct {
	Name   string
	Width  int
	Height int
	// CS is the active-low chip-select line.
	CS GPIOPin
}

// Display exposes the shared bus and the panels on it, in device order.
type Display interface {
	Bus() Bus
	Panels() []Panel
}

// KeyCode is a minimal key identifier.
type KeyCode uint16

const (
	KeyUnknown KeyCode = iota
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyEnter
	KeyEscape
)

// KeyEvent is a keyboard event.
type KeyEvent struct {
	Code  KeyCode
	Press bool
	Rune  rune
}

// Keyboard provides key events (best-effort on each platform).
type Keyboard interface {
	Events() <-chan KeyEvent
}

// Input provides access to input devices (if available).
type Input interface {
	Keyboard() Keyboard
}

// Flash provides raw access to non-volatile memory.
//
// It is intentionally low-level: addresses and erase blocks only.
type Flash interface {
	SizeBytes() uint32
	EraseBlockBytes() uint32
	ReadAt(p []byte, off uint32) (int, error)
	WriteAt(p []byte, off uint32) (int, error)
	Erase(off, size uint32) error
}

// Clock is the time source for refresh throttling.
type Clock interface {
	Now() time.Time
}

// Serial is a byte stream to the operator console.
type Serial interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
}

// Analog is a single sampled input, full scale 0..65535.
type Analog interface {
	Read() (uint16, error)
}

// Well-known GPIO names.
const (
	// PinLeadOffPlus and PinLeadOffMinus read high while the matching
	// electrode is disconnected.
	PinLeadOffPlus  = "LO+"
	PinLeadOffMinus = "LO-"
)

// HAL provides the only contact point between the monitor and the outside world.
type HAL interface {
	Logger() Logger
	LED() LED
	GPIO() GPIO
	Display() Display
	Input() Input
	Flash() Flash
	Clock() Clock
	Serial() Serial
	// Analog returns the front-end ADC, or nil when samples come from
	// elsewhere.
	Analog() Analog
}

// PinByName returns the first pin called name, or nil.
func PinByName(g GPIO, name string) GPIOPin {
	if g == nil {
		return nil
	}
	if n, ok := g.(interface{ ByName(string) GPIOPin }); ok {
		return n.ByName(name)
	}
	for i := 0; i < g.PinCount(); i++ {
		if p := g.Pin(i); p != nil && p.Name() == name {
			return p
		}
	}
	return nil
}
