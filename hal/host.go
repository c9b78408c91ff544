//go:build !tinygo

package hal

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// Reference panel geometry: a 240x280 waveform panel and a 240x240 info panel.
const (
	hostWaveformWidth  = 240
	hostWaveformHeight = 280
	hostInfoWidth      = 240
	hostInfoHeight     = 240
)

// HostOptions tunes the simulated board.
type HostOptions struct {
	// FlashPath overrides ECGSCOPE_FLASH_PATH.
	FlashPath string
	// LeadOffPeriod, when positive, makes LO+ a periodic signal that reads
	// high for LeadOffHigh of every period. Otherwise LO+ is toggled from
	// the keyboard.
	LeadOffPeriod time.Duration
	LeadOffHigh   time.Duration
	// Stepped replaces wall time with a clock that advances by Step on
	// every runner tick.
	Stepped bool
	Step    time.Duration
}

type hostHAL struct {
	logger  *hostLogger
	led     *hostLED
	gpio    GPIO
	bus     *hostBus
	kbd     *hostKeyboard
	clock   *hostClock
	flash   Flash
	serial  Serial
	leadOff *virtualPin
}

// New returns a host HAL implementation.
func New(opts HostOptions) HAL {
	logger := &hostLogger{w: os.Stdout}
	clock := newHostClock(opts.Stepped, opts.Step)
	led := &hostLED{logger: logger}

	cs0 := newChipSelect("CS0")
	cs1 := newChipSelect("CS1")
	loMinus := newVirtualPin(PinLeadOffMinus, GPIOCapInput)

	h := &hostHAL{
		logger: logger,
		led:    led,
		clock:  clock,
		kbd:    newHostKeyboard(),
		serial: &hostSerial{r: os.Stdin, w: os.Stdout},
	}

	var loPlus GPIOPin
	if opts.LeadOffPeriod > 0 {
		loPlus = newSignalPinWithClock(PinLeadOffPlus, opts.LeadOffPeriod, opts.LeadOffHigh, clock.Now)
	} else {
		h.leadOff = newVirtualPin(PinLeadOffPlus, GPIOCapInput)
		loPlus = h.leadOff
	}

	h.gpio = newVirtualGPIO([]GPIOPin{newLEDPin("LED", led), cs0, cs1, loPlus, loMinus})
	h.bus = &hostBus{panels: []*hostPanel{
		newHostPanel("waveform", hostWaveformWidth, hostWaveformHeight, cs0),
		newHostPanel("info", hostInfoWidth, hostInfoHeight, cs1),
	}}

	path := opts.FlashPath
	if path == "" {
		path = os.Getenv(hostFlashPathEnv)
	}
	flash, err := newHostFlash(path)
	if err != nil {
		logger.WriteLineString(fmt.Sprintf("flash: %v", err))
		h.flash = newRAMFlash(0, 0)
	} else {
		h.flash = flash
	}
	return h
}

func (h *hostHAL) Logger() Logger   { return h.logger }
func (h *hostHAL) LED() LED         { return h.led }
func (h *hostHAL) GPIO() GPIO       { return h.gpio }
func (h *hostHAL) Display() Display { return hostDisplay{bus: h.bus} }
func (h *hostHAL) Input() Input     { return hostInput{kbd: h.kbd} }
func (h *hostHAL) Flash() Flash     { return h.flash }
func (h *hostHAL) Clock() Clock     { return h.clock }
func (h *hostHAL) Serial() Serial   { return h.serial }
func (h *hostHAL) Analog() Analog   { return nil }

// toggleLeadOff flips the keyboard-driven LO+ line.
func (h *hostHAL) toggleLeadOff() {
	if h.leadOff == nil {
		return
	}
	level, _ := h.leadOff.Read()
	h.leadOff.force(!level)
}

type hostInput struct {
	kbd *hostKeyboard
}

func (in hostInput) Keyboard() Keyboard { return in.kbd }

type hostLogger struct {
	mu sync.Mutex
	w  *os.File
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}

// hostLED mirrors the alarm LED into the log.
type hostLED struct {
	mu     sync.Mutex
	on     bool
	logger *hostLogger
}

func (l *hostLED) High() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.on {
		return
	}
	l.on = true
	l.logger.WriteLineString("led: HIGH")
}

func (l *hostLED) Low() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.on {
		return
	}
	l.on = false
	l.logger.WriteLineString("led: LOW")
}
