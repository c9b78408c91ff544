//go:build linux && !tinygo

package hal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// PeriphConfig describes two ST7789 panels on a Linux SPI port.
type PeriphConfig struct {
	// SPIPort is the spireg name; empty selects the first port.
	SPIPort string
	SPIMHz  int
	DC      string
	RST     string
	// CS lists one chip-select line per panel, waveform panel first.
	CS           []string
	LeadOffPlus  string
	LeadOffMinus string
	FlashPath    string
	Hz           int
	Ticks        uint64
}

// DefaultPeriphConfig matches a Raspberry Pi wiring with BCM numbering.
func DefaultPeriphConfig() PeriphConfig {
	return PeriphConfig{
		SPIMHz:       32,
		DC:           "GPIO25",
		RST:          "GPIO24",
		CS:           []string{"GPIO8", "GPIO7"},
		LeadOffPlus:  "GPIO5",
		LeadOffMinus: "GPIO6",
		Hz:           60,
	}
}

// spidev rejects transfers above one page by default.
const periphMaxTx = 4096

type periphHAL struct {
	logger *hostLogger
	gpio   GPIO
	disp   *periphDisplay
	flash  Flash
	serial Serial
	clock  *hostClock
}

// NewPeriph opens the SPI port and GPIO lines named in cfg.
func NewPeriph(cfg PeriphConfig) (HAL, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph: host init: %w", err)
	}
	if len(cfg.CS) == 0 {
		return nil, errors.New("periph: no chip-select lines")
	}
	if cfg.SPIMHz <= 0 {
		cfg.SPIMHz = 32
	}

	port, err := spireg.Open(cfg.SPIPort)
	if err != nil {
		return nil, fmt.Errorf("periph: open spi %q: %w", cfg.SPIPort, err)
	}
	c, err := port.Connect(physic.Frequency(cfg.SPIMHz)*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("periph: connect spi: %w", err)
	}

	dc, err := periphOut(cfg.DC, gpio.High)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	rst, err := periphOut(cfg.RST, gpio.High)
	if err != nil {
		_ = port.Close()
		return nil, err
	}

	pins := make([]GPIOPin, 0, len(cfg.CS)+2)
	panels := make([]Panel, 0, len(cfg.CS))
	sizes := [][2]int{{240, 280}, {240, 240}}
	for i, name := range cfg.CS {
		p := gpioreg.ByName(name)
		if p == nil {
			_ = port.Close()
			return nil, fmt.Errorf("periph: gpio %s not found", name)
		}
		pin := &periphPin{name: name, pin: p, caps: GPIOCapOutput}
		pins = append(pins, pin)
		size := sizes[len(sizes)-1]
		if i < len(sizes) {
			size = sizes[i]
		}
		panels = append(panels, Panel{Name: fmt.Sprintf("panel%d", i), Width: size[0], Height: size[1], CS: pin})
	}
	for _, lo := range []struct{ label, name string }{
		{PinLeadOffPlus, cfg.LeadOffPlus},
		{PinLeadOffMinus, cfg.LeadOffMinus},
	} {
		if lo.name == "" {
			continue
		}
		p := gpioreg.ByName(lo.name)
		if p == nil {
			_ = port.Close()
			return nil, fmt.Errorf("periph: gpio %s not found", lo.name)
		}
		pins = append(pins, &periphPin{name: lo.label, pin: p, caps: GPIOCapInput | GPIOCapPullDown})
	}

	disp := &periphDisplay{conn: c, port: port, dc: dc, rst: rst, panels: panels, tx: make([]byte, periphMaxTx)}
	if err := disp.init(); err != nil {
		_ = port.Close()
		return nil, err
	}

	logger := &hostLogger{w: os.Stdout}
	path := cfg.FlashPath
	if path == "" {
		path = os.Getenv(hostFlashPathEnv)
	}
	var flash Flash = newRAMFlash(0, 0)
	if f, err := newHostFlash(path); err == nil {
		flash = f
	} else {
		logger.WriteLineString(fmt.Sprintf("flash: %v", err))
	}

	return &periphHAL{
		logger: logger,
		gpio:   newVirtualGPIO(pins),
		disp:   disp,
		flash:  flash,
		serial: &hostSerial{r: os.Stdin, w: os.Stdout},
		clock:  newHostClock(false, 0),
	}, nil
}

// RunPeriph drives the monitor on real panels until ctx ends.
func RunPeriph(ctx context.Context, newApp func(HAL) func() error, cfg PeriphConfig) error {
	h, err := NewPeriph(cfg)
	if err != nil {
		return err
	}
	defer h.(*periphHAL).disp.close()
	return runTicker(ctx, cfg.Hz, cfg.Ticks, nil, newApp(h))
}

func (h *periphHAL) Logger() Logger   { return h.logger }
func (h *periphHAL) LED() LED         { return nopLED{} }
func (h *periphHAL) GPIO() GPIO       { return h.gpio }
func (h *periphHAL) Display() Display { return h.disp }
func (h *periphHAL) Input() Input     { return periphInput{} }
func (h *periphHAL) Flash() Flash     { return h.flash }
func (h *periphHAL) Clock() Clock     { return h.clock }
func (h *periphHAL) Serial() Serial   { return h.serial }
func (h *periphHAL) Analog() Analog   { return nil }

type nopLED struct{}

func (nopLED) High() {}
func (nopLED) Low()  {}

type periphInput struct{}

func (periphInput) Keyboard() Keyboard { return nil }

func periphOut(name string, initial gpio.Level) (gpio.PinOut, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("periph: gpio %s not found", name)
	}
	if err := p.Out(initial); err != nil {
		return nil, fmt.Errorf("periph: gpio %s out: %w", name, err)
	}
	return p, nil
}

// periphPin adapts a periph.io line to GPIOPin.
type periphPin struct {
	name string
	pin  gpio.PinIO
	caps GPIOCaps
	mode GPIOMode
}

func (p *periphPin) Name() string   { return p.name }
func (p *periphPin) Caps() GPIOCaps { return p.caps }

func (p *periphPin) Configure(mode GPIOMode, pull GPIOPull) error {
	switch mode {
	case GPIOModeOutput:
		if p.caps&GPIOCapOutput == 0 {
			return fmt.Errorf("gpio: pin %s: output unsupported", p.name)
		}
		if err := p.pin.Out(gpio.High); err != nil {
			return fmt.Errorf("gpio: pin %s: %w", p.name, err)
		}
	case GPIOModeInput:
		pl := gpio.Float
		switch pull {
		case GPIOPullUp:
			pl = gpio.PullUp
		case GPIOPullDown:
			pl = gpio.PullDown
		}
		if err := p.pin.In(pl, gpio.NoEdge); err != nil {
			return fmt.Errorf("gpio: pin %s: %w", p.name, err)
		}
	default:
		return fmt.Errorf("gpio: pin %s: invalid mode", p.name)
	}
	p.mode = mode
	return nil
}

func (p *periphPin) Read() (bool, error) {
	return p.pin.Read() == gpio.High, nil
}

func (p *periphPin) Write(level bool) error {
	if p.mode != GPIOModeOutput {
		return fmt.Errorf("gpio: pin %s: not in output mode", p.name)
	}
	return p.pin.Out(gpio.Level(level))
}

// periphDisplay speaks the ST7789 command set. Chip-select is left to the
// multiplexer, so commands reach whichever panel is selected.
type periphDisplay struct {
	conn   conn.Conn
	port   spi.PortCloser
	dc     gpio.PinOut
	rst    gpio.PinOut
	panels []Panel
	tx     []byte
}

func (d *periphDisplay) Bus() Bus        { return d }
func (d *periphDisplay) Panels() []Panel { return d.panels }

func (d *periphDisplay) close() { _ = d.port.Close() }

// init resets and configures every panel at once by asserting all
// chip-selects for the sequence.
func (d *periphDisplay) init() error {
	for _, p := range d.panels {
		if err := p.CS.Configure(GPIOModeOutput, GPIOPullNone); err != nil {
			return err
		}
		_ = p.CS.Write(false)
	}
	defer func() {
		for _, p := range d.panels {
			_ = p.CS.Write(true)
		}
	}()

	_ = d.rst.Out(gpio.Low)
	time.Sleep(20 * time.Millisecond)
	_ = d.rst.Out(gpio.High)
	time.Sleep(120 * time.Millisecond)

	steps := []struct {
		cmd   byte
		data  []byte
		delay time.Duration
	}{
		{0x01, nil, 150 * time.Millisecond}, // SWRESET
		{0x11, nil, 120 * time.Millisecond}, // SLPOUT
		{0x3A, []byte{0x55}, 0},             // COLMOD 16bpp
		{0x36, []byte{0x00}, 0},             // MADCTL
		{0x21, nil, 0},                      // INVON
		{0x13, nil, 0},                      // NORON
		{0x29, nil, 20 * time.Millisecond},  // DISPON
	}
	for _, s := range steps {
		if err := d.cmd(s.cmd, s.data...); err != nil {
			return fmt.Errorf("st7789 init 0x%02x: %w", s.cmd, err)
		}
		if s.delay > 0 {
			time.Sleep(s.delay)
		}
	}
	return nil
}

func (d *periphDisplay) cmd(c byte, data ...byte) error {
	if err := d.dc.Out(gpio.Low); err != nil {
		return err
	}
	if err := d.conn.Tx([]byte{c}, nil); err != nil {
		return err
	}
	if err := d.dc.Out(gpio.High); err != nil {
		return err
	}
	if len(data) > 0 {
		return d.conn.Tx(data, nil)
	}
	return nil
}

func (d *periphDisplay) setWindow(x0, y0, x1, y1 uint16) error {
	if err := d.cmd(0x2A, byte(x0>>8), byte(x0), byte(x1>>8), byte(x1)); err != nil {
		return err
	}
	if err := d.cmd(0x2B, byte(y0>>8), byte(y0), byte(y1>>8), byte(y1)); err != nil {
		return err
	}
	return d.cmd(0x2C)
}

// WriteRect streams a little-endian RGB565 rectangle; the panel expects
// big-endian so each chunk is swapped on the way out.
func (d *periphDisplay) WriteRect(x, y, w, h int, pix []byte) error {
	total := w * h * 2
	if w <= 0 || h <= 0 || len(pix) < total {
		return fmt.Errorf("bus write %dx%d: short buffer (%d bytes)", w, h, len(pix))
	}
	if err := d.setWindow(uint16(x), uint16(y), uint16(x+w-1), uint16(y+h-1)); err != nil {
		return fmt.Errorf("st7789 window: %w", err)
	}
	for off := 0; off < total; {
		n := len(d.tx)
		if rem := total - off; n > rem {
			n = rem
		}
		n &^= 1
		src := pix[off : off+n]
		for i := 0; i < n; i += 2 {
			d.tx[i] = src[i+1]
			d.tx[i+1] = src[i]
		}
		if err := d.conn.Tx(d.tx[:n], nil); err != nil {
			return fmt.Errorf("st7789 pixels at %d: %w", off, err)
		}
		off += n
	}
	return nil
}
