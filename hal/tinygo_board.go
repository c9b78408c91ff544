//go:build tinygo && baremetal && (rp2040 || rp2350)

package hal

import (
	"errors"
	"image/color"
	"machine"

	"tinygo.org/x/drivers/st7789"
)

// Board wiring: two ST7789 panels share SPI1, DC and RST; each has its own
// chip-select. An AD8232 front end feeds ADC0 and reports lead-off on LO+/LO-.
const (
	boardSCK  = machine.GP10
	boardSDO  = machine.GP11
	boardDC   = machine.GP14
	boardRST  = machine.GP15
	boardCS0  = machine.GP13
	boardCS1  = machine.GP17
	boardLOP  = machine.GP2
	boardLOM  = machine.GP3
	boardADC  = machine.ADC0
	panelW    = 240
	waveformH = 280
	infoH     = 240
)

var colorBlack = color.RGBA{A: 0xFF}

type tinyGoHAL struct {
	logger *uartLogger
	led    *pinLED
	gpio   GPIO
	disp   *st7789Display
	kbd    Keyboard
	flash  Flash
	serial Serial
	adc    *adcInput
}

// New returns the board HAL.
//
// UART: UART0 on GP0 (TX) / GP1 (RX), 115200 8N1.
func New() HAL {
	uart := machine.UART0
	uart.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GP0,
		RX:       machine.GP1,
	})
	logger := &uartLogger{uart: uart}

	ledPin := machine.LED
	ledPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	led := &pinLED{pin: ledPin}

	cs0 := newMachinePin("CS0", boardCS0, GPIOCapOutput)
	cs1 := newMachinePin("CS1", boardCS1, GPIOCapOutput)
	loP := newMachinePin(PinLeadOffPlus, boardLOP, GPIOCapInput|GPIOCapPullDown)
	loM := newMachinePin(PinLeadOffMinus, boardLOM, GPIOCapInput|GPIOCapPullDown)

	disp, err := newST7789Display(cs0, cs1)
	if err != nil {
		logger.WriteLineString("display: " + err.Error())
	}

	machine.InitADC()
	adc := &adcInput{adc: machine.ADC{Pin: boardADC}}
	adc.adc.Configure(machine.ADCConfig{})

	return &tinyGoHAL{
		logger: logger,
		led:    led,
		gpio:   newVirtualGPIO([]GPIOPin{newLEDPin("LED", led), cs0, cs1, loP, loM}),
		disp:   disp,
		kbd:    &stubKeyboard{},
		flash:  newRP2Flash(),
		serial: &uartSerial{uart: uart},
		adc:    adc,
	}
}

func (h *tinyGoHAL) Logger() Logger   { return h.logger }
func (h *tinyGoHAL) LED() LED         { return h.led }
func (h *tinyGoHAL) GPIO() GPIO       { return h.gpio }
func (h *tinyGoHAL) Display() Display { return h.disp }
func (h *tinyGoHAL) Input() Input     { return tinyGoInput{kbd: h.kbd} }
func (h *tinyGoHAL) Flash() Flash     { return h.flash }
func (h *tinyGoHAL) Clock() Clock     { return tinyGoClock{} }
func (h *tinyGoHAL) Serial() Serial   { return h.serial }
func (h *tinyGoHAL) Analog() Analog   { return h.adc }

// st7789Display drives both panels through one controller handle. The
// driver never touches CS; the multiplexer picks the receiving panel.
type st7789Display struct {
	dev    st7789.Device
	panels []Panel
}

func newST7789Display(cs0, cs1 *machinePin) (*st7789Display, error) {
	if err := machine.SPI1.Configure(machine.SPIConfig{
		SCK:       boardSCK,
		SDO:       boardSDO,
		Frequency: 40_000_000,
		Mode:      0,
	}); err != nil {
		return nil, err
	}

	// Both panels listen during init so one sequence configures them.
	_ = cs0.Configure(GPIOModeOutput, GPIOPullNone)
	_ = cs1.Configure(GPIOModeOutput, GPIOPullNone)
	_ = cs0.Write(false)
	_ = cs1.Write(false)

	dev := st7789.New(machine.SPI1, boardRST, boardDC, machine.NoPin, machine.NoPin)
	dev.Configure(st7789.Config{
		Width:     panelW,
		Height:    waveformH,
		Rotation:  st7789.NO_ROTATION,
		RowOffset: 20,
	})
	dev.FillScreen(colorBlack)

	_ = cs0.Write(true)
	_ = cs1.Write(true)

	return &st7789Display{
		dev: dev,
		panels: []Panel{
			{Name: "waveform", Width: panelW, Height: waveformH, CS: cs0},
			{Name: "info", Width: panelW, Height: infoH, CS: cs1},
		},
	}, nil
}

func (d *st7789Display) Bus() Bus        { return d }
func (d *st7789Display) Panels() []Panel { return d.panels }

// WriteRect sends pix to whichever panel is selected. The controller wants
// big-endian pixels, so the buffer is swapped in place for the transfer and
// restored afterwards; there is no RAM for a second frame copy.
func (d *st7789Display) WriteRect(x, y, w, h int, pix []byte) error {
	n := w * h * 2
	if w <= 0 || h <= 0 || len(pix) < n {
		return errors.New("bus write: short buffer")
	}
	swap16(pix[:n])
	err := d.dev.DrawRGBBitmap8(int16(x), int16(y), pix[:n], int16(w), int16(h))
	swap16(pix[:n])
	return err
}

func swap16(b []byte) {
	for i := 0; i+1 < len(b); i += 2 {
		b[i], b[i+1] = b[i+1], b[i]
	}
}
