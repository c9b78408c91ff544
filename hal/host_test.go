//go:build !tinygo

package hal

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"
)

func TestHostBusDeliversToSelectedPanels(t *testing.T) {
	cs0 := newChipSelect("CS0")
	cs1 := newChipSelect("CS1")
	for _, p := range []*virtualPin{cs0, cs1} {
		if err := p.Configure(GPIOModeOutput, GPIOPullNone); err != nil {
			t.Fatalf("Configure: %v", err)
		}
		if err := p.Write(true); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	p0 := newHostPanel("a", 4, 4, cs0)
	p1 := newHostPanel("b", 4, 4, cs1)
	bus := &hostBus{panels: []*hostPanel{p0, p1}}

	pix := []byte{0x34, 0x12, 0x78, 0x56}
	if err := bus.WriteRect(1, 1, 2, 1, pix); err != nil {
		t.Fatalf("WriteRect: %v", err)
	}
	if p0.writeCount() != 0 || p1.writeCount() != 0 {
		t.Fatal("write reached a deselected panel")
	}

	_ = cs1.Write(false)
	if err := bus.WriteRect(1, 1, 2, 1, pix); err != nil {
		t.Fatalf("WriteRect: %v", err)
	}
	if p0.writeCount() != 0 || p1.writeCount() != 1 {
		t.Fatalf("writes: p0=%d p1=%d", p0.writeCount(), p1.writeCount())
	}
	off := 1*p1.stride + 1*2
	if got := p1.buf[off : off+4]; string(got) != string(pix) {
		t.Fatalf("pixels = % x, want % x", got, pix)
	}

	// Both selected: both panels receive the frame.
	_ = cs0.Write(false)
	if err := bus.WriteRect(0, 0, 1, 1, pix[:2]); err != nil {
		t.Fatalf("WriteRect: %v", err)
	}
	if p0.writeCount() != 1 || p1.writeCount() != 2 {
		t.Fatalf("writes: p0=%d p1=%d", p0.writeCount(), p1.writeCount())
	}
}

func TestHostBusClipsAndRejectsShortBuffer(t *testing.T) {
	cs := newChipSelect("CS")
	p := newHostPanel("a", 2, 2, cs)
	bus := &hostBus{panels: []*hostPanel{p}}

	if err := bus.WriteRect(0, 0, 2, 2, make([]byte, 3)); err == nil {
		t.Fatal("expected short buffer error")
	}
	// Partially off-panel writes are clipped, not rejected.
	if err := bus.WriteRect(1, 1, 3, 3, make([]byte, 18)); err != nil {
		t.Fatalf("WriteRect: %v", err)
	}
}

func TestSteppedClock(t *testing.T) {
	c := newHostClock(true, 25*time.Millisecond)
	t0 := c.Now()
	c.advance()
	c.advance()
	if got := c.Now().Sub(t0); got != 50*time.Millisecond {
		t.Fatalf("elapsed = %v, want 50ms", got)
	}

	wall := newHostClock(false, 0)
	before := time.Now()
	if wall.Now().Before(before) {
		t.Fatal("wall clock went backwards")
	}
}

func TestHostFlashEraseWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.flash")
	f, err := newHostFlash(path)
	if err != nil {
		t.Fatalf("newHostFlash: %v", err)
	}
	if f.SizeBytes() != hostFlashDefaultSizeBytes {
		t.Fatalf("size = %d", f.SizeBytes())
	}

	buf := make([]byte, 4)
	if _, err := f.ReadAt(buf, 0); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	for _, b := range buf {
		if b != 0xFF {
			t.Fatalf("fresh image not erased: % x", buf)
		}
	}

	if _, err := f.WriteAt([]byte{0x0F}, 0); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
	if _, err := f.WriteAt([]byte{0xF0}, 0); !errors.Is(err, ErrFlashWriteRequiresErase) {
		t.Fatalf("expected erase-required error, got %v", err)
	}
	if err := f.Erase(0, hostFlashEraseBlockBytes); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	if _, err := f.WriteAt([]byte{0xF0}, 0); err != nil {
		t.Fatalf("WriteAt after erase: %v", err)
	}

	// Reopening keeps the contents and size.
	g, err := newHostFlash(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if _, err := g.ReadAt(buf[:1], 0); err != nil || buf[0] != 0xF0 {
		t.Fatalf("reopened byte = %x, err %v", buf[0], err)
	}
}

func TestVirtualPinForce(t *testing.T) {
	p := newVirtualPin(PinLeadOffPlus, GPIOCapInput)
	if err := p.Write(true); err == nil {
		t.Fatal("input pin accepted a write")
	}
	p.force(true)
	level, err := p.Read()
	if err != nil || !level {
		t.Fatalf("Read = %v, %v", level, err)
	}
}

func TestPinByName(t *testing.T) {
	a := newVirtualPin("A", GPIOCapInput)
	b := newVirtualPin("B", GPIOCapInput)
	g := newVirtualGPIO([]GPIOPin{a, b})
	if PinByName(g, "B") != GPIOPin(b) {
		t.Fatal("PinByName did not find B")
	}
	if PinByName(g, "C") != nil {
		t.Fatal("PinByName found a missing pin")
	}
	if PinByName(nil, "A") != nil {
		t.Fatal("PinByName on nil GPIO")
	}
}

func TestChipSelectIdlesHigh(t *testing.T) {
	cs := newChipSelect("CS0")
	level, err := cs.Read()
	if err != nil || !level {
		t.Fatalf("Read = %v, %v; want deasserted", level, err)
	}
	p := newHostPanel("a", 2, 2, cs)
	if p.selected() {
		t.Fatal("panel selected before any write")
	}
}

func TestVirtualPinPullAndRelease(t *testing.T) {
	p := newVirtualPin(PinLeadOffMinus, GPIOCapInput|GPIOCapPullUp)
	if err := p.Configure(GPIOModeInput, GPIOPullDown); err == nil {
		t.Fatal("pull-down accepted without the capability")
	}
	if err := p.Configure(GPIOModeInput, GPIOPullUp); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if level, _ := p.Read(); !level {
		t.Fatal("floating input with pull-up should read high")
	}
	p.force(false)
	if level, _ := p.Read(); level {
		t.Fatal("driven low input read high")
	}
	p.release()
	if level, _ := p.Read(); !level {
		t.Fatal("released input should follow its pull-up")
	}
}

func TestVirtualGPIOSkipsNilPins(t *testing.T) {
	a := newVirtualPin("A", GPIOCapInput)
	g := newVirtualGPIO([]GPIOPin{nil, a, nil})
	if g.PinCount() != 1 || g.Pin(0) != GPIOPin(a) {
		t.Fatalf("PinCount = %d", g.PinCount())
	}
	if _, ok := newVirtualGPIO(nil).(nullGPIO); !ok {
		t.Fatal("empty pin list should give nullGPIO")
	}
}

func TestExpandRGB565(t *testing.T) {
	// white, pure red, pure blue
	src := []byte{0xFF, 0xFF, 0x00, 0xF8, 0x1F, 0x00}
	dst := make([]byte, 12)
	if n := expandRGB565(dst, src); n != 3 {
		t.Fatalf("n = %d; want 3", n)
	}
	want := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0, 0, 0xFF, 0, 0, 0xFF, 0xFF}
	if !bytes.Equal(dst, want) {
		t.Fatalf("dst = % x; want % x", dst, want)
	}
	if n := expandRGB565(make([]byte, 4), src); n != 1 {
		t.Fatalf("short dst: n = %d; want 1", n)
	}
}

func TestHostKeyboardDropsWhenFull(t *testing.T) {
	k := newHostKeyboard()
	for i := 0; i < hostKeyQueue; i++ {
		if !k.emit(KeyEvent{Press: true, Rune: 'a'}) {
			t.Fatalf("event %d dropped early", i)
		}
	}
	if k.emit(KeyEvent{Press: true, Rune: 'b'}) {
		t.Fatal("full queue accepted an event")
	}
	if ev := <-k.Events(); ev.Rune != 'a' {
		t.Fatalf("first event = %q", ev.Rune)
	}
}

func TestHostSerialWithoutInput(t *testing.T) {
	var out bytes.Buffer
	s := &hostSerial{w: &out}
	if _, err := s.Read(make([]byte, 4)); !errors.Is(err, io.EOF) {
		t.Fatalf("Read err = %v; want EOF", err)
	}
	if _, err := s.Write([]byte("ok\n")); err != nil || out.String() != "ok\n" {
		t.Fatalf("Write = %q, %v", out.String(), err)
	}
}
