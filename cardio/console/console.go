// Package console is the line-oriented operator console on the serial port.
//
// Lines are split with shell quoting rules and dispatched to a small set of
// commands that adjust calibration, override the lead-off input and persist
// settings.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/shlex"
	"go.uber.org/zap"

	"ecgscope/cardio/settings"
	"ecgscope/cardio/sim"
	"ecgscope/cardio/wave"
	"ecgscope/internal/logging"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUsage          = errors.New("usage")
	ErrUnavailable    = errors.New("not available")
)

const maxLine = 256

// Monitor is the part of the display the console controls.
type Monitor interface {
	WaveParams() wave.Params
	SetWaveParams(p wave.Params) error
	GridSpacing() int
	SetGridSpacing(px int) error
	ResetTrace() error
	LeadOff() bool
	Samples() int
}

// Leads is the lead-off override.
type Leads interface {
	Mode() sim.LeadMode
	SetMode(m sim.LeadMode)
}

// Rate is an adjustable synthetic heart rate.
type Rate interface {
	BPM() int
	SetBPM(bpm float64)
}

// Store persists calibration.
type Store interface {
	Save(c settings.Calibration) error
	Load() (settings.Calibration, error)
}

// Env lists what the commands act on. Only Monitor is required.
type Env struct {
	Monitor Monitor
	Leads   Leads
	Rate    Rate
	Store   Store
	// OnCalibration is called after a calibration change has been applied.
	OnCalibration func(settings.Calibration)
}

type Console struct {
	env Env
	cal settings.Calibration
	out io.Writer
	log *zap.Logger
	reg *registry

	line    []rune
	utf8buf []byte
}

// New returns a console starting from cal. Output goes to out, which may be nil.
func New(env Env, cal settings.Calibration, out io.Writer, log *zap.Logger) (*Console, error) {
	if env.Monitor == nil {
		return nil, errors.New("console: nil monitor")
	}
	if out == nil {
		out = io.Discard
	}
	c := &Console{
		env: env,
		cal: cal,
		out: out,
		log: logging.OrNop(log).Named("console"),
		reg: newRegistry(),
	}
	for _, cmd := range builtins() {
		if err := c.reg.register(cmd); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Calibration returns the calibration currently in effect.
func (c *Console) Calibration() settings.Calibration { return c.cal }

// Exec runs one command line. Blank lines are ignored.
func (c *Console) Exec(line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if len(args) == 0 {
		return nil
	}
	cmd, ok := c.reg.resolve(args[0])
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
	}
	if err := cmd.Run(c, args[1:]); err != nil {
		if errors.Is(err, ErrUsage) {
			return fmt.Errorf("%w: %s", ErrUsage, cmd.Usage)
		}
		return fmt.Errorf("%s: %w", cmd.Name, err)
	}
	return nil
}

// Feed consumes raw serial bytes. Each completed line is executed and any
// error is written back to the operator.
func (c *Console) Feed(b []byte) {
	c.utf8buf = append(c.utf8buf, b...)
	b = c.utf8buf

	for len(b) > 0 {
		switch b[0] {
		case '\r':
			b = b[1:]
		case '\n':
			b = b[1:]
			c.submit()
		case 0x7f, 0x08:
			b = b[1:]
			if len(c.line) > 0 {
				c.line = c.line[:len(c.line)-1]
			}
		default:
			if !utf8.FullRune(b) {
				c.utf8buf = b
				return
			}
			r, sz := utf8.DecodeRune(b)
			b = b[sz:]
			if r == utf8.RuneError && sz == 1 {
				continue
			}
			if r < 0x20 || len(c.line) >= maxLine {
				continue
			}
			c.line = append(c.line, r)
		}
	}
	c.utf8buf = c.utf8buf[:0]
}

func (c *Console) submit() {
	line := strings.TrimSpace(string(c.line))
	c.line = c.line[:0]
	if line == "" {
		return
	}
	if err := c.Exec(line); err != nil {
		c.log.Debug("command failed", zap.String("line", line), zap.Error(err))
		c.printf("error: %v\n", err)
	}
}

func (c *Console) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}

// apply pushes next to the monitor and keeps it only if the monitor accepts it.
func (c *Console) apply(next settings.Calibration) error {
	if err := next.Validate(); err != nil {
		return err
	}
	m := c.env.Monitor
	if err := m.SetWaveParams(next.WaveParams(m.WaveParams().Height)); err != nil {
		return err
	}
	if err := m.SetGridSpacing(int(next.GridSpacing)); err != nil {
		return err
	}
	c.cal = next
	if c.env.OnCalibration != nil {
		c.env.OnCalibration(next)
	}
	return nil
}

// Reader copies r into a channel of chunks until ctx ends or r fails. A
// reader that returns no data and no error is polled every 10ms.
func Reader(ctx context.Context, r io.Reader, log *zap.Logger) <-chan []byte {
	log = logging.OrNop(log)
	ch := make(chan []byte, 16)
	go func() {
		defer close(ch)
		buf := make([]byte, 64)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				chunk := append([]byte(nil), buf[:n]...)
				select {
				case ch <- chunk:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					log.Warn("console input closed", zap.Error(err))
				}
				return
			}
			if n == 0 {
				select {
				case <-time.After(10 * time.Millisecond):
				case <-ctx.Done():
					return
				}
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()
	return ch
}

// Drain feeds every chunk already waiting on ch without blocking. It
// reports false once ch is closed.
func (c *Console) Drain(ch <-chan []byte) bool {
	for {
		select {
		case b, ok := <-ch:
			if !ok {
				return false
			}
			c.Feed(b)
		default:
			return true
		}
	}
}
