//go:build !tinygo

package hal

import (
	"context"
	"fmt"
	"time"
)

// HeadlessConfig controls the no-window host runner.
type HeadlessConfig struct {
	Enabled bool
	Hz      int
	// Ticks stops the runner after this many steps; zero runs until ctx ends.
	Ticks uint64
	// Host configures the simulated board.
	Host HostOptions
}

// RunHeadless drives the monitor without opening a window.
func RunHeadless(ctx context.Context, newApp func(HAL) func() error, cfg HeadlessConfig) error {
	h := New(cfg.Host).(*hostHAL)
	return runTicker(ctx, cfg.Hz, cfg.Ticks, h.clock.advance, newApp(h))
}

// runTicker calls step at hz until ctx ends, step fails, or ticks steps ran.
func runTicker(ctx context.Context, hz int, ticks uint64, advance func(), step func() error) error {
	if hz <= 0 {
		hz = 60
	}
	d := time.Second / time.Duration(hz)
	if d <= 0 {
		return fmt.Errorf("invalid tick rate: %d hz", hz)
	}
	t := time.NewTicker(d)
	defer t.Stop()

	var tick uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if advance != nil {
				advance()
			}
			if step != nil {
				if err := step(); err != nil {
					return err
				}
			}
			tick++
			if ticks > 0 && tick >= ticks {
				return nil
			}
		}
	}
}
