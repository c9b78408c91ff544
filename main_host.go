//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"ecgscope/app"
	"ecgscope/hal"
)

func main() {
	var (
		cfg      hal.HeadlessConfig
		backend  string
		appCfg   = app.DefaultConfig()
		bpm      float64
		noise    float64
		periph   = hal.DefaultPeriphConfig()
		leadHigh time.Duration
	)
	flag.BoolVar(&cfg.Enabled, "headless", false, "Run without a window (same as -backend headless).")
	flag.StringVar(&backend, "backend", "window", "Display backend: window, headless or periph.")
	flag.IntVar(&cfg.Hz, "hz", 100, "Sample and tick rate.")
	flag.Uint64Var(&cfg.Ticks, "ticks", 0, "Stop after N ticks (0 = run forever).")
	flag.StringVar(&appCfg.Log.Level, "log-level", "info", "Log level: debug, info, warn, error.")
	flag.StringVar(&appCfg.Log.Format, "log-format", "console", "Log format: console or json.")
	flag.Float64Var(&bpm, "bpm", appCfg.ECG.BPM, "Synthetic heart rate.")
	flag.Float64Var(&noise, "noise", appCfg.ECG.Noise, "Synthetic noise, fraction of the R wave.")
	flag.BoolVar(&cfg.Host.Stepped, "stepped", false, "Advance time by one tick per step instead of wall time.")
	flag.DurationVar(&cfg.Host.LeadOffPeriod, "leadoff-period", 0, "Simulate lead-off for part of every period (0 = keyboard F2).")
	flag.DurationVar(&leadHigh, "leadoff-high", 2*time.Second, "How long each simulated lead-off lasts.")
	flag.StringVar(&periph.SPIPort, "spi", periph.SPIPort, "SPI port for the periph backend.")
	flag.Parse()

	if cfg.Enabled {
		backend = "headless"
	}
	if cfg.Hz <= 0 {
		cfg.Hz = 100
	}
	appCfg.ECG.SampleRate = float64(cfg.Hz)
	appCfg.ECG.BPM = bpm
	appCfg.ECG.Noise = noise
	cfg.Host.LeadOffHigh = leadHigh
	cfg.Host.Step = time.Second / time.Duration(cfg.Hz)

	newApp := func(h hal.HAL) func() error {
		return app.New(h, appCfg)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch backend {
	case "headless":
		cfg.Enabled = true
		err = hal.RunHeadless(ctx, newApp, cfg)
	case "periph":
		periph.Hz = cfg.Hz
		periph.Ticks = cfg.Ticks
		err = hal.RunPeriph(ctx, newApp, periph)
	case "window":
		err = hal.RunWindow(cfg.Host, newApp)
	default:
		err = fmt.Errorf("unknown backend %q", backend)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
