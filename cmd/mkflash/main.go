//go:build !tinygo

// Command mkflash writes a host flash image with a calibration record, or
// prints the record stored in an existing image.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"ecgscope/cardio/settings"
	"ecgscope/internal/logging"
)

const (
	defaultFlashPath = "ecgscope.flash"
	defaultFlashSize = 256 * 1024
	defaultEraseSize = 4096
)

type flashFile struct {
	f         *os.File
	size      uint32
	eraseSize uint32

	scratch []byte
}

// openFlashFile opens path as a flash image. With create set the file is
// truncated to size and erased; otherwise its current size is used.
func openFlashFile(path string, size, eraseSize uint32, create bool) (*flashFile, error) {
	if eraseSize == 0 || eraseSize%256 != 0 {
		return nil, fmt.Errorf("flash: invalid erase size %d", eraseSize)
	}

	flags := os.O_RDWR
	if create {
		flags |= os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open flash file %q: %w", path, err)
	}
	if !create {
		st, err := f.Stat()
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("stat flash file %q: %w", path, err)
		}
		size = uint32(st.Size())
	}
	if size == 0 || size%eraseSize != 0 {
		_ = f.Close()
		return nil, fmt.Errorf("flash: size %d not multiple of erase size %d", size, eraseSize)
	}

	ff := &flashFile{
		f:         f,
		size:      size,
		eraseSize: eraseSize,
		scratch:   make([]byte, eraseSize),
	}
	for i := range ff.scratch {
		ff.scratch[i] = 0xFF
	}
	if create {
		if err := f.Truncate(int64(size)); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("truncate flash file %q to %d: %w", path, size, err)
		}
		if err := ff.Erase(0, size); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("erase flash file %q: %w", path, err)
		}
	}
	return ff, nil
}

func (f *flashFile) Close() error { return f.f.Close() }

func (f *flashFile) SizeBytes() uint32       { return f.size }
func (f *flashFile) EraseBlockBytes() uint32 { return f.eraseSize }

func (f *flashFile) ReadAt(p []byte, off uint32) (int, error) {
	if off >= f.size {
		return 0, fmt.Errorf("flash read at %d: %w", off, os.ErrInvalid)
	}
	if maxN := int(f.size - off); len(p) > maxN {
		p = p[:maxN]
	}
	return f.f.ReadAt(p, int64(off))
}

func (f *flashFile) WriteAt(p []byte, off uint32) (int, error) {
	if off >= f.size {
		return 0, fmt.Errorf("flash write at %d: %w", off, os.ErrInvalid)
	}
	if maxN := int(f.size - off); len(p) > maxN {
		p = p[:maxN]
	}

	prev := make([]byte, len(p))
	if _, err := f.f.ReadAt(prev, int64(off)); err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("flash read before write at %d: %w", off, err)
	}
	for i := range p {
		if prev[i]&p[i] != p[i] {
			return 0, errors.New("flash write requires erase")
		}
	}
	return f.f.WriteAt(p, int64(off))
}

func (f *flashFile) Erase(off, size uint32) error {
	if size == 0 {
		return nil
	}
	if off%f.eraseSize != 0 || size%f.eraseSize != 0 || off+size > f.size {
		return fmt.Errorf("flash erase off=%d size=%d: %w", off, size, os.ErrInvalid)
	}
	for size > 0 {
		if _, err := f.f.WriteAt(f.scratch, int64(off)); err != nil {
			return fmt.Errorf("flash erase block at %d: %w", off, err)
		}
		off += f.eraseSize
		size -= f.eraseSize
	}
	return nil
}

type options struct {
	out       string
	size      uint32
	eraseSize uint32
	inspect   bool
	cal       settings.Calibration
}

func main() {
	opts := options{cal: settings.Default()}
	var (
		flashSize, eraseSize uint
		gain, baseline, rng  float64
		grid                 uint
		statsEvery           time.Duration
		stampEvery           time.Duration
		logLevel             string
	)
	flag.StringVar(&opts.out, "out", defaultFlashPath, "Flash image path.")
	flag.UintVar(&flashSize, "size", defaultFlashSize, "Flash image size (bytes).")
	flag.UintVar(&eraseSize, "erase", defaultEraseSize, "Erase block size (bytes).")
	flag.BoolVar(&opts.inspect, "inspect", false, "Print the calibration stored in an existing image.")
	flag.Float64Var(&gain, "gain", float64(opts.cal.Gain), "Trace gain.")
	flag.Float64Var(&baseline, "baseline", float64(opts.cal.Baseline), "Baseline value.")
	flag.Float64Var(&rng, "range", float64(opts.cal.ValueRange), "Full-scale value range.")
	flag.UintVar(&grid, "grid", uint(opts.cal.GridSpacing), "Grid spacing (px).")
	flag.DurationVar(&statsEvery, "stats-interval", opts.cal.StatsInterval(), "Statistics refresh interval.")
	flag.DurationVar(&stampEvery, "timestamp-interval", opts.cal.TimestampInterval(), "Timestamp refresh interval.")
	flag.StringVar(&logLevel, "log-level", "warn", "Log level.")
	flag.Parse()

	if opts.out == "" {
		fmt.Fprintln(os.Stderr, "error: -out is required")
		os.Exit(2)
	}
	opts.size = uint32(flashSize)
	opts.eraseSize = uint32(eraseSize)
	opts.cal.Gain = float32(gain)
	opts.cal.Baseline = float32(baseline)
	opts.cal.ValueRange = float32(rng)
	opts.cal.GridSpacing = uint16(grid)
	opts.cal.StatsIntervalMs = uint32(statsEvery.Milliseconds())
	opts.cal.TimestampIntervalMs = uint32(stampEvery.Milliseconds())

	log := logging.New(logging.Options{Level: logLevel, Sink: os.Stderr})
	defer func() { _ = log.Sync() }()

	if err := run(opts, os.Stdout, log); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(opts options, out io.Writer, log *zap.Logger) error {
	log = logging.OrNop(log)
	if !opts.inspect {
		if err := opts.cal.Validate(); err != nil {
			return err
		}
	}

	ff, err := openFlashFile(opts.out, opts.size, opts.eraseSize, !opts.inspect)
	if err != nil {
		return err
	}
	defer func() { _ = ff.Close() }()

	store, err := settings.Open(settings.NewFlashDevice(ff), !opts.inspect, log)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if opts.inspect {
		cal, err := store.Load()
		if err != nil {
			return err
		}
		printCalibration(out, cal)
		return nil
	}

	if err := store.Save(opts.cal); err != nil {
		return err
	}
	log.Info("image written", zap.String("path", opts.out), zap.Uint32("bytes", opts.size))
	printCalibration(out, opts.cal)
	return nil
}

func printCalibration(w io.Writer, c settings.Calibration) {
	fmt.Fprintf(w, "version:   %d\n", c.Version)
	fmt.Fprintf(w, "gain:      %g\n", c.Gain)
	fmt.Fprintf(w, "baseline:  %g\n", c.Baseline)
	fmt.Fprintf(w, "range:     %g\n", c.ValueRange)
	fmt.Fprintf(w, "grid:      %d\n", c.GridSpacing)
	fmt.Fprintf(w, "stats:     %s\n", c.StatsInterval())
	fmt.Fprintf(w, "timestamp: %s\n", c.TimestampInterval())
}
