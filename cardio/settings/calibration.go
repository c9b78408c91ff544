// Package settings persists the monitor calibration on flash.
package settings

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"ecgscope/cardio/wave"
)

// CurrentVersion is the calibration format version. Bump it on any layout
// change; a stored record with another version is ignored.
const CurrentVersion uint16 = 1

// CalibrationSize is the encoded size in bytes.
//
// Layout, little-endian:
//
//	[0-1]   Version (uint16)
//	[2-5]   Baseline (float32)
//	[6-9]   Gain (float32)
//	[10-13] ValueRange (float32)
//	[14-15] GridSpacing (uint16)
//	[16-19] StatsIntervalMs (uint32)
//	[20-23] TimestampIntervalMs (uint32)
const CalibrationSize = 24

var (
	ErrInvalidSize     = errors.New("settings: invalid data size")
	ErrVersionMismatch = errors.New("settings: version mismatch")
	ErrInvalidValue    = errors.New("settings: invalid value")
)

// Calibration holds the operator-tunable display settings.
type Calibration struct {
	Version             uint16
	Baseline            float32
	Gain                float32
	ValueRange          float32
	GridSpacing         uint16
	StatsIntervalMs     uint32
	TimestampIntervalMs uint32
}

// Default returns the factory calibration.
func Default() Calibration {
	return Calibration{
		Version:             CurrentVersion,
		Baseline:            120,
		Gain:                2,
		ValueRange:          240,
		GridSpacing:         20,
		StatsIntervalMs:     1500,
		TimestampIntervalMs: 1000,
	}
}

// Validate rejects values the renderer cannot use.
func (c Calibration) Validate() error {
	switch {
	case !finite(c.Baseline):
		return fmt.Errorf("%w: baseline %v", ErrInvalidValue, c.Baseline)
	case !finite(c.Gain):
		return fmt.Errorf("%w: gain %v", ErrInvalidValue, c.Gain)
	case !finite(c.ValueRange) || c.ValueRange <= 0:
		return fmt.Errorf("%w: value range %v", ErrInvalidValue, c.ValueRange)
	case c.GridSpacing == 0:
		return fmt.Errorf("%w: grid spacing 0", ErrInvalidValue)
	}
	return nil
}

// WaveParams returns mapper parameters for a trace area of the given height.
func (c Calibration) WaveParams(height int) wave.Params {
	return wave.Params{
		Baseline:   c.Baseline,
		Gain:       c.Gain,
		ValueRange: c.ValueRange,
		Height:     height,
	}
}

// StatsInterval returns the statistics refresh interval.
func (c Calibration) StatsInterval() time.Duration {
	return time.Duration(c.StatsIntervalMs) * time.Millisecond
}

// TimestampInterval returns the elapsed-time refresh interval.
func (c Calibration) TimestampInterval() time.Duration {
	return time.Duration(c.TimestampIntervalMs) * time.Millisecond
}

// MarshalBinary encodes c into its fixed-size form.
func (c *Calibration) MarshalBinary() ([]byte, error) {
	buf := make([]byte, CalibrationSize)
	c.encode(buf)
	return buf, nil
}

// UnmarshalBinary decodes data produced by MarshalBinary.
func (c *Calibration) UnmarshalBinary(data []byte) error {
	if len(data) != CalibrationSize {
		return ErrInvalidSize
	}
	c.Version = binary.LittleEndian.Uint16(data[0:2])
	c.Baseline = math.Float32frombits(binary.LittleEndian.Uint32(data[2:6]))
	c.Gain = math.Float32frombits(binary.LittleEndian.Uint32(data[6:10]))
	c.ValueRange = math.Float32frombits(binary.LittleEndian.Uint32(data[10:14]))
	c.GridSpacing = binary.LittleEndian.Uint16(data[14:16])
	c.StatsIntervalMs = binary.LittleEndian.Uint32(data[16:20])
	c.TimestampIntervalMs = binary.LittleEndian.Uint32(data[20:24])
	return nil
}

func (c *Calibration) encode(buf []byte) {
	binary.LittleEndian.PutUint16(buf[0:2], c.Version)
	binary.LittleEndian.PutUint32(buf[2:6], math.Float32bits(c.Baseline))
	binary.LittleEndian.PutUint32(buf[6:10], math.Float32bits(c.Gain))
	binary.LittleEndian.PutUint32(buf[10:14], math.Float32bits(c.ValueRange))
	binary.LittleEndian.PutUint16(buf[14:16], c.GridSpacing)
	binary.LittleEndian.PutUint32(buf[16:20], c.StatsIntervalMs)
	binary.LittleEndian.PutUint32(buf[20:24], c.TimestampIntervalMs)
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
