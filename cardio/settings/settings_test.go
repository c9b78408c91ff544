package settings

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tinygo.org/x/tinyfs"
)

func newTestStore(t *testing.T) (*Store, *tinyfs.MemBlockDevice) {
	t.Helper()
	// 256 byte pages, 4 KiB erase blocks, 64 blocks.
	dev := tinyfs.NewMemoryDevice(256, 4096, 64)
	s, err := Open(dev, true, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, dev
}

func TestCalibrationBinaryLayout(t *testing.T) {
	c := Default()
	data, err := c.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, data, CalibrationSize)
	assert.Equal(t, []byte{0x01, 0x00}, data[0:2])

	var back Calibration
	require.NoError(t, back.UnmarshalBinary(data))
	assert.Equal(t, c, back)

	assert.ErrorIs(t, back.UnmarshalBinary(data[:10]), ErrInvalidSize)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Default().Validate())

	bad := []func(*Calibration){
		func(c *Calibration) { c.ValueRange = 0 },
		func(c *Calibration) { c.ValueRange = -3 },
		func(c *Calibration) { c.Gain = float32(math.Inf(1)) },
		func(c *Calibration) { c.Baseline = float32(math.NaN()) },
		func(c *Calibration) { c.GridSpacing = 0 },
	}
	for i, mut := range bad {
		c := Default()
		mut(&c)
		assert.ErrorIs(t, c.Validate(), ErrInvalidValue, "case %d", i)
	}
}

func TestWaveParams(t *testing.T) {
	p := Default().WaveParams(200)
	assert.Equal(t, float32(120), p.Baseline)
	assert.Equal(t, float32(2), p.Gain)
	assert.Equal(t, float32(240), p.ValueRange)
	assert.Equal(t, 200, p.Height)
	assert.True(t, p.Valid())
}

func TestStoreLoadMissing(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Load()
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, Default(), s.LoadOrDefault())
}

func TestStoreSaveLoad(t *testing.T) {
	s, _ := newTestStore(t)

	c := Default()
	c.Gain = 3.5
	c.Baseline = 100
	c.GridSpacing = 25
	c.Version = 0
	require.NoError(t, s.Save(c))

	got, err := s.Load()
	require.NoError(t, err)
	c.Version = CurrentVersion
	assert.Equal(t, c, got)

	// Overwrite replaces the previous record.
	c.Gain = 1
	require.NoError(t, s.Save(c))
	got, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, float32(1), got.Gain)
}

func TestStoreSurvivesRemount(t *testing.T) {
	s, dev := newTestStore(t)
	c := Default()
	c.ValueRange = 4096
	require.NoError(t, s.Save(c))
	require.NoError(t, s.Close())

	s2, err := Open(dev, false, nil)
	require.NoError(t, err)
	defer s2.Close()
	got, err := s2.Load()
	require.NoError(t, err)
	assert.Equal(t, float32(4096), got.ValueRange)
}

func TestStoreVersionMismatchFallsBack(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Save(Default()))

	old := Default()
	old.Version = CurrentVersion + 1
	data, err := old.MarshalBinary()
	require.NoError(t, err)
	require.NoError(t, s.atomicWrite(calibrationFile, data))

	_, err = s.Load()
	assert.ErrorIs(t, err, ErrVersionMismatch)
	assert.Equal(t, Default(), s.LoadOrDefault())
}

func TestStoreTruncatedRecord(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Save(Default()))
	require.NoError(t, s.atomicWrite(calibrationFile, []byte{1, 0, 0}))

	_, err := s.Load()
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestStoreRejectsInvalid(t *testing.T) {
	s, _ := newTestStore(t)
	c := Default()
	c.ValueRange = 0
	assert.ErrorIs(t, s.Save(c), ErrInvalidValue)
	_, err := s.Load()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreErase(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Save(Default()))
	require.NoError(t, s.Erase())
	_, err := s.Load()
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, s.Erase())
}

func TestOpenWithoutFormatFailsOnBlankDevice(t *testing.T) {
	dev := tinyfs.NewMemoryDevice(256, 4096, 64)
	_, err := Open(dev, false, nil)
	assert.Error(t, err)
}

// memFlash behaves like NOR flash: writes may only clear bits.
type memFlash struct {
	data  []byte
	block uint32
}

func newMemFlash(size, block uint32) *memFlash {
	f := &memFlash{data: make([]byte, size), block: block}
	for i := range f.data {
		f.data[i] = 0xFF
	}
	return f
}

func (f *memFlash) SizeBytes() uint32       { return uint32(len(f.data)) }
func (f *memFlash) EraseBlockBytes() uint32 { return f.block }

func (f *memFlash) ReadAt(p []byte, off uint32) (int, error) {
	return copy(p, f.data[off:]), nil
}

func (f *memFlash) WriteAt(p []byte, off uint32) (int, error) {
	for i, b := range p {
		if f.data[int(off)+i]&b != b {
			return 0, errors.New("write requires erase")
		}
	}
	return copy(f.data[off:], p), nil
}

func (f *memFlash) Erase(off, size uint32) error {
	for i := off; i < off+size; i++ {
		f.data[i] = 0xFF
	}
	return nil
}

func TestStoreOnFlashDevice(t *testing.T) {
	fl := newMemFlash(64*4096, 4096)
	dev := NewFlashDevice(fl)
	assert.Equal(t, int64(64*4096), dev.Size())
	assert.Equal(t, int64(4096), dev.EraseBlockSize())

	s, err := Open(dev, true, nil)
	require.NoError(t, err)
	defer s.Close()

	c := Default()
	c.StatsIntervalMs = 2000
	require.NoError(t, s.Save(c))
	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, uint32(2000), got.StatsIntervalMs)
}
