//go:build !tinygo

package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecgscope/cardio/settings"
)

func TestWriteThenInspect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flash.bin")
	cal := settings.Default()
	cal.Gain = 3
	cal.GridSpacing = 24

	var out bytes.Buffer
	require.NoError(t, run(options{out: path, size: 64 * 4096, eraseSize: 4096, cal: cal}, &out, nil))
	assert.Contains(t, out.String(), "gain:      3")

	out.Reset()
	require.NoError(t, run(options{out: path, eraseSize: 4096, inspect: true}, &out, nil))
	assert.Contains(t, out.String(), "gain:      3")
	assert.Contains(t, out.String(), "grid:      24")
	assert.Contains(t, out.String(), "stats:     1.5s")
}

func TestRejectsInvalidCalibration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flash.bin")
	cal := settings.Default()
	cal.ValueRange = 0
	err := run(options{out: path, size: 64 * 4096, eraseSize: 4096, cal: cal}, &bytes.Buffer{}, nil)
	assert.ErrorIs(t, err, settings.ErrInvalidValue)
}

func TestFlashFileGeometry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flash.bin")
	_, err := openFlashFile(path, 1000, 4096, true)
	assert.Error(t, err)
	_, err = openFlashFile(path, 4096, 100, true)
	assert.Error(t, err)

	ff, err := openFlashFile(path, 2*4096, 4096, true)
	require.NoError(t, err)
	defer ff.Close()

	_, err = ff.WriteAt([]byte{0x0F}, 10)
	require.NoError(t, err)
	_, err = ff.WriteAt([]byte{0xF0}, 10)
	assert.Error(t, err, "NOR writes cannot set bits")

	require.NoError(t, ff.Erase(0, 4096))
	buf := make([]byte, 1)
	_, err = ff.ReadAt(buf, 10)
	require.NoError(t, err)
	assert.Equal(t, byte(0xFF), buf[0])
	assert.Error(t, ff.Erase(1, 4096))
}

func TestInspectMissingImage(t *testing.T) {
	err := run(options{out: filepath.Join(t.TempDir(), "none.bin"), eraseSize: 4096, inspect: true}, &bytes.Buffer{}, nil)
	assert.Error(t, err)
}
