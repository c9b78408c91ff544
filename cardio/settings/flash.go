package settings

import (
	"fmt"

	"tinygo.org/x/tinyfs"
)

// Flash is raw erase-block addressed storage.
type Flash interface {
	SizeBytes() uint32
	EraseBlockBytes() uint32
	ReadAt(p []byte, off uint32) (int, error)
	WriteAt(p []byte, off uint32) (int, error)
	Erase(off, size uint32) error
}

// progSize is the write granularity reported to LittleFS.
const progSize = 256

type flashDevice struct {
	f Flash
}

// NewFlashDevice exposes f as a tinyfs block device.
func NewFlashDevice(f Flash) tinyfs.BlockDevice {
	return &flashDevice{f: f}
}

func (d *flashDevice) ReadAt(buf []byte, off int64) (int, error) {
	if off < 0 || off > int64(d.f.SizeBytes()) {
		return 0, fmt.Errorf("flash read at %d: out of range", off)
	}
	return d.f.ReadAt(buf, uint32(off))
}

func (d *flashDevice) WriteAt(buf []byte, off int64) (int, error) {
	if off < 0 || off > int64(d.f.SizeBytes()) {
		return 0, fmt.Errorf("flash write at %d: out of range", off)
	}
	return d.f.WriteAt(buf, uint32(off))
}

func (d *flashDevice) Size() int64           { return int64(d.f.SizeBytes()) }
func (d *flashDevice) WriteBlockSize() int64 { return progSize }
func (d *flashDevice) EraseBlockSize() int64 { return int64(d.f.EraseBlockBytes()) }

func (d *flashDevice) EraseBlocks(start, n int64) error {
	bs := int64(d.f.EraseBlockBytes())
	return d.f.Erase(uint32(start*bs), uint32(n*bs))
}
