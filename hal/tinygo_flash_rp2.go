//go:build tinygo && baremetal && (rp2040 || rp2350)

package hal

import (
	"fmt"
	"machine"
)

// settingsPartitionBytes is reserved at the top of the data flash for the
// calibration volume.
const settingsPartitionBytes = 64 * 1024

// rp2Partition exposes a window of machine.Flash with offsets relative to
// its start.
type rp2Partition struct {
	base  int64
	size  uint32
	block uint32
}

func newRP2Flash() Flash {
	total := machine.Flash.Size()
	block := machine.Flash.EraseBlockSize()
	if total <= 0 || block <= 0 {
		return newRAMFlash(0, 0)
	}
	size := int64(settingsPartitionBytes)
	size -= size % block
	if size > total {
		size = total - total%block
	}
	return &rp2Partition{base: total - size, size: uint32(size), block: uint32(block)}
}

func (p *rp2Partition) SizeBytes() uint32       { return p.size }
func (p *rp2Partition) EraseBlockBytes() uint32 { return p.block }

func (p *rp2Partition) clip(b []byte, off uint32) ([]byte, error) {
	if off >= p.size {
		return nil, errFlashRange
	}
	if rem := p.size - off; uint32(len(b)) > rem {
		b = b[:rem]
	}
	return b, nil
}

func (p *rp2Partition) ReadAt(b []byte, off uint32) (int, error) {
	b, err := p.clip(b, off)
	if err != nil {
		return 0, fmt.Errorf("flash read at %d: %w", off, err)
	}
	n, err := machine.Flash.ReadAt(b, p.base+int64(off))
	if err != nil {
		return n, fmt.Errorf("flash read at %d: %w", off, err)
	}
	return n, nil
}

func (p *rp2Partition) WriteAt(b []byte, off uint32) (int, error) {
	b, err := p.clip(b, off)
	if err != nil {
		return 0, fmt.Errorf("flash write at %d: %w", off, err)
	}
	n, err := machine.Flash.WriteAt(b, p.base+int64(off))
	if err != nil {
		return n, fmt.Errorf("flash write at %d: %w", off, err)
	}
	return n, nil
}

func (p *rp2Partition) Erase(off, size uint32) error {
	if size == 0 {
		return nil
	}
	if off%p.block != 0 || size%p.block != 0 || uint64(off)+uint64(size) > uint64(p.size) {
		return fmt.Errorf("flash erase off=%d size=%d: %w", off, size, errFlashRange)
	}
	first := (p.base + int64(off)) / int64(p.block)
	return machine.Flash.EraseBlocks(first, int64(size/p.block))
}
