package hal

import (
	"errors"
	"fmt"
	"sync"
)

// ErrFlashWriteRequiresErase reports a write that would set a cleared bit.
var ErrFlashWriteRequiresErase = errors.New("flash write requires erase")

var errFlashRange = errors.New("flash: out of range")

const (
	ramFlashSizeBytes  = 64 * 1024
	ramFlashBlockBytes = 4096
)

// ramFlash is a volatile NOR image used when no persistent backing exists.
// Writes may only clear bits; Erase sets whole blocks back to 0xFF.
type ramFlash struct {
	mu    sync.Mutex
	data  []byte
	block uint32
}

func newRAMFlash(size, block uint32) *ramFlash {
	if block == 0 {
		block = ramFlashBlockBytes
	}
	if size == 0 {
		size = ramFlashSizeBytes
	}
	size -= size % block
	f := &ramFlash{data: make([]byte, size), block: block}
	for i := range f.data {
		f.data[i] = 0xFF
	}
	return f
}

func (f *ramFlash) SizeBytes() uint32       { return uint32(len(f.data)) }
func (f *ramFlash) EraseBlockBytes() uint32 { return f.block }

func (f *ramFlash) ReadAt(p []byte, off uint32) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if off >= uint32(len(f.data)) {
		return 0, fmt.Errorf("flash read at %d: %w", off, errFlashRange)
	}
	return copy(p, f.data[off:]), nil
}

func (f *ramFlash) WriteAt(p []byte, off uint32) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if off >= uint32(len(f.data)) {
		return 0, fmt.Errorf("flash write at %d: %w", off, errFlashRange)
	}
	dst := f.data[off:]
	if len(p) > len(dst) {
		p = p[:len(dst)]
	}
	for i, b := range p {
		if dst[i]&b != b {
			return 0, fmt.Errorf("flash write at %d: %w", off+uint32(i), ErrFlashWriteRequiresErase)
		}
	}
	return copy(dst, p), nil
}

func (f *ramFlash) Erase(off, size uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if size == 0 {
		return nil
	}
	if off%f.block != 0 || size%f.block != 0 || off+size > uint32(len(f.data)) || off+size < off {
		return fmt.Errorf("flash erase off=%d size=%d: %w", off, size, errFlashRange)
	}
	for i := off; i < off+size; i++ {
		f.data[i] = 0xFF
	}
	return nil
}
