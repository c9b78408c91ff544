//go:build !tinygo

package hal

import (
	"io"
	"sync"
)

// hostSerial is the operator console stream, stdin/stdout on a desktop.
// Writes are serialised so console replies never interleave mid-line.
type hostSerial struct {
	mu sync.Mutex
	r  io.Reader
	w  io.Writer
}

// Read reports io.EOF when there is no input stream, which ends the
// console reader instead of leaving it polling.
func (s *hostSerial) Read(p []byte) (int, error) {
	if s.r == nil {
		return 0, io.EOF
	}
	return s.r.Read(p)
}

func (s *hostSerial) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil {
		return len(p), nil
	}
	return s.w.Write(p)
}
