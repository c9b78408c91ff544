//go:build !tinygo && !cgo

package hal

import "errors"

// RunWindow needs ebiten, which needs cgo on desktop targets. Use
// -backend headless instead.
func RunWindow(_ HostOptions, _ func(h HAL) func() error) error {
	return errors.New("window backend unavailable: rebuild with CGO_ENABLED=1 or use -backend headless")
}
