//go:build !linux

package gpio

import (
	"errors"
	"time"
)

// RealButtons is not available on non-Linux platforms.
type RealButtons struct{}

// NewRealButtons returns an error on non-Linux platforms.
func NewRealButtons(chip string, pins Pins, debounce time.Duration) (*RealButtons, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Events is not implemented on non-Linux platforms.
func (r *RealButtons) Events() <-chan Press {
	return nil
}

// Close is not implemented on non-Linux platforms.
func (r *RealButtons) Close() error {
	return nil
}
