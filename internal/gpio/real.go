//go:build linux

package gpio

import (
	"fmt"
	"log"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// RealButtons watches button lines on a Linux GPIO character device.
type RealButtons struct {
	chip    *gpiocdev.Chip
	lines   []*gpiocdev.Line
	buttons map[int]Button
	events  chan Press
}

// NewRealButtons requests the three button lines as pulled-up inputs with
// falling-edge detection. A press pulls the line to ground.
func NewRealButtons(chipName string, pins Pins, debounce time.Duration) (*RealButtons, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	r := &RealButtons{
		chip: chip,
		buttons: map[int]Button{
			pins.A: ButtonA,
			pins.B: ButtonB,
			pins.C: ButtonC,
		},
		events: make(chan Press, eventBuffer),
	}
	if len(r.buttons) != 3 {
		chip.Close()
		return nil, fmt.Errorf("button pins must be distinct: A=%d B=%d C=%d", pins.A, pins.B, pins.C)
	}

	for _, b := range []struct {
		name Button
		pin  int
	}{{ButtonA, pins.A}, {ButtonB, pins.B}, {ButtonC, pins.C}} {
		line, err := chip.RequestLine(b.pin,
			gpiocdev.AsInput,
			gpiocdev.WithPullUp,
			gpiocdev.WithFallingEdge,
			gpiocdev.WithDebounce(debounce),
			gpiocdev.WithEventHandler(r.handle))
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("request button %s pin %d: %w", b.name, b.pin, err)
		}
		r.lines = append(r.lines, line)
	}

	return r, nil
}

// handle runs on the gpiocdev event goroutine.
func (r *RealButtons) handle(evt gpiocdev.LineEvent) {
	b, ok := r.buttons[evt.Offset]
	if !ok {
		return
	}
	select {
	case r.events <- Press{Button: b, Time: time.Now()}:
	default:
		log.Printf("gpio: press queue full, dropping button %s", b)
	}
}

// Events returns the press channel.
func (r *RealButtons) Events() <-chan Press {
	return r.events
}

// Close releases GPIO resources.
// Reconfigures lines to input with pull-down (matching Pi boot defaults)
// before closing.
func (r *RealButtons) Close() error {
	var errs []error

	for _, line := range r.lines {
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", line.Offset(), err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", line.Offset(), err))
		}
	}
	r.lines = nil

	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		r.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
