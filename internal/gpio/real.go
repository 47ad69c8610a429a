//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

const consumer = "button-sensor"

// RealReader reads GPIO from actual hardware using Linux GPIO character device.
type RealReader struct {
	chip  *gpiocdev.Chip
	lines []*gpiocdev.Line
}

// NewRealReader requests every line as an input on the named chip.
func NewRealReader(chipName string, lines []LineConfig) (*RealReader, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	r := &RealReader{chip: chip}
	for _, lc := range lines {
		opts := []gpiocdev.LineReqOption{gpiocdev.AsInput}
		if lc.ActiveLow {
			opts = append(opts, gpiocdev.AsActiveLow)
		}
		switch lc.Bias {
		case BiasPullUp:
			opts = append(opts, gpiocdev.WithPullUp)
		case BiasPullDown:
			opts = append(opts, gpiocdev.WithPullDown)
		case BiasDisabled:
			opts = append(opts, gpiocdev.WithBiasDisabled)
		}

		l, err := chip.RequestLine(lc.Offset, opts...)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("request line %d: %w", lc.Offset, err)
		}
		r.lines = append(r.lines, l)
	}
	return r, nil
}

// Read returns the logical value of every line. The kernel applies the
// active-low inversion, so 1 is always "active".
func (r *RealReader) Read() ([]bool, error) {
	values := make([]bool, len(r.lines))
	for i, l := range r.lines {
		v, err := l.Value()
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", l.Offset(), err)
		}
		values[i] = v == 1
	}
	return values, nil
}

// Close releases GPIO resources.
// Lines are reconfigured to plain inputs with pull-down (matching Pi boot
// defaults) before closing so external hardware sees a known state.
func (r *RealReader) Close() error {
	var errs []error

	for _, l := range r.lines {
		if err := l.Reconfigure(gpiocdev.AsActiveHigh, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure line %d: %w", l.Offset(), err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line %d: %w", l.Offset(), err))
		}
	}
	r.lines = nil

	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		r.chip = nil
	}

	return errors.Join(errs...)
}
