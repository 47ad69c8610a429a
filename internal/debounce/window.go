package debounce

import (
	"errors"
	"fmt"
	"math/bits"
)

// MinWidth is the smallest usable window. A single sample cannot reject a bounce.
const MinWidth = 2

// ErrWidth is returned when a window width is out of range for its register.
var ErrWidth = errors.New("debounce: invalid width")

// Register is the backing integer of a Window. Its size bounds the width.
type Register interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Window is a shift register holding the last width samples, most recent
// sample in bit 0. The zero value is not usable; construct with NewWindow.
type Window[R Register] struct {
	state R
	mask  R
}

// RegisterBits returns the number of samples a register of type R can hold.
func RegisterBits[R Register]() int {
	return bits.Len64(uint64(^R(0)))
}

// NewWindow creates a window requiring width consecutive equal samples.
// initialHigh selects the level assumed before the first sample.
func NewWindow[R Register](width int, initialHigh bool) (Window[R], error) {
	if width < MinWidth || width > RegisterBits[R]() {
		return Window[R]{}, fmt.Errorf("%w: %d (want %d..%d)", ErrWidth, width, MinWidth, RegisterBits[R]())
	}
	w := Window[R]{mask: R(1)<<uint(width) - 1}
	if initialHigh {
		w.state = w.mask
	}
	return w, nil
}

// MustWindow is like NewWindow but panics on an invalid width.
func MustWindow[R Register](width int, initialHigh bool) Window[R] {
	w, err := NewWindow[R](width, initialHigh)
	if err != nil {
		panic(err)
	}
	return w
}

// Low returns a window that starts low. This is the default starting level.
func Low[R Register](width int) Window[R] {
	return MustWindow[R](width, false)
}

// High returns a window that starts high.
func High[R Register](width int) Window[R] {
	return MustWindow[R](width, true)
}

// Update shifts in one sample and reports whether the register just
// saturated.
func (w *Window[R]) Update(pressed bool) Edge {
	// Already saturated in the direction of the sample, shifting is a no-op.
	if w.state == w.mask && pressed {
		return None
	}
	if w.state == 0 && !pressed {
		return None
	}

	var b R
	if pressed {
		b = 1
	}
	w.state = ((w.state << 1) | b) & w.mask

	switch w.state {
	case w.mask:
		return Rising
	case 0:
		return Falling
	}
	return None
}

// Pressed updates the window and reports only rising edges.
func (w *Window[R]) Pressed(sample bool) bool {
	return w.Update(sample) == Rising
}

// IsHigh reports whether the last width samples were all high.
func (w Window[R]) IsHigh() bool {
	return w.state == w.mask
}

// IsLow reports whether the last width samples were all low.
func (w Window[R]) IsLow() bool {
	return w.state == 0
}

// Width returns the number of consecutive samples required for a level change.
func (w Window[R]) Width() int {
	return bits.OnesCount64(uint64(w.mask))
}

// State returns the current debounced level.
func (w Window[R]) State() Level {
	switch w.state {
	case w.mask:
		return LevelHigh
	case 0:
		return LevelLow
	}
	return LevelTransitioning
}
