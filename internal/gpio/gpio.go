// Package gpio provides GPIO input reading with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Reader reads GPIO input states.
type Reader interface {
	// Read returns the logical value of every requested line, in request
	// order. Active-low lines are already inverted: true means active.
	Read() ([]bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Bias values for a line.
const (
	BiasPullUp   = "pull-up"
	BiasPullDown = "pull-down"
	BiasDisabled = "disabled"
)

// DefaultChip is the GPIO chip on a Raspberry Pi header.
const DefaultChip = "gpiochip0"

// LineConfig describes one input line to request.
type LineConfig struct {
	Offset    int
	ActiveLow bool
	Bias      string
}
