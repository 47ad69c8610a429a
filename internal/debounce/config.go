package debounce

import (
	"fmt"
	"strings"
)

// Debouncer is the runtime-selected form of a Window or Filter.
type Debouncer interface {
	Update(pressed bool) Edge
	IsHigh() bool
	IsLow() bool
	Width() int
	State() Level
}

// Mode selects which edge contract a Debouncer follows.
type Mode uint8

const (
	// ModeEdge reports an edge every time the register saturates.
	ModeEdge Mode = iota
	// ModeStateful only reports edges that alternate in direction.
	ModeStateful
)

func (m Mode) String() string {
	switch m {
	case ModeEdge:
		return "edge"
	case ModeStateful:
		return "stateful"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// ParseMode accepts "edge" or "stateful", case-insensitive. Empty means ModeEdge.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "edge":
		return ModeEdge, nil
	case "stateful":
		return ModeStateful, nil
	}
	return 0, fmt.Errorf("debounce: unknown mode %q", s)
}

// MaxWidth is the widest window New can build.
const MaxWidth = 64

// Config describes a debouncer built at runtime.
type Config struct {
	Width       int
	InitialHigh bool
	Mode        Mode
}

// New builds a debouncer for cfg on the narrowest register that fits the width.
func New(cfg Config) (Debouncer, error) {
	switch {
	case cfg.Width < MinWidth || cfg.Width > MaxWidth:
		return nil, fmt.Errorf("%w: %d (want %d..%d)", ErrWidth, cfg.Width, MinWidth, MaxWidth)
	case cfg.Width <= 8:
		return build[uint8](cfg)
	case cfg.Width <= 16:
		return build[uint16](cfg)
	case cfg.Width <= 32:
		return build[uint32](cfg)
	default:
		return build[uint64](cfg)
	}
}

func build[R Register](cfg Config) (Debouncer, error) {
	switch cfg.Mode {
	case ModeEdge:
		w, err := NewWindow[R](cfg.Width, cfg.InitialHigh)
		if err != nil {
			return nil, err
		}
		return &w, nil
	case ModeStateful:
		f, err := NewFilter[R](cfg.Width, cfg.InitialHigh)
		if err != nil {
			return nil, err
		}
		return &f, nil
	}
	return nil, fmt.Errorf("debounce: unknown mode %v", cfg.Mode)
}
