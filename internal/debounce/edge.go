package debounce

// Edge is the result of a single Update.
type Edge uint8

const (
	None Edge = iota
	Rising
	Falling
)

func (e Edge) String() string {
	switch e {
	case None:
		return "NONE"
	case Rising:
		return "RISING"
	case Falling:
		return "FALLING"
	default:
		return "UNKNOWN"
	}
}

// Level is the debounced view of a register.
type Level uint8

const (
	LevelLow Level = iota
	LevelHigh
	LevelTransitioning
)

func (l Level) String() string {
	switch l {
	case LevelLow:
		return "LOW"
	case LevelHigh:
		return "HIGH"
	case LevelTransitioning:
		return "TRANSITIONING"
	default:
		return "UNKNOWN"
	}
}

// Classify returns the edge produced by a single step from before to after.
// Rising only when arriving at high from anywhere else, Falling only when
// arriving at low from anywhere else.
func Classify(before, after Level) Edge {
	if before == after {
		return None
	}
	switch after {
	case LevelHigh:
		return Rising
	case LevelLow:
		return Falling
	}
	return None
}
