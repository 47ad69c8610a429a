package debounce

// Filter wraps a Window and drops edges that repeat the direction of the
// previously reported edge, so a bounce that settles back where it started
// is silent.
type Filter[R Register] struct {
	w    Window[R]
	last Edge
}

// NewFilter creates a stateful filter. The last reported edge starts as the
// direction implied by initialHigh, so the first opposite edge is surfaced.
func NewFilter[R Register](width int, initialHigh bool) (Filter[R], error) {
	w, err := NewWindow[R](width, initialHigh)
	if err != nil {
		return Filter[R]{}, err
	}
	last := Falling
	if initialHigh {
		last = Rising
	}
	return Filter[R]{w: w, last: last}, nil
}

// Suppress is the filter's transition function. Given the last reported edge
// and the window's raw result it returns the edge to emit and the new last
// reported edge.
func Suppress(last, raw Edge) (emit, next Edge) {
	if raw == None || raw == last {
		return None, last
	}
	return raw, raw
}

// Update feeds one sample through the window and filters the result.
func (f *Filter[R]) Update(pressed bool) Edge {
	var emit Edge
	emit, f.last = Suppress(f.last, f.w.Update(pressed))
	return emit
}

// Pressed updates the filter and reports only rising edges.
func (f *Filter[R]) Pressed(sample bool) bool {
	return f.Update(sample) == Rising
}

// LastEdge returns the direction of the most recently reported edge.
func (f Filter[R]) LastEdge() Edge { return f.last }

func (f Filter[R]) IsHigh() bool { return f.w.IsHigh() }
func (f Filter[R]) IsLow() bool  { return f.w.IsLow() }
func (f Filter[R]) Width() int   { return f.w.Width() }
func (f Filter[R]) State() Level { return f.w.State() }
