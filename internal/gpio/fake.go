package gpio

import (
	"errors"
	"fmt"
)

// FakeReader is a test double that returns scripted GPIO values.
type FakeReader struct {
	// Samples contains scripted logical values, one slice per Read.
	// Each call to Read() consumes the next sample.
	Samples [][]bool

	// index tracks current position in Samples
	index int

	// Reads counts calls to Read.
	Reads int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples ...[]bool) *FakeReader {
	return &FakeReader{Samples: samples}
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeReader) Read() ([]bool, error) {
	f.Reads++
	if f.ReadError != nil {
		return nil, f.ReadError
	}
	if f.Closed {
		return nil, errors.New("read after close")
	}
	if len(f.Samples) == 0 {
		return nil, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	out := make([]bool, len(sample))
	copy(out, sample)
	return out, nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	if f.Closed {
		return fmt.Errorf("already closed")
	}
	f.Closed = true
	return nil
}

// Reset resets the reader to the beginning of samples.
func (f *FakeReader) Reset() {
	f.index = 0
	f.Reads = 0
	f.Closed = false
}
