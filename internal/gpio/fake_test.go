package gpio

import (
	"errors"
	"testing"
)

func TestFakeReaderRead(t *testing.T) {
	f := NewFakeReader(
		[]bool{true, false},
		[]bool{false, true},
		[]bool{true, true},
	)

	want := [][]bool{
		{true, false},
		{false, true},
		{true, true},
		{true, true}, // repeats last sample
	}
	for i, w := range want {
		got, err := f.Read()
		if err != nil {
			t.Fatalf("sample %d: unexpected error: %v", i, err)
		}
		if len(got) != len(w) || got[0] != w[0] || got[1] != w[1] {
			t.Errorf("sample %d: expected %v, got %v", i, w, got)
		}
	}
	if f.Reads != 4 {
		t.Errorf("expected 4 reads, got %d", f.Reads)
	}
}

func TestFakeReaderReturnsCopy(t *testing.T) {
	f := NewFakeReader([]bool{true})
	got, _ := f.Read()
	got[0] = false
	again, _ := f.Read()
	if !again[0] {
		t.Error("mutating a returned sample changed the script")
	}
}

func TestFakeReaderNoSamples(t *testing.T) {
	f := NewFakeReader()
	if _, err := f.Read(); err == nil {
		t.Error("expected error with no samples")
	}
}

func TestFakeReaderError(t *testing.T) {
	f := NewFakeReader([]bool{true})
	f.ReadError = errors.New("simulated error")

	_, err := f.Read()
	if err == nil {
		t.Fatal("expected error to be returned")
	}
	if err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFakeReaderClose(t *testing.T) {
	f := NewFakeReader([]bool{true})
	if f.Closed {
		t.Error("should not be closed initially")
	}
	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}
	if _, err := f.Read(); err == nil {
		t.Error("expected error reading after close")
	}
	if err := f.Close(); err == nil {
		t.Error("expected error on double close")
	}
}

func TestFakeReaderReset(t *testing.T) {
	f := NewFakeReader([]bool{true}, []bool{false})
	f.Read()
	f.Close()

	f.Reset()

	got, err := f.Read()
	if err != nil {
		t.Fatalf("unexpected error after reset: %v", err)
	}
	if !got[0] {
		t.Errorf("after reset: expected true, got %v", got)
	}
}
