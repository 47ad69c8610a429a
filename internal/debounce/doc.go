// Package debounce implements a shift-register input debouncer.
//
// Every call to Update shifts one boolean sample into a fixed-width register.
// The debounced level is high once the last width samples were all high, and
// low once they were all low. Anything in between is a transition that has
// not settled yet. Update reports an Edge when the register lands on one of
// the two saturated values.
//
// The package does no I/O and no allocation, and each Update runs in constant
// time. Instances are plain values and are not safe for concurrent use; the
// caller serialises access, usually by owning the debouncer in the polling
// goroutine.
//
// Typical use from a polling loop, four samples at 5ms = 20ms latency:
//
//	w := debounce.Low[uint8](4)
//	for range ticker.C {
//		if w.Update(readPin()) == debounce.Rising {
//			// pressed
//		}
//	}
//
// Window reports an edge whenever the register saturates, which includes a
// bounce that settles back on the level it started from. Filter layers a
// two-state memory on top and only reports edges that alternate.
package debounce
