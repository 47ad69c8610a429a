// Package logic turns raw input samples into debounced edge events.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"time"

	"github.com/sweeney/button-sensor/internal/debounce"
)

// State represents the settled logical level of an input.
type State string

const (
	StateHigh State = "HIGH"
	StateLow  State = "LOW"
)

// ChannelConfig configures a single debounced input.
type ChannelConfig struct {
	Name     string
	Debounce debounce.Config
	// SampleInitial takes the initial level from the first sample instead of
	// Debounce.InitialHigh.
	SampleInitial bool
}

// Event represents a debounced edge to be published.
type Event struct {
	Timestamp time.Time
	Input     string
	Edge      debounce.Edge
	// State is the input's settled level after the edge.
	State State
}

// Input represents a single sample of every configured channel, in channel order.
type Input struct {
	Values []bool
	Time   time.Time
}

// EdgeCounts tracks surfaced edges for one input since startup.
type EdgeCounts struct {
	Rising  int
	Falling int
}

// ChannelStatus is a point-in-time view of one input.
type ChannelStatus struct {
	Name string
	// Stable is the last settled level, empty before the baseline.
	Stable State
	// Level is the debouncer's current view, including transitions.
	Level     debounce.Level
	Width     int
	Mode      debounce.Mode
	Baselined bool
	Counts    EdgeCounts
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    map[string]EdgeCounts
}
