// Package status provides a thread-safe status tracker for the button-sensor daemon.
// It is read by the HTTP handlers and by the MQTT status events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/button-sensor/internal/logic"
)

// NetworkInfo contains network state as reported by the host helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Chip        string
	PollMs      int64
	HeartbeatMs int64
	Broker      string
	TopicPrefix string
	HTTPAddr    string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type; safe to use after the lock is released.
type Snapshot struct {
	Inputs        []logic.ChannelStatus
	Baselined     bool
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Input returns the named input and whether it exists.
func (s Snapshot) Input(name string) (logic.ChannelStatus, bool) {
	for _, in := range s.Inputs {
		if in.Name == name {
			return in, true
		}
	}
	return logic.ChannelStatus{}, false
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update replaces the per-input view and baseline status.
// Called from the poll loop on every tick.
func (t *Tracker) Update(inputs []logic.ChannelStatus, baselined bool) {
	cp := make([]logic.ChannelStatus, len(inputs))
	copy(cp, inputs)

	t.mu.Lock()
	t.snap.Inputs = cp
	t.snap.Baselined = baselined
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
