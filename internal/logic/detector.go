package logic

import (
	"errors"
	"fmt"
	"time"

	"github.com/sweeney/button-sensor/internal/debounce"
)

// ErrSampleCount is returned when an Input does not carry one value per channel.
var ErrSampleCount = errors.New("logic: sample count does not match channel count")

type channel struct {
	cfg       ChannelConfig
	d         debounce.Debouncer
	stable    State
	baselined bool
	counts    EdgeCounts
}

// Detector feeds samples through one debouncer per channel and reports edges.
type Detector struct {
	channels      []*channel
	startTime     time.Time
	lastHeartbeat time.Time
}

// NewDetector creates a detector for the given channels. Every debouncer is
// built here so an invalid width fails at construction, never on Process.
// The startTime is used for calculating uptime in heartbeat events.
func NewDetector(channels []ChannelConfig, startTime time.Time) (*Detector, error) {
	d := &Detector{
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
	seen := make(map[string]bool, len(channels))
	for _, cfg := range channels {
		if seen[cfg.Name] {
			return nil, fmt.Errorf("duplicate channel %q", cfg.Name)
		}
		seen[cfg.Name] = true

		deb, err := debounce.New(cfg.Debounce)
		if err != nil {
			return nil, fmt.Errorf("channel %q: %w", cfg.Name, err)
		}
		ch := &channel{cfg: cfg, d: deb}
		if !cfg.SampleInitial {
			ch.baselined = true
			ch.stable = levelState(cfg.Debounce.InitialHigh)
		}
		d.channels = append(d.channels, ch)
	}
	return d, nil
}

// Process takes a new input sample and returns any events that should be
// emitted, in channel order. A channel configured to sample its initial level
// uses its first value as the baseline and emits nothing for it.
func (d *Detector) Process(input Input) ([]Event, error) {
	if len(input.Values) != len(d.channels) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSampleCount, len(input.Values), len(d.channels))
	}

	var events []Event
	for i, ch := range d.channels {
		v := input.Values[i]

		if !ch.baselined {
			cfg := ch.cfg.Debounce
			cfg.InitialHigh = v
			deb, err := debounce.New(cfg)
			if err != nil {
				return nil, fmt.Errorf("channel %q: %w", ch.cfg.Name, err)
			}
			ch.d = deb
			ch.stable = levelState(v)
			ch.baselined = true
			continue
		}

		edge := ch.d.Update(v)
		switch ch.d.State() {
		case debounce.LevelHigh:
			ch.stable = StateHigh
		case debounce.LevelLow:
			ch.stable = StateLow
		}
		if edge == debounce.None {
			continue
		}

		if edge == debounce.Rising {
			ch.counts.Rising++
		} else {
			ch.counts.Falling++
		}
		events = append(events, Event{
			Timestamp: input.Time,
			Input:     ch.cfg.Name,
			Edge:      edge,
			State:     ch.stable,
		})
	}
	return events, nil
}

func levelState(high bool) State {
	if high {
		return StateHigh
	}
	return StateLow
}

// IsBaselined returns whether every channel has a known initial level.
func (d *Detector) IsBaselined() bool {
	for _, ch := range d.channels {
		if !ch.baselined {
			return false
		}
	}
	return true
}

// Channels returns the current state of every channel, in channel order.
func (d *Detector) Channels() []ChannelStatus {
	out := make([]ChannelStatus, len(d.channels))
	for i, ch := range d.channels {
		out[i] = ChannelStatus{
			Name:      ch.cfg.Name,
			Stable:    ch.stable,
			Level:     ch.d.State(),
			Width:     ch.d.Width(),
			Mode:      ch.cfg.Debounce.Mode,
			Baselined: ch.baselined,
			Counts:    ch.counts,
		}
	}
	return out
}

// CountsSnapshot returns a copy of the per-channel edge counts.
func (d *Detector) CountsSnapshot() map[string]EdgeCounts {
	counts := make(map[string]EdgeCounts, len(d.channels))
	for _, ch := range d.channels {
		counts[ch.cfg.Name] = ch.counts
	}
	return counts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if not yet baselined, if the
// interval has not elapsed, or if interval is <= 0 (disabled).
func (d *Detector) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if !d.IsBaselined() {
		return nil
	}

	if now.Sub(d.lastHeartbeat) < interval {
		return nil
	}

	d.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(d.startTime),
		Counts:    d.CountsSnapshot(),
	}
}
