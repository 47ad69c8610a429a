package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/button-sensor/internal/debounce"
	"github.com/sweeney/button-sensor/internal/gpio"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, []gpio.LineConfig{{Offset: 17, ActiveLow: true, Bias: gpio.BiasPullUp}}, cfg.Lines())
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
chip: gpiochip4
poll: 2ms
broker: tcp://192.168.1.200:1883
topic_prefix: garage/inputs
inputs:
  - name: door
    line: 26
    width: 12
    initial: sample
    mode: stateful
    bias: pull-down
  - name: bell
    line: 16
    width: 3
    active_low: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "gpiochip4", cfg.Chip)
	assert.Equal(t, 2*time.Millisecond, cfg.Poll)
	assert.Equal(t, "tcp://192.168.1.200:1883", cfg.Broker)
	assert.Equal(t, "garage/inputs", cfg.TopicPrefix)
	// Untouched fields keep defaults
	assert.Equal(t, "button-sensor", cfg.ClientID)
	assert.Equal(t, 15*time.Minute, cfg.Heartbeat)

	require.Len(t, cfg.Inputs, 2)
	lines := cfg.Lines()
	assert.Equal(t, 26, lines[0].Offset)
	assert.Equal(t, 16, lines[1].Offset)
	assert.True(t, cfg.Inputs[0].SampleInitial())
	assert.Equal(t, BiasPullDown, cfg.Inputs[0].Bias)

	// Validate fills per-input defaults
	bell := cfg.Inputs[1]
	assert.Equal(t, InitialLow, bell.Initial)
	assert.Equal(t, "edge", bell.Mode)
	assert.Equal(t, BiasDisabled, bell.Bias)
	assert.True(t, bell.ActiveLow)
}

func TestLoadBadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "inputs: [\n"))
	assert.Error(t, err)
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"width too small", func(c *Config) { c.Inputs[0].Width = 1 }},
		{"width too large", func(c *Config) { c.Inputs[0].Width = 65 }},
		{"bad mode", func(c *Config) { c.Inputs[0].Mode = "toggle" }},
		{"bad initial", func(c *Config) { c.Inputs[0].Initial = "maybe" }},
		{"bad bias", func(c *Config) { c.Inputs[0].Bias = "pull-sideways" }},
		{"empty name", func(c *Config) { c.Inputs[0].Name = "" }},
		{"wildcard in name", func(c *Config) { c.Inputs[0].Name = "a/#" }},
		{"negative line", func(c *Config) { c.Inputs[0].Line = -1 }},
		{"zero poll", func(c *Config) { c.Poll = 0 }},
		{"no chip", func(c *Config) { c.Chip = "" }},
		{"duplicate names", func(c *Config) {
			in := c.Inputs[0]
			in.Line = 27
			c.Inputs = append(c.Inputs, in)
		}},
		{"duplicate lines", func(c *Config) {
			in := c.Inputs[0]
			in.Name = "doorbell"
			c.Inputs = append(c.Inputs, in)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateDistinctInputs(t *testing.T) {
	cfg := Default()
	in := cfg.Inputs[0]
	in.Name = "doorbell"
	in.Line = 27
	cfg.Inputs = append(cfg.Inputs, in)
	require.NoError(t, cfg.Validate())
}

func TestValidateNoInputs(t *testing.T) {
	cfg := Default()
	cfg.Inputs = nil
	assert.ErrorIs(t, cfg.Validate(), ErrNoInputs)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvBroker, "tcp://broker:1883")
	t.Setenv(EnvHTTP, ":9090")
	t.Setenv(EnvPoll, "20ms")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, "tcp://broker:1883", cfg.Broker)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 20*time.Millisecond, cfg.Poll)
}

func TestApplyEnvBadPoll(t *testing.T) {
	t.Setenv(EnvPoll, "soon")
	cfg := Default()
	assert.Error(t, cfg.ApplyEnv())
	assert.Equal(t, Default().Poll, cfg.Poll)
}

func TestInputDebounce(t *testing.T) {
	in := InputConfig{Name: "x", Width: 5, Initial: InitialHigh, Mode: "stateful"}
	dc, err := in.Debounce(false)
	require.NoError(t, err)
	assert.Equal(t, debounce.Config{Width: 5, InitialHigh: true, Mode: debounce.ModeStateful}, dc)

	in.Initial = InitialLow
	dc, err = in.Debounce(true)
	require.NoError(t, err)
	assert.False(t, dc.InitialHigh)

	in.Initial = InitialSample
	dc, err = in.Debounce(true)
	require.NoError(t, err)
	assert.True(t, dc.InitialHigh)

	in.Mode = "bogus"
	_, err = in.Debounce(false)
	assert.Error(t, err)
}

func TestChannels(t *testing.T) {
	cfg := Default()
	cfg.Inputs = append(cfg.Inputs, InputConfig{Name: "door", Line: 26, Width: 10, Initial: InitialSample})
	require.NoError(t, cfg.Validate())

	chans, err := cfg.Channels()
	require.NoError(t, err)
	require.Len(t, chans, 2)

	assert.Equal(t, "button", chans[0].Name)
	assert.Equal(t, debounce.ModeStateful, chans[0].Debounce.Mode)
	assert.Equal(t, 4, chans[0].Debounce.Width)
	assert.False(t, chans[0].SampleInitial)

	assert.Equal(t, "door", chans[1].Name)
	assert.Equal(t, debounce.ModeEdge, chans[1].Debounce.Mode)
	assert.True(t, chans[1].SampleInitial)
}
