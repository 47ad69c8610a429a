// Package config loads the daemon configuration from a YAML file, applies
// environment overrides and validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/button-sensor/internal/debounce"
	"github.com/sweeney/button-sensor/internal/gpio"
	"github.com/sweeney/button-sensor/internal/logic"
)

// Environment overrides.
const (
	EnvBroker = "BUTTON_SENSOR_BROKER"
	EnvPoll   = "BUTTON_SENSOR_POLL"
	EnvHTTP   = "BUTTON_SENSOR_HTTP"
)

// Initial level choices for an input.
const (
	InitialLow    = "low"
	InitialHigh   = "high"
	InitialSample = "sample"
)

// Bias choices for an input line.
const (
	BiasPullUp   = gpio.BiasPullUp
	BiasPullDown = gpio.BiasPullDown
	BiasDisabled = gpio.BiasDisabled
)

// ErrNoInputs is returned when a configuration lists no inputs.
var ErrNoInputs = errors.New("config: no inputs configured")

var validate = validator.New()

// Config is the full daemon configuration.
type Config struct {
	Chip        string        `yaml:"chip" validate:"required"`
	Poll        time.Duration `yaml:"poll" validate:"gt=0"`
	Broker      string        `yaml:"broker" validate:"required"`
	ClientID    string        `yaml:"client_id" validate:"required"`
	TopicPrefix string        `yaml:"topic_prefix" validate:"required"`
	Heartbeat   time.Duration `yaml:"heartbeat" validate:"gte=0"`
	HTTPAddr    string        `yaml:"http"`
	Inputs      []InputConfig `yaml:"inputs" validate:"unique=Name,unique=Line,dive"`
}

// InputConfig describes one debounced GPIO line.
type InputConfig struct {
	Name      string `yaml:"name" validate:"required,printascii,excludesall=/+#"`
	Line      int    `yaml:"line" validate:"gte=0"`
	Width     int    `yaml:"width" validate:"min=2,max=64"`
	Initial   string `yaml:"initial" validate:"omitempty,oneof=low high sample"`
	Mode      string `yaml:"mode" validate:"omitempty,oneof=edge stateful"`
	ActiveLow bool   `yaml:"active_low"`
	Bias      string `yaml:"bias" validate:"omitempty,oneof=pull-up pull-down disabled"`
}

// Default returns the configuration used when no file is given: one
// active-low push button on line 17 with a pull-up.
func Default() Config {
	return Config{
		Chip:        gpio.DefaultChip,
		Poll:        5 * time.Millisecond,
		Broker:      "tcp://localhost:1883",
		ClientID:    "button-sensor",
		TopicPrefix: "home/buttons",
		Heartbeat:   15 * time.Minute,
		HTTPAddr:    ":8080",
		Inputs: []InputConfig{{
			Name:      "button",
			Line:      17,
			Width:     4,
			Initial:   InitialLow,
			Mode:      "stateful",
			ActiveLow: true,
			Bias:      BiasPullUp,
		}},
	}
}

// Load reads path on top of Default. A missing path returns the defaults.
// Fields absent from the file keep their default values; a file that lists
// inputs replaces the default input list.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.merge(file)
	return cfg, nil
}

func (c *Config) merge(o Config) {
	if o.Chip != "" {
		c.Chip = o.Chip
	}
	if o.Poll != 0 {
		c.Poll = o.Poll
	}
	if o.Broker != "" {
		c.Broker = o.Broker
	}
	if o.ClientID != "" {
		c.ClientID = o.ClientID
	}
	if o.TopicPrefix != "" {
		c.TopicPrefix = o.TopicPrefix
	}
	if o.Heartbeat != 0 {
		c.Heartbeat = o.Heartbeat
	}
	if o.HTTPAddr != "" {
		c.HTTPAddr = o.HTTPAddr
	}
	if o.Inputs != nil {
		c.Inputs = o.Inputs
	}
}

// ApplyEnv overrides fields from the environment. Malformed values are
// reported and leave the field unchanged.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvBroker); v != "" {
		c.Broker = v
	}
	if v := os.Getenv(EnvHTTP); v != "" {
		c.HTTPAddr = v
	}
	if v := os.Getenv(EnvPoll); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPoll, err)
		}
		c.Poll = d
	}
	return nil
}

// Validate checks the configuration and fills per-input defaults.
func (c *Config) Validate() error {
	if len(c.Inputs) == 0 {
		return ErrNoInputs
	}
	for i := range c.Inputs {
		in := &c.Inputs[i]
		if in.Initial == "" {
			in.Initial = InitialLow
		}
		if in.Mode == "" {
			in.Mode = debounce.ModeEdge.String()
		}
		if in.Bias == "" {
			in.Bias = BiasDisabled
		}
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Lines returns the GPIO line requests in input order.
func (c Config) Lines() []gpio.LineConfig {
	lines := make([]gpio.LineConfig, len(c.Inputs))
	for i, in := range c.Inputs {
		lines[i] = gpio.LineConfig{
			Offset:    in.Line,
			ActiveLow: in.ActiveLow,
			Bias:      in.Bias,
		}
	}
	return lines
}

// Debounce returns the debouncer configuration for the input. initialHigh is
// only consulted when the input's initial level is "sample".
func (in InputConfig) Debounce(initialHigh bool) (debounce.Config, error) {
	mode, err := debounce.ParseMode(in.Mode)
	if err != nil {
		return debounce.Config{}, err
	}
	switch in.Initial {
	case InitialHigh:
		initialHigh = true
	case InitialLow, "":
		initialHigh = false
	}
	return debounce.Config{
		Width:       in.Width,
		InitialHigh: initialHigh,
		Mode:        mode,
	}, nil
}

// SampleInitial reports whether the input takes its initial level from the
// first sample.
func (in InputConfig) SampleInitial() bool {
	return in.Initial == InitialSample
}

// Channels converts the inputs into detector channel configurations.
func (c Config) Channels() ([]logic.ChannelConfig, error) {
	out := make([]logic.ChannelConfig, 0, len(c.Inputs))
	for _, in := range c.Inputs {
		dc, err := in.Debounce(false)
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", in.Name, err)
		}
		out = append(out, logic.ChannelConfig{
			Name:          in.Name,
			Debounce:      dc,
			SampleInitial: in.SampleInitial(),
		})
	}
	return out, nil
}
