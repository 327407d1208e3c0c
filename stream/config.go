package stream

import (
	"io"
	"time"

	"gopkg.in/yaml.v2"
)

// Config is the YAML configuration for mdfplay.
type Config struct {
	Mqtt struct {
		URL      string `yaml:"url"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		ClientID string `yaml:"clientId"`
		Qos      byte   `yaml:"qos"`
		Topics   struct {
			Applied string `yaml:"applied"`
			Tick    string `yaml:"tick"`
			Control string `yaml:"control"`
		} `yaml:"topics"`
	} `yaml:"mqtt"`
	Playback struct {
		TickHz   float64 `yaml:"tickHz"`
		Strict   bool    `yaml:"strict"`
		HoldLast bool    `yaml:"holdLast"`
	} `yaml:"playback"`
	Api struct {
		Listen string `yaml:"listen"`
	} `yaml:"api"`
}

// DecodeConfig reads a YAML config and fills in defaults.
func DecodeConfig(r io.Reader) (Config, error) {
	var c Config
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&c); err != nil && err != io.EOF {
		return c, err
	}
	c.SetDefaults()
	return c, nil
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Mqtt.ClientID == "" {
		c.Mqtt.ClientID = "mdfplay"
	}
	if c.Mqtt.Topics.Applied == "" {
		c.Mqtt.Topics.Applied = "mdfplay/applied"
	}
	if c.Mqtt.Topics.Tick == "" {
		c.Mqtt.Topics.Tick = "mdfplay/tick"
	}
	if c.Mqtt.Topics.Control == "" {
		c.Mqtt.Topics.Control = "mdfplay/control"
	}
	if c.Playback.TickHz <= 0 {
		// Matches the usual 50Hz fixed physics step.
		c.Playback.TickHz = 50
	}
}

// TickInterval is the fixed simulation step.
func (c Config) TickInterval() time.Duration {
	return time.Duration(float64(time.Second) / c.Playback.TickHz)
}
