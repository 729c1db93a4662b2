package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// GPIO drivers.
const (
	GPIODriverRPIO = "rpio"
	GPIODriverNone = "none"
)

// NodeDaemonConfig is the root configuration of a node daemon.
type NodeDaemonConfig struct {
	Name        string            `yaml:"name"`
	API         APIConfig         `yaml:"api"`
	GPIO        GPIOConfig        `yaml:"gpio"`
	Relays      RelaysConfig      `yaml:"relays"`
	Reeds       []ReedConfig      `yaml:"reeds"`
	Temperature TemperatureConfig `yaml:"temperature"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// GPIOConfig selects the pin driver.
type GPIOConfig struct {
	// Driver is "rpio" on a Raspberry Pi or "none" to disable hardware access.
	Driver string `yaml:"driver"`
}

// RelaysConfig configures the relay board.
type RelaysConfig struct {
	// ClickDelayMS is how long a click holds the relay on.
	ClickDelayMS int           `yaml:"click_delay_ms"`
	Channels     []RelayConfig `yaml:"channels"`
}

// RelayConfig maps a channel id to a relay number and its BCM pin.
type RelayConfig struct {
	ID     string `yaml:"id"`
	Number int    `yaml:"number"`
	Pin    int    `yaml:"pin"`
}

// ReedConfig maps a channel id to a reed switch input pin.
type ReedConfig struct {
	ID  string `yaml:"id"`
	Pin int    `yaml:"pin"`
	// ClosedHigh inverts the default where a closed contact reads low.
	ClosedHigh bool `yaml:"closed_high"`
}

// TemperatureConfig configures 1-Wire temperature sensors.
type TemperatureConfig struct {
	BasePath string              `yaml:"base_path"`
	Sensors  []TemperatureSensor `yaml:"sensors"`
}

// TemperatureSensor maps a channel id to a 1-Wire device id.
type TemperatureSensor struct {
	ID     string `yaml:"id"`
	Device string `yaml:"device"`
}

// LoadNode reads a node daemon configuration. Environment variables use
// the WINSTON_NODE_ prefix, e.g. WINSTON_NODE_API_PORT.
func LoadNode(path string) (*NodeDaemonConfig, error) {
	cfg := defaultNodeConfig()

	if err := readYAML(path, cfg); err != nil {
		return nil, err
	}

	applyAPIEnv("WINSTON_NODE", &cfg.API)
	if v := os.Getenv("WINSTON_NODE_GPIO_DRIVER"); v != "" {
		cfg.GPIO.Driver = v
	}
	if v := os.Getenv("WINSTON_NODE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func defaultNodeConfig() *NodeDaemonConfig {
	return &NodeDaemonConfig{
		Name: "node",
		API:  defaultAPI(8081),
		GPIO: GPIOConfig{Driver: GPIODriverRPIO},
		Relays: RelaysConfig{
			ClickDelayMS: 500,
		},
		Temperature: TemperatureConfig{
			BasePath: "/sys/bus/w1/devices",
		},
		Logging: defaultLogging(),
	}
}

// Validate checks the node configuration for errors.
func (c *NodeDaemonConfig) Validate() error {
	errs := validateAPI(c.API)

	switch c.GPIO.Driver {
	case GPIODriverRPIO, GPIODriverNone:
	default:
		errs = append(errs, fmt.Sprintf("gpio.driver must be %q or %q", GPIODriverRPIO, GPIODriverNone))
	}

	if c.Relays.ClickDelayMS < 1 {
		errs = append(errs, "relays.click_delay_ms must be positive")
	}

	relayIDs := make(map[string]bool)
	relayNumbers := make(map[int]bool)
	for i, r := range c.Relays.Channels {
		if r.ID == "" {
			errs = append(errs, fmt.Sprintf("relays.channels[%d].id is required", i))
		} else if relayIDs[r.ID] {
			errs = append(errs, fmt.Sprintf("duplicate relay channel id %q", r.ID))
		}
		relayIDs[r.ID] = true
		if relayNumbers[r.Number] {
			errs = append(errs, fmt.Sprintf("duplicate relay number %d", r.Number))
		}
		relayNumbers[r.Number] = true
		if r.Pin < 0 {
			errs = append(errs, fmt.Sprintf("relays.channels[%d].pin must not be negative", i))
		}
	}

	reedIDs := make(map[string]bool)
	for i, r := range c.Reeds {
		if r.ID == "" {
			errs = append(errs, fmt.Sprintf("reeds[%d].id is required", i))
		} else if reedIDs[r.ID] {
			errs = append(errs, fmt.Sprintf("duplicate reed channel id %q", r.ID))
		}
		reedIDs[r.ID] = true
	}

	sensorIDs := make(map[string]bool)
	for i, s := range c.Temperature.Sensors {
		if s.ID == "" || s.Device == "" {
			errs = append(errs, fmt.Sprintf("temperature.sensors[%d] requires id and device", i))
			continue
		}
		if sensorIDs[s.ID] {
			errs = append(errs, fmt.Sprintf("duplicate temperature channel id %q", s.ID))
		}
		sensorIDs[s.ID] = true
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ClickDelay returns the relay click delay as a Duration.
func (c *NodeDaemonConfig) ClickDelay() time.Duration {
	return time.Duration(c.Relays.ClickDelayMS) * time.Millisecond
}
