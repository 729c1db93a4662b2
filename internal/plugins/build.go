package plugins

import (
	"time"

	"github.com/winstonhome/winston/internal/channel"
	"github.com/winstonhome/winston/internal/hardware/gpio"
	"github.com/winstonhome/winston/internal/hardware/reed"
	"github.com/winstonhome/winston/internal/hardware/relay"
	"github.com/winstonhome/winston/internal/infrastructure/config"
	"github.com/winstonhome/winston/internal/module"
)

// Set is the node's module registry plus the relay module, which owns the
// GPIO driver and must be closed on shutdown.
type Set struct {
	Registry *module.Registry
	Relay    *Relay
}

// Build creates the node modules from configuration. Sections without
// channels produce no module. No pin is touched.
func Build(cfg *config.NodeDaemonConfig, driver gpio.Driver, logger relay.Logger) (*Set, error) {
	var modules []channel.Module
	set := &Set{}

	pins := make(map[int]int, len(cfg.Relays.Channels))
	for _, rc := range cfg.Relays.Channels {
		pins[rc.Number] = rc.Pin
	}
	ctrl := relay.NewController(driver, pins, time.Duration(cfg.Relays.ClickDelayMS)*time.Millisecond)
	if logger != nil {
		ctrl.SetLogger(logger)
	}
	rm, err := NewRelay(ctrl, cfg.Relays.Channels)
	if err != nil {
		return nil, err
	}
	set.Relay = rm
	if rm.Len() > 0 {
		modules = append(modules, rm)
	}

	if len(cfg.Reeds) > 0 {
		sensors := make(map[string]*reed.Sensor, len(cfg.Reeds))
		order := make([]string, 0, len(cfg.Reeds))
		for _, rc := range cfg.Reeds {
			sensors[rc.ID] = reed.NewSensor(driver, rc.Pin, rc.ClosedHigh)
			order = append(order, rc.ID)
		}
		m, err := NewReed(sensors, order)
		if err != nil {
			return nil, err
		}
		modules = append(modules, m)
	}

	if len(cfg.Temperature.Sensors) > 0 {
		m, err := NewTemperature(cfg.Temperature)
		if err != nil {
			return nil, err
		}
		modules = append(modules, m)
	}

	reg, err := module.NewRegistry(modules...)
	if err != nil {
		return nil, err
	}
	set.Registry = reg
	return set, nil
}
