// Winston node daemon.
//
// A node runs on a Raspberry Pi next to the hardware and serves the io/
// path RPC for its relay, reed and temperature channels. The master reaches
// it through its node map or the winston module.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/winstonhome/winston/internal/api"
	"github.com/winstonhome/winston/internal/hardware/gpio"
	"github.com/winstonhome/winston/internal/infrastructure/config"
	"github.com/winstonhome/winston/internal/infrastructure/logging"
	"github.com/winstonhome/winston/internal/metrics"
	"github.com/winstonhome/winston/internal/plugins"
	"github.com/winstonhome/winston/internal/rpc"
)

// Version information - set at build time via ldflags
var (
	version = "dev"
	commit  = "unknown"
)

const (
	serviceName       = "winston-node"
	defaultConfigPath = "configs/node.yaml"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	log := logging.Default(serviceName)
	log.Info("starting Winston node", "version", version, "commit", commit)

	configPath := getConfigPath()
	cfg, err := config.LoadNode(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, serviceName, version).With("node", cfg.Name)
	log.Info("configuration loaded", "path", configPath, "gpio", cfg.GPIO.Driver)

	driver, err := openDriver(cfg.GPIO.Driver)
	if err != nil {
		return err
	}

	set, err := plugins.Build(cfg, driver, log)
	if err != nil {
		driver.Close() //nolint:errcheck // no pins are claimed yet
		return fmt.Errorf("building plugins: %w", err)
	}
	// Closing the relay module switches every provisioned relay off and
	// releases the driver.
	defer func() {
		log.Info("releasing gpio")
		if closeErr := set.Relay.Close(); closeErr != nil {
			log.Error("error releasing gpio", "error", closeErr)
		}
	}()
	log.Info("plugins ready", "modules", set.Registry.Types())

	m := metrics.New()
	router := rpc.NewRouter(set.Registry, nil, nil)
	router.SetLogger(log)
	router.SetMetrics(m)

	server, err := api.New(api.Deps{
		Config:  cfg.API,
		Logger:  log,
		Router:  router,
		Version: version,
		Metrics: m.Handler(),
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// openDriver returns the pin driver named in configuration. The "none"
// driver keeps pin state in memory for hosts without GPIO.
func openDriver(name string) (gpio.Driver, error) {
	if name == config.GPIODriverNone {
		return gpio.NewMemory(), nil
	}
	d, err := gpio.OpenRPIO()
	if err != nil {
		return nil, err
	}
	return d, nil
}

// getConfigPath returns the configuration file path.
// Uses WINSTON_NODE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("WINSTON_NODE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
