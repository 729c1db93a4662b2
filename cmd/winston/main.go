// Winston master daemon.
//
// The master serves the io/ path RPC for its own modules, proxies paths
// addressed to remote node daemons and runs group trigger cascades. Value
// events and trigger executions are copied to MQTT, InfluxDB and the
// WebSocket hub when those are configured.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/winstonhome/winston/internal/api"
	"github.com/winstonhome/winston/internal/events"
	"github.com/winstonhome/winston/internal/group"
	"github.com/winstonhome/winston/internal/infrastructure/config"
	"github.com/winstonhome/winston/internal/infrastructure/database"
	"github.com/winstonhome/winston/internal/infrastructure/influxdb"
	"github.com/winstonhome/winston/internal/infrastructure/logging"
	"github.com/winstonhome/winston/internal/infrastructure/mqtt"
	"github.com/winstonhome/winston/internal/metrics"
	"github.com/winstonhome/winston/internal/module"
	"github.com/winstonhome/winston/internal/modules/modbus"
	"github.com/winstonhome/winston/internal/modules/remote"
	"github.com/winstonhome/winston/internal/modules/tv"
	"github.com/winstonhome/winston/internal/modules/virtual"
	"github.com/winstonhome/winston/internal/modules/wemo"
	"github.com/winstonhome/winston/internal/rpc"
	"github.com/winstonhome/winston/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	serviceName       = "winston"
	defaultConfigPath = "configs/winston.yaml"
	pruneInterval     = time.Hour
)

func main() {
	cli, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if cli.ShowVersion {
		fmt.Printf("winston %s (commit %s, built %s)\n", version, commit, date)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cli); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context, cli *cliConfig) error {
	log := logging.Default(serviceName)
	log.Info("starting Winston master",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(cli.ConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, serviceName, version)
	log.Info("configuration loaded", "path", cli.ConfigPath, "modules", len(cfg.Modules), "nodes", len(cfg.Nodes))

	if cli.Migrate != "" {
		return runMigrate(ctx, cfg.Database, cli.Migrate, log)
	}

	m := metrics.New()
	checks := make(map[string]api.HealthChecker)

	publisher := events.New(events.DefaultBufferSize)
	publisher.SetLogger(log)
	publisher.SetReporter(m)

	// Trigger execution log (optional)
	var repo *group.SQLiteRepository
	var db *database.DB
	if cfg.Database.Enabled {
		db, err = database.Open(ctx, database.ConfigFrom(cfg.Database))
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		applied, migrateErr := db.Migrate(ctx, migrations.FS)
		if migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		for _, mg := range applied {
			log.Info("migration applied", "version", mg.Version, "name", mg.Name)
		}
		repo = group.NewSQLiteRepository(db)
		checks["database"] = db
		if retention := cfg.Database.GetRetention(); retention > 0 {
			go pruneExecutions(ctx, repo, retention, pruneInterval, log)
		}
		log.Info("database ready", "path", db.Path())
	} else {
		log.Info("trigger execution log disabled")
	}

	// MQTT (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Dial(cfg.MQTT, log)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		publisher.SetMQTT(mqttClient)
		checks["mqtt"] = mqttClient
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	}

	// InfluxDB (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Dial(ctx, cfg.InfluxDB, log)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		publisher.SetInflux(influxClient)
		checks["influxdb"] = influxClient
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	// Modules
	nodes := rpc.NewNodeMap(cfg.Nodes)
	requester := rpc.NewHTTPRequester(cfg.GetProxyTimeout())

	groups := group.New()
	groups.SetLogger(log)
	if repo != nil {
		groups.SetRecorder(repo)
	}
	groups.SetNotifier(group.Notifiers{m, publisher})

	registry := module.Build(ctx, factories(nodes, requester, groups, m, log), cfg.Modules, log)
	defer func() {
		log.Info("closing modules")
		if closeErr := registry.Close(); closeErr != nil {
			log.Error("error closing modules", "error", closeErr)
		}
	}()
	if failed := registry.Failed(); len(failed) > 0 {
		log.Warn("some modules are unavailable", "failed", failed)
	}

	router := rpc.NewRouter(registry, nodes, requester)
	router.SetLogger(log)
	router.SetObserver(publisher)
	router.SetMetrics(m)
	groups.SetDispatcher(router)

	// Events
	hub := api.NewHub(cfg.WebSocket, log)
	publisher.SetHub(hub)
	go publisher.Run(ctx)

	if mqttClient != nil {
		listener := events.NewCommandListener(router, mqttClient, events.DefaultCommandWorkers, events.DefaultCommandQueue)
		listener.SetLogger(log)
		go listener.Run(ctx)
		if subErr := mqttClient.Subscribe(mqtt.Topics{}.Command(), byte(cfg.MQTT.QoS), listener.HandleMessage); subErr != nil {
			return fmt.Errorf("subscribing to commands: %w", subErr)
		}
	}

	// HTTP
	deps := api.Deps{
		Config:  cfg.API,
		WS:      cfg.WebSocket,
		Logger:  log,
		Router:  router,
		Version: version,
		Metrics: m.Handler(),
		Hub:     hub,
		Checks:  checks,
	}
	if repo != nil {
		deps.Executions = repo
	}
	if mqttClient != nil {
		deps.MQTT = mqttClient
	}
	if db != nil {
		deps.DB = db
	}
	server, err := api.New(deps)
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

	log.Info("initialisation complete, waiting for shutdown signal", "modules", registry.Types())

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// factories returns the constructors for every master module type.
// The group module is created up front because its dispatcher is the
// router, which only exists once the registry is built.
func factories(nodes rpc.NodeMap, requester rpc.Requester, groups *group.Module, m *metrics.Metrics, log *logging.Logger) module.Factories {
	return module.Factories{
		virtual.Type: func() module.Instance { return virtual.New() },
		wemo.Type:    func() module.Instance { return wemo.New() },
		remote.Type:  func() module.Instance { return remote.New(nodes, requester) },
		modbus.Type:  func() module.Instance { return modbus.New() },
		tv.Type: func() module.Instance {
			t := tv.New()
			t.SetLogger(log)
			t.SetStateListener(m.TVStateChanged)
			return t
		},
		group.Type: func() module.Instance { return groups },
	}
}

// runMigrate applies, reverts or lists schema migrations and returns.
func runMigrate(ctx context.Context, dbCfg config.DatabaseConfig, command string, log *logging.Logger) error {
	db, err := database.Open(ctx, database.ConfigFrom(dbCfg))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close() //nolint:errcheck // process exits next

	switch command {
	case migrateUp:
		applied, err := db.Migrate(ctx, migrations.FS)
		for _, mg := range applied {
			log.Info("migration applied", "version", mg.Version, "name", mg.Name)
		}
		if err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		log.Info("schema up to date", "applied", len(applied))
	case migrateDown:
		mg, err := db.Rollback(ctx, migrations.FS)
		if err != nil {
			return fmt.Errorf("rolling back: %w", err)
		}
		if mg == nil {
			log.Info("nothing to roll back")
			return nil
		}
		log.Info("migration rolled back", "version", mg.Version, "name", mg.Name)
	case migrateStatus:
		states, err := db.MigrationStatus(ctx, migrations.FS)
		if err != nil {
			return fmt.Errorf("reading migration status: %w", err)
		}
		for _, s := range states {
			if s.Applied() {
				log.Info("migration", "version", s.Version, "name", s.Name, "applied_at", s.AppliedAt)
			} else {
				log.Info("migration", "version", s.Version, "name", s.Name, "pending", true)
			}
		}
	default:
		return fmt.Errorf("unknown migrate command %q", command)
	}
	return nil
}

// executionPruner removes old trigger executions.
type executionPruner interface {
	PruneExecutions(ctx context.Context, cutoff time.Time) (int64, error)
}

// pruneExecutions trims the execution log now and then every interval
// until ctx is cancelled.
func pruneExecutions(ctx context.Context, p executionPruner, retention, interval time.Duration, log *logging.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		n, err := p.PruneExecutions(ctx, time.Now().Add(-retention))
		switch {
		case err != nil && ctx.Err() == nil:
			log.Warn("pruning trigger executions failed", "error", err)
		case n > 0:
			log.Info("trigger executions pruned", "removed", n, "retention", retention)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// getConfigPath returns the configuration file path.
// Uses WINSTON_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("WINSTON_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
