// Package config handles loading and validating Winston configuration.
//
// Two roots exist: Config for the master daemon and NodeDaemonConfig for a
// node daemon attached to GPIO hardware. Both follow the same order:
// defaults, then the YAML file, then WINSTON_* environment variables, then
// validation that reports every problem at once.
//
// Sensitive values (MQTT password, InfluxDB token) should be set via
// environment variables. Configuration is loaded once at startup; there is
// no reload.
//
// Usage:
//
//	cfg, err := config.Load("configs/winston.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, m := range cfg.Modules {
//	    fmt.Println(m.Type)
//	}
package config
