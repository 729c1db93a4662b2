package main

import (
	"flag"
	"fmt"
	"io"
)

// Migration commands accepted by -migrate.
const (
	migrateUp     = "up"
	migrateDown   = "down"
	migrateStatus = "status"
)

// cliConfig holds command-line settings.
type cliConfig struct {
	ConfigPath  string
	Migrate     string
	ShowVersion bool
}

// parseFlags reads args (without the program name). Defaults come from the
// environment.
func parseFlags(args []string, out io.Writer) (*cliConfig, error) {
	cli := &cliConfig{}

	fs := flag.NewFlagSet(serviceName, flag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&cli.ConfigPath, "config", getConfigPath(),
		"Path to configuration file (env: WINSTON_CONFIG)")
	fs.StringVar(&cli.Migrate, "migrate", "",
		"Run a database migration command and exit: up, down or status")
	fs.BoolVar(&cli.ShowVersion, "version", false, "Show version information and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	switch cli.Migrate {
	case "", migrateUp, migrateDown, migrateStatus:
	default:
		return nil, fmt.Errorf("-migrate: unknown command %q (want up, down or status)", cli.Migrate)
	}
	return cli, nil
}
