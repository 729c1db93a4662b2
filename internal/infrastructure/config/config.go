package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Winston master.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	API       APIConfig             `yaml:"api"`
	Nodes     map[string]NodeConfig `yaml:"nodes"`
	Modules   []ModuleConfig        `yaml:"modules"`
	Proxy     ProxyConfig           `yaml:"proxy"`
	Database  DatabaseConfig        `yaml:"database"`
	MQTT      MQTTConfig            `yaml:"mqtt"`
	WebSocket WebSocketConfig       `yaml:"websocket"`
	InfluxDB  InfluxDBConfig        `yaml:"influxdb"`
	Logging   LoggingConfig         `yaml:"logging"`
}

// NodeConfig is the address of a remote node daemon.
type NodeConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
	TLS     bool   `yaml:"tls"`
}

// ModuleConfig configures one module instance. Type is the module key and
// the first RPC path segment.
type ModuleConfig struct {
	Type     string          `yaml:"type"`
	Channels []ChannelConfig `yaml:"channels"`
}

// ChannelConfig configures one channel of a module.
type ChannelConfig struct {
	ID     string `yaml:"id"`
	Params Params `yaml:"params"`
}

// Params holds named, possibly repeated string parameters. In YAML each
// parameter may be a scalar or a sequence of scalars.
type Params map[string][]string

// UnmarshalYAML accepts both `key: value` and `key: [v1, v2]`.
func (p *Params) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: params must be a mapping", node.Line)
	}
	out := make(Params, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		val := node.Content[i+1]
		switch val.Kind {
		case yaml.ScalarNode:
			out[key] = append(out[key], val.Value)
		case yaml.SequenceNode:
			for _, item := range val.Content {
				if item.Kind != yaml.ScalarNode {
					return fmt.Errorf("line %d: param %q must contain scalars", item.Line, key)
				}
				out[key] = append(out[key], item.Value)
			}
		default:
			return fmt.Errorf("line %d: param %q must be a scalar or a list", val.Line, key)
		}
	}
	*p = out
	return nil
}

// ProxyConfig contains settings for the master-to-node hop.
type ProxyConfig struct {
	// Timeout is the per-request timeout in seconds. 0 disables it.
	Timeout int `yaml:"timeout"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
	// Workers bounds the number of RPC requests handled concurrently.
	Workers int `yaml:"workers"`
	// Backlog is how many requests may wait for a worker before 503.
	Backlog int `yaml:"backlog"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
	// RetentionDays bounds the trigger execution log; 0 keeps everything.
	RetentionDays int `yaml:"retention_days"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads the master configuration from a YAML file and applies
// environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: WINSTON_SECTION_KEY
// For example: WINSTON_DATABASE_PATH, WINSTON_API_PORT
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if err := readYAML(path, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		API:   defaultAPI(8080),
		Proxy: ProxyConfig{Timeout: 10},
		Database: DatabaseConfig{
			Path:          "./data/winston.db",
			WALMode:       true,
			BusyTimeout:   5,
			RetentionDays: 30,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "winston-master",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: defaultLogging(),
	}
}

func defaultAPI(port int) APIConfig {
	return APIConfig{
		Host: "0.0.0.0",
		Port: port,
		Timeouts: APITimeoutConfig{
			Read:  30,
			Write: 30,
			Idle:  60,
		},
		Workers: 16,
		Backlog: 64,
	}
}

func defaultLogging() LoggingConfig {
	return LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("WINSTON_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("WINSTON_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("WINSTON_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("WINSTON_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	applyAPIEnv("WINSTON", &cfg.API)

	// InfluxDB
	if v := os.Getenv("WINSTON_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("WINSTON_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func applyAPIEnv(prefix string, api *APIConfig) {
	if v := os.Getenv(prefix + "_API_HOST"); v != "" {
		api.Host = v
	}
	if v := os.Getenv(prefix + "_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			api.Port = port
		}
	}
}

// Validate checks the configuration for errors. All problems are reported
// together.
func (c *Config) Validate() error {
	var errs []string

	errs = append(errs, validateAPI(c.API)...)

	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when database is enabled")
	}
	if c.Database.RetentionDays < 0 {
		errs = append(errs, "database.retention_days must not be negative")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.Proxy.Timeout < 0 {
		errs = append(errs, "proxy.timeout must not be negative")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	moduleTypes := make(map[string]bool, len(c.Modules))
	for i, m := range c.Modules {
		if m.Type == "" {
			errs = append(errs, fmt.Sprintf("modules[%d].type is required", i))
			continue
		}
		if strings.Contains(m.Type, "/") {
			errs = append(errs, fmt.Sprintf("modules[%d].type %q must not contain '/'", i, m.Type))
		}
		if moduleTypes[m.Type] {
			errs = append(errs, fmt.Sprintf("duplicate module type %q", m.Type))
		}
		moduleTypes[m.Type] = true

		channelIDs := make(map[string]bool, len(m.Channels))
		for j, ch := range m.Channels {
			if ch.ID == "" {
				errs = append(errs, fmt.Sprintf("modules[%d].channels[%d].id is required", i, j))
				continue
			}
			if channelIDs[ch.ID] {
				errs = append(errs, fmt.Sprintf("module %q: duplicate channel id %q", m.Type, ch.ID))
			}
			channelIDs[ch.ID] = true
		}
	}

	for name, n := range c.Nodes {
		if moduleTypes[name] {
			errs = append(errs, fmt.Sprintf("node %q collides with a module type", name))
		}
		if n.Address == "" {
			errs = append(errs, fmt.Sprintf("nodes.%s.address is required", name))
		}
		if n.Port < 1 || n.Port > 65535 {
			errs = append(errs, fmt.Sprintf("nodes.%s.port must be between 1 and 65535", name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func validateAPI(api APIConfig) []string {
	var errs []string
	if api.Port < 1 || api.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if api.Workers < 1 {
		errs = append(errs, "api.workers must be at least 1")
	}
	if api.Backlog < 0 {
		errs = append(errs, "api.backlog must not be negative")
	}
	if api.TLS.Enabled && (api.TLS.CertFile == "" || api.TLS.KeyFile == "") {
		errs = append(errs, "api.tls requires cert_file and key_file")
	}
	return errs
}

// GetReadTimeout returns the API read timeout as a Duration.
func (a APIConfig) GetReadTimeout() time.Duration {
	return time.Duration(a.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (a APIConfig) GetWriteTimeout() time.Duration {
	return time.Duration(a.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (a APIConfig) GetIdleTimeout() time.Duration {
	return time.Duration(a.Timeouts.Idle) * time.Second
}

// GetRetention returns how long trigger executions are kept. Zero means
// forever.
func (d DatabaseConfig) GetRetention() time.Duration {
	return time.Duration(d.RetentionDays) * 24 * time.Hour
}

// GetProxyTimeout returns the node proxy timeout as a Duration.
func (c *Config) GetProxyTimeout() time.Duration {
	return time.Duration(c.Proxy.Timeout) * time.Second
}
