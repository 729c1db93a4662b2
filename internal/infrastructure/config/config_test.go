package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
api:
  port: 9000
  workers: 4
nodes:
  garage:
    address: "10.0.0.12"
    port: 8081
modules:
  - type: virtual
    channels:
      - id: house
        params:
          value: ["away:bool:rw:false", "mode:string:rw:home"]
  - type: group
    channels:
      - id: scenes
        params:
          trigger: "home -> virtual/house/0/0"
database:
  enabled: true
  path: "/tmp/winston.db"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.Port != 9000 {
		t.Errorf("API.Port = %d, want 9000", cfg.API.Port)
	}
	if cfg.API.Host != "0.0.0.0" {
		t.Errorf("API.Host = %q, want default %q", cfg.API.Host, "0.0.0.0")
	}
	if n := cfg.Nodes["garage"]; n.Address != "10.0.0.12" || n.Port != 8081 {
		t.Errorf("Nodes[garage] = %+v", n)
	}
	if len(cfg.Modules) != 2 {
		t.Fatalf("len(Modules) = %d, want 2", len(cfg.Modules))
	}

	got := cfg.Modules[0].Channels[0].Params["value"]
	want := []string{"away:bool:rw:false", "mode:string:rw:home"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("sequence param = %v, want %v", got, want)
	}

	got = cfg.Modules[1].Channels[0].Params["trigger"]
	want = []string{"home -> virtual/house/0/0"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("scalar param = %v, want %v", got, want)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_NestedParamRejected(t *testing.T) {
	content := `
modules:
  - type: virtual
    channels:
      - id: house
        params:
          value:
            nested: map
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Error("Load() expected error for nested param, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.Modules = []ModuleConfig{
			{Type: "wemo", Channels: []ChannelConfig{{ID: "switch1"}}},
		}
		cfg.Nodes = map[string]NodeConfig{
			"garage": {Address: "10.0.0.12", Port: 8081},
		}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "invalid port low",
			mutate:  func(c *Config) { c.API.Port = 0 },
			wantErr: "api.port",
		},
		{
			name:    "invalid port high",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: "api.port",
		},
		{
			name:    "no workers",
			mutate:  func(c *Config) { c.API.Workers = 0 },
			wantErr: "api.workers",
		},
		{
			name: "duplicate module type",
			mutate: func(c *Config) {
				c.Modules = append(c.Modules, ModuleConfig{Type: "wemo"})
			},
			wantErr: "duplicate module type",
		},
		{
			name: "duplicate channel id",
			mutate: func(c *Config) {
				c.Modules[0].Channels = append(c.Modules[0].Channels, ChannelConfig{ID: "switch1"})
			},
			wantErr: "duplicate channel id",
		},
		{
			name: "node collides with module",
			mutate: func(c *Config) {
				c.Nodes["wemo"] = NodeConfig{Address: "10.0.0.13", Port: 8081}
			},
			wantErr: "collides",
		},
		{
			name: "node without port",
			mutate: func(c *Config) {
				c.Nodes["shed"] = NodeConfig{Address: "10.0.0.14"}
			},
			wantErr: "nodes.shed.port",
		},
		{
			name: "database enabled without path",
			mutate: func(c *Config) {
				c.Database.Enabled = true
				c.Database.Path = ""
			},
			wantErr: "database.path",
		},
		{
			name:    "negative retention",
			mutate:  func(c *Config) { c.Database.RetentionDays = -1 },
			wantErr: "database.retention_days",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestAPIConfig_GetTimeouts(t *testing.T) {
	api := APIConfig{
		Timeouts: APITimeoutConfig{
			Read:  30,
			Write: 45,
			Idle:  60,
		},
	}

	if got := api.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}
	if got := api.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}
	if got := api.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("WINSTON_DATABASE_PATH", "/custom/path.db")
	t.Setenv("WINSTON_MQTT_HOST", "mqtt.example.com")
	t.Setenv("WINSTON_MQTT_USERNAME", "testuser")
	t.Setenv("WINSTON_MQTT_PASSWORD", "testpass")
	t.Setenv("WINSTON_API_HOST", "192.168.1.1")
	t.Setenv("WINSTON_API_PORT", "9090")
	t.Setenv("WINSTON_INFLUXDB_TOKEN", "secret-token")

	applyEnvOverrides(cfg)

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}
	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}
	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}
	if cfg.API.Host != "192.168.1.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "192.168.1.1")
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}
	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaultConfig should validate, got %v", err)
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("defaultConfig API.Port = %d, want 8080", cfg.API.Port)
	}
	if cfg.GetProxyTimeout().Seconds() != 10 {
		t.Errorf("defaultConfig proxy timeout = %v, want 10s", cfg.GetProxyTimeout())
	}
}

func TestLoadNode(t *testing.T) {
	content := `
name: garage
gpio:
  driver: none
relays:
  click_delay_ms: 250
  channels:
    - {id: door, number: 2, pin: 18}
    - {id: light, number: 1, pin: 17}
reeds:
  - {id: door_closed, pin: 23}
temperature:
  sensors:
    - {id: outside, device: 28-000005e2fdc3}
`
	cfg, err := LoadNode(writeConfig(t, content))
	if err != nil {
		t.Fatalf("LoadNode() error = %v", err)
	}
	if cfg.API.Port != 8081 {
		t.Errorf("API.Port = %d, want default 8081", cfg.API.Port)
	}
	if cfg.ClickDelay().Milliseconds() != 250 {
		t.Errorf("ClickDelay() = %v, want 250ms", cfg.ClickDelay())
	}
	if len(cfg.Relays.Channels) != 2 || cfg.Relays.Channels[0].Pin != 18 {
		t.Errorf("Relays.Channels = %+v", cfg.Relays.Channels)
	}
	if cfg.Temperature.BasePath != "/sys/bus/w1/devices" {
		t.Errorf("Temperature.BasePath = %q", cfg.Temperature.BasePath)
	}
}

func TestNodeDaemonConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*NodeDaemonConfig)
		wantErr string
	}{
		{
			name:   "defaults",
			mutate: func(*NodeDaemonConfig) {},
		},
		{
			name:    "unknown driver",
			mutate:  func(c *NodeDaemonConfig) { c.GPIO.Driver = "sysfs" },
			wantErr: "gpio.driver",
		},
		{
			name: "duplicate relay number",
			mutate: func(c *NodeDaemonConfig) {
				c.Relays.Channels = []RelayConfig{
					{ID: "a", Number: 1, Pin: 17},
					{ID: "b", Number: 1, Pin: 18},
				}
			},
			wantErr: "duplicate relay number",
		},
		{
			name: "sensor without device",
			mutate: func(c *NodeDaemonConfig) {
				c.Temperature.Sensors = []TemperatureSensor{{ID: "outside"}}
			},
			wantErr: "temperature.sensors[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultNodeConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_ShippedConfigs(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "..", "configs", "winston.yaml"))
	if err != nil {
		t.Fatalf("Load(winston.yaml) error = %v", err)
	}
	if len(cfg.Modules) != 6 {
		t.Errorf("modules = %d, want 6", len(cfg.Modules))
	}
	if got := cfg.Database.GetRetention(); got != 30*24*time.Hour {
		t.Errorf("GetRetention() = %v, want 720h", got)
	}
	if got := cfg.Modules[5].Channels[0].Params["trigger"]; len(got) != 2 {
		t.Errorf("group triggers = %v, want 2 entries", got)
	}
	if _, ok := cfg.Nodes["garage"]; !ok {
		t.Error("node garage missing")
	}

	node, err := LoadNode(filepath.Join("..", "..", "..", "configs", "node.yaml"))
	if err != nil {
		t.Fatalf("LoadNode(node.yaml) error = %v", err)
	}
	if node.Name != "garage" || len(node.Relays.Channels) != 2 || node.ClickDelay() != 500*time.Millisecond {
		t.Errorf("node = %+v", node)
	}
}
