package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/winstonhome/winston/internal/infrastructure/database"
	"github.com/winstonhome/winston/internal/infrastructure/logging"
	"github.com/winstonhome/winston/migrations"
)

// freePort returns a TCP port that was free a moment ago.
func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "winston.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

// testCLI returns the flags run would see with no arguments.
func testCLI(t *testing.T) *cliConfig {
	t.Helper()
	cli, err := parseFlags(nil, io.Discard)
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}
	return cli
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("WINSTON_CONFIG", "/nonexistent/path/winston.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx, testCLI(t)); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_ValidationFailure verifies run fails on an invalid module table.
func TestRun_ValidationFailure(t *testing.T) {
	t.Setenv("WINSTON_CONFIG", writeConfig(t, `
modules:
  - type: virtual
  - type: virtual
`))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx, testCLI(t)); err == nil {
		t.Fatal("run() should fail with duplicate module types")
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("WINSTON_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}

	t.Setenv("WINSTON_CONFIG", "/custom/winston.yaml")
	if got := getConfigPath(); got != "/custom/winston.yaml" {
		t.Errorf("getConfigPath() = %q, want /custom/winston.yaml", got)
	}
}

// TestRun_ServesAndShutsDown starts the master with a virtual module, a
// group and the trigger log, drives a cascade over HTTP and shuts down.
func TestRun_ServesAndShutsDown(t *testing.T) {
	port := freePort(t)
	dbPath := filepath.Join(t.TempDir(), "winston.db")
	t.Setenv("WINSTON_CONFIG", writeConfig(t, fmt.Sprintf(`
api:
  host: "127.0.0.1"
  port: %d
  workers: 4
database:
  enabled: true
  path: %q
  wal_mode: true
  busy_timeout: 5
logging:
  level: error
  format: text
modules:
  - type: virtual
    channels:
      - id: house
        params:
          value: "away:bool:rw:false"
  - type: group
    channels:
      - id: leaving
        params:
          trigger: "go -> virtual/house/0/true"
  - type: wemo
    channels:
      - id: lamp
`, port, dbPath)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	cli := testCLI(t)
	go func() { done <- run(ctx, cli) }()

	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	waitHealthy(t, base+"/health", done)

	if status, body := fetch(t, base+"/io/virtual/house/0"); status != 200 || body != "false" {
		t.Errorf("initial read = %d %q, want 200 false", status, body)
	}
	if status, _ := fetch(t, base+"/io/group/leaving/0/go"); status != 200 {
		t.Errorf("group write status = %d, want 200", status)
	}
	if status, body := fetch(t, base+"/io/virtual/house/0"); body != "true" {
		t.Errorf("read after cascade = %d %q, want true", status, body)
	}
	if status, _ := fetch(t, base+"/io/wemo/lamp/0"); status != 404 {
		t.Errorf("failed module status = %d, want 404", status)
	}

	status, body := fetch(t, base+"/api/v1/triggers/executions?limit=10")
	if status != 200 {
		t.Fatalf("executions status = %d", status)
	}
	var list struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal([]byte(body), &list); err != nil {
		t.Fatalf("executions body: %v", err)
	}
	if list.Count != 1 {
		t.Errorf("executions count = %d, want 1", list.Count)
	}

	if status, _ := fetch(t, base+"/metrics"); status != 200 {
		t.Errorf("/metrics status = %d, want 200", status)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run() error = %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("run() did not return after cancel")
	}
}

func TestParseFlags(t *testing.T) {
	t.Setenv("WINSTON_CONFIG", "/etc/winston/winston.yaml")

	tests := []struct {
		name        string
		args        []string
		wantConfig  string
		wantMigrate string
		wantErr     bool
	}{
		{name: "defaults", wantConfig: "/etc/winston/winston.yaml"},
		{name: "config flag", args: []string{"-config", "/tmp/w.yaml"}, wantConfig: "/tmp/w.yaml"},
		{name: "migrate down", args: []string{"-migrate", "down"}, wantConfig: "/etc/winston/winston.yaml", wantMigrate: "down"},
		{name: "unknown migrate command", args: []string{"-migrate", "redo"}, wantErr: true},
		{name: "stray argument", args: []string{"serve"}, wantErr: true},
		{name: "unknown flag", args: []string{"-verbose"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli, err := parseFlags(tt.args, io.Discard)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseFlags(%v) = %+v, want error", tt.args, cli)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseFlags(%v) error = %v", tt.args, err)
			}
			if cli.ConfigPath != tt.wantConfig || cli.Migrate != tt.wantMigrate {
				t.Errorf("parseFlags(%v) = %+v", tt.args, cli)
			}
		})
	}
}

func TestRun_Migrate(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "winston.db")
	cfgPath := writeConfig(t, fmt.Sprintf(`
database:
  enabled: true
  path: %q
logging:
  level: error
`, dbPath))
	ctx := context.Background()

	status := func() []database.MigrationState {
		t.Helper()
		db, err := database.Open(ctx, database.Config{Path: dbPath})
		if err != nil {
			t.Fatal(err)
		}
		defer db.Close()
		states, err := db.MigrationStatus(ctx, migrations.FS)
		if err != nil {
			t.Fatal(err)
		}
		return states
	}

	for _, command := range []string{migrateUp, migrateStatus} {
		if err := run(ctx, &cliConfig{ConfigPath: cfgPath, Migrate: command}); err != nil {
			t.Fatalf("run(-migrate %s) error = %v", command, err)
		}
	}
	for _, s := range status() {
		if !s.Applied() {
			t.Errorf("migration %s pending after -migrate up", s.Version)
		}
	}

	if err := run(ctx, &cliConfig{ConfigPath: cfgPath, Migrate: migrateDown}); err != nil {
		t.Fatalf("run(-migrate down) error = %v", err)
	}
	states := status()
	if states[len(states)-1].Applied() {
		t.Error("latest migration still applied after -migrate down")
	}
}

// fakePruner records cutoffs and fails when told to.
type fakePruner struct {
	mu      sync.Mutex
	cutoffs []time.Time
	err     error
}

func (f *fakePruner) PruneExecutions(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	return 1, f.err
}

func (f *fakePruner) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cutoffs)
}

func TestPruneExecutions(t *testing.T) {
	p := &fakePruner{err: errors.New("database is locked")}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	start := time.Now()
	go func() {
		pruneExecutions(ctx, p, 24*time.Hour, 10*time.Millisecond, logging.Default("test"))
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for p.calls() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if p.calls() < 3 {
		t.Fatalf("prune ran %d times, want at least 3 (errors must not stop it)", p.calls())
	}
	p.mu.Lock()
	first := p.cutoffs[0]
	p.mu.Unlock()
	if d := start.Add(-24 * time.Hour).Sub(first); d > time.Second || d < -time.Second {
		t.Errorf("first cutoff = %v, want about 24h before start", first)
	}
}

func waitHealthy(t *testing.T, url string, done <-chan error) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case err := <-done:
			t.Fatalf("run() exited early: %v", err)
		default:
		}
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("server did not become healthy")
}

func fetch(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}
