package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.DataSource.Backend != "memory" {
		t.Errorf("Expected memory datasource default, got %s", cfg.DataSource.Backend)
	}
	if cfg.State.Backend != "memory" {
		t.Errorf("Expected memory state default, got %s", cfg.State.Backend)
	}
	if cfg.Rules.BottleneckMaxPending != 5 {
		t.Errorf("Expected bottleneck default 5, got %d", cfg.Rules.BottleneckMaxPending)
	}
	if cfg.Rules.StaleAfterDays != 30 {
		t.Errorf("Expected staleness default 30 days, got %d", cfg.Rules.StaleAfterDays)
	}
	if cfg.Server.ListenAddress != ":8089" {
		t.Errorf("Expected default listen address :8089, got %s", cfg.Server.ListenAddress)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Expected default log level info, got %s", cfg.Logging.Level)
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	path := writeConfigFile(t, `
datasource:
  backend: sqlite
  path: /var/lib/governor/data.db
rules:
  bottleneck_max_pending: 10
  stale_after_days: 14
server:
  listen_address: ":9000"
sweep:
  schedule: "0 * * * *"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.DataSource.Backend != "sqlite" || cfg.DataSource.Path != "/var/lib/governor/data.db" {
		t.Errorf("Datasource section not applied: %+v", cfg.DataSource)
	}
	if cfg.Rules.BottleneckMaxPending != 10 {
		t.Errorf("Expected bottleneck 10, got %d", cfg.Rules.BottleneckMaxPending)
	}
	if cfg.Server.ListenAddress != ":9000" {
		t.Errorf("Expected listen :9000, got %s", cfg.Server.ListenAddress)
	}
	if cfg.Sweep.Schedule != "0 * * * *" {
		t.Errorf("Expected sweep schedule, got %q", cfg.Sweep.Schedule)
	}

	// Untouched sections still get defaults.
	if cfg.Executor.Timeout != 30*time.Second {
		t.Errorf("Expected executor timeout default, got %s", cfg.Executor.Timeout)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("GOVERNOR_DATASOURCE_BACKEND", "sqlite")
	t.Setenv("GOVERNOR_DATASOURCE_PATH", "/tmp/override.db")
	t.Setenv("GOVERNOR_TICKET_CREDENTIAL", "from-env")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.DataSource.Backend != "sqlite" {
		t.Errorf("Expected env override for backend, got %s", cfg.DataSource.Backend)
	}
	if cfg.DataSource.Path != "/tmp/override.db" {
		t.Errorf("Expected env override for path, got %s", cfg.DataSource.Path)
	}
	if cfg.Connectors.Ticket.Credential != "from-env" {
		t.Errorf("Expected ticket credential from env, got %q", cfg.Connectors.Ticket.Credential)
	}
}

func TestLoadConfig_InvalidBackend(t *testing.T) {
	path := writeConfigFile(t, `
datasource:
  backend: cassandra
`)

	_, err := LoadConfig(path)
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if validation.Field != "datasource.backend" {
		t.Errorf("Expected datasource.backend failure, got %s", validation.Field)
	}
}

func TestLoadConfig_MongoRequiresURI(t *testing.T) {
	path := writeConfigFile(t, `
datasource:
  backend: mongo
  database: sdlc
`)

	_, err := LoadConfig(path)
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if validation.Field != "datasource.uri" {
		t.Errorf("Expected datasource.uri failure, got %s", validation.Field)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Expected an error for a missing file")
	}
}

func TestThresholds_Conversion(t *testing.T) {
	r := RulesConfig{BottleneckMaxPending: 8, StaleAfterDays: 14}
	th := r.Thresholds()
	if th.BottleneckMaxPending != 8 {
		t.Errorf("Expected 8, got %d", th.BottleneckMaxPending)
	}
	if th.StaleAfter != 14*24*time.Hour {
		t.Errorf("Expected 336h, got %s", th.StaleAfter)
	}
}
