package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file, applies defaults and
// GOVERNOR_* environment overrides, and validates the result. An empty path
// yields the default configuration (with overrides still applied).
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	ApplyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides applies GOVERNOR_* environment variables on top of the
// file-based configuration. Environment always wins, which is how secrets
// like the ticket credential are expected to arrive in containerized
// deployments.
func applyEnvOverrides(cfg *Config) {
	override := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	override("GOVERNOR_DATASOURCE_BACKEND", &cfg.DataSource.Backend)
	override("GOVERNOR_DATASOURCE_PATH", &cfg.DataSource.Path)
	override("GOVERNOR_DATASOURCE_URI", &cfg.DataSource.URI)
	override("GOVERNOR_DATASOURCE_DATABASE", &cfg.DataSource.Database)
	override("GOVERNOR_STATE_BACKEND", &cfg.State.Backend)
	override("GOVERNOR_STATE_PATH", &cfg.State.Path)
	override("GOVERNOR_TICKET_BASE_URL", &cfg.Connectors.Ticket.BaseURL)
	override("GOVERNOR_TICKET_IDENTITY", &cfg.Connectors.Ticket.Identity)
	override("GOVERNOR_TICKET_CREDENTIAL", &cfg.Connectors.Ticket.Credential)
	override("GOVERNOR_TICKET_PROJECT_KEY", &cfg.Connectors.Ticket.ProjectKey)
	override("GOVERNOR_SWEEP_SCHEDULE", &cfg.Sweep.Schedule)
	override("GOVERNOR_SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	override("GOVERNOR_LOG_LEVEL", &cfg.Logging.Level)
	override("GOVERNOR_LOG_FORMAT", &cfg.Logging.Format)
}
