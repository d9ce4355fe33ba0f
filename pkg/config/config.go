// Package config loads and validates the governor's YAML configuration.
// Loading follows the sequence: parse file, apply defaults, apply
// GOVERNOR_* environment overrides, validate.
package config

import (
	"time"

	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/rules"
)

// Config is the root configuration.
type Config struct {
	DataSource DataSourceConfig `yaml:"datasource"`
	State      StateConfig      `yaml:"state"`
	Rules      RulesConfig      `yaml:"rules"`
	Connectors ConnectorsConfig `yaml:"connectors"`
	Executor   ExecutorConfig   `yaml:"executor"`
	Sweep      SweepConfig      `yaml:"sweep"`
	Server     ServerConfig     `yaml:"server"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`
	MCP        MCPConfig        `yaml:"mcp"`
}

// DataSourceConfig selects the operational store backend.
type DataSourceConfig struct {
	// Backend is "memory", "sqlite", or "mongo".
	Backend string `yaml:"backend"`

	// Path is the database file for the sqlite backend.
	Path string `yaml:"path"`

	// URI and Database configure the mongo backend.
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// StateConfig selects where actions and the audit trail are persisted.
type StateConfig struct {
	// Backend is "memory" or "sqlite".
	Backend string `yaml:"backend"`

	// Path is the database file for the sqlite backend.
	Path string `yaml:"path"`
}

// RulesConfig carries the deployment-tunable rule thresholds.
type RulesConfig struct {
	// BottleneckMaxPending is the pending-review document count above which
	// detect_bottleneck fires.
	BottleneckMaxPending int64 `yaml:"bottleneck_max_pending"`

	// StaleAfterDays is the age in days past which a document is stale.
	StaleAfterDays int `yaml:"stale_after_days"`
}

// Thresholds converts the config section into the rule threshold set.
func (r RulesConfig) Thresholds() rules.Thresholds {
	return rules.Thresholds{
		BottleneckMaxPending: r.BottleneckMaxPending,
		StaleAfter:           time.Duration(r.StaleAfterDays) * 24 * time.Hour,
	}
}

// ConnectorsConfig configures remediation connectors.
type ConnectorsConfig struct {
	Ticket TicketConfig `yaml:"ticket"`
}

// TicketConfig configures the ticket connector. Missing values are not a
// load-time error: the connector reports itself unconfigured at the
// execution boundary instead of failing unrelated capabilities.
type TicketConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Identity   string        `yaml:"identity"`
	Credential string        `yaml:"credential"`
	ProjectKey string        `yaml:"project_key"`
	Timeout    time.Duration `yaml:"timeout"`
}

// ExecutorConfig bounds remediation execution.
type ExecutorConfig struct {
	// Timeout bounds a single connector invocation.
	Timeout time.Duration `yaml:"timeout"`
}

// SweepConfig schedules continuous evaluation.
type SweepConfig struct {
	// Schedule is a cron expression; empty disables the sweep.
	Schedule string `yaml:"schedule"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	ListenAddress   string        `yaml:"listen_address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// MetricsConfig configures the Prometheus collector.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	Subsystem string `yaml:"subsystem"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is "debug", "info", "warn", or "error".
	Level string `yaml:"level"`

	// Format is "json" or "text".
	Format string `yaml:"format"`
}

// MCPConfig toggles the MCP stdio tool server.
type MCPConfig struct {
	Enabled bool `yaml:"enabled"`
}
