package config

import "fmt"

// ValidationError reports a configuration field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Message)
}

// Validate checks the configuration for inconsistencies. Connector
// credentials are deliberately not validated here: their absence only
// matters at the execution boundary.
func Validate(cfg *Config) error {
	switch cfg.DataSource.Backend {
	case "memory":
	case "sqlite":
		if cfg.DataSource.Path == "" {
			return &ValidationError{Field: "datasource.path", Message: "required for the sqlite backend"}
		}
	case "mongo":
		if cfg.DataSource.URI == "" {
			return &ValidationError{Field: "datasource.uri", Message: "required for the mongo backend"}
		}
		if cfg.DataSource.Database == "" {
			return &ValidationError{Field: "datasource.database", Message: "required for the mongo backend"}
		}
	default:
		return &ValidationError{Field: "datasource.backend", Message: fmt.Sprintf("unknown backend %q", cfg.DataSource.Backend)}
	}

	switch cfg.State.Backend {
	case "memory":
	case "sqlite":
		if cfg.State.Path == "" {
			return &ValidationError{Field: "state.path", Message: "required for the sqlite backend"}
		}
	default:
		return &ValidationError{Field: "state.backend", Message: fmt.Sprintf("unknown backend %q", cfg.State.Backend)}
	}

	if cfg.Rules.BottleneckMaxPending < 0 {
		return &ValidationError{Field: "rules.bottleneck_max_pending", Message: "must not be negative"}
	}
	if cfg.Rules.StaleAfterDays < 0 {
		return &ValidationError{Field: "rules.stale_after_days", Message: "must not be negative"}
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Field: "logging.level", Message: fmt.Sprintf("unknown level %q", cfg.Logging.Level)}
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return &ValidationError{Field: "logging.format", Message: fmt.Sprintf("unknown format %q", cfg.Logging.Format)}
	}

	return nil
}
