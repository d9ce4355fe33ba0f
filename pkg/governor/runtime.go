// Package governor wires the governance engine together from
// configuration: data source, state stores, rule registry, approval gate,
// connectors, and telemetry. Everything is explicitly constructed and
// injected; the runtime owns the lifecycle of what it builds.
package governor

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/approval"
	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/audit"
	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/config"
	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/datasource"
	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/engine"
	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/executor"
	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/rules"
	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/telemetry/metrics"
)

// Runtime holds the fully wired governance engine.
type Runtime struct {
	Config     *config.Config
	DataSource datasource.Adapter
	Audit      audit.Log
	Store      approval.Store
	Gate       *approval.Gate
	Executors  *executor.Registry
	Runner     *executor.Runner
	Metrics    *metrics.Collector

	eng     atomic.Pointer[engine.Engine]
	reg     atomic.Pointer[rules.Registry]
	stateDB *sql.DB
	logger  *slog.Logger
}

// Build constructs the runtime from configuration.
func Build(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	rt := &Runtime{
		Config: cfg,
		logger: slog.Default().With("component", "governor"),
	}

	ds, err := buildDataSource(ctx, cfg.DataSource)
	if err != nil {
		return nil, err
	}
	rt.DataSource = ds

	if err := rt.buildState(cfg.State); err != nil {
		rt.Close()
		return nil, err
	}

	registry, err := rules.NewRegistryWithBuiltins(cfg.Rules.Thresholds())
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.reg.Store(registry)
	rt.eng.Store(engine.New(registry, ds))

	rt.Metrics = metrics.NewCollector(cfg.Metrics.Namespace, cfg.Metrics.Subsystem, nil)
	rt.Gate = approval.NewGate(rt.Store, rt.Audit)

	rt.Executors = executor.NewRegistry()
	rt.Executors.Register(approval.KindCreateTicket, executor.NewTicketConnector(&executor.TicketConfig{
		BaseURL:    cfg.Connectors.Ticket.BaseURL,
		Identity:   cfg.Connectors.Ticket.Identity,
		Credential: cfg.Connectors.Ticket.Credential,
		ProjectKey: cfg.Connectors.Ticket.ProjectKey,
		Timeout:    cfg.Connectors.Ticket.Timeout,
	}))
	rt.Executors.Register(approval.KindUpdateDocument, executor.NewMutationConnector(ds))
	rt.Runner = executor.NewRunner(rt.Gate, rt.Executors, cfg.Executor.Timeout, rt.Metrics)

	rt.logger.Info("runtime built",
		"datasource", cfg.DataSource.Backend,
		"state", cfg.State.Backend,
		"rules", len(registry.List()),
	)
	return rt, nil
}

func buildDataSource(ctx context.Context, cfg config.DataSourceConfig) (datasource.Adapter, error) {
	switch cfg.Backend {
	case "memory":
		return datasource.NewMemory(), nil
	case "sqlite":
		sqliteCfg := datasource.DefaultSQLiteConfig()
		sqliteCfg.Path = cfg.Path
		return datasource.NewSQLite(sqliteCfg)
	case "mongo":
		return datasource.NewMongo(ctx, &datasource.MongoConfig{URI: cfg.URI, Database: cfg.Database})
	default:
		return nil, fmt.Errorf("unknown datasource backend %q", cfg.Backend)
	}
}

func (rt *Runtime) buildState(cfg config.StateConfig) error {
	switch cfg.Backend {
	case "memory":
		log := audit.NewMemoryLog()
		rt.Audit = log
		rt.Store = approval.NewMemoryStore(log)
		return nil
	case "sqlite":
		db, err := approval.OpenStateDB(cfg.Path, 5*time.Second)
		if err != nil {
			return err
		}
		rt.stateDB = db
		log, err := audit.NewSQLiteLog(db)
		if err != nil {
			db.Close()
			return err
		}
		store, err := approval.NewSQLiteStore(db, log)
		if err != nil {
			db.Close()
			return err
		}
		rt.Audit = log
		rt.Store = store
		return nil
	default:
		return fmt.Errorf("unknown state backend %q", cfg.Backend)
	}
}

// Engine returns the current engine. The pointer swaps atomically when
// thresholds are reloaded; callers must not cache it across requests.
func (rt *Runtime) Engine() *engine.Engine {
	return rt.eng.Load()
}

// Registry returns the current rule registry.
func (rt *Runtime) Registry() *rules.Registry {
	return rt.reg.Load()
}

// EvaluateAll delegates to the current engine. It satisfies the sweep
// scheduler's Evaluator interface.
func (rt *Runtime) EvaluateAll(ctx context.Context) ([]*engine.Evaluation, error) {
	return rt.Engine().EvaluateAll(ctx)
}

// ApplyThresholds rebuilds the rule registry with new thresholds and swaps
// in a fresh engine. Each registry instance stays immutable; reload
// replaces the instance rather than mutating it.
func (rt *Runtime) ApplyThresholds(t rules.Thresholds) error {
	registry, err := rules.NewRegistryWithBuiltins(t)
	if err != nil {
		return err
	}
	rt.reg.Store(registry)
	rt.eng.Store(engine.New(registry, rt.DataSource))
	rt.logger.Info("rule thresholds applied",
		"bottleneck_max_pending", t.BottleneckMaxPending,
		"stale_after", t.StaleAfter,
	)
	return nil
}

// Close releases everything the runtime owns.
func (rt *Runtime) Close() error {
	var firstErr error
	if rt.Store != nil {
		if err := rt.Store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if rt.Audit != nil {
		if err := rt.Audit.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if rt.stateDB != nil {
		if err := rt.stateDB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if rt.DataSource != nil {
		if err := rt.DataSource.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
