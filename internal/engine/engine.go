// Package engine runs the checks of a project over schema partitions and
// records every outcome in the state store.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/leapqa/internal/config"
	"github.com/leapstack-labs/leapqa/internal/state"
	"github.com/leapstack-labs/leapqa/internal/suite"
	"github.com/leapstack-labs/leapqa/pkg/adapter"
	"github.com/leapstack-labs/leapqa/pkg/core"
	"github.com/leapstack-labs/leapqa/pkg/table"
)

// Engine checks the schemas of a project.
type Engine struct {
	// Database adapter (lazy initialized)
	db          adapter.Adapter
	dbConfig    adapter.Config
	dbConnected bool
	dbMu        sync.Mutex

	logger      *slog.Logger
	store       core.Store
	environment string
	threads     int
	suite       *suite.Suite
}

// Config holds engine configuration.
type Config struct {
	// Schemas are the declared schemas of the project.
	Schemas []config.SchemaConfig
	// Target is the database the schema queries run against.
	Target *core.TargetConfig
	// StatePath is the path to the SQLite state database.
	StatePath string
	// Environment names the environment runs are recorded under.
	Environment string
	// Threads bounds how many partitions are checked at once.
	Threads int
	// Store overrides the SQLite state store opened from StatePath.
	Store core.Store
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New compiles the configured schemas and opens the state store.
// The database is only connected when a schema is first read.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	logger.Debug("initializing engine", "schemas", len(cfg.Schemas), "environment", cfg.Environment)

	store := cfg.Store
	if store == nil {
		sqlite := state.NewSQLiteStore(logger)
		if err := sqlite.Open(cfg.StatePath); err != nil {
			return nil, fmt.Errorf("failed to open state store: %w", err)
		}
		store = sqlite
	}
	if err := store.InitSchema(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize state schema: %w", err)
	}

	env := cfg.Environment
	if env == "" {
		env = config.DefaultEnv
	}
	threads := cfg.Threads
	if threads <= 0 {
		threads = config.DefaultThreads
	}

	target := cfg.Target
	if target == nil {
		target = &core.TargetConfig{Type: "duckdb", Schema: "main"}
	}

	e := &Engine{
		dbConfig:    target.AdapterConfig(),
		logger:      logger,
		store:       store,
		environment: env,
		threads:     threads,
	}

	s, err := suite.Build(cfg.Schemas, e, suite.WithLogger(logger))
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	e.suite = s
	return e, nil
}

// ReadTable runs a schema query on the target database, connecting on
// first use.
func (e *Engine) ReadTable(ctx context.Context, name, query string, args ...any) (*table.Table, error) {
	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, err
	}
	return e.db.ReadTable(ctx, name, query, args...)
}

// ensureDBConnected lazily connects to the database.
func (e *Engine) ensureDBConnected(ctx context.Context) error {
	e.dbMu.Lock()
	defer e.dbMu.Unlock()

	if e.dbConnected {
		return nil
	}

	e.logger.Debug("connecting to database", "adapter_type", e.dbConfig.Type)

	db, err := adapter.NewAdapter(e.dbConfig, e.logger)
	if err != nil {
		return fmt.Errorf("failed to create database adapter: %w", err)
	}
	if err := db.Connect(ctx, e.dbConfig); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	e.db = db
	e.dbConnected = true
	e.logger.Debug("database connected", "dialect", db.DialectName())
	return nil
}

// Close releases the database connection and the state store.
func (e *Engine) Close() error {
	e.logger.Debug("closing engine")

	var errs []error
	e.dbMu.Lock()
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	e.dbMu.Unlock()
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Suite returns the compiled schemas.
func (e *Engine) Suite() *suite.Suite {
	return e.suite
}

// Store returns the state store.
func (e *Engine) Store() core.Store {
	return e.store
}

// Environment returns the environment runs are recorded under.
func (e *Engine) Environment() string {
	return e.environment
}
