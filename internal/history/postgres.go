package history

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresConfig controls the connection pool for the run-history table.
type PostgresConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// PostgresProvider writes run rows into Postgres.
//
// Expected table schema:
//
//	CREATE TABLE runs (
//	    job_id     TEXT,
//	    source_id  TEXT NOT NULL,
//	    strategy   TEXT NOT NULL,
//	    outcome    TEXT NOT NULL,
//	    started_at TIMESTAMPTZ NOT NULL,
//	    created_at TIMESTAMPTZ DEFAULT NOW()
//	);
type PostgresProvider struct {
	pool  execCloser
	table string
}

// NewPostgresProvider connects a pool using the provided config.
func NewPostgresProvider(ctx context.Context, cfg PostgresConfig) (*PostgresProvider, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "runs"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	return &PostgresProvider{pool: pool, table: table}, nil
}

// NewPostgresProviderWithPool constructs a provider from an existing pool
// (primarily for testing).
func NewPostgresProviderWithPool(pool execCloser, table string) (*PostgresProvider, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "runs"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostgresProvider{pool: pool, table: table}, nil
}

// RecordRun inserts one run row.
func (p *PostgresProvider) RecordRun(ctx context.Context, run Run) error {
	if run.SourceID == "" {
		return fmt.Errorf("source id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (job_id, source_id, strategy, outcome, started_at)
VALUES ($1, $2, $3, $4, $5)`, p.table)

	if _, err := p.pool.Exec(ctx, query,
		run.JobID,
		run.SourceID,
		run.Strategy,
		run.Outcome,
		run.StartedAt,
	); err != nil {
		return fmt.Errorf("insert run row: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (p *PostgresProvider) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}
