package infra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	// ledger writes are serialized in-process; extra connections only serve reads.
	maxPostgresConns   = 8
	postgresIdleTime   = 5 * time.Minute
	postgresAppName    = "ftledger"
	statementTimeoutMS = "5000"
)

// ErrNoDatabaseURL is returned when a Postgres pool is requested without a URL.
var ErrNoDatabaseURL = errors.New("database url is required")

// postgresConfig parses url and applies the ledger's pool settings. Values
// set explicitly in the URL win over the defaults, except that the pool
// never grows beyond maxPostgresConns.
func postgresConfig(url string) (*pgxpool.Config, error) {
	if url == "" {
		return nil, ErrNoDatabaseURL
	}
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConns > maxPostgresConns {
		cfg.MaxConns = maxPostgresConns
	}
	cfg.MaxConnIdleTime = postgresIdleTime

	params := cfg.ConnConfig.RuntimeParams
	if _, ok := params["application_name"]; !ok {
		params["application_name"] = postgresAppName
	}
	if _, ok := params["statement_timeout"]; !ok {
		params["statement_timeout"] = statementTimeoutMS
	}
	return cfg, nil
}

// NewPostgresPool opens a pool for the ledger store and checks connectivity.
func NewPostgresPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := postgresConfig(url)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres %s: %w", cfg.ConnConfig.Host, err)
	}
	return pool, nil
}
