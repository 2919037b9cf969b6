package database

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nimeshabuddhika/checkout-service/pkg/utils"
	"go.uber.org/zap"
)

// Config holds database connection details.
type Config struct {
	DSN      string // user:pass@host:port/db?params, without the protocol
	Database string // Optional; replaces the database named in DSN.
	MaxConns int32
	MinConns int32
}

// Querier is the subset of pgx shared by the pool and a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB wraps the order store connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// New creates a DB with a connection pool and verifies connectivity.
func New(ctx context.Context, logger *zap.Logger, cfg Config) (*DB, func(), error) {
	dsn, err := ResolveDSN(cfg.DSN, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	pool, err := newPool(ctx, logger, dsn, cfg.MaxConns, cfg.MinConns)
	if err != nil {
		return nil, nil, err
	}

	closer := func() {
		pool.Close()
		logger.Info("PostgreSQL connection pool closed")
	}
	return &DB{pool: pool}, closer, nil
}

func newPool(ctx context.Context, logger *zap.Logger, dsn string, maxConns, minConns int32) (*pgxpool.Pool, error) {
	dsn = fmt.Sprintf("postgres://%s", dsn)
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	config.MaxConns = maxConns
	config.MinConns = minConns
	config.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("postgreSQL_connection_pool_established", zap.String("dsn", maskDSN(dsn)))
	return pool, nil
}

// ResolveDSN swaps the database path of a protocol-less DSN for name. An empty name leaves dsn untouched.
func ResolveDSN(dsn, name string) (string, error) {
	if utils.IsEmpty(name) {
		return dsn, nil
	}
	u, err := url.Parse("postgres://" + dsn)
	if err != nil {
		return "", fmt.Errorf("invalid database address: %w", err)
	}
	u.Path = "/" + name
	u.RawPath = ""
	return strings.TrimPrefix(u.String(), "postgres://"), nil
}

// maskDSN hides sensitive parts like passwords.
func maskDSN(dsn string) string {
	parts := strings.Split(dsn, "@")
	if len(parts) > 1 {
		auth := strings.Split(parts[0], "://")
		if len(auth) > 1 {
			userPass := strings.Split(auth[1], ":")
			if len(userPass) > 1 {
				return auth[0] + "://*****:*****@" + parts[len(parts)-1]
			}
		}
	}
	return dsn // Fallback
}

// Exec runs a write statement on the pool.
func (db *DB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return db.pool.Exec(ctx, sql, args...)
}

// QueryRow runs a single-row query on the pool.
func (db *DB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return db.pool.QueryRow(ctx, sql, args...)
}

// Ping verifies that the store is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}
