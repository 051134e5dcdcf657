// Package config loads runtime configuration from the environment and builds
// the database connections the stores run on.
package config

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
)

// PostgresConfig holds the connection settings for the event store and the
// loans view, parsed from LOANLEDGER_* environment variables.
type PostgresConfig struct {
	Host     string `env:"LOANLEDGER_DB_HOST" envDefault:"localhost"`
	Port     int    `env:"LOANLEDGER_DB_PORT" envDefault:"5432"`
	User     string `env:"LOANLEDGER_DB_USER" envDefault:"loanledger"`
	Password string `env:"LOANLEDGER_DB_PASSWORD" envDefault:"loanledger"`
	Database string `env:"LOANLEDGER_DB_NAME" envDefault:"loanledger"`
	SSLMode  string `env:"LOANLEDGER_DB_SSLMODE" envDefault:"disable"`

	MaxConnections  int32         `env:"LOANLEDGER_DB_MAX_CONNECTIONS" envDefault:"8"`
	MinConnections  int32         `env:"LOANLEDGER_DB_MIN_CONNECTIONS" envDefault:"2"`
	MaxConnLifetime time.Duration `env:"LOANLEDGER_DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	MaxConnIdleTime time.Duration `env:"LOANLEDGER_DB_MAX_CONN_IDLE_TIME" envDefault:"5m"`
	ConnectTimeout  time.Duration `env:"LOANLEDGER_DB_CONNECT_TIMEOUT" envDefault:"5s"`
}

// LoadPostgresConfig parses the configuration from the environment.
func LoadPostgresConfig() (PostgresConfig, error) {
	var cfg PostgresConfig
	if err := env.Parse(&cfg); err != nil {
		return PostgresConfig{}, fmt.Errorf("parsing postgres config from environment: %w", err)
	}

	return cfg, nil
}

// DSN renders the config as a postgres connection URL.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.User), url.QueryEscape(c.Password),
		c.Host, c.Port, c.Database, c.SSLMode)
}

// PGXPool creates a configured pgx connection pool, the production connection
// for the event store engine.
func (c PostgresConfig) PGXPool(ctx context.Context) (*pgxpool.Pool, error) {
	poolConfig, parseErr := pgxpool.ParseConfig(c.DSN())
	if parseErr != nil {
		return nil, fmt.Errorf("parsing pgx pool config: %w", parseErr)
	}

	poolConfig.MaxConns = c.MaxConnections
	poolConfig.MinConns = c.MinConnections
	poolConfig.MaxConnLifetime = c.MaxConnLifetime
	poolConfig.MaxConnIdleTime = c.MaxConnIdleTime
	poolConfig.ConnConfig.ConnectTimeout = c.ConnectTimeout

	pool, connectErr := pgxpool.NewWithConfig(ctx, poolConfig)
	if connectErr != nil {
		return nil, fmt.Errorf("connecting pgx pool: %w", connectErr)
	}

	if pingErr := pool.Ping(ctx); pingErr != nil {
		pool.Close()

		return nil, fmt.Errorf("pinging database: %w", pingErr)
	}

	return pool, nil
}

// SQLDB creates a configured database/sql connection via lib/pq, for callers
// that want the standard library surface.
func (c PostgresConfig) SQLDB(ctx context.Context) (*sql.DB, error) {
	db, openErr := sql.Open("postgres", c.DSN())
	if openErr != nil {
		return nil, fmt.Errorf("opening sql connection: %w", openErr)
	}

	db.SetMaxOpenConns(int(c.MaxConnections))
	db.SetMaxIdleConns(int(c.MinConnections))
	db.SetConnMaxLifetime(c.MaxConnLifetime)
	db.SetConnMaxIdleTime(c.MaxConnIdleTime)

	if pingErr := db.PingContext(ctx); pingErr != nil {
		_ = db.Close()

		return nil, fmt.Errorf("pinging database: %w", pingErr)
	}

	return db, nil
}

// SQLX creates a configured sqlx connection, used by the view store.
func (c PostgresConfig) SQLX(ctx context.Context) (*sqlx.DB, error) {
	db, openErr := sqlx.Open("postgres", c.DSN())
	if openErr != nil {
		return nil, fmt.Errorf("opening sqlx connection: %w", openErr)
	}

	db.SetMaxOpenConns(int(c.MaxConnections))
	db.SetMaxIdleConns(int(c.MinConnections))
	db.SetConnMaxLifetime(c.MaxConnLifetime)
	db.SetConnMaxIdleTime(c.MaxConnIdleTime)

	if pingErr := db.PingContext(ctx); pingErr != nil {
		_ = db.Close()

		return nil, fmt.Errorf("pinging database: %w", pingErr)
	}

	return db, nil
}
