// Package datasource opens database handles for the supported dialects and
// registers their database/sql drivers.
package datasource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver "mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver "pgx"
	_ "github.com/lib/pq"              // PostgreSQL driver "postgres"
	_ "github.com/mattn/go-sqlite3"    // SQLite driver "sqlite3"
	_ "modernc.org/sqlite"             // pure Go SQLite driver "sqlite"

	"github.com/conduit-lang/daokit/internal/orm/codegen"
)

// ErrUnsupportedDriver is returned when a driver does not speak the dialect
var ErrUnsupportedDriver = errors.New("driver does not support dialect")

// Config describes a database handle
type Config struct {
	Dialect         codegen.Dialect
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DriverName returns the configured driver, or the dialect's default
func (c Config) DriverName() (string, error) {
	if c.Driver == "" {
		if driver := c.Dialect.DefaultDriver(); driver != "" {
			return driver, nil
		}
		return "", fmt.Errorf("unknown dialect: %q", c.Dialect)
	}
	if !c.Dialect.SupportsDriver(c.Driver) {
		return "", fmt.Errorf("%w: %s with %s", ErrUnsupportedDriver, c.Driver, c.Dialect)
	}
	return c.Driver, nil
}

// Open opens and pings a handle. Pool limits of zero keep the database/sql defaults.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	driver, err := cfg.DriverName()
	if err != nil {
		return nil, err
	}
	if cfg.DSN == "" {
		return nil, errors.New("empty data source name")
	}

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", driver, err)
	}
	return db, nil
}
