// Package database opens the backing store and applies embedded migrations.
// PostgreSQL is the production engine; SQLite (pure Go driver) is accepted
// for development and tests via the same DATABASE_URL setting.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver for database/sql
	_ "modernc.org/sqlite"             // register sqlite driver for database/sql
)

// Dialect identifies the SQL engine behind a Client.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// Client wraps the database handle together with its dialect.
type Client struct {
	db      *sql.DB
	dialect Dialect
}

// DB returns the underlying connection pool.
func (c *Client) DB() *sql.DB {
	return c.db
}

// Dialect returns the engine the client is connected to.
func (c *Client) Dialect() Dialect {
	return c.dialect
}

// Close closes the connection pool.
func (c *Client) Close() error {
	return c.db.Close()
}

// Open connects to the database named by databaseURL, verifies the
// connection, and applies all pending migrations.
func Open(ctx context.Context, databaseURL string) (*Client, error) {
	dialect, driver, dsn, err := resolveDSN(databaseURL)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("database: open: %w", err)
	}

	switch dialect {
	case DialectPostgres:
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
		db.SetConnMaxIdleTime(5 * time.Minute)
	case DialectSQLite:
		// SQLite serializes writers; a single connection avoids SQLITE_BUSY
		// churn and keeps in-memory databases alive.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database: ping: %w", err)
	}

	if err := runMigrations(db, dialect); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database: migrate: %w", err)
	}

	return &Client{db: db, dialect: dialect}, nil
}

// resolveDSN maps a DATABASE_URL onto a registered driver. postgres:// URLs
// pass through to pgx unchanged; sqlite URLs are rewritten into the file DSN
// form the sqlite driver expects, with foreign keys and a busy timeout on.
func resolveDSN(databaseURL string) (Dialect, string, string, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return DialectPostgres, "pgx", databaseURL, nil
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return DialectSQLite, "sqlite", sqliteDSN(strings.TrimPrefix(databaseURL, "sqlite://")), nil
	case strings.HasPrefix(databaseURL, "sqlite3://"):
		return DialectSQLite, "sqlite", sqliteDSN(strings.TrimPrefix(databaseURL, "sqlite3://")), nil
	case databaseURL == "":
		return "", "", "", fmt.Errorf("database: empty DATABASE_URL")
	default:
		return "", "", "", fmt.Errorf("database: unsupported DATABASE_URL scheme (want postgres:// or sqlite://)")
	}
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return "file:" + path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}
