// Package db wraps a single live Postgres session behind a Conn handle.
// A Conn is opened explicitly, used synchronously by one caller, and
// released exactly once with Close. There is no pooling, no retrying, and
// no reconnection: callers that want a connection per operation use the
// query and upload packages, which manage the handle lifecycle for them.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/pgstash/pgstash/frame"
)

// Config carries the connection parameters for one session. There are no
// embedded defaults here; the config package resolves defaults from the
// environment so credentials never live in source.
type Config struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
	SSLMode  string
}

// DSN renders the config as a postgres:// URL with escaped credentials.
func (c Config) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Host, c.Port),
		Path:   "/" + c.Database,
	}
	if c.User != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.User, c.Password)
		} else {
			u.User = url.User(c.User)
		}
	}
	if c.SSLMode != "" {
		values := url.Values{}
		values.Set("sslmode", c.SSLMode)
		u.RawQuery = values.Encode()
	}
	return u.String()
}

// Conn is an open database session. It is not safe for concurrent use and
// must not be used after Close.
type Conn struct {
	db     *sql.DB
	closed bool
}

// Open establishes a session and verifies it with a bounded ping. The
// returned Conn must be released with Close on every exit path.
func Open(ctx context.Context, cfg Config) (*Conn, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, &ConnectionError{Host: cfg.Host, Database: cfg.Database, Err: fmt.Errorf("host is required")}
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return nil, &ConnectionError{Host: cfg.Host, Database: cfg.Database, Err: fmt.Errorf("port is required")}
	}
	if strings.TrimSpace(cfg.Database) == "" {
		return nil, &ConnectionError{Host: cfg.Host, Database: cfg.Database, Err: fmt.Errorf("database name is required")}
	}
	if strings.TrimSpace(cfg.User) == "" {
		return nil, &ConnectionError{Host: cfg.Host, Database: cfg.Database, Err: fmt.Errorf("user is required")}
	}

	handle, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, &ConnectionError{Host: cfg.Host, Database: cfg.Database, Err: err}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := handle.PingContext(pingCtx); err != nil {
		_ = handle.Close()
		return nil, &ConnectionError{Host: cfg.Host, Database: cfg.Database, Err: err}
	}

	return &Conn{db: handle}, nil
}

// NewConn wraps an already-open database handle. Tests use this to drive a
// Conn against a mock driver.
func NewConn(handle *sql.DB) *Conn {
	return &Conn{db: handle}
}

// Query executes a statement and materializes the full result set.
func (c *Conn) Query(ctx context.Context, statement string) (frame.Frame, error) {
	if c.closed {
		return frame.Frame{}, &QueryError{Statement: statement, Err: ErrClosed}
	}
	if strings.TrimSpace(statement) == "" {
		return frame.Frame{}, &QueryError{Statement: statement, Err: fmt.Errorf("statement is required")}
	}

	rows, err := c.db.QueryContext(ctx, statement)
	if err != nil {
		return frame.Frame{}, &QueryError{Statement: statement, Err: err}
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return frame.Frame{}, &QueryError{Statement: statement, Err: fmt.Errorf("read columns: %w", err)}
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return frame.Frame{}, &QueryError{Statement: statement, Err: fmt.Errorf("scan row: %w", err)}
		}
		resultRows = append(resultRows, values)
	}
	if err := rows.Err(); err != nil {
		return frame.Frame{}, &QueryError{Statement: statement, Err: fmt.Errorf("iterate rows: %w", err)}
	}

	return frame.Frame{Columns: columns, Rows: resultRows}, nil
}

// Close releases the session. It is safe to call more than once; only the
// first call closes the underlying handle.
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("close connection: %w", err)
	}
	return nil
}
