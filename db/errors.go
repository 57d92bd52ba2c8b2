package db

import (
	"errors"
	"fmt"
)

// ErrClosed reports an operation issued on a handle after Close.
var ErrClosed = errors.New("connection is closed")

// ConnectionError reports a failure to establish or validate a session.
type ConnectionError struct {
	Host     string
	Database string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to %s/%s: %v", e.Host, e.Database, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// QueryError reports a statement execution failure. Statement carries the
// original query text so failures can be diagnosed without re-running.
type QueryError struct {
	Statement string
	Err       error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %q: %v", truncateStatement(e.Statement), e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// WriteError reports an insert or table rewrite failure.
type WriteError struct {
	Table string
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write table %q: %v", e.Table, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

func truncateStatement(statement string) string {
	const limit = 120
	if len(statement) <= limit {
		return statement
	}
	return statement[:limit] + "..."
}
