// Package query runs a single statement and captures its result as a
// Bundle: the full data, a bounded sample, the original statement text, and
// the execution time bounds.
package query

import (
	"context"
	"time"

	"github.com/pgstash/pgstash/db"
	"github.com/pgstash/pgstash/frame"
	"github.com/pgstash/pgstash/observability"
)

// DefaultSampleSize bounds the sample when Options.SampleSize is unset.
const DefaultSampleSize = 5

// openConn is swapped out by tests to observe the self-opened handle.
var openConn = db.Open

// Bundle is the immutable result of one query execution. EndedAt is never
// before StartedAt.
type Bundle struct {
	Data        frame.Frame
	Sample      frame.Frame
	Statement   string
	Description string
	StartedAt   time.Time
	EndedAt     time.Time
}

// Options configures a single Run call.
type Options struct {
	// Description is free-text metadata carried into the bundle.
	Description string
	// SampleSize bounds the bundle's sample; values <= 0 fall back to
	// DefaultSampleSize. A sample size at or above the row count yields a
	// sample identical to the data.
	SampleSize int
	// Conn, when set, is a caller-owned handle. Run never closes it; the
	// caller keeps full ownership of its lifecycle.
	Conn *db.Conn
	// Config is used to open a connection when Conn is nil. That
	// self-opened connection is closed before Run returns, on success and
	// on error alike.
	Config db.Config
}

// Run executes the statement and returns its bundle. A connection failure
// surfaces as *db.ConnectionError with no query attempted; an execution
// failure surfaces as *db.QueryError.
func Run(ctx context.Context, statement string, opts Options) (Bundle, error) {
	startedAt := time.Now()

	conn := opts.Conn
	if conn == nil {
		opened, err := openConn(ctx, opts.Config)
		if err != nil {
			observability.ObserveQuery(0, time.Since(startedAt), err)
			return Bundle{}, err
		}
		conn = opened
		defer func() { _ = opened.Close() }()
	}

	data, err := conn.Query(ctx, statement)
	if err != nil {
		observability.ObserveQuery(0, time.Since(startedAt), err)
		return Bundle{}, err
	}
	endedAt := time.Now()

	sampleSize := opts.SampleSize
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}

	observability.ObserveQuery(data.NumRows(), endedAt.Sub(startedAt), nil)
	return Bundle{
		Data:        data,
		Sample:      data.Head(sampleSize),
		Statement:   statement,
		Description: opts.Description,
		StartedAt:   startedAt,
		EndedAt:     endedAt,
	}, nil
}
