// Package upload writes a frame to a named table, managing the connection
// lifecycle the same way the query package does: caller-supplied handles
// stay open, self-opened handles are always released.
package upload

import (
	"context"

	"github.com/pgstash/pgstash/db"
	"github.com/pgstash/pgstash/frame"
	"github.com/pgstash/pgstash/observability"
)

// openConn is swapped out by tests to observe the self-opened handle.
var openConn = db.Open

// Options configures a single Run call.
type Options struct {
	// Conn, when set, is a caller-owned handle that Run never closes.
	Conn *db.Conn
	// Config is used to open a connection when Conn is nil; that connection
	// is closed before Run returns on every path.
	Config db.Config
	// Replace drops and recreates the table instead of appending.
	Replace bool
	// PreserveRowNames keeps the frame's row identifiers in a leading
	// row_names column.
	PreserveRowNames bool
}

// Run uploads the frame into the named table. Failures surface as
// *db.ConnectionError or *db.WriteError.
func Run(ctx context.Context, fr frame.Frame, table string, opts Options) error {
	conn := opts.Conn
	if conn == nil {
		opened, err := openConn(ctx, opts.Config)
		if err != nil {
			observability.ObserveUpload(0, err)
			return err
		}
		conn = opened
		defer func() { _ = opened.Close() }()
	}

	err := conn.Insert(ctx, fr, table, db.InsertOptions{
		Replace:          opts.Replace,
		PreserveRowNames: opts.PreserveRowNames,
	})
	observability.ObserveUpload(fr.NumRows(), err)
	return err
}
