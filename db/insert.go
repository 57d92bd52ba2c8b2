package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/pgstash/pgstash/frame"
)

// Rows inserted per statement. Keeps the placeholder count well under the
// Postgres limit of 65535 parameters.
const insertBatchRows = 100

// InsertOptions controls how a frame is written to a table.
type InsertOptions struct {
	// Replace drops and recreates the table before loading. The zero value
	// appends to the existing table, creating it if absent.
	Replace bool
	// PreserveRowNames stores Frame.RowNames in a leading row_names column.
	// When false, row identifiers are dropped before insertion.
	PreserveRowNames bool
}

// Insert writes a frame to the named table. Column types are inferred from
// the frame's values when the table has to be created.
func (c *Conn) Insert(ctx context.Context, fr frame.Frame, table string, opts InsertOptions) error {
	if c.closed {
		return &WriteError{Table: table, Err: ErrClosed}
	}
	if strings.TrimSpace(table) == "" {
		return &WriteError{Table: table, Err: fmt.Errorf("table name is required")}
	}
	if fr.NumCols() == 0 {
		return &WriteError{Table: table, Err: fmt.Errorf("frame has no columns")}
	}
	if opts.PreserveRowNames && len(fr.RowNames) != fr.NumRows() {
		return &WriteError{Table: table, Err: fmt.Errorf("row names count %d does not match row count %d", len(fr.RowNames), fr.NumRows())}
	}

	columns := make([]string, 0, fr.NumCols()+1)
	definitions := make([]string, 0, fr.NumCols()+1)
	if opts.PreserveRowNames {
		columns = append(columns, "row_names")
		definitions = append(definitions, quoteIdent("row_names")+" text")
	}
	kinds := fr.ColumnKinds()
	for i, column := range fr.Columns {
		columns = append(columns, column)
		definitions = append(definitions, quoteIdent(column)+" "+sqlType(kinds[i]))
	}

	if opts.Replace {
		if _, err := c.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(table)); err != nil {
			return &WriteError{Table: table, Err: fmt.Errorf("drop existing table: %w", err)}
		}
		if _, err := c.db.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(definitions, ", "))); err != nil {
			return &WriteError{Table: table, Err: fmt.Errorf("create table: %w", err)}
		}
	} else {
		if _, err := c.db.ExecContext(ctx, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(table), strings.Join(definitions, ", "))); err != nil {
			return &WriteError{Table: table, Err: fmt.Errorf("create table: %w", err)}
		}
	}

	for start := 0; start < fr.NumRows(); start += insertBatchRows {
		end := start + insertBatchRows
		if end > fr.NumRows() {
			end = fr.NumRows()
		}
		if err := c.insertBatch(ctx, table, columns, fr, opts.PreserveRowNames, start, end); err != nil {
			return err
		}
	}
	return nil
}

func (c *Conn) insertBatch(ctx context.Context, table string, columns []string, fr frame.Frame, withRowNames bool, start, end int) error {
	quoted := make([]string, len(columns))
	for i, column := range columns {
		quoted[i] = quoteIdent(column)
	}

	placeholders := make([]string, 0, end-start)
	args := make([]any, 0, (end-start)*len(columns))
	next := 1
	for rowIndex := start; rowIndex < end; rowIndex++ {
		slots := make([]string, 0, len(columns))
		if withRowNames {
			slots = append(slots, fmt.Sprintf("$%d", next))
			args = append(args, fr.RowNames[rowIndex])
			next++
		}
		row := fr.Rows[rowIndex]
		for colIndex := range fr.Columns {
			slots = append(slots, fmt.Sprintf("$%d", next))
			if colIndex < len(row) {
				args = append(args, row[colIndex])
			} else {
				args = append(args, nil)
			}
			next++
		}
		placeholders = append(placeholders, "("+strings.Join(slots, ", ")+")")
	}

	statement := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES %s",
		quoteIdent(table),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "),
	)
	if _, err := c.db.ExecContext(ctx, statement, args...); err != nil {
		return &WriteError{Table: table, Err: fmt.Errorf("insert rows %d-%d: %w", start, end-1, err)}
	}
	return nil
}

func sqlType(kind frame.Kind) string {
	switch kind {
	case frame.KindBool:
		return "boolean"
	case frame.KindInt:
		return "bigint"
	case frame.KindFloat:
		return "double precision"
	case frame.KindTime:
		return "timestamptz"
	case frame.KindBytes:
		return "bytea"
	default:
		return "text"
	}
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}
