package db

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/pgstash/pgstash/frame"
)

func TestInsertAppendsCreatingTableIfAbsent(t *testing.T) {
	handle, mock := newSQLMock(t)
	conn := NewConn(handle)

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "events" ("id" bigint, "name" text)`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "events" ("id", "name") VALUES ($1, $2), ($3, $4)`)).
		WithArgs(int64(1), "a", int64(2), "b").
		WillReturnResult(sqlmock.NewResult(0, 2))

	fr := frame.Frame{
		Columns: []string{"id", "name"},
		Rows:    [][]any{{int64(1), "a"}, {int64(2), "b"}},
	}
	if err := conn.Insert(context.Background(), fr, "events", InsertOptions{}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	assertSQLMock(t, mock)
}

func TestInsertReplaceDropsAndRecreates(t *testing.T) {
	handle, mock := newSQLMock(t)
	conn := NewConn(handle)

	mock.ExpectExec(regexp.QuoteMeta(`DROP TABLE IF EXISTS "events"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE "events" ("id" bigint)`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "events" ("id") VALUES ($1)`)).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	fr := frame.Frame{Columns: []string{"id"}, Rows: [][]any{{int64(7)}}}
	if err := conn.Insert(context.Background(), fr, "events", InsertOptions{Replace: true}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	assertSQLMock(t, mock)
}

func TestInsertPreservesRowNames(t *testing.T) {
	handle, mock := newSQLMock(t)
	conn := NewConn(handle)

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "events" ("row_names" text, "id" bigint)`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "events" ("row_names", "id") VALUES ($1, $2), ($3, $4)`)).
		WithArgs("r1", int64(1), "r2", int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	fr := frame.Frame{
		Columns:  []string{"id"},
		Rows:     [][]any{{int64(1)}, {int64(2)}},
		RowNames: []string{"r1", "r2"},
	}
	if err := conn.Insert(context.Background(), fr, "events", InsertOptions{PreserveRowNames: true}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	assertSQLMock(t, mock)
}

func TestInsertRowNamesCountMismatch(t *testing.T) {
	handle, _ := newSQLMock(t)
	conn := NewConn(handle)

	fr := frame.Frame{
		Columns:  []string{"id"},
		Rows:     [][]any{{int64(1)}, {int64(2)}},
		RowNames: []string{"only-one"},
	}
	err := conn.Insert(context.Background(), fr, "events", InsertOptions{PreserveRowNames: true})
	var writeErr *WriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("Insert() error = %v, want *WriteError", err)
	}
}

func TestInsertEmptyFrameCreatesTableOnly(t *testing.T) {
	handle, mock := newSQLMock(t)
	conn := NewConn(handle)

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "events" ("id" text)`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	fr := frame.Frame{Columns: []string{"id"}}
	if err := conn.Insert(context.Background(), fr, "events", InsertOptions{}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	assertSQLMock(t, mock)
}

func TestInsertFailureReturnsWriteError(t *testing.T) {
	handle, mock := newSQLMock(t)
	conn := NewConn(handle)

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "events" ("id" bigint)`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "events" ("id") VALUES ($1)`)).
		WithArgs(int64(1)).
		WillReturnError(errors.New("permission denied"))

	fr := frame.Frame{Columns: []string{"id"}, Rows: [][]any{{int64(1)}}}
	err := conn.Insert(context.Background(), fr, "events", InsertOptions{})
	var writeErr *WriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("Insert() error = %v, want *WriteError", err)
	}
	if writeErr.Table != "events" {
		t.Fatalf("Table = %q", writeErr.Table)
	}
	assertSQLMock(t, mock)
}

func TestInsertAfterCloseFails(t *testing.T) {
	handle, mock := newSQLMock(t)
	conn := NewConn(handle)
	mock.ExpectClose()

	if err := conn.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	fr := frame.Frame{Columns: []string{"id"}, Rows: [][]any{{int64(1)}}}
	if err := conn.Insert(context.Background(), fr, "events", InsertOptions{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Insert() after close error = %v, want ErrClosed", err)
	}
	assertSQLMock(t, mock)
}
