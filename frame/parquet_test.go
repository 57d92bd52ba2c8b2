package frame

import (
	"bytes"
	"testing"
	"time"
)

func TestParquetRoundTrip(t *testing.T) {
	at := time.Date(2026, time.March, 4, 12, 0, 0, 0, time.UTC)
	f := Frame{
		Columns: []string{"count", "label", "seen_at"},
		Rows: [][]any{
			{int64(1), "a", at},
			{int64(2), "b", at.Add(time.Hour)},
			{nil, nil, nil},
		},
	}

	buf := bytes.NewBuffer(nil)
	if err := WriteParquet(buf, f); err != nil {
		t.Fatalf("WriteParquet() error = %v", err)
	}

	got, err := ReadParquet(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadParquet() error = %v", err)
	}
	if got.NumRows() != 3 {
		t.Fatalf("NumRows() = %d, want 3", got.NumRows())
	}

	index := columnIndex(t, got, "count")
	if got.Rows[0][index] != int64(1) || got.Rows[1][index] != int64(2) {
		t.Fatalf("count column = %v, %v", got.Rows[0][index], got.Rows[1][index])
	}
	if got.Rows[2][index] != nil {
		t.Fatalf("count null = %v", got.Rows[2][index])
	}

	index = columnIndex(t, got, "label")
	if got.Rows[0][index] != "a" {
		t.Fatalf("label = %v", got.Rows[0][index])
	}

	index = columnIndex(t, got, "seen_at")
	seen, ok := got.Rows[0][index].(time.Time)
	if !ok {
		t.Fatalf("seen_at type = %T", got.Rows[0][index])
	}
	if !seen.Equal(at) {
		t.Fatalf("seen_at = %v, want %v", seen, at)
	}
}

func TestWriteParquetRejectsEmptyFrame(t *testing.T) {
	if err := WriteParquet(bytes.NewBuffer(nil), Frame{}); err == nil {
		t.Fatal("expected error for frame without columns")
	}
}

func columnIndex(t *testing.T, f Frame, name string) int {
	t.Helper()
	for i, column := range f.Columns {
		if column == name {
			return i
		}
	}
	t.Fatalf("column %q not found in %v", name, f.Columns)
	return -1
}
