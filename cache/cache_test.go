package cache

import (
	"reflect"
	"regexp"
	"testing"
	"time"

	"github.com/pgstash/pgstash/frame"
	"github.com/pgstash/pgstash/query"
)

func TestDefaultNameIsDeterministic(t *testing.T) {
	statement := "SELECT id, name FROM widgets ORDER BY id"
	first := DefaultName(statement)
	second := DefaultName(statement)
	if first != second {
		t.Fatalf("DefaultName() = %q then %q", first, second)
	}
	if !regexp.MustCompile(`^[0-9a-f]{8}$`).MatchString(first) {
		t.Fatalf("DefaultName() = %q, want 8 hex digits", first)
	}
	if other := DefaultName(statement + " LIMIT 1"); other == first {
		t.Fatalf("distinct statements produced the same name %q", first)
	}
}

func TestEntryNamePrefersExplicitName(t *testing.T) {
	if got := EntryName("SELECT 1", "report"); got != "report" {
		t.Fatalf("EntryName() = %q, want %q", got, "report")
	}
	if got := EntryName("SELECT 1", ""); got != DefaultName("SELECT 1") {
		t.Fatalf("EntryName() = %q, want checksum name", got)
	}
}

func TestCodecRoundTrip(t *testing.T) {
	at := time.Date(2026, time.January, 15, 8, 30, 0, 0, time.UTC)
	data := frame.Frame{
		Columns: []string{"id", "ratio", "label", "active", "seen_at", "blob"},
		Rows: [][]any{
			{int64(1), 0.25, "first", true, at, []byte{0xde, 0xad}},
			{int64(2), 0.5, "second", false, at.Add(time.Minute), []byte{0xbe, 0xef}},
			{nil, nil, nil, nil, nil, nil},
		},
	}
	bundle := query.Bundle{
		Data:        data,
		Sample:      data.Head(2),
		Statement:   "SELECT * FROM samples",
		Description: "codec check",
		StartedAt:   at.Add(-time.Second),
		EndedAt:     at,
	}

	payload, err := Encode(bundle)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	got, err := Decode(payload)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if got.Statement != bundle.Statement || got.Description != bundle.Description {
		t.Fatalf("metadata = %q / %q", got.Statement, got.Description)
	}
	if !got.StartedAt.Equal(bundle.StartedAt) || !got.EndedAt.Equal(bundle.EndedAt) {
		t.Fatalf("time pair = %v / %v", got.StartedAt, got.EndedAt)
	}
	if !reflect.DeepEqual(got.Data.Columns, bundle.Data.Columns) {
		t.Fatalf("Columns = %v", got.Data.Columns)
	}
	if got.Data.NumRows() != 3 || got.Sample.NumRows() != 2 {
		t.Fatalf("rows = %d / sample = %d", got.Data.NumRows(), got.Sample.NumRows())
	}

	wantRow := []any{int64(1), 0.25, "first", true, at, []byte{0xde, 0xad}}
	for i, want := range wantRow {
		value := got.Data.Rows[0][i]
		if typed, ok := value.(time.Time); ok {
			if !typed.Equal(want.(time.Time)) {
				t.Fatalf("row[0][%d] = %v, want %v", i, typed, want)
			}
			continue
		}
		if !reflect.DeepEqual(value, want) {
			t.Fatalf("row[0][%d] = %#v, want %#v", i, value, want)
		}
	}
	for i, value := range got.Data.Rows[2] {
		if value != nil {
			t.Fatalf("row[2][%d] = %#v, want nil", i, value)
		}
	}
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	if _, err := Decode([]byte(`{"version":99}`)); err == nil {
		t.Fatal("expected error for unknown envelope version")
	}
}
