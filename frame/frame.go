// Package frame holds the tabular dataset type shared by the query,
// upload, and cache packages.
package frame

import "time"

// Kind classifies the values of a single column. It drives both the SQL
// type chosen when a frame is uploaded and the codec used when a frame is
// serialized.
type Kind string

const (
	KindBool   Kind = "bool"
	KindInt    Kind = "int64"
	KindFloat  Kind = "float64"
	KindString Kind = "string"
	KindTime   Kind = "time"
	KindBytes  Kind = "bytes"
)

// Frame is an ordered, rectangular result set. Rows hold one []any per row,
// positionally matching Columns. RowNames is optional; when present it must
// have one entry per row.
type Frame struct {
	Columns  []string
	Rows     [][]any
	RowNames []string
}

func (f Frame) NumRows() int {
	return len(f.Rows)
}

func (f Frame) NumCols() int {
	return len(f.Columns)
}

// Head returns a frame containing the first n rows. When n is at least the
// row count the receiver is returned unchanged; negative n yields zero rows.
func (f Frame) Head(n int) Frame {
	if n < 0 {
		n = 0
	}
	if n >= len(f.Rows) {
		return f
	}
	head := Frame{
		Columns: f.Columns,
		Rows:    f.Rows[:n],
	}
	if len(f.RowNames) >= n {
		head.RowNames = f.RowNames[:n]
	}
	return head
}

// ColumnKinds infers one Kind per column from the first value of a matching
// type. Integer columns are promoted to float when both appear; a column
// with no non-nil values, or with otherwise mixed values, falls back to
// string.
func (f Frame) ColumnKinds() []Kind {
	kinds := make([]Kind, len(f.Columns))
	seen := make([]bool, len(f.Columns))

	for _, row := range f.Rows {
		for i := range f.Columns {
			if i >= len(row) || row[i] == nil {
				continue
			}
			kind := kindOf(row[i])
			if !seen[i] {
				kinds[i] = kind
				seen[i] = true
				continue
			}
			if kinds[i] == kind {
				continue
			}
			if (kinds[i] == KindInt && kind == KindFloat) || (kinds[i] == KindFloat && kind == KindInt) {
				kinds[i] = KindFloat
				continue
			}
			kinds[i] = KindString
		}
	}

	for i := range kinds {
		if !seen[i] {
			kinds[i] = KindString
		}
	}
	return kinds
}

func kindOf(value any) Kind {
	switch value.(type) {
	case bool:
		return KindBool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return KindInt
	case float32, float64:
		return KindFloat
	case time.Time:
		return KindTime
	case []byte:
		return KindBytes
	default:
		return KindString
	}
}
