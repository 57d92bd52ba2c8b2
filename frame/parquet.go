package frame

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/parquet-go/parquet-go"
)

// WriteParquet serializes a frame to parquet for downstream columnar
// tooling. The schema is derived from ColumnKinds; every column is optional
// so nil cells round-trip as nulls. Parquet groups order fields
// lexicographically, so column order is not preserved.
func WriteParquet(w io.Writer, f Frame) error {
	if len(f.Columns) == 0 {
		return fmt.Errorf("frame has no columns")
	}

	kinds := f.ColumnKinds()
	group := parquet.Group{}
	for i, column := range f.Columns {
		group[column] = parquet.Optional(leafNode(kinds[i]))
	}
	schema := parquet.NewSchema("frame", group)

	writer := parquet.NewGenericWriter[map[string]any](w, schema)
	records := make([]map[string]any, 0, len(f.Rows))
	for _, row := range f.Rows {
		record := make(map[string]any, len(f.Columns))
		for i, column := range f.Columns {
			if i >= len(row) || row[i] == nil {
				record[column] = nil
				continue
			}
			value, err := parquetValue(row[i], kinds[i])
			if err != nil {
				return fmt.Errorf("column %q: %w", column, err)
			}
			record[column] = value
		}
		records = append(records, record)
	}

	if _, err := writer.Write(records); err != nil {
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

// ReadParquet reads a parquet payload written by WriteParquet back into a
// frame, re-materializing timestamp and byte-array columns.
func ReadParquet(r io.ReaderAt) (Frame, error) {
	reader := parquet.NewGenericReader[map[string]any](r)
	defer func() { _ = reader.Close() }()

	fields := reader.Schema().Fields()
	columns := make([]string, len(fields))
	kinds := make([]Kind, len(fields))
	for i, field := range fields {
		columns[i] = field.Name()
		kinds[i] = fieldKind(field)
	}

	rows := make([][]any, 0)
	buffer := make([]map[string]any, 128)
	for {
		count, err := reader.Read(buffer)
		for i := 0; i < count; i++ {
			row := make([]any, len(columns))
			for j, column := range columns {
				row[j] = decodeParquetValue(buffer[i][column], kinds[j])
			}
			rows = append(rows, row)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Frame{}, fmt.Errorf("read parquet rows: %w", err)
		}
	}

	return Frame{Columns: columns, Rows: rows}, nil
}

func leafNode(kind Kind) parquet.Node {
	switch kind {
	case KindBool:
		return parquet.Leaf(parquet.BooleanType)
	case KindInt:
		return parquet.Int(64)
	case KindFloat:
		return parquet.Leaf(parquet.DoubleType)
	case KindTime:
		return parquet.Timestamp(parquet.Millisecond)
	case KindBytes:
		return parquet.Leaf(parquet.ByteArrayType)
	default:
		return parquet.String()
	}
}

func parquetValue(value any, kind Kind) (any, error) {
	switch kind {
	case KindBool:
		typed, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", value)
		}
		return typed, nil
	case KindInt:
		typed, err := toInt64(value)
		if err != nil {
			return nil, err
		}
		return typed, nil
	case KindFloat:
		typed, err := toFloat64(value)
		if err != nil {
			return nil, err
		}
		return typed, nil
	case KindTime:
		typed, ok := value.(time.Time)
		if !ok {
			return nil, fmt.Errorf("expected time.Time, got %T", value)
		}
		return typed.UTC().UnixMilli(), nil
	case KindBytes:
		typed, ok := value.([]byte)
		if !ok {
			return nil, fmt.Errorf("expected []byte, got %T", value)
		}
		return typed, nil
	default:
		return fmt.Sprint(value), nil
	}
}

func decodeParquetValue(value any, kind Kind) any {
	if value == nil {
		return nil
	}
	switch kind {
	case KindTime:
		if millis, ok := value.(int64); ok {
			return time.UnixMilli(millis).UTC()
		}
	case KindString:
		if raw, ok := value.([]byte); ok {
			return string(raw)
		}
	}
	return value
}

func fieldKind(field parquet.Field) Kind {
	logical := field.Type().LogicalType()
	if logical != nil {
		if logical.Timestamp != nil {
			return KindTime
		}
		if logical.UTF8 != nil {
			return KindString
		}
	}
	switch field.Type().Kind() {
	case parquet.Boolean:
		return KindBool
	case parquet.Int32, parquet.Int64:
		return KindInt
	case parquet.Float, parquet.Double:
		return KindFloat
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return KindBytes
	default:
		return KindString
	}
}

func toInt64(value any) (int64, error) {
	switch typed := value.(type) {
	case int:
		return int64(typed), nil
	case int8:
		return int64(typed), nil
	case int16:
		return int64(typed), nil
	case int32:
		return int64(typed), nil
	case int64:
		return typed, nil
	case uint:
		return int64(typed), nil
	case uint8:
		return int64(typed), nil
	case uint16:
		return int64(typed), nil
	case uint32:
		return int64(typed), nil
	case uint64:
		return int64(typed), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", value)
	}
}

func toFloat64(value any) (float64, error) {
	switch typed := value.(type) {
	case float32:
		return float64(typed), nil
	case float64:
		return typed, nil
	default:
		if i, err := toInt64(value); err == nil {
			return float64(i), nil
		}
		return 0, fmt.Errorf("expected float, got %T", value)
	}
}
