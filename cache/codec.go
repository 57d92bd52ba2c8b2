package cache

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/pgstash/pgstash/frame"
	"github.com/pgstash/pgstash/query"
)

// envelopeVersion guards against reading entries written by an
// incompatible layout.
const envelopeVersion = 1

type envelope struct {
	Version     int                `json:"version"`
	Statement   string             `json:"statement"`
	Description string             `json:"description,omitempty"`
	StartedAt   time.Time          `json:"started_at"`
	EndedAt     time.Time          `json:"ended_at"`
	Columns     []columnDescriptor `json:"columns"`
	RowNames    []string           `json:"row_names,omitempty"`
	Rows        [][]any            `json:"rows"`
	SampleRows  [][]any            `json:"sample_rows"`
}

type columnDescriptor struct {
	Name string     `json:"name"`
	Kind frame.Kind `json:"kind"`
}

// Encode serializes a bundle into the self-describing JSON container
// stored by every Store implementation. Column kinds are recorded so typed
// values survive the round trip.
func Encode(bundle query.Bundle) ([]byte, error) {
	kinds := bundle.Data.ColumnKinds()
	columns := make([]columnDescriptor, len(bundle.Data.Columns))
	for i, name := range bundle.Data.Columns {
		columns[i] = columnDescriptor{Name: name, Kind: kinds[i]}
	}

	rows, err := encodeRows(bundle.Data.Rows, kinds)
	if err != nil {
		return nil, err
	}
	sampleRows, err := encodeRows(bundle.Sample.Rows, kinds)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(envelope{
		Version:     envelopeVersion,
		Statement:   bundle.Statement,
		Description: bundle.Description,
		StartedAt:   bundle.StartedAt,
		EndedAt:     bundle.EndedAt,
		Columns:     columns,
		RowNames:    bundle.Data.RowNames,
		Rows:        rows,
		SampleRows:  sampleRows,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal bundle: %w", err)
	}
	return payload, nil
}

// Decode restores a bundle from its serialized container.
func Decode(payload []byte) (query.Bundle, error) {
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.UseNumber()

	var env envelope
	if err := decoder.Decode(&env); err != nil {
		return query.Bundle{}, fmt.Errorf("unmarshal bundle: %w", err)
	}
	if env.Version != envelopeVersion {
		return query.Bundle{}, fmt.Errorf("unsupported bundle version %d", env.Version)
	}

	columns := make([]string, len(env.Columns))
	kinds := make([]frame.Kind, len(env.Columns))
	for i, column := range env.Columns {
		columns[i] = column.Name
		kinds[i] = column.Kind
	}

	rows, err := decodeRows(env.Rows, kinds)
	if err != nil {
		return query.Bundle{}, err
	}
	sampleRows, err := decodeRows(env.SampleRows, kinds)
	if err != nil {
		return query.Bundle{}, err
	}

	return query.Bundle{
		Data:        frame.Frame{Columns: columns, Rows: rows, RowNames: env.RowNames},
		Sample:      frame.Frame{Columns: columns, Rows: sampleRows},
		Statement:   env.Statement,
		Description: env.Description,
		StartedAt:   env.StartedAt,
		EndedAt:     env.EndedAt,
	}, nil
}

func encodeRows(rows [][]any, kinds []frame.Kind) ([][]any, error) {
	encoded := make([][]any, len(rows))
	for i, row := range rows {
		encodedRow := make([]any, len(kinds))
		for j := range kinds {
			if j >= len(row) || row[j] == nil {
				encodedRow[j] = nil
				continue
			}
			value, err := encodeValue(row[j], kinds[j])
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", i, j, err)
			}
			encodedRow[j] = value
		}
		encoded[i] = encodedRow
	}
	return encoded, nil
}

func encodeValue(value any, kind frame.Kind) (any, error) {
	switch kind {
	case frame.KindTime:
		typed, ok := value.(time.Time)
		if !ok {
			return nil, fmt.Errorf("expected time.Time, got %T", value)
		}
		return typed.UTC().Format(time.RFC3339Nano), nil
	case frame.KindBytes:
		typed, ok := value.([]byte)
		if !ok {
			return nil, fmt.Errorf("expected []byte, got %T", value)
		}
		return base64.StdEncoding.EncodeToString(typed), nil
	case frame.KindString:
		if _, ok := value.(string); !ok {
			return fmt.Sprint(value), nil
		}
		return value, nil
	default:
		return value, nil
	}
}

func decodeRows(rows [][]any, kinds []frame.Kind) ([][]any, error) {
	decoded := make([][]any, len(rows))
	for i, row := range rows {
		decodedRow := make([]any, len(kinds))
		for j := range kinds {
			if j >= len(row) || row[j] == nil {
				decodedRow[j] = nil
				continue
			}
			value, err := decodeValue(row[j], kinds[j])
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", i, j, err)
			}
			decodedRow[j] = value
		}
		decoded[i] = decodedRow
	}
	return decoded, nil
}

func decodeValue(value any, kind frame.Kind) (any, error) {
	switch kind {
	case frame.KindBool:
		typed, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", value)
		}
		return typed, nil
	case frame.KindInt:
		number, ok := value.(json.Number)
		if !ok {
			return nil, fmt.Errorf("expected number, got %T", value)
		}
		typed, err := strconv.ParseInt(number.String(), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse integer %q: %w", number, err)
		}
		return typed, nil
	case frame.KindFloat:
		number, ok := value.(json.Number)
		if !ok {
			return nil, fmt.Errorf("expected number, got %T", value)
		}
		typed, err := strconv.ParseFloat(number.String(), 64)
		if err != nil {
			return nil, fmt.Errorf("parse float %q: %w", number, err)
		}
		return typed, nil
	case frame.KindTime:
		raw, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected timestamp string, got %T", value)
		}
		typed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", raw, err)
		}
		return typed, nil
	case frame.KindBytes:
		raw, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected base64 string, got %T", value)
		}
		typed, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("decode bytes: %w", err)
		}
		return typed, nil
	default:
		raw, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", value)
		}
		return raw, nil
	}
}
