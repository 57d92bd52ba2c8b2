// Package cache persists query result bundles keyed by name. When no name
// is given the key is derived from a CRC32 checksum of the statement text,
// so identical queries map to the same entry across runs. The 32-bit
// checksum space means distinct statements can collide and silently alias
// one entry; callers that cannot accept that risk should pass explicit
// names.
package cache

import (
	"context"
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/pgstash/pgstash/query"
)

// FileExt is the extension of serialized bundle entries.
const FileExt = ".json"

// ErrNotFound reports a Load for an entry that does not exist.
var ErrNotFound = errors.New("cache: entry not found")

// WriteError reports a failure to persist or read an entry. Path names the
// target file, directory, or object key.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("cache write %q: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Outcome reports what a Save did. Written is false when the entry already
// existed and Force was not set; that is an expected result, not an error.
type Outcome struct {
	Path    string
	Written bool
}

// SaveOptions controls a single Save call.
type SaveOptions struct {
	// Name overrides the checksum-derived entry name.
	Name string
	// Force overwrites an existing entry.
	Force bool
}

// Store persists and retrieves bundles.
type Store interface {
	Save(ctx context.Context, bundle query.Bundle, opts SaveOptions) (Outcome, error)
	Load(ctx context.Context, name string) (query.Bundle, error)
}

// DefaultName derives the entry name from the statement text: the CRC32
// IEEE checksum rendered as eight lowercase hex digits. Byte-identical
// statements always map to the same name.
func DefaultName(statement string) string {
	return fmt.Sprintf("%08x", crc32.ChecksumIEEE([]byte(statement)))
}

// EntryName resolves the effective entry name for a bundle.
func EntryName(statement, name string) string {
	if name != "" {
		return name
	}
	return DefaultName(statement)
}
