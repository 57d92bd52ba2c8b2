// Package fs stores cache entries as files in a single directory. The
// directory must already exist; it is never created on demand.
package fs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pgstash/pgstash/cache"
	"github.com/pgstash/pgstash/observability"
	"github.com/pgstash/pgstash/query"
)

type Store struct {
	dir    string
	logger *slog.Logger
}

// New builds a store rooted at dir. The directory is validated lazily on
// Save so a store can be constructed before the directory exists.
func New(dir string, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("cache directory is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Save persists the bundle under <dir>/<name>.json. An existing entry is
// left untouched unless opts.Force is set; that skip is reported through
// the outcome, not as an error. A missing directory fails the save.
func (s *Store) Save(_ context.Context, bundle query.Bundle, opts cache.SaveOptions) (cache.Outcome, error) {
	name := cache.EntryName(bundle.Statement, opts.Name)
	path := filepath.Join(s.dir, name+cache.FileExt)

	info, err := os.Stat(s.dir)
	if err != nil {
		return cache.Outcome{}, &cache.WriteError{Path: s.dir, Err: err}
	}
	if !info.IsDir() {
		return cache.Outcome{}, &cache.WriteError{Path: s.dir, Err: fmt.Errorf("not a directory")}
	}

	if _, err := os.Stat(path); err == nil {
		if !opts.Force {
			s.logger.Info("cache entry already exists, skipping write", "name", name, "path", path)
			observability.ObserveCacheSave(false)
			return cache.Outcome{Path: path, Written: false}, nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return cache.Outcome{}, &cache.WriteError{Path: path, Err: err}
	}

	payload, err := cache.Encode(bundle)
	if err != nil {
		return cache.Outcome{}, &cache.WriteError{Path: path, Err: err}
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return cache.Outcome{}, &cache.WriteError{Path: path, Err: err}
	}

	s.logger.Info("cache entry written", "name", name, "path", path, "rows", bundle.Data.NumRows())
	observability.ObserveCacheSave(true)
	return cache.Outcome{Path: path, Written: true}, nil
}

// Load reads a previously saved bundle by entry name.
func (s *Store) Load(_ context.Context, name string) (query.Bundle, error) {
	path := filepath.Join(s.dir, name+cache.FileExt)
	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return query.Bundle{}, cache.ErrNotFound
		}
		return query.Bundle{}, &cache.WriteError{Path: path, Err: err}
	}
	bundle, err := cache.Decode(payload)
	if err != nil {
		return query.Bundle{}, &cache.WriteError{Path: path, Err: err}
	}
	return bundle, nil
}
