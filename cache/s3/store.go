// Package s3 stores cache entries as objects in an S3-compatible bucket,
// mirroring the filesystem store's save semantics. The bucket must already
// exist; it is never created.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/pgstash/pgstash/cache"
	"github.com/pgstash/pgstash/observability"
	"github.com/pgstash/pgstash/query"
)

type Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Prefix          string
}

type client interface {
	Put(ctx context.Context, bucket, key string, payload []byte) error
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Exists(ctx context.Context, bucket, key string) (bool, error)
	BucketExists(ctx context.Context, bucket string) (bool, error)
}

type Store struct {
	client client
	bucket string
	prefix string
	logger *slog.Logger
}

// New connects to the endpoint and verifies the bucket exists.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	mc, err := newMinioClient(cfg)
	if err != nil {
		return nil, err
	}
	return newStore(ctx, strings.TrimSpace(cfg.Bucket), cfg.Prefix, mc, logger)
}

// NewWithClient wires a custom client implementation. Tests use this to
// avoid a live endpoint.
func NewWithClient(ctx context.Context, bucket, prefix string, c client, logger *slog.Logger) (*Store, error) {
	if c == nil {
		return nil, fmt.Errorf("client is required")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	return newStore(ctx, strings.TrimSpace(bucket), prefix, c, logger)
}

func newStore(ctx context.Context, bucket, prefix string, c client, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	exists, err := c.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", bucket, err)
	}
	if !exists {
		return nil, &cache.WriteError{Path: bucket, Err: fmt.Errorf("bucket does not exist")}
	}
	return &Store{client: c, bucket: bucket, prefix: cleanPrefix(prefix), logger: logger}, nil
}

// Save persists the bundle under <prefix>/<name>.json, skipping the write
// when the object already exists and Force is unset.
func (s *Store) Save(ctx context.Context, bundle query.Bundle, opts cache.SaveOptions) (cache.Outcome, error) {
	name := cache.EntryName(bundle.Statement, opts.Name)
	key := s.objectKey(name)

	exists, err := s.client.Exists(ctx, s.bucket, key)
	if err != nil {
		return cache.Outcome{}, &cache.WriteError{Path: key, Err: err}
	}
	if exists && !opts.Force {
		s.logger.Info("cache entry already exists, skipping write", "name", name, "bucket", s.bucket, "key", key)
		observability.ObserveCacheSave(false)
		return cache.Outcome{Path: key, Written: false}, nil
	}

	payload, err := cache.Encode(bundle)
	if err != nil {
		return cache.Outcome{}, &cache.WriteError{Path: key, Err: err}
	}
	if err := s.client.Put(ctx, s.bucket, key, payload); err != nil {
		return cache.Outcome{}, &cache.WriteError{Path: key, Err: err}
	}

	s.logger.Info("cache entry written", "name", name, "bucket", s.bucket, "key", key, "rows", bundle.Data.NumRows())
	observability.ObserveCacheSave(true)
	return cache.Outcome{Path: key, Written: true}, nil
}

// Load reads a previously saved bundle by entry name.
func (s *Store) Load(ctx context.Context, name string) (query.Bundle, error) {
	key := s.objectKey(name)
	payload, err := s.client.Get(ctx, s.bucket, key)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return query.Bundle{}, cache.ErrNotFound
		}
		return query.Bundle{}, &cache.WriteError{Path: key, Err: err}
	}
	bundle, err := cache.Decode(payload)
	if err != nil {
		return query.Bundle{}, &cache.WriteError{Path: key, Err: err}
	}
	return bundle, nil
}

func (s *Store) objectKey(name string) string {
	if s.prefix == "" {
		return name + cache.FileExt
	}
	return path.Join(s.prefix, name+cache.FileExt)
}

func cleanPrefix(prefix string) string {
	prefix = strings.TrimSpace(strings.TrimPrefix(prefix, "/"))
	if prefix == "" {
		return ""
	}
	prefix = path.Clean(prefix)
	if prefix == "." {
		return ""
	}
	return prefix
}

func newMinioClient(cfg Config) (*minioClient, error) {
	endpoint, secure, err := parseEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}
	impl, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
		Region: strings.TrimSpace(cfg.Region),
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return &minioClient{client: impl}, nil
}

func parseEndpoint(raw string, useSSL bool) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("endpoint is required")
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		parsed, err := url.Parse(raw)
		if err != nil {
			return "", false, fmt.Errorf("parse endpoint URL: %w", err)
		}
		if parsed.Host == "" {
			return "", false, fmt.Errorf("endpoint host is required")
		}
		if parsed.Scheme == "https" {
			return parsed.Host, true, nil
		}
		return parsed.Host, useSSL, nil
	}
	return raw, useSSL, nil
}

type minioClient struct {
	client *minio.Client
}

func (m *minioClient) Put(ctx context.Context, bucket, key string, payload []byte) error {
	_, err := m.client.PutObject(ctx, bucket, key, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{ContentType: "application/json"})
	return mapMinioErr(err)
}

func (m *minioClient) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapMinioErr(err)
	}
	defer func() { _ = obj.Close() }()
	payload, err := io.ReadAll(obj)
	if err != nil {
		return nil, mapMinioErr(err)
	}
	return payload, nil
}

func (m *minioClient) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := m.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if errors.Is(mapMinioErr(err), cache.ErrNotFound) {
			return false, nil
		}
		return false, mapMinioErr(err)
	}
	return true, nil
}

func (m *minioClient) BucketExists(ctx context.Context, bucket string) (bool, error) {
	exists, err := m.client.BucketExists(ctx, bucket)
	if err != nil {
		return false, mapMinioErr(err)
	}
	return exists, nil
}

func mapMinioErr(err error) error {
	if err == nil {
		return nil
	}
	var response minio.ErrorResponse
	if errors.As(err, &response) {
		switch response.Code {
		case "NoSuchKey", "NoSuchBucket", "NotFound":
			return cache.ErrNotFound
		}
	}
	return err
}
