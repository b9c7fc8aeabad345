package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vango-dev/stan/internal/codec"
	"github.com/vango-dev/stan/internal/config"
	"github.com/vango-dev/stan/pkg/stan"
	"github.com/vango-dev/stan/pkg/sync/filesync"
	"github.com/vango-dev/stan/pkg/sync/s3sync"
	"github.com/vango-dev/stan/pkg/sync/sqlsync"
)

// backend is a key-value field source. filesync.Dir, sqlsync.DB and
// s3sync.Bucket implement it.
type backend interface {
	Keys(ctx context.Context) ([]string, error)
	Read(ctx context.Context, key string, like any) (any, error)
	Write(ctx context.Context, key string, v any) error
	Delete(ctx context.Context, key string) error
	Field(initial any) stan.Synchronizer
	Close() error
}

var (
	_ backend = (*filesync.Dir)(nil)
	_ backend = (*sqlsync.DB)(nil)
	_ backend = (*s3sync.Bucket)(nil)
)

// openBackend opens the backend selected by cfg.
func openBackend(cfg *config.Config, logger *slog.Logger) (backend, error) {
	switch cfg.Backend {
	case config.BackendFile:
		format, err := codec.ParseFormat(cfg.File.Format)
		if err != nil {
			return nil, err
		}
		return filesync.Open(cfg.FileDir(), filesync.WithFormat(format), filesync.WithLogger(logger))

	case config.BackendSQLite:
		path := cfg.SQLitePath()
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
		}
		return sqlsync.Open(path, sqlsync.WithLogger(logger))

	case config.BackendS3:
		format, err := codec.ParseFormat(cfg.S3.Format)
		if err != nil {
			return nil, err
		}
		return s3sync.New(newS3Client(cfg.S3), cfg.S3.Bucket,
			s3sync.WithPrefix(cfg.S3.Prefix),
			s3sync.WithFormat(format),
			s3sync.WithLogger(logger),
		), nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

func newS3Client(cfg config.S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  s3sync.EnvCredentials(),
		UsePathStyle: cfg.PathStyle,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}
