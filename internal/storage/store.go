// Package storage publishes the archive to a remote key-value object store
// and reads it back for runs and the dashboard.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"ds-job-scraper/internal/config"
)

// ErrNotFound is returned by Get when the key does not exist
var ErrNotFound = errors.New("object not found")

// ObjectStore is the minimal surface the runner and dashboard need
type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Close() error
}

// New builds the configured backend, or returns nil when none is configured
func New(ctx context.Context, cfg config.StorageConfig) (ObjectStore, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case "s3":
		s, err := NewS3Store(ctx, cfg.Bucket)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "redis":
		s, err := NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// Keys lays out the objects under a prefix
type Keys struct {
	Prefix string
}

func (k Keys) join(name string) string {
	prefix := strings.Trim(k.Prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// Latest always holds the most recent archive
func (k Keys) Latest() string {
	return k.join("latest.csv")
}

// Snapshot is the per-run copy, named by upload time
func (k Keys) Snapshot(ts string) string {
	return k.join("jobs_" + ts + ".csv")
}

func (k Keys) Status() string {
	return k.join("status.json")
}
