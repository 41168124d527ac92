// Package natskv implements the storage.KV contract on top of NATS JetStream
// key/value buckets, giving the engine durable persistence with the same
// interface the in-memory store provides.
package natskv

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/insight/errors"
	"github.com/c360/insight/pkg/retry"
	"github.com/c360/insight/storage"
)

// Config configures the JetStream KV bucket backing the store.
type Config struct {
	// Bucket is the JetStream KV bucket name. Required.
	Bucket string `json:"bucket" yaml:"bucket"`

	// Description is attached to the bucket on creation.
	Description string `json:"description" yaml:"description"`

	// Replicas is the JetStream replication factor (defaults to 1).
	Replicas int `json:"replicas" yaml:"replicas"`

	// Timeout bounds each KV operation (defaults to 5s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.Bucket == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "natskv", "Validate",
			"bucket name is required")
	}
	if c.Timeout < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "natskv", "Validate",
			fmt.Sprintf("timeout cannot be negative, got %v", c.Timeout))
	}
	return nil
}

// Store is a storage.KV backed by a JetStream KV bucket. Transient bucket
// errors are retried with exponential backoff before being surfaced.
type Store struct {
	bucket   jetstream.KeyValue
	timeout  time.Duration
	retryCfg retry.Config
	logger   *slog.Logger
}

// New connects to JetStream over the given NATS connection and creates or
// binds the configured bucket.
func New(ctx context.Context, nc *nats.Conn, config Config, logger *slog.Logger) (*Store, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if nc == nil {
		return nil, errors.WrapFatal(errors.ErrStorageUnavailable, "natskv", "New",
			"nats connection is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	if config.Replicas <= 0 {
		config.Replicas = 1
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, errors.WrapFatal(err, "natskv", "New", "jetstream context creation")
	}

	bucket, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      config.Bucket,
		Description: config.Description,
		Replicas:    config.Replicas,
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "natskv", "New",
			fmt.Sprintf("create or bind bucket %q", config.Bucket))
	}

	return &Store{
		bucket:   bucket,
		timeout:  config.Timeout,
		retryCfg: retry.Quick(),
		logger:   logger.With("component", "natskv", "bucket", config.Bucket),
	}, nil
}

// Get retrieves the value stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	entry, err := retry.DoWithResult(ctx, s.retryCfg, func() (jetstream.KeyValueEntry, error) {
		entry, err := s.bucket.Get(ctx, key)
		if err != nil {
			if isNotFound(err) {
				// Absence is a stable answer, not worth retrying.
				return nil, retry.NonRetryable(err)
			}
			return nil, err
		}
		return entry, nil
	})
	if err != nil {
		if isNotFound(err) {
			return nil, errors.WrapInvalid(errors.ErrKeyNotFound, "natskv", "Get", key)
		}
		return nil, errors.WrapTransient(err, "natskv", "Get", key)
	}

	return entry.Value(), nil
}

// Put creates or replaces the value stored under key (last writer wins).
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return errors.WrapInvalid(errors.ErrInvalidKey, "natskv", "Put", "key cannot be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rev, err := retry.DoWithResult(ctx, s.retryCfg, func() (uint64, error) {
		return s.bucket.Put(ctx, key, value)
	})
	if err != nil {
		return errors.WrapTransient(err, "natskv", "Put", key)
	}

	s.logger.Debug("kv put", "key", key, "revision", rev, "bytes", len(value))
	return nil
}

// Delete removes the key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.bucket.Delete(ctx, key); err != nil {
		if isNotFound(err) {
			return nil
		}
		return errors.WrapTransient(err, "natskv", "Delete", key)
	}

	s.logger.Debug("kv delete", "key", key)
	return nil
}

// List returns all keys with the given prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	lister, err := s.bucket.ListKeys(ctx)
	if err != nil {
		if isNoKeys(err) {
			return nil, nil
		}
		return nil, errors.WrapTransient(err, "natskv", "List", prefix)
	}

	var keys []string
	for key := range lister.Keys() {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// isNotFound checks the JetStream sentinel plus the raw server error code,
// which still leaks through some client paths.
func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, jetstream.ErrKeyNotFound) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "key not found") || strings.Contains(msg, "10037")
}

// isNoKeys matches the lister's empty-bucket error.
func isNoKeys(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no keys found")
}

var _ storage.KV = (*Store)(nil)
