package credential

import (
	"context"
	"errors"
	"fmt"

	"github.com/evanofslack/cf-ddns/internal/config"
	"github.com/evanofslack/cf-ddns/internal/metrics"
)

// Store maps a bare hostname to its expected password. A missing entry is
// reported as ok=false with a nil error; errors are reserved for a faulty
// backend and are always *StorageError.
type Store interface {
	Lookup(ctx context.Context, hostname string) (password string, ok bool, err error)
	Close() error
}

// Admin is implemented by backends the ddns-passwd tool can write to.
type Admin interface {
	Store
	Set(ctx context.Context, hostname, password string) error
	Delete(ctx context.Context, hostname string) error
	List(ctx context.Context) ([]string, error)
}

type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("credential store %s: %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageError(backend string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Backend: backend, Err: err}
}

// Open builds the configured backend and wraps it in the read-through
// cache unless the cache TTL is zero.
func Open(cfg config.Credentials, metrics *metrics.Metrics) (Store, error) {
	var (
		store Store
		err   error
	)
	switch cfg.Backend {
	case config.BackendBadger:
		store, err = NewBadger(cfg.Path, metrics)
	case config.BackendRedis:
		store, err = NewRedis(cfg.Redis, metrics)
	case config.BackendFile:
		store, err = NewFile(cfg.Path, metrics)
	default:
		return nil, fmt.Errorf("unknown credential backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	if cfg.CacheTTL <= 0 {
		return store, nil
	}
	cached, err := NewCached(store, cfg.CacheTTL, metrics)
	if err != nil {
		store.Close()
		return nil, err
	}
	return cached, nil
}
