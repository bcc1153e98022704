package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/evanofslack/cf-ddns/internal/metrics"
)

const (
	hostPrefix    = "host:"
	backendBadger = "badger"
)

// ErrLocked reports that another process, usually the running service,
// holds the badger directory lock.
var ErrLocked = errors.New("badger database is locked by another process")

type entry struct {
	Password  string `json:"password"`
	UpdatedAt int64  `json:"updatedAt"`
}

type BadgerStore struct {
	db      *badger.DB
	metrics *metrics.Metrics
}

func NewBadger(path string, metrics *metrics.Metrics) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable Badger's internal logger

	db, err := badger.Open(opts)
	if err != nil {
		// badger flattens the flock error into text
		if strings.Contains(err.Error(), "Cannot acquire directory lock") {
			err = fmt.Errorf("%w: %v", ErrLocked, err)
		}
		return nil, storageError(backendBadger, fmt.Errorf("open badger db: %w", err))
	}
	return &BadgerStore{db: db, metrics: metrics}, nil
}

func (s *BadgerStore) Lookup(ctx context.Context, hostname string) (string, bool, error) {
	var (
		e     entry
		found bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(hostPrefix + hostname))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &e)
		})
	})
	s.metrics.IncCredentialRequest(backendBadger, err == nil)
	if err != nil {
		return "", false, storageError(backendBadger, fmt.Errorf("lookup %s: %w", hostname, err))
	}
	if !found {
		return "", false, nil
	}
	return e.Password, true, nil
}

func (s *BadgerStore) Set(ctx context.Context, hostname, password string) error {
	data, err := json.Marshal(entry{Password: password, UpdatedAt: time.Now().Unix()})
	if err != nil {
		return storageError(backendBadger, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(hostPrefix+hostname), data)
	})
	s.metrics.IncCredentialRequest(backendBadger, err == nil)
	return storageError(backendBadger, err)
}

func (s *BadgerStore) Delete(ctx context.Context, hostname string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(hostPrefix + hostname))
	})
	s.metrics.IncCredentialRequest(backendBadger, err == nil)
	return storageError(backendBadger, err)
}

// List returns stored hostnames in key order.
func (s *BadgerStore) List(ctx context.Context) ([]string, error) {
	var hosts []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(hostPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			hosts = append(hosts, key[len(hostPrefix):])
		}
		return nil
	})
	s.metrics.IncCredentialRequest(backendBadger, err == nil)
	if err != nil {
		return nil, storageError(backendBadger, err)
	}
	return hosts, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
