package cachestore

import (
	"context"
	"errors"
	"time"

	"github.com/astroask/backend/internal/core/ports"
	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

// BadgerStore keeps entries in an embedded Badger database using native key TTLs.
type BadgerStore struct {
	db         *badger.DB
	defaultTTL time.Duration
	logger     *logrus.Logger
}

// OpenBadgerStore opens (or creates) a database in dir. An empty dir keeps
// everything in memory.
func OpenBadgerStore(dir string, defaultTTL time.Duration, logger *logrus.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	if logger != nil {
		opts = opts.WithLogger(logger)
	} else {
		opts = opts.WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	if defaultTTL <= 0 {
		defaultTTL = 24 * time.Hour
	}
	return &BadgerStore{db: db, defaultTTL: defaultTTL, logger: logger}, nil
}

// DB exposes the handle for health checks.
func (s *BadgerStore) DB() *badger.DB { return s.db }

// Get implements ports.Cache. Values that are not JSON are deleted and reported absent.
func (s *BadgerStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if !json.Valid(val) {
		if err := s.Delete(context.Background(), key); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	return val, true, nil
}

// Set implements ports.Cache.
func (s *BadgerStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), value).WithTTL(ttl))
	})
}

// Delete implements ports.Cache.
func (s *BadgerStore) Delete(_ context.Context, key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Purge runs one value log garbage collection pass. Expired keys are already
// invisible to readers, so the count is always zero.
func (s *BadgerStore) Purge(_ context.Context) (int, error) {
	err := s.db.RunValueLogGC(0.5)
	if err == nil || errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
		return 0, nil
	}
	return 0, err
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

var (
	_ ports.Cache       = (*BadgerStore)(nil)
	_ ports.CachePurger = (*BadgerStore)(nil)
)
