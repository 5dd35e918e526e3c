package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/jpillora/backoff"

	"github.com/swiftwave-org/swctl/pkg/log"
)

var _ Store = &BadgerStore{}

// BadgerStore implements Store on BadgerDB.
//
// An on-disk store opens the database only for the duration of each call, so
// that several swctl processes can share one state directory. Badger holds an
// exclusive directory lock while open; a call that finds the lock taken
// retries with backoff until LockTimeout elapses. An in-memory store keeps the
// database open between Open and Close.
type BadgerStore struct {
	mu       sync.Mutex
	path     string
	inMemory bool
	db       *badger.DB
	logger   log.Logger
	key      []byte

	// LockTimeout bounds how long a call waits for another process to
	// release the database.
	LockTimeout time.Duration
}

// BadgerOption configures a BadgerStore.
type BadgerOption func(*BadgerStore)

// WithInMemory keeps all data in memory. Used by tests and by --ephemeral.
func WithInMemory() BadgerOption {
	return func(s *BadgerStore) {
		s.inMemory = true
	}
}

// WithEncryptionKey encrypts the database at rest with key (16, 24 or 32
// bytes). A directory written with one key cannot be opened with another.
func WithEncryptionKey(key []byte) BadgerOption {
	return func(s *BadgerStore) {
		s.key = key
	}
}

// NewBadgerStore creates a new BadgerDB-backed store.
func NewBadgerStore(logger log.Logger, opts ...BadgerOption) *BadgerStore {
	if logger == nil {
		logger = log.GetDefaultLogger()
	}

	s := &BadgerStore{
		logger:      logger.WithComponent("store"),
		LockTimeout: 3 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open records the database directory. In-memory stores open immediately.
func (s *BadgerStore) Open(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.path = path
	if !s.inMemory {
		s.logger.Debug("Store ready", log.Str("path", path))
		return nil
	}

	db, err := badger.Open(s.options())
	if err != nil {
		return fmt.Errorf("failed to open in-memory badger db: %w", err)
	}
	s.db = db
	return nil
}

// Close releases the database if it is held open.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Get returns the value stored under key.
func (s *BadgerStore) Get(ctx context.Context, namespace, key string) (string, error) {
	if err := validateNamespace(namespace); err != nil {
		return "", err
	}

	var value string
	err := s.withDB(ctx, func(db *badger.DB) error {
		return db.View(func(txn *badger.Txn) error {
			item, err := txn.Get(MakeKey(namespace, key))
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			if err != nil {
				return err
			}
			return item.Value(func(val []byte) error {
				value = string(val)
				return nil
			})
		})
	})
	return value, err
}

// Set stores value under key.
func (s *BadgerStore) Set(ctx context.Context, namespace, key, value string) error {
	if err := validateNamespace(namespace); err != nil {
		return err
	}

	return s.withDB(ctx, func(db *badger.DB) error {
		return db.Update(func(txn *badger.Txn) error {
			return txn.Set(MakeKey(namespace, key), []byte(value))
		})
	})
}

// Delete removes key.
func (s *BadgerStore) Delete(ctx context.Context, namespace, key string) error {
	if err := validateNamespace(namespace); err != nil {
		return err
	}

	return s.withDB(ctx, func(db *badger.DB) error {
		return db.Update(func(txn *badger.Txn) error {
			return txn.Delete(MakeKey(namespace, key))
		})
	})
}

// Clear removes every key of namespace.
func (s *BadgerStore) Clear(ctx context.Context, namespace string) error {
	if err := validateNamespace(namespace); err != nil {
		return err
	}

	return s.withDB(ctx, func(db *badger.DB) error {
		return db.DropPrefix(MakePrefix(namespace))
	})
}

// Keys lists the keys of namespace.
func (s *BadgerStore) Keys(ctx context.Context, namespace string) ([]string, error) {
	if err := validateNamespace(namespace); err != nil {
		return nil, err
	}

	var keys []string
	err := s.withDB(ctx, func(db *badger.DB) error {
		return db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.PrefetchValues = false
			opts.Prefix = MakePrefix(namespace)

			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Rewind(); it.Valid(); it.Next() {
				if _, key, ok := ParseKey(it.Item().KeyCopy(nil)); ok {
					keys = append(keys, key)
				}
			}
			return nil
		})
	})
	sort.Strings(keys)
	return keys, err
}

func (s *BadgerStore) options() badger.Options {
	var opts badger.Options
	if s.inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(s.path)
	}
	if len(s.key) > 0 {
		// Badger requires a block index cache when encryption is on.
		opts = opts.WithEncryptionKey(s.key).WithIndexCacheSize(8 << 20)
	}
	return opts.WithLogger(&badgerLogAdapter{logger: s.logger})
}

// withDB runs fn against the held database, or opens one for the call.
func (s *BadgerStore) withDB(ctx context.Context, fn func(db *badger.DB) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return fn(s.db)
	}
	if s.path == "" {
		return fmt.Errorf("store is not open")
	}

	db, err := s.openWithRetry(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			s.logger.Warn("Failed to close store", log.Err(cerr))
		}
	}()

	return fn(db)
}

func (s *BadgerStore) openWithRetry(ctx context.Context) (*badger.DB, error) {
	b := &backoff.Backoff{Min: 25 * time.Millisecond, Max: 500 * time.Millisecond, Factor: 2, Jitter: true}
	deadline := time.Now().Add(s.LockTimeout)

	for {
		db, err := badger.Open(s.options())
		if err == nil {
			return db, nil
		}
		if errors.Is(err, badger.ErrEncryptionKeyMismatch) {
			return nil, fmt.Errorf("state directory %s was written with a different key: %w", s.path, err)
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("failed to open badger db at %s: %w", s.path, err)
		}

		wait := b.Duration()
		s.logger.Debug("Store busy, retrying", log.Err(err), log.Duration("wait", wait))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

// badgerLogAdapter routes BadgerDB logs into our logger. Badger's info output
// is demoted to debug.
type badgerLogAdapter struct {
	logger log.Logger
}

func (l *badgerLogAdapter) Errorf(format string, args ...interface{}) {
	l.logger.Errorf("badger: "+format, args...)
}

func (l *badgerLogAdapter) Warningf(format string, args ...interface{}) {
	l.logger.Warnf("badger: "+format, args...)
}

func (l *badgerLogAdapter) Infof(format string, args ...interface{}) {
	l.logger.Debugf("badger: "+format, args...)
}

func (l *badgerLogAdapter) Debugf(format string, args ...interface{}) {
	l.logger.Debugf("badger: "+format, args...)
}
