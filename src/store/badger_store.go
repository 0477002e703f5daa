package store

import (
	"fmt"
	"os"
	"sync"

	"github.com/dgraph-io/badger"
	"github.com/sirupsen/logrus"
)

const poolPrefix = "pool"

// BadgerStore persists descriptors in a Badger database. Each descriptor is
// stored under pool_<name> in canonical JSON.
type BadgerStore struct {
	// l serializes the check-then-write of Create and Delete and guards
	// closed.
	l      sync.RWMutex
	db     *badger.DB
	path   string
	closed bool
}

// NewBadgerStore opens an existing database or creates a new one if nothing is
// found in path.
func NewBadgerStore(path string, logger *logrus.Entry) (*BadgerStore, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(path).
		WithSyncWrites(true).
		WithTruncate(true)

	if logger != nil {
		sub := logger.WithFields(logrus.Fields{"ns": "badger"})
		opts = opts.WithLogger(sub)
	}

	handle, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &BadgerStore{
		db:   handle,
		path: path,
	}, nil
}

func poolKey(name string) []byte {
	return []byte(fmt.Sprintf("%s_%s", poolPrefix, name))
}

func poolKeyPrefix() []byte {
	return []byte(poolPrefix + "_")
}

func isDBKeyNotFound(err error) bool {
	return err == badger.ErrKeyNotFound
}

// Path returns the database directory.
func (s *BadgerStore) Path() string {
	return s.path
}

// Create implements the Store interface.
func (s *BadgerStore) Create(desc *Descriptor) error {
	s.l.Lock()
	defer s.l.Unlock()

	if s.closed {
		return closed(desc.Name)
	}

	val, err := desc.Copy().Marshal()
	if err != nil {
		return err
	}

	tx := s.db.NewTransaction(true)
	defer tx.Discard()

	key := poolKey(desc.Name)

	_, err = tx.Get(key)
	if err == nil {
		return alreadyExists(desc.Name)
	}
	if !isDBKeyNotFound(err) {
		return err
	}

	if err := tx.Set(key, val); err != nil {
		return err
	}

	return tx.Commit()
}

// Get implements the Store interface.
func (s *BadgerStore) Get(name string) (*Descriptor, error) {
	s.l.RLock()
	defer s.l.RUnlock()

	if s.closed {
		return nil, closed(name)
	}

	var descBytes []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(poolKey(name))
		if err != nil {
			return err
		}
		descBytes, err = item.ValueCopy(nil)
		return err
	})

	if err != nil {
		if isDBKeyNotFound(err) {
			return nil, notFound(name)
		}
		return nil, err
	}

	desc := new(Descriptor)
	if err := desc.Unmarshal(descBytes); err != nil {
		return nil, err
	}

	return desc, nil
}

// Delete implements the Store interface.
func (s *BadgerStore) Delete(name string) error {
	s.l.Lock()
	defer s.l.Unlock()

	if s.closed {
		return closed(name)
	}

	tx := s.db.NewTransaction(true)
	defer tx.Discard()

	key := poolKey(name)

	if _, err := tx.Get(key); err != nil {
		if isDBKeyNotFound(err) {
			return notFound(name)
		}
		return err
	}

	if err := tx.Delete(key); err != nil {
		return err
	}

	return tx.Commit()
}

// List implements the Store interface. Badger iterates keys in byte order,
// so the names come out sorted.
func (s *BadgerStore) List() ([]string, error) {
	s.l.RLock()
	defer s.l.RUnlock()

	if s.closed {
		return nil, closed("")
	}

	prefix := poolKeyPrefix()
	names := []string{}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			names = append(names, string(key[len(prefix):]))
		}
		return nil
	})

	return names, err
}

// Close implements the Store interface.
func (s *BadgerStore) Close() error {
	s.l.Lock()
	defer s.l.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
