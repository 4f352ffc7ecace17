package solver

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Cache is a hot, ephemeral, in-process store of search results: proofs that
// a named group of constraints has no solution, and the vector pool a
// coverage-driven pass already generated for a target set. It exists only
// for the lifetime of the process that opens it — unlike the durable
// campaign store, nothing here is expected to survive a restart.
type Cache struct {
	db *badger.DB
}

// NewCache opens an in-memory BadgerDB instance to back the cache.
func NewCache() (*Cache, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open solver cache: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close releases the cache's underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

const (
	unsatPrefix   = "unsat:"
	vectorsPrefix = "vectors:"
)

// MarkUnsat records that the constraint group fingerprinted by key has no
// solution, so a later fracture call over the same group can skip the
// search entirely.
func (c *Cache) MarkUnsat(key string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(unsatPrefix+key), []byte{})
	})
}

// IsUnsat reports whether key was previously proven unsatisfiable.
func (c *Cache) IsUnsat(key string) (bool, error) {
	var found bool
	err := c.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(unsatPrefix + key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return found, err
}

// PutVectors stores the vector pool generated for a coverage key so a later
// stage targeting the same key can reuse it instead of re-solving.
func (c *Cache) PutVectors(key string, vectors []TestVector) error {
	data, err := json.Marshal(vectors)
	if err != nil {
		return fmt.Errorf("marshal vector pool: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(vectorsPrefix+key), data)
	})
}

// GetVectors retrieves a previously stored vector pool, if any.
func (c *Cache) GetVectors(key string) ([]TestVector, bool, error) {
	var vectors []TestVector
	var found bool
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(vectorsPrefix + key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &vectors)
		})
	})
	if err != nil {
		return nil, false, err
	}
	return vectors, found, nil
}
