package fault

import (
	"bytes"
	"context"

	bolt "go.etcd.io/bbolt"
)

var breakerBucket = []byte("circuit_breakers")

// BoltStateStore persists circuit-breaker state in a bbolt file so it
// survives process restarts. A breaker that was Open before a crash
// stays Open afterwards instead of hammering a still-broken
// dependency.
type BoltStateStore struct {
	db *bolt.DB
}

// OpenBoltStateStore opens (or creates) the database file at path.
func OpenBoltStateStore(path string) (*BoltStateStore, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(breakerBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltStateStore{db: db}, nil
}

// Close releases the underlying database file.
func (s *BoltStateStore) Close() error { return s.db.Close() }

// Get implements StateStore.
func (s *BoltStateStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(breakerBucket).Get([]byte(key))
		if v != nil {
			out = make([]byte, len(v))
			copy(out, v)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, out != nil, nil
}

// Put implements StateStore.
func (s *BoltStateStore) Put(_ context.Context, key string, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(breakerBucket).Put([]byte(key), value)
	})
}

// Delete implements StateStore.
func (s *BoltStateStore) Delete(_ context.Context, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(breakerBucket).Delete([]byte(key))
	})
}

// CAS implements StateStore. bbolt's single-writer transactions give
// the compare-and-swap atomicity for free.
func (s *BoltStateStore) CAS(_ context.Context, key string, old, value []byte) (bool, error) {
	swapped := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(breakerBucket)
		cur := b.Get([]byte(key))
		if old == nil {
			if cur != nil {
				return nil
			}
		} else if cur == nil || !bytes.Equal(cur, old) {
			return nil
		}
		swapped = true
		return b.Put([]byte(key), value)
	})
	return swapped, err
}
