package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/boltdb/bolt"
)

// reportBucket is the single bucket every BoltStore key lives in.
var reportBucket = []byte("reports")

// BoltStore implements Store on a bolt database file.
// Bolt serialises writers itself, so no extra locking is needed.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens (or creates) the database at path.
// It waits at most one second for the file lock held by another process.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt store %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(reportBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (b *BoltStore) view(fn func(*bolt.Bucket) error) error {
	return closedErr(b.db.View(func(tx *bolt.Tx) error {
		return fn(tx.Bucket(reportBucket))
	}))
}

func (b *BoltStore) update(fn func(*bolt.Bucket) error) error {
	return closedErr(b.db.Update(func(tx *bolt.Tx) error {
		return fn(tx.Bucket(reportBucket))
	}))
}

func closedErr(err error) error {
	if errors.Is(err, bolt.ErrDatabaseNotOpen) {
		return ErrClosed
	}
	return err
}

// Get returns a copy of the value; bolt memory is only valid inside the transaction.
func (b *BoltStore) Get(key string) ([]byte, error) {
	var result []byte
	err := b.view(func(bucket *bolt.Bucket) error {
		v := bucket.Get([]byte(key))
		if v == nil {
			return ErrKeyNotFound
		}
		result = make([]byte, len(v))
		copy(result, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (b *BoltStore) Put(key string, value []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	if value == nil {
		value = []byte{}
	}
	return b.update(func(bucket *bolt.Bucket) error {
		return bucket.Put([]byte(key), value)
	})
}

// Delete ignores the empty key, which bolt would reject.
func (b *BoltStore) Delete(key string) error {
	if key == "" {
		return nil
	}
	return b.update(func(bucket *bolt.Bucket) error {
		return bucket.Delete([]byte(key))
	})
}

// List walks the bucket cursor, which yields keys in byte order.
func (b *BoltStore) List() ([]string, error) {
	keys := []string{}
	err := b.view(func(bucket *bolt.Bucket) error {
		return bucket.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (b *BoltStore) Stats() (StoreStats, error) {
	var stats StoreStats
	err := b.view(func(bucket *bolt.Bucket) error {
		return bucket.ForEach(func(_, v []byte) error {
			stats.Keys++
			stats.Bytes += len(v)
			return nil
		})
	})
	return stats, err
}

// Close releases the file lock. Closing twice is not an error.
func (b *BoltStore) Close() error {
	return b.db.Close()
}
