package storage

import (
	"fmt"
	"slices"
	"time"

	bolt "go.etcd.io/bbolt"
)

// BboltBackend implements Backend on a bbolt database file.
type BboltBackend struct {
	db *bolt.DB
}

// NewBboltBackend opens or creates the database at path. It fails after
// timeout if another process holds the file lock.
func NewBboltBackend(path string, timeout time.Duration) (*BboltBackend, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("open bbolt database %s: %w", path, err)
	}
	return &BboltBackend{db: db}, nil
}

func (b *BboltBackend) CreateBucket(bucket string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	})
}

func lookup(tx *bolt.Tx, name string) (*bolt.Bucket, error) {
	bkt := tx.Bucket([]byte(name))
	if bkt == nil {
		return nil, fmt.Errorf("%w: %s", ErrBucketNotFound, name)
	}
	return bkt, nil
}

func (b *BboltBackend) Get(bucket, key string) ([]byte, error) {
	var value []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bkt, err := lookup(tx, bucket)
		if err != nil {
			return err
		}
		v := bkt.Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		// v is only valid inside the transaction.
		value = slices.Clone(v)
		return nil
	})
	return value, err
}

func (b *BboltBackend) Put(bucket, key string, value []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt, err := lookup(tx, bucket)
		if err != nil {
			return err
		}
		return bkt.Put([]byte(key), value)
	})
}

func (b *BboltBackend) Delete(bucket, key string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt, err := lookup(tx, bucket)
		if err != nil {
			return err
		}
		return bkt.Delete([]byte(key))
	})
}

func (b *BboltBackend) Update(bucket, key string, fn func(old []byte) ([]byte, error)) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt, err := lookup(tx, bucket)
		if err != nil {
			return err
		}
		next, err := fn(slices.Clone(bkt.Get([]byte(key))))
		if err != nil {
			return err
		}
		if next == nil {
			return bkt.Delete([]byte(key))
		}
		return bkt.Put([]byte(key), next)
	})
}

func (b *BboltBackend) ForEach(bucket string, fn func(key string, value []byte) error) error {
	return b.db.View(func(tx *bolt.Tx) error {
		bkt, err := lookup(tx, bucket)
		if err != nil {
			return err
		}
		return bkt.ForEach(func(k, v []byte) error {
			return fn(string(k), v)
		})
	})
}

// Path returns the database file path.
func (b *BboltBackend) Path() string { return b.db.Path() }

func (b *BboltBackend) Close() error { return b.db.Close() }
