// Package storage provides a small bucketed key-value store used to keep
// metadata about document files between runs.
package storage

import "errors"

var (
	ErrBucketNotFound = errors.New("bucket not found")
	ErrNotFound       = errors.New("key not found")
)

// Backend is a bucketed key-value store. Keys within a bucket are visited
// in byte order.
type Backend interface {
	// CreateBucket creates the named bucket if it does not exist.
	CreateBucket(bucket string) error

	// Get returns the value stored under key, or ErrNotFound.
	Get(bucket, key string) ([]byte, error)
	Put(bucket, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(bucket, key string) error

	// Update replaces the value under key with the result of fn, atomically
	// with respect to other writers. fn receives nil when the key is absent;
	// returning a nil value deletes the key.
	Update(bucket, key string, fn func(old []byte) ([]byte, error)) error

	// ForEach calls fn for every pair in the bucket. Values are only valid
	// for the duration of the call.
	ForEach(bucket string, fn func(key string, value []byte) error) error

	Close() error
}
