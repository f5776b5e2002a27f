package storage

import (
	"fmt"
	"slices"
	"sync"
)

// MemoryBackend implements Backend with in-memory maps. Nothing is persisted.
type MemoryBackend struct {
	mu      sync.RWMutex
	buckets map[string]map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{buckets: make(map[string]map[string][]byte)}
}

func (m *MemoryBackend) CreateBucket(bucket string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.buckets[bucket]; !ok {
		m.buckets[bucket] = make(map[string][]byte)
	}
	return nil
}

func (m *MemoryBackend) bucket(name string) (map[string][]byte, error) {
	bkt, ok := m.buckets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBucketNotFound, name)
	}
	return bkt, nil
}

func (m *MemoryBackend) Get(bucket, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bkt, err := m.bucket(bucket)
	if err != nil {
		return nil, err
	}
	v, ok := bkt[key]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(v), nil
}

func (m *MemoryBackend) Put(bucket, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bkt, err := m.bucket(bucket)
	if err != nil {
		return err
	}
	bkt[key] = slices.Clone(value)
	return nil
}

func (m *MemoryBackend) Delete(bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bkt, err := m.bucket(bucket)
	if err != nil {
		return err
	}
	delete(bkt, key)
	return nil
}

func (m *MemoryBackend) Update(bucket, key string, fn func(old []byte) ([]byte, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bkt, err := m.bucket(bucket)
	if err != nil {
		return err
	}
	next, err := fn(slices.Clone(bkt[key]))
	if err != nil {
		return err
	}
	if next == nil {
		delete(bkt, key)
		return nil
	}
	bkt[key] = slices.Clone(next)
	return nil
}

func (m *MemoryBackend) ForEach(bucket string, fn func(key string, value []byte) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bkt, err := m.bucket(bucket)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(bkt))
	for k := range bkt {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		if err := fn(k, bkt[k]); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryBackend) Close() error { return nil }
