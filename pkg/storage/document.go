package storage

import (
	"fmt"

	"github.com/mongodb/mongo-hadoop/pkg/bsonstream"
)

// DocumentStore stores BSON documents in a Backend, one encoded frame per
// key.
type DocumentStore struct {
	backend Backend
}

func NewDocumentStore(backend Backend) *DocumentStore {
	return &DocumentStore{backend: backend}
}

// Backend returns the underlying backend.
func (s *DocumentStore) Backend() Backend { return s.backend }

func (s *DocumentStore) Put(bucket, key string, doc bsonstream.Document) error {
	frame, err := bsonstream.Encode(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", bucket, key, err)
	}
	return s.backend.Put(bucket, key, frame)
}

// Get returns the document stored under key, or ErrNotFound.
func (s *DocumentStore) Get(bucket, key string) (bsonstream.Document, error) {
	frame, err := s.backend.Get(bucket, key)
	if err != nil {
		return nil, err
	}
	doc, err := bsonstream.DecodeDocument(frame)
	if err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", bucket, key, err)
	}
	return doc, nil
}

func (s *DocumentStore) Delete(bucket, key string) error {
	return s.backend.Delete(bucket, key)
}

// ForEach decodes every document in the bucket, in key order.
func (s *DocumentStore) ForEach(bucket string, fn func(key string, doc bsonstream.Document) error) error {
	return s.backend.ForEach(bucket, func(key string, frame []byte) error {
		doc, err := bsonstream.DecodeDocument(frame)
		if err != nil {
			return fmt.Errorf("decode %s/%s: %w", bucket, key, err)
		}
		return fn(key, doc)
	})
}

func (s *DocumentStore) Close() error { return s.backend.Close() }
