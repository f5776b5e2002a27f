// Package catalog remembers the splits computed for document files so a
// later run can skip the scan when the file has not changed.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/mongodb/mongo-hadoop/pkg/bsonstream"
	"github.com/mongodb/mongo-hadoop/pkg/splitter"
	"github.com/mongodb/mongo-hadoop/pkg/storage"
)

var (
	ErrNotFound            = errors.New("no catalog entry")
	ErrStale               = errors.New("catalog entry is stale")
	ErrIncompatibleVersion = errors.New("incompatible catalog version")
)

const (
	metaBucket   = "meta"
	splitsBucket = "splits"
	versionKey   = "version"
)

// Entry is the catalog record of one document file.
type Entry struct {
	Path         string
	Size         int64
	ModTime      time.Time
	MaxSplitSize int64
	Documents    int64
	Splits       []splitter.Split
	ComputedAt   time.Time
}

// Catalog is a persistent record of computed splits, keyed by absolute path.
type Catalog struct {
	store  *storage.DocumentStore
	logger *log.Logger
}

// Open opens or creates the catalog database at path.
func Open(path string, logger *log.Logger) (*Catalog, error) {
	backend, err := storage.NewBboltBackend(path, 5*time.Second)
	if err != nil {
		return nil, err
	}
	c, err := New(backend, logger)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return c, nil
}

// New creates a catalog on backend, initialising its buckets and checking
// the stored schema version.
func New(backend storage.Backend, logger *log.Logger) (*Catalog, error) {
	if logger == nil {
		logger = log.Default()
	}
	for _, bucket := range []string{metaBucket, splitsBucket} {
		if err := backend.CreateBucket(bucket); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}

	err := backend.Update(metaBucket, versionKey, func(old []byte) ([]byte, error) {
		if old == nil {
			logger.Printf("[CATALOG] Initialising catalog at schema %s", SchemaVersion)
			return []byte(SchemaVersion), nil
		}
		ok, err := compatible(string(old))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIncompatibleVersion, err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: catalog is %s, this build reads %s",
				ErrIncompatibleVersion, old, SchemaVersion)
		}
		return old, nil
	})
	if err != nil {
		return nil, err
	}

	return &Catalog{store: storage.NewDocumentStore(backend), logger: logger}, nil
}

// Close closes the underlying backend.
func (c *Catalog) Close() error { return c.store.Close() }

// Put records the splits computed for the file described by res.
func (c *Catalog) Put(res *splitter.Result, maxSplitSize int64) error {
	path, err := filepath.Abs(res.Path)
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	entry := &Entry{
		Path:         path,
		Size:         info.Size(),
		ModTime:      info.ModTime(),
		MaxSplitSize: maxSplitSize,
		Documents:    res.Documents,
		Splits:       res.Splits,
		ComputedAt:   time.Now(),
	}
	if err := c.store.Put(splitsBucket, path, entry.document()); err != nil {
		return err
	}
	c.logger.Printf("[CATALOG] Stored %d splits for %s", len(entry.Splits), path)
	return nil
}

// Get returns the entry for path. It returns ErrNotFound when there is none
// and ErrStale, along with the old entry, when the file's size or
// modification time or the requested split size no longer match.
func (c *Catalog) Get(path string, maxSplitSize int64) (*Entry, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	doc, err := c.store.Get(splitsBucket, abs)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, abs)
	}
	if err != nil {
		return nil, err
	}
	entry, err := entryFromDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("entry for %s: %w", abs, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	switch {
	case info.Size() != entry.Size:
		return entry, fmt.Errorf("%w: %s size changed from %d to %d", ErrStale, abs, entry.Size, info.Size())
	case !info.ModTime().Equal(entry.ModTime):
		return entry, fmt.Errorf("%w: %s modified at %s", ErrStale, abs, info.ModTime().Format(time.RFC3339))
	case maxSplitSize != entry.MaxSplitSize:
		return entry, fmt.Errorf("%w: %s was split at %d bytes, not %d", ErrStale, abs, entry.MaxSplitSize, maxSplitSize)
	}
	return entry, nil
}

// Delete removes the entry for path.
func (c *Catalog) Delete(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	return c.store.Delete(splitsBucket, abs)
}

// List returns every entry in path order.
func (c *Catalog) List() ([]*Entry, error) {
	var entries []*Entry
	err := c.store.ForEach(splitsBucket, func(key string, doc bsonstream.Document) error {
		entry, err := entryFromDocument(doc)
		if err != nil {
			return fmt.Errorf("entry for %s: %w", key, err)
		}
		entries = append(entries, entry)
		return nil
	})
	return entries, err
}

// Resolve returns the catalogued splits of path when they are current and
// otherwise computes and records them. The boolean reports a catalog hit.
func (c *Catalog) Resolve(ctx context.Context, path string, calc *splitter.Calculator) ([]splitter.Split, bool, error) {
	entry, err := c.Get(path, calc.SplitSize())
	switch {
	case err == nil:
		return entry.Splits, true, nil
	case errors.Is(err, ErrStale):
		c.logger.Printf("[CATALOG] %v; recomputing", err)
	case !errors.Is(err, ErrNotFound):
		return nil, false, err
	}

	res, err := calc.Compute(ctx, path)
	if err != nil {
		return nil, false, err
	}
	if err := c.Put(res, calc.SplitSize()); err != nil {
		return nil, false, err
	}
	return res.Splits, false, nil
}
