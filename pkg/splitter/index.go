package splitter

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mongodb/mongo-hadoop/pkg/bsonstream"
)

// Field names of a split index record.
const (
	startField  = "s"
	lengthField = "l"
)

// IndexPath returns the hidden sibling file that holds the splits of path.
func IndexPath(path string) string {
	dir, name := filepath.Split(path)
	return filepath.Join(dir, "."+name+".splits")
}

// WriteIndex stores splits next to the document file at path, one
// {s, l} document per split. The index is replaced atomically.
func WriteIndex(path string, splits []Split) error {
	indexPath := IndexPath(path)

	tmp, err := os.CreateTemp(filepath.Dir(indexPath), filepath.Base(indexPath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create split index: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bsonstream.NewWriter(tmp, bsonstream.Config{KeyField: startField})
	err = w.WriteAll(func(yield func(bsonstream.Document) bool) {
		for _, s := range splits {
			doc := bsonstream.Document{
				{Key: startField, Value: bsonstream.Int64(s.Start)},
				{Key: lengthField, Value: bsonstream.Int64(s.Length)},
			}
			if !yield(doc) {
				return
			}
		}
	})
	if err != nil {
		tmp.Close()
		return fmt.Errorf("write split index: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close split index: %w", err)
	}
	if err := os.Rename(tmp.Name(), indexPath); err != nil {
		return fmt.Errorf("install split index: %w", err)
	}
	return nil
}

// ReadIndex loads the splits stored for path. It returns ErrNoIndex when
// no index exists.
func ReadIndex(path string) ([]Split, error) {
	f, err := os.Open(IndexPath(path))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoIndex
	}
	if err != nil {
		return nil, fmt.Errorf("open split index: %w", err)
	}
	defer f.Close()

	var splits []Split
	r := bsonstream.NewReader(f, bsonstream.Config{})
	for doc, err := range r.All() {
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedIndex, err)
		}
		s, err := splitFromDocument(doc)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %w", ErrMalformedIndex, len(splits), err)
		}
		splits = append(splits, s)
	}
	return splits, nil
}

func splitFromDocument(doc bsonstream.Document) (Split, error) {
	start, err := intField(doc, startField)
	if err != nil {
		return Split{}, err
	}
	length, err := intField(doc, lengthField)
	if err != nil {
		return Split{}, err
	}
	return Split{Start: start, Length: length}, nil
}

func intField(doc bsonstream.Document, key string) (int64, error) {
	v, ok := doc.Lookup(key)
	if !ok {
		return 0, fmt.Errorf("missing field %q", key)
	}
	switch n := v.(type) {
	case bsonstream.Int64:
		return int64(n), nil
	case bsonstream.Int32:
		return int64(n), nil
	}
	return 0, fmt.Errorf("field %q has type %s", key, v.Type())
}

// LoadOrCompute returns the indexed splits of path when an index at least
// as recent as the file exists and is consistent with its size; otherwise it
// computes the splits and rewrites the index. The boolean reports whether
// the index was used.
func LoadOrCompute(ctx context.Context, path string, c *Calculator) ([]Split, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, false, err
	}

	if splits, ok := c.loadFresh(path, info); ok {
		return splits, true, nil
	}

	res, err := c.Compute(ctx, path)
	if err != nil {
		return nil, false, err
	}
	if err := WriteIndex(path, res.Splits); err != nil {
		return nil, false, err
	}
	return res.Splits, false, nil
}

func (c *Calculator) loadFresh(path string, data fs.FileInfo) ([]Split, bool) {
	index, err := os.Stat(IndexPath(path))
	if err != nil || index.ModTime().Before(data.ModTime()) {
		return nil, false
	}

	splits, err := ReadIndex(path)
	if err != nil {
		c.cfg.Logger.Printf("[SPLITTER] Ignoring split index for %s: %v", path, err)
		return nil, false
	}
	if err := Contiguous(splits); err != nil {
		c.cfg.Logger.Printf("[SPLITTER] Ignoring split index for %s: %v", path, err)
		return nil, false
	}
	if len(splits) > 0 && splits[len(splits)-1].End() > data.Size() {
		c.cfg.Logger.Printf("[SPLITTER] Ignoring split index for %s: splits extend past end of file", path)
		return nil, false
	}
	return splits, true
}
