package catalog

import (
	"errors"
	"fmt"
	"time"

	"github.com/mongodb/mongo-hadoop/pkg/bsonstream"
	"github.com/mongodb/mongo-hadoop/pkg/splitter"
)

// document encodes the entry. Times are kept in nanoseconds so that a
// modification time compares equal after a round trip.
func (e *Entry) document() bsonstream.Document {
	splits := make(bsonstream.Array, len(e.Splits))
	for i, s := range e.Splits {
		splits[i] = bsonstream.D("s", s.Start, "l", s.Length)
	}
	return bsonstream.D(
		"_id", e.Path,
		"size", e.Size,
		"mtime", e.ModTime.UnixNano(),
		"max", e.MaxSplitSize,
		"docs", e.Documents,
		"splits", splits,
		"computed", bsonstream.NewDateTime(e.ComputedAt),
	)
}

func entryFromDocument(doc bsonstream.Document) (*Entry, error) {
	var (
		e   Entry
		err error
	)

	id, _ := doc.Lookup("_id")
	path, ok := id.(bsonstream.String)
	if !ok {
		return nil, errors.New("missing path")
	}
	e.Path = string(path)

	var mtime int64
	for _, f := range []struct {
		key string
		dst *int64
	}{
		{"size", &e.Size},
		{"mtime", &mtime},
		{"max", &e.MaxSplitSize},
		{"docs", &e.Documents},
	} {
		if *f.dst, err = int64Field(doc, f.key); err != nil {
			return nil, err
		}
	}
	e.ModTime = time.Unix(0, mtime)

	if v, ok := doc.Lookup("computed"); ok {
		if dt, ok := v.(bsonstream.DateTime); ok {
			e.ComputedAt = dt.Time()
		}
	}

	v, _ := doc.Lookup("splits")
	arr, ok := v.(bsonstream.Array)
	if !ok {
		return nil, errors.New("missing splits")
	}
	e.Splits = make([]splitter.Split, len(arr))
	for i, item := range arr {
		sd, ok := item.(bsonstream.Document)
		if !ok {
			return nil, fmt.Errorf("split %d is %s, not a document", i, item.Type())
		}
		if e.Splits[i].Start, err = int64Field(sd, "s"); err != nil {
			return nil, fmt.Errorf("split %d: %w", i, err)
		}
		if e.Splits[i].Length, err = int64Field(sd, "l"); err != nil {
			return nil, fmt.Errorf("split %d: %w", i, err)
		}
	}
	return &e, nil
}

func int64Field(doc bsonstream.Document, key string) (int64, error) {
	v, ok := doc.Lookup(key)
	if !ok {
		return 0, fmt.Errorf("missing field %q", key)
	}
	n, ok := v.(bsonstream.Int64)
	if !ok {
		return 0, fmt.Errorf("field %q is %s, not int64", key, v.Type())
	}
	return int64(n), nil
}
