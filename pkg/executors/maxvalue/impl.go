package maxvalue

import (
	"fmt"
	"iter"

	"github.com/mongodb/mongo-hadoop/pkg/bsonstream"
	"github.com/mongodb/mongo-hadoop/pkg/executor"
)

const Description = "Finds the maximum of a numeric field per key"

// Executor finds the maximum of Options.Field per group key.
type Executor struct {
	opts executor.Options
}

func New(opts executor.Options) (executor.Executor, error) {
	opts = opts.WithDefaults()
	if opts.Field == "" {
		return nil, fmt.Errorf("maxvalue: %w", executor.ErrMissingField)
	}
	return Executor{opts: opts}, nil
}

// Map emits {key, field} for every document with a group key and a numeric
// field.
func (e Executor) Map(docs iter.Seq[bsonstream.Document], emit bsonstream.Emitter) error {
	for doc := range docs {
		key, ok := e.opts.GroupKey(doc)
		if !ok {
			continue
		}
		v, ok := e.opts.Numeric(doc)
		if !ok {
			continue
		}
		if err := emit(bsonstream.D(e.opts.KeyField, key, e.opts.Field, v)); err != nil {
			return err
		}
	}
	return nil
}

// Reduce emits {key, max}. Finding a maximum is associative, so documents
// that already carry max are folded in as well.
func (e Executor) Reduce(key bsonstream.Value, values iter.Seq[bsonstream.Document], emit bsonstream.Emitter) error {
	var (
		maxVal float64
		seen   bool
	)
	for doc := range values {
		v, ok := e.value(doc)
		if !ok {
			continue
		}
		if !seen || v > maxVal {
			maxVal, seen = v, true
		}
	}

	if !seen {
		return nil
	}
	return emit(bsonstream.D(e.opts.KeyField, key, "max", maxVal))
}

func (e Executor) value(doc bsonstream.Document) (float64, bool) {
	if v, ok := doc.Lookup("max"); ok {
		return bsonstream.Number(v)
	}
	return e.opts.Numeric(doc)
}

func (e Executor) Description() string { return Description }
