package average

import (
	"fmt"
	"iter"

	"github.com/mongodb/mongo-hadoop/pkg/bsonstream"
	"github.com/mongodb/mongo-hadoop/pkg/executor"
)

const Description = "Calculates the average of a numeric field per key"

// Executor averages Options.Field per group key.
//
// Reduce output carries count and sum alongside avg, and Reduce accepts its
// own output as input, so results can be reduced again.
type Executor struct {
	opts executor.Options
}

func New(opts executor.Options) (executor.Executor, error) {
	opts = opts.WithDefaults()
	if opts.Field == "" {
		return nil, fmt.Errorf("average: %w", executor.ErrMissingField)
	}
	return Executor{opts: opts}, nil
}

// Map emits {key, field} for every document with a group key and a numeric
// field. Other documents are skipped.
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

// Reduce emits {key, count, sum, avg}. Groups without numeric values emit
// nothing.
func (e Executor) Reduce(key bsonstream.Value, values iter.Seq[bsonstream.Document], emit bsonstream.Emitter) error {
	var (
		sum   float64
		count int64
	)
	for doc := range values {
		if s, c, ok := partial(doc); ok {
			sum += s
			count += c
			continue
		}
		if v, ok := e.opts.Numeric(doc); ok {
			sum += v
			count++
		}
	}

	if count == 0 {
		return nil
	}
	return emit(bsonstream.D(
		e.opts.KeyField, key,
		"count", count,
		"sum", sum,
		"avg", sum/float64(count),
	))
}

// partial reads a previously reduced {count, sum} document.
func partial(doc bsonstream.Document) (float64, int64, bool) {
	cv, ok := doc.Lookup("count")
	if !ok {
		return 0, 0, false
	}
	sv, ok := doc.Lookup("sum")
	if !ok {
		return 0, 0, false
	}
	c, ok := bsonstream.Number(cv)
	if !ok {
		return 0, 0, false
	}
	s, ok := bsonstream.Number(sv)
	if !ok {
		return 0, 0, false
	}
	return s, int64(c), true
}

func (e Executor) Description() string { return Description }
