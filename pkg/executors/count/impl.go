package count

import (
	"iter"

	"github.com/mongodb/mongo-hadoop/pkg/bsonstream"
	"github.com/mongodb/mongo-hadoop/pkg/executor"
)

const Description = "Counts documents per key"

// Executor counts the documents that share a group key.
type Executor struct {
	opts executor.Options
}

func New(opts executor.Options) (executor.Executor, error) {
	return Executor{opts: opts.WithDefaults()}, nil
}

// Map emits {key, count: 1} per document that has a group key.
func (e Executor) Map(docs iter.Seq[bsonstream.Document], emit bsonstream.Emitter) error {
	for doc := range docs {
		key, ok := e.opts.GroupKey(doc)
		if !ok {
			continue
		}
		if err := emit(bsonstream.D(e.opts.KeyField, key, "count", int64(1))); err != nil {
			return err
		}
	}
	return nil
}

// Reduce sums the count fields of a group. Values without a numeric count
// count as one.
func (e Executor) Reduce(key bsonstream.Value, values iter.Seq[bsonstream.Document], emit bsonstream.Emitter) error {
	var total int64
	for doc := range values {
		n := int64(1)
		if v, ok := doc.Lookup("count"); ok {
			if f, ok := bsonstream.Number(v); ok {
				n = int64(f)
			}
		}
		total += n
	}
	return emit(bsonstream.D(e.opts.KeyField, key, "count", total))
}

func (e Executor) Description() string { return Description }
